// Package risk implements the per-position stop policy and the
// portfolio-level admission gate for new entries.
package risk

import (
	"github.com/newthinker/sepa/internal/core"
)

// Config defines risk management parameters. Percentages are expressed as
// percent, so 10.0 means 10%.
type Config struct {
	// MaxPositions is the maximum number of concurrent positions allowed.
	MaxPositions int
	// PositionSizePct is the share of total portfolio value put into one entry.
	PositionSizePct float64
	// MaxRiskPerTradePct caps the amount lost at the initial stop as a share of
	// total portfolio value. Zero disables the cap.
	MaxRiskPerTradePct float64
	// MaxDrawdownPct halts new entries for the day once drawdown from peak exceeds it.
	MaxDrawdownPct float64
	// InitialStopPct is the fixed stop distance below entry.
	InitialStopPct float64
	// TrailingTriggerPct is the unrealized gain that switches to a trailing stop.
	TrailingTriggerPct float64
	// ATRMultiplier sets the trailing distance in ATRs.
	ATRMultiplier float64
	// TakeProfitPct is the fixed target above entry.
	TakeProfitPct float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxPositions:       10,
		PositionSizePct:    10.0,
		MaxRiskPerTradePct: 0,
		MaxDrawdownPct:     20.0,
		InitialStopPct:     10.0,
		TrailingTriggerPct: 15.0,
		ATRMultiplier:      2.0,
		TakeProfitPct:      20.0,
	}
}

// Validate rejects settings the gate or stop policy cannot honor.
func (c Config) Validate() error {
	if c.MaxPositions <= 0 {
		return core.Errorf(core.ErrConfigInvalid, "max_positions must be positive, got %d", c.MaxPositions)
	}
	pcts := []struct {
		name  string
		value float64
	}{
		{"position_size_pct", c.PositionSizePct},
		{"max_drawdown_pct", c.MaxDrawdownPct},
		{"initial_stop_pct", c.InitialStopPct},
	}
	for _, p := range pcts {
		if p.value <= 0 || p.value > 100 {
			return core.Errorf(core.ErrConfigInvalid, "%s must be in (0,100], got %v", p.name, p.value)
		}
	}
	if c.MaxRiskPerTradePct < 0 || c.MaxRiskPerTradePct > 100 {
		return core.Errorf(core.ErrConfigInvalid, "max_risk_per_trade_pct must be in [0,100], got %v", c.MaxRiskPerTradePct)
	}
	if c.TrailingTriggerPct < 0 || c.TakeProfitPct <= 0 {
		return core.Errorf(core.ErrConfigInvalid, "trailing trigger and take profit must be non-negative and positive")
	}
	if c.ATRMultiplier <= 0 {
		return core.Errorf(core.ErrConfigInvalid, "atr_multiplier must be positive, got %v", c.ATRMultiplier)
	}
	return nil
}

// StopPolicy returns the stop policy described by c.
func (c Config) StopPolicy() StopPolicy {
	return StopPolicy{
		InitialPct:    c.InitialStopPct,
		TriggerPct:    c.TrailingTriggerPct,
		ATRMultiplier: c.ATRMultiplier,
		TakeProfitPct: c.TakeProfitPct,
	}
}
