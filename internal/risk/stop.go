package risk

import (
	"time"

	"github.com/newthinker/sepa/internal/indicator"
)

// StopState is either InitialStop or TrailingStop. The set is closed.
type StopState interface {
	StopLevel() float64
	Trailing() bool
	stopState()
}

// InitialStop is a fixed stop below entry.
type InitialStop struct {
	Level float64
}

func (s InitialStop) StopLevel() float64 { return s.Level }
func (s InitialStop) Trailing() bool { return false }
func (InitialStop) stopState() {}

// TrailingStop follows price up and never moves down. There is no way
// back to InitialStop.
type TrailingStop struct {
	Level float64
	Since time.Time
}

func (s TrailingStop) StopLevel() float64 { return s.Level }
func (s TrailingStop) Trailing() bool { return true }
func (TrailingStop) stopState() {}

// Raise moves the stop to level when that is higher.
func (s TrailingStop) Raise(level float64) TrailingStop {
	s.Level = max(s.Level, level)
	return s
}

// StopPolicy computes stop and target levels. Percent fields are in percent.
type StopPolicy struct {
	InitialPct    float64
	TriggerPct    float64
	ATRMultiplier float64
	TakeProfitPct float64
}

// Initial returns the entry stop.
func (p StopPolicy) Initial(entry float64) InitialStop {
	return InitialStop{Level: entry * (1 - p.InitialPct/100)}
}

// TakeProfit returns the fixed target computed at entry.
func (p StopPolicy) TakeProfit(entry float64) float64 {
	return entry * (1 + p.TakeProfitPct/100)
}

// Advance moves the stop for the day's price. An initial stop switches to
// trailing once the gain over entry reaches TriggerPct. atr may be NaN.
func (p StopPolicy) Advance(state StopState, entry, price, atr float64, date time.Time) StopState {
	switch s := state.(type) {
	case InitialStop:
		if entry <= 0 || (price-entry)*100/entry < p.TriggerPct {
			return s
		}
		return TrailingStop{Level: s.Level, Since: date}.Raise(p.trail(price, atr))
	case TrailingStop:
		return s.Raise(p.trail(price, atr))
	default:
		return state
	}
}

// trail is the candidate trailing level, falling back to the initial
// percentage when ATR is unavailable.
func (p StopPolicy) trail(price, atr float64) float64 {
	if indicator.Defined(atr) && atr > 0 {
		return price - p.ATRMultiplier*atr
	}
	return price * (1 - p.InitialPct/100)
}
