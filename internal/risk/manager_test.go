package risk_test

import (
	"testing"
	"time"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/risk"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rejectSymbols map[string]bool

func (r rejectSymbols) Correlated(symbol string, _ []string, _ time.Time) bool {
	return r[symbol]
}

func candidate(symbol string, price float64) risk.Candidate {
	return risk.Candidate{Symbol: symbol, Date: day(0), Price: price, Confidence: 80, Pattern: "vcp"}
}

func snapshot(cash float64, held ...string) risk.Snapshot {
	return risk.Snapshot{
		Cash:       decimal.NewFromFloat(cash),
		TotalValue: 100000,
		Held:       held,
	}
}

func symbols(approved []risk.Approval) []string {
	out := make([]string, len(approved))
	for i, a := range approved {
		out[i] = a.Symbol
	}
	return out
}

func newManager(t *testing.T, mutate func(*risk.Config), checker risk.CorrelationChecker) *risk.Manager {
	t.Helper()
	cfg := risk.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := risk.NewManager(cfg, checker)
	require.NoError(t, err)
	return m
}

func TestDefaultConfig(t *testing.T) {
	cfg := risk.DefaultConfig()

	assert.Equal(t, 10.0, cfg.PositionSizePct)
	assert.Equal(t, 20.0, cfg.MaxDrawdownPct)
	assert.Equal(t, 10, cfg.MaxPositions)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*risk.Config)
	}{
		{"no positions", func(c *risk.Config) { c.MaxPositions = 0 }},
		{"negative size", func(c *risk.Config) { c.PositionSizePct = -1 }},
		{"drawdown above 100", func(c *risk.Config) { c.MaxDrawdownPct = 120 }},
		{"negative risk cap", func(c *risk.Config) { c.MaxRiskPerTradePct = -2 }},
		{"zero atr multiplier", func(c *risk.Config) { c.ATRMultiplier = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := risk.DefaultConfig()
			tt.mutate(&cfg)
			_, err := risk.NewManager(cfg, nil)
			assert.ErrorIs(t, err, core.ErrConfigInvalid)
		})
	}
}

func TestAdmit_SizesAndConsumesCash(t *testing.T) {
	m := newManager(t, nil, nil)

	d := m.Admit(snapshot(100000), []risk.Candidate{candidate("AAA", 100), candidate("BBB", 250)})

	require.Len(t, d.Approved, 2)
	assert.Equal(t, int64(100), d.Approved[0].Shares)
	assert.True(t, d.Approved[0].Cost.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, int64(40), d.Approved[1].Shares)
	assert.Empty(t, d.Halted)
}

func TestAdmit_FullBookStopsTheQueue(t *testing.T) {
	m := newManager(t, func(c *risk.Config) { c.MaxPositions = 2 }, nil)

	snap := snapshot(100000, "HELD")
	d := m.Admit(snap, []risk.Candidate{candidate("BBB", 100), candidate("CCC", 100), candidate("DDD", 100)})

	assert.Equal(t, []string{"BBB"}, symbols(d.Approved))
	assert.Equal(t, risk.ReasonMaxPositions, d.Halted)
	assert.Len(t, d.Unevaluated, 2)
	assert.Equal(t, []string{"HELD"}, snap.Held, "snapshot must not change")
}

func TestAdmit_DrawdownHaltsEveryCandidate(t *testing.T) {
	m := newManager(t, nil, nil)

	snap := snapshot(100000)
	snap.DrawdownPct = 20.1
	d := m.Admit(snap, []risk.Candidate{candidate("AAA", 100), candidate("BBB", 50)})

	assert.Empty(t, d.Approved)
	assert.Empty(t, d.Rejected)
	assert.Equal(t, risk.ReasonDrawdownHalt, d.Halted)
	assert.Len(t, d.Unevaluated, 2)
}

func TestAdmit_DrawdownAtLimitStillAdmits(t *testing.T) {
	m := newManager(t, nil, nil)

	snap := snapshot(100000)
	snap.DrawdownPct = 20
	d := m.Admit(snap, []risk.Candidate{candidate("AAA", 100)})

	assert.Len(t, d.Approved, 1)
}

func TestAdmit_CashShortfallSkipsOnlyThatCandidate(t *testing.T) {
	m := newManager(t, nil, nil)

	d := m.Admit(snapshot(9500), []risk.Candidate{candidate("AAA", 100), candidate("BBB", 3000)})

	require.Len(t, d.Rejected, 1)
	assert.Equal(t, risk.ReasonInsufficientCash, d.Rejected[0].Reason)
	assert.Equal(t, []string{"BBB"}, symbols(d.Approved))
	assert.Equal(t, int64(3), d.Approved[0].Shares)
}

func TestAdmit_ZeroSharesSkips(t *testing.T) {
	m := newManager(t, nil, nil)

	d := m.Admit(snapshot(100000), []risk.Candidate{candidate("PRICY", 20000), candidate("AAA", 100)})

	require.Len(t, d.Rejected, 1)
	assert.Equal(t, risk.ReasonZeroSize, d.Rejected[0].Reason)
	assert.Equal(t, []string{"AAA"}, symbols(d.Approved))
}

func TestAdmit_CorrelatedSkips(t *testing.T) {
	m := newManager(t, nil, rejectSymbols{"BBB": true})

	d := m.Admit(snapshot(100000, "AAA"), []risk.Candidate{candidate("BBB", 100), candidate("CCC", 100)})

	require.Len(t, d.Rejected, 1)
	assert.Equal(t, risk.ReasonCorrelated, d.Rejected[0].Reason)
	assert.Equal(t, []string{"CCC"}, symbols(d.Approved))
}

func TestSize_RiskCap(t *testing.T) {
	m := newManager(t, func(c *risk.Config) { c.MaxRiskPerTradePct = 0.5 }, nil)

	// 10% stop on 100 risks 10 per share; 0.5% of 100000 allows 50 shares
	assert.Equal(t, int64(50), m.Size(100000, 100))
	assert.Equal(t, int64(0), m.Size(100000, 0))
}
