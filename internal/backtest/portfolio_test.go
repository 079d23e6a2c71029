package backtest

import (
	"testing"
	"time"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jan2 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func TestPortfolio_OpenClose(t *testing.T) {
	p := NewPortfolio(100000)

	pos, err := p.Open("AAA", "vcp", jan2, 50, 100, risk.InitialStop{Level: 45}, 60)
	require.NoError(t, err)
	assert.Equal(t, "95000", p.Cash().String())
	assert.Equal(t, "5000", pos.CostBasis().String())
	assert.True(t, p.Holds("AAA"))

	pos.CurrentPrice = 55
	assert.Equal(t, "100500", p.TotalValue().String())
	assert.InDelta(t, 10.0, pos.UnrealizedPct(), 1e-9)

	trade, err := p.Close("AAA", jan2.AddDate(0, 0, 7), 55, ExitTakeProfit)
	require.NoError(t, err)
	assert.InDelta(t, 500.0, trade.ProfitLoss, 1e-9)
	assert.InDelta(t, 10.0, trade.ProfitLossPct, 1e-9)
	assert.Equal(t, 7, trade.HoldingDays())
	assert.Equal(t, "vcp", trade.Pattern)
	assert.Equal(t, ExitTakeProfit, trade.ExitReason)

	assert.Equal(t, "100500", p.Cash().String())
	assert.False(t, p.Holds("AAA"))
	assert.Len(t, p.Trades(), 1)
}

func TestPortfolio_LedgerConservation(t *testing.T) {
	p := NewPortfolio(10000)

	_, err := p.Open("AAA", "vcp", jan2, 33.33, 30, risk.InitialStop{Level: 30}, 40)
	require.NoError(t, err)
	_, err = p.Open("BBB", "vcp", jan2, 12.07, 100, risk.InitialStop{Level: 11}, 14)
	require.NoError(t, err)
	_, err = p.Close("AAA", jan2.AddDate(0, 0, 1), 31.17, ExitSignal)
	require.NoError(t, err)
	_, err = p.Close("BBB", jan2.AddDate(0, 0, 2), 13.91, ExitSignal)
	require.NoError(t, err)

	var pl float64
	for _, tr := range p.Trades() {
		pl += tr.ProfitLoss
	}
	assert.InDelta(t, 10000+pl, p.Cash().InexactFloat64(), 1e-9)
	assert.Equal(t, "10119.2", p.Cash().String())
}

func TestPortfolio_OpenErrors(t *testing.T) {
	p := NewPortfolio(1000)

	_, err := p.Open("AAA", "vcp", jan2, 10, 50, risk.InitialStop{Level: 9}, 12)
	require.NoError(t, err)

	_, err = p.Open("AAA", "vcp", jan2, 10, 1, risk.InitialStop{Level: 9}, 12)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = p.Open("BBB", "vcp", jan2, 10, 51, risk.InitialStop{Level: 9}, 12)
	assert.Error(t, err)
	assert.False(t, p.Holds("BBB"))
	assert.Equal(t, "500", p.Cash().String())
}

func TestPortfolio_CloseUnknown(t *testing.T) {
	p := NewPortfolio(1000)

	_, err := p.Close("AAA", jan2, 10, ExitSignal)
	assert.Error(t, err)
}

func TestPortfolio_MarkDrawdown(t *testing.T) {
	p := NewPortfolio(100000)
	pos, err := p.Open("AAA", "vcp", jan2, 100, 100, risk.InitialStop{Level: 90}, 120)
	require.NoError(t, err)

	value, dd := p.Mark(jan2)
	assert.Equal(t, 100000.0, value)
	assert.Zero(t, dd)

	pos.CurrentPrice = 120
	value, dd = p.Mark(jan2.AddDate(0, 0, 1))
	assert.Equal(t, 102000.0, value)
	assert.Zero(t, dd)

	pos.CurrentPrice = 69
	value, dd = p.Mark(jan2.AddDate(0, 0, 2))
	assert.InDelta(t, 96900.0, value, 1e-9)
	assert.InDelta(t, 5.0, dd, 1e-9)

	snap := p.Snapshot()
	assert.InDelta(t, 5.0, snap.DrawdownPct, 1e-9)
	assert.Equal(t, []string{"AAA"}, snap.Held)
	assert.Equal(t, "90000", snap.Cash.String())
	assert.Len(t, p.EquityCurve(), 3)
}

func TestPortfolio_SymbolsSorted(t *testing.T) {
	p := NewPortfolio(100000)
	for _, s := range []string{"CCC", "AAA", "BBB"} {
		_, err := p.Open(s, "vcp", jan2, 10, 10, risk.InitialStop{Level: 9}, 12)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, p.Symbols())
	open := p.OpenPositions()
	require.Len(t, open, 3)
	assert.Equal(t, "AAA", open[0].Symbol)
}
