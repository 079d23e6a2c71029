package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func curveOf(values ...float64) []EquityPoint {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]EquityPoint, len(values))
	for i, v := range values {
		out[i] = EquityPoint{Date: start.AddDate(0, 0, i), Value: v}
	}
	return out
}

func TestCalculateStats_NoTrades(t *testing.T) {
	m := CalculateStats(nil, nil, 100000, DefaultStatsConfig())

	assert.Zero(t, m.TotalTrades)
	assert.Zero(t, m.ProfitFactor)
	assert.Zero(t, m.WinRate)
	assert.Equal(t, 100000.0, m.FinalValue)
	assert.Zero(t, m.TotalReturn)
}

func TestCalculateStats_TradeStats(t *testing.T) {
	entry := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	trades := []Trade{
		{ProfitLoss: 300, EntryDate: entry, ExitDate: entry.AddDate(0, 0, 10)},
		{ProfitLoss: -100, EntryDate: entry, ExitDate: entry.AddDate(0, 0, 4)},
		{ProfitLoss: 0, EntryDate: entry, ExitDate: entry.AddDate(0, 0, 1)},
	}

	m := CalculateStats(trades, nil, 100000, DefaultStatsConfig())

	assert.Equal(t, 3, m.TotalTrades)
	assert.Equal(t, 1, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades, "break-even trades are neither wins nor losses")
	assert.InDelta(t, 33.333, m.WinRate, 0.001)
	assert.InDelta(t, 3.0, m.ProfitFactor, 1e-9)
	assert.InDelta(t, 300.0, m.AvgWin, 1e-9)
	assert.InDelta(t, 100.0, m.AvgLoss, 1e-9)
	assert.InDelta(t, 66.667, m.Expectancy, 0.001)
	assert.InDelta(t, 5.0, m.AvgHoldingDays, 1e-9)
}

func TestCalculateStats_ProfitFactorOnlyWinners(t *testing.T) {
	m := CalculateStats([]Trade{{ProfitLoss: 50}, {ProfitLoss: 20}}, nil, 1000, DefaultStatsConfig())

	assert.True(t, math.IsInf(m.ProfitFactor, 1))
	assert.Equal(t, 100.0, m.WinRate)
}

func TestCalculateStats_MaxDrawdown(t *testing.T) {
	tests := []struct {
		name  string
		curve []EquityPoint
		want  float64
	}{
		{"peak then trough", curveOf(100000, 110000, 88000, 120000), 20},
		{"initial capital is the first peak", curveOf(90000, 95000), 10},
		{"only gains", curveOf(101000, 102000), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := CalculateStats(nil, tt.curve, 100000, DefaultStatsConfig())
			assert.InDelta(t, tt.want, m.MaxDrawdown, 1e-9)
		})
	}
}

func TestCalculateStats_Returns(t *testing.T) {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	curve := []EquityPoint{
		{Date: start, Value: 100000},
		{Date: start.AddDate(1, 0, 0), Value: 110000},
	}

	m := CalculateStats(nil, curve, 100000, DefaultStatsConfig())

	assert.InDelta(t, 10.0, m.TotalReturn, 1e-9)
	assert.InDelta(t, 10.0, m.CAGR, 0.01)
	assert.Equal(t, 110000.0, m.FinalValue)
	// two points over 252 periods per year annualize far above the calendar rate
	assert.Greater(t, m.AnnualizedReturn, m.CAGR)
}

func TestCalculateStats_RiskRatios(t *testing.T) {
	cfg := StatsConfig{RiskFreeRatePct: 0, PeriodsPerYear: 252}

	m := CalculateStats(nil, curveOf(100, 102, 100.98), 100, cfg)

	// excess returns +2% and -1%
	assert.InDelta(t, 3.7417, m.SharpeRatio, 1e-3)
	assert.InDelta(t, 11.2250, m.SortinoRatio, 1e-3)
}

func TestCalculateStats_FlatCurve(t *testing.T) {
	m := CalculateStats(nil, curveOf(100, 100, 100, 100), 100, StatsConfig{PeriodsPerYear: 252})

	assert.Zero(t, m.SharpeRatio)
	assert.Zero(t, m.SortinoRatio)
	assert.Zero(t, m.MaxDrawdown)
}

func TestCalculateStats_RiskFreeRateLowersSharpe(t *testing.T) {
	curve := curveOf(100, 101, 100.5, 102, 101.8, 103)

	withoutRF := CalculateStats(nil, curve, 100, StatsConfig{PeriodsPerYear: 252})
	withRF := CalculateStats(nil, curve, 100, StatsConfig{RiskFreeRatePct: 4, PeriodsPerYear: 252})

	assert.Less(t, withRF.SharpeRatio, withoutRF.SharpeRatio)
	assert.Less(t, withRF.SortinoRatio, withoutRF.SortinoRatio)
}

func TestTrade_IsWin(t *testing.T) {
	tests := []struct {
		name  string
		trade Trade
		want  bool
	}{
		{"profit", Trade{ProfitLoss: 5}, true},
		{"loss", Trade{ProfitLoss: -2}, false},
		{"break even", Trade{ProfitLoss: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.trade.IsWin())
		})
	}
}
