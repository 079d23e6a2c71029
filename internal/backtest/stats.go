package backtest

import (
	"math"
)

// StatsConfig parameterizes the ratio calculations.
type StatsConfig struct {
	RiskFreeRatePct float64 // annual, percent
	PeriodsPerYear  float64 // trading days per year
}

// DefaultStatsConfig assumes a 4% risk-free rate and 252 trading days.
func DefaultStatsConfig() StatsConfig {
	return StatsConfig{RiskFreeRatePct: 4, PeriodsPerYear: 252}
}

// Metrics holds performance statistics. Fields ending in a percent comment
// are percentages; ratios are plain numbers.
type Metrics struct {
	TotalTrades      int
	WinningTrades    int
	LosingTrades     int
	WinRate          float64 // percent of trades with positive profit
	TotalReturn      float64 // percent
	CAGR             float64 // percent, calendar years
	AnnualizedReturn float64 // percent, trading periods
	SharpeRatio      float64
	SortinoRatio     float64
	MaxDrawdown      float64 // percent, largest peak-to-trough decline
	ProfitFactor     float64 // +Inf with winners and no losers, 0 with no trades
	GrossProfit      float64
	GrossLoss        float64 // magnitude
	AvgWin           float64
	AvgLoss          float64 // magnitude
	Expectancy       float64 // mean profit per trade
	AvgHoldingDays   float64
	FinalValue       float64
}

// CalculateStats computes performance statistics from the ledger and the
// daily equity curve.
func CalculateStats(trades []Trade, curve []EquityPoint, initialCapital float64, cfg StatsConfig) Metrics {
	m := Metrics{FinalValue: initialCapital}
	if len(curve) > 0 {
		m.FinalValue = curve[len(curve)-1].Value
	}
	if initialCapital > 0 {
		m.TotalReturn = (m.FinalValue - initialCapital) / initialCapital * 100
	}

	calculateTradeStats(&m, trades)
	m.CAGR = calculateCAGR(curve, initialCapital, m.FinalValue)
	m.AnnualizedReturn = annualize(m.TotalReturn/100, float64(len(curve))/cfg.PeriodsPerYear) * 100
	m.MaxDrawdown = calculateMaxDrawdown(curve, initialCapital) * 100

	returns := dailyReturns(curve)
	dailyRF := cfg.RiskFreeRatePct / 100 / cfg.PeriodsPerYear
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - dailyRF
	}
	m.SharpeRatio = calculateSharpeRatio(excess, cfg.PeriodsPerYear)
	m.SortinoRatio = calculateSortinoRatio(excess, cfg.PeriodsPerYear)
	return m
}

func calculateTradeStats(m *Metrics, trades []Trade) {
	m.TotalTrades = len(trades)
	if len(trades) == 0 {
		return
	}

	var total, holding float64
	for _, t := range trades {
		total += t.ProfitLoss
		holding += float64(t.HoldingDays())
		switch {
		case t.IsWin():
			m.WinningTrades++
			m.GrossProfit += t.ProfitLoss
		case t.ProfitLoss < 0:
			m.LosingTrades++
			m.GrossLoss -= t.ProfitLoss
		}
	}

	n := float64(len(trades))
	m.WinRate = float64(m.WinningTrades) / n * 100
	m.Expectancy = total / n
	m.AvgHoldingDays = holding / n
	if m.WinningTrades > 0 {
		m.AvgWin = m.GrossProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = m.GrossLoss / float64(m.LosingTrades)
	}

	switch {
	case m.GrossLoss > 0:
		m.ProfitFactor = m.GrossProfit / m.GrossLoss
	case m.GrossProfit > 0:
		m.ProfitFactor = math.Inf(1)
	}
}

// calculateCAGR compounds over the calendar time the curve spans
func calculateCAGR(curve []EquityPoint, initial, final float64) float64 {
	if len(curve) < 2 || initial <= 0 {
		return 0
	}
	days := curve[len(curve)-1].Date.Sub(curve[0].Date).Hours() / 24
	return annualize(final/initial-1, days/365.25) * 100
}

func annualize(totalReturn, years float64) float64 {
	if years <= 0 || 1+totalReturn <= 0 {
		return 0
	}
	return math.Pow(1+totalReturn, 1/years) - 1
}

// calculateMaxDrawdown finds the largest peak-to-trough decline as a
// fraction, with the initial capital as the first peak
func calculateMaxDrawdown(curve []EquityPoint, initial float64) float64 {
	var maxDD float64
	peak := initial
	for _, p := range curve {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			maxDD = max(maxDD, (peak-p.Value)/peak)
		}
	}
	return maxDD
}

func dailyReturns(curve []EquityPoint) []float64 {
	var returns []float64
	for i := 1; i < len(curve); i++ {
		if prev := curve[i-1].Value; prev != 0 {
			returns = append(returns, curve[i].Value/prev-1)
		}
	}
	return returns
}

// calculateSharpeRatio annualizes mean excess return over its sample
// standard deviation
func calculateSharpeRatio(excess []float64, periods float64) float64 {
	if len(excess) < 2 {
		return 0
	}
	mean := meanOf(excess)

	var variance float64
	for _, r := range excess {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(excess)-1))
	if stdDev == 0 {
		return 0
	}
	return mean / stdDev * math.Sqrt(periods)
}

// calculateSortinoRatio uses the downside deviation, the root mean square
// of the negative excess returns taken over every period
func calculateSortinoRatio(excess []float64, periods float64) float64 {
	if len(excess) == 0 {
		return 0
	}
	var sq float64
	for _, r := range excess {
		if r < 0 {
			sq += r * r
		}
	}
	downside := math.Sqrt(sq / float64(len(excess)))
	if downside == 0 {
		return 0
	}
	return meanOf(excess) / downside * math.Sqrt(periods)
}

func meanOf(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
