package backtest

import (
	"time"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/risk"
	"github.com/shopspring/decimal"
)

// ExitReason records what closed a position
type ExitReason string

const (
	ExitStopLoss     ExitReason = "STOP_LOSS"
	ExitTrailingStop ExitReason = "TRAILING_STOP"
	ExitTakeProfit   ExitReason = "TAKE_PROFIT"
	ExitSignal       ExitReason = "SIGNAL"
)

// Universe is the input of one run. Bars outside [Start, End] are used
// only as indicator history.
type Universe struct {
	Securities []core.Security
	Benchmark  core.Security
	Start      time.Time
	End        time.Time
}

// Position is an open holding. Only the engine mutates it.
type Position struct {
	Symbol       string
	Pattern      string // pattern that triggered the entry
	EntryDate    time.Time
	EntryPrice   float64
	Shares       int64
	Stop         risk.StopState
	TakeProfit   float64
	CurrentPrice float64
	CurrentDate  time.Time

	cost decimal.Decimal
}

// StopLoss returns the current stop level.
func (p Position) StopLoss() float64 {
	return p.Stop.StopLevel()
}

// CostBasis returns what was paid for the position.
func (p Position) CostBasis() decimal.Decimal {
	return p.cost
}

// MarketValue values the position at its current price.
func (p Position) MarketValue() decimal.Decimal {
	return decimal.NewFromFloat(p.CurrentPrice).Mul(decimal.NewFromInt(p.Shares))
}

// UnrealizedPct returns the open gain in percent.
func (p Position) UnrealizedPct() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (p.CurrentPrice - p.EntryPrice) * 100 / p.EntryPrice
}

// Trade is a completed round trip
type Trade struct {
	Symbol        string
	Pattern       string
	EntryDate     time.Time
	EntryPrice    float64
	ExitDate      time.Time
	ExitPrice     float64
	Shares        int64
	ProfitLoss    float64
	ProfitLossPct float64 // percent of cost basis
	ExitReason    ExitReason
}

// IsWin returns true if the trade was profitable
func (t Trade) IsWin() bool {
	return t.ProfitLoss > 0
}

// HoldingDays counts calendar days between entry and exit.
func (t Trade) HoldingDays() int {
	return int(t.ExitDate.Sub(t.EntryDate).Hours() / 24)
}

// EquityPoint is the portfolio value at the end of one trading day.
type EquityPoint struct {
	Date  time.Time
	Value float64
}

// Result holds the complete backtest output
type Result struct {
	RunID         string
	StartDate     time.Time
	EndDate       time.Time
	Trades        []Trade
	EquityCurve   []EquityPoint
	OpenPositions []Position
	FinalCash     decimal.Decimal
	Metrics       Metrics
}
