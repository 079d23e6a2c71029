package backtest

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/risk"
	"github.com/shopspring/decimal"
)

// Portfolio is the cash, positions, ledger and equity curve of one run.
// It is owned by a single Engine.Run call and never shared.
type Portfolio struct {
	cash      decimal.Decimal
	positions map[string]*Position
	trades    []Trade
	equity    []EquityPoint
	peak      float64
}

// NewPortfolio starts a portfolio with all capital in cash.
func NewPortfolio(initialCapital float64) *Portfolio {
	c := decimal.NewFromFloat(initialCapital)
	return &Portfolio{
		cash:      c,
		positions: make(map[string]*Position),
		peak:      initialCapital,
	}
}

// Cash returns uncommitted capital.
func (p *Portfolio) Cash() decimal.Decimal {
	return p.cash
}

// Holds reports whether symbol has an open position.
func (p *Portfolio) Holds(symbol string) bool {
	_, ok := p.positions[symbol]
	return ok
}

// Position returns the open position for symbol.
func (p *Portfolio) Position(symbol string) (*Position, bool) {
	pos, ok := p.positions[symbol]
	return pos, ok
}

// Symbols lists held symbols in sorted order.
func (p *Portfolio) Symbols() []string {
	out := make([]string, 0, len(p.positions))
	for s := range p.positions {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// TotalValue is cash plus every position at its current price.
func (p *Portfolio) TotalValue() decimal.Decimal {
	total := p.cash
	for _, pos := range p.positions {
		total = total.Add(pos.MarketValue())
	}
	return total
}

// Open buys shares at price. Holding the symbol already or paying more
// than the available cash is an error.
func (p *Portfolio) Open(symbol, pattern string, date time.Time, price float64, shares int64, stop risk.StopState, takeProfit float64) (*Position, error) {
	if p.Holds(symbol) {
		return nil, core.Errorf(core.ErrInvalidInput, "position for %s already open", symbol)
	}
	cost := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(shares))
	if cost.GreaterThan(p.cash) {
		return nil, fmt.Errorf("open %s: cost %s exceeds cash %s", symbol, cost.StringFixed(2), p.cash.StringFixed(2))
	}

	pos := &Position{
		Symbol:       symbol,
		Pattern:      pattern,
		EntryDate:    date,
		EntryPrice:   price,
		Shares:       shares,
		Stop:         stop,
		TakeProfit:   takeProfit,
		CurrentPrice: price,
		CurrentDate:  date,
		cost:         cost,
	}
	p.cash = p.cash.Sub(cost)
	p.positions[symbol] = pos
	return pos, nil
}

// Close sells the whole position at price and appends the trade.
func (p *Portfolio) Close(symbol string, date time.Time, price float64, reason ExitReason) (Trade, error) {
	pos, ok := p.positions[symbol]
	if !ok {
		return Trade{}, fmt.Errorf("close %s: no open position", symbol)
	}

	proceeds := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(pos.Shares))
	pl := proceeds.Sub(pos.cost)
	var plPct float64
	if !pos.cost.IsZero() {
		plPct = pl.Div(pos.cost).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	t := Trade{
		Symbol:        symbol,
		Pattern:       pos.Pattern,
		EntryDate:     pos.EntryDate,
		EntryPrice:    pos.EntryPrice,
		ExitDate:      date,
		ExitPrice:     price,
		Shares:        pos.Shares,
		ProfitLoss:    pl.InexactFloat64(),
		ProfitLossPct: plPct,
		ExitReason:    reason,
	}
	p.cash = p.cash.Add(proceeds)
	delete(p.positions, symbol)
	p.trades = append(p.trades, t)
	return t, nil
}

// Mark records the day's closing value and returns it with the drawdown
// from the running peak in percent.
func (p *Portfolio) Mark(date time.Time) (value, drawdownPct float64) {
	value = p.TotalValue().InexactFloat64()
	p.equity = append(p.equity, EquityPoint{Date: date, Value: value})
	p.peak = max(p.peak, value)
	return value, p.drawdown(value)
}

func (p *Portfolio) drawdown(value float64) float64 {
	if p.peak <= 0 {
		return 0
	}
	return (p.peak - value) / p.peak * 100
}

// Snapshot copies what the admission gate needs.
func (p *Portfolio) Snapshot() risk.Snapshot {
	value := p.TotalValue().InexactFloat64()
	return risk.Snapshot{
		Cash:        p.cash,
		TotalValue:  value,
		DrawdownPct: p.drawdown(value),
		Held:        p.Symbols(),
	}
}

// Trades returns the ledger in execution order.
func (p *Portfolio) Trades() []Trade {
	return slices.Clone(p.trades)
}

// EquityCurve returns one point per processed day.
func (p *Portfolio) EquityCurve() []EquityPoint {
	return slices.Clone(p.equity)
}

// OpenPositions copies open positions in symbol order.
func (p *Portfolio) OpenPositions() []Position {
	out := make([]Position, 0, len(p.positions))
	for _, s := range p.Symbols() {
		out = append(out, *p.positions[s])
	}
	return out
}
