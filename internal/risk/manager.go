package risk

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Reason explains why a candidate was not admitted.
type Reason string

const (
	ReasonMaxPositions     Reason = "max_positions"
	ReasonDrawdownHalt     Reason = "drawdown_halt"
	ReasonZeroSize         Reason = "zero_size"
	ReasonInsufficientCash Reason = "insufficient_cash"
	ReasonCorrelated       Reason = "correlated"
)

// Candidate is a proposed entry at the day's close.
type Candidate struct {
	Symbol     string
	Date       time.Time
	Price      float64
	Confidence float64
	Pattern    string
}

// Snapshot is a read-only copy of the portfolio state the gate needs.
type Snapshot struct {
	Cash        decimal.Decimal
	TotalValue  float64
	DrawdownPct float64
	Held        []string
}

// Approval is an admitted candidate with its size.
type Approval struct {
	Candidate
	Shares int64
	Cost   decimal.Decimal
}

// Rejection is a candidate skipped for a per-candidate reason.
type Rejection struct {
	Candidate
	Reason Reason
	Detail string
}

// Decision is the outcome of one admission pass.
type Decision struct {
	Approved []Approval
	Rejected []Rejection
	// Halted is set when the gate stopped evaluating the queue; every
	// candidate in Unevaluated was left untouched.
	Halted      Reason
	Unevaluated []Candidate
}

// Manager runs the admission gate.
type Manager struct {
	config      Config
	stops       StopPolicy
	correlation CorrelationChecker
}

// NewManager creates a Manager. A nil checker never rejects on correlation.
func NewManager(config Config, correlation CorrelationChecker) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if correlation == nil {
		correlation = NoCorrelation{}
	}
	return &Manager{
		config:      config,
		stops:       config.StopPolicy(),
		correlation: correlation,
	}, nil
}

// Config returns the manager's configuration.
func (m *Manager) Config() Config {
	return m.config
}

// Stops returns the stop policy for new and open positions.
func (m *Manager) Stops() StopPolicy {
	return m.stops
}

// Admit walks candidates in the given order. A full book or a drawdown
// beyond the limit ends the pass; sizing, cash and correlation failures
// only skip the candidate. Approvals consume cash and slots locally, so
// snap is never modified.
func (m *Manager) Admit(snap Snapshot, candidates []Candidate) Decision {
	var d Decision
	cash := snap.Cash
	held := slices.Clone(snap.Held)

	for i, c := range candidates {
		if len(held) >= m.config.MaxPositions {
			d.halt(ReasonMaxPositions, candidates[i:])
			break
		}
		if snap.DrawdownPct > m.config.MaxDrawdownPct {
			d.halt(ReasonDrawdownHalt, candidates[i:])
			break
		}

		shares := m.Size(snap.TotalValue, c.Price)
		if shares <= 0 {
			d.reject(c, ReasonZeroSize, fmt.Sprintf("price %.2f exceeds allocation", c.Price))
			continue
		}
		cost := decimal.NewFromFloat(c.Price).Mul(decimal.NewFromInt(shares))
		if cost.GreaterThan(cash) {
			d.reject(c, ReasonInsufficientCash, fmt.Sprintf("cost %s > cash %s", cost.StringFixed(2), cash.StringFixed(2)))
			continue
		}
		if m.correlation.Correlated(c.Symbol, held, c.Date) {
			d.reject(c, ReasonCorrelated, "correlated with an open or approved position")
			continue
		}

		cash = cash.Sub(cost)
		held = append(held, c.Symbol)
		d.Approved = append(d.Approved, Approval{Candidate: c, Shares: shares, Cost: cost})
	}
	return d
}

// Size converts the configured allocation of totalValue into whole shares,
// capped by the per-trade risk budget when one is set.
func (m *Manager) Size(totalValue, price float64) int64 {
	if price <= 0 || totalValue <= 0 {
		return 0
	}
	shares := int64(math.Floor(totalValue * m.config.PositionSizePct / 100 / price))

	if m.config.MaxRiskPerTradePct > 0 {
		perShare := price - m.stops.Initial(price).Level
		if perShare > 0 {
			byRisk := int64(math.Floor(totalValue * m.config.MaxRiskPerTradePct / 100 / perShare))
			shares = min(shares, byRisk)
		}
	}
	return shares
}

func (d *Decision) reject(c Candidate, reason Reason, detail string) {
	d.Rejected = append(d.Rejected, Rejection{Candidate: c, Reason: reason, Detail: detail})
}

func (d *Decision) halt(reason Reason, rest []Candidate) {
	d.Halted = reason
	d.Unevaluated = slices.Clone(rest)
}
