package alert

import (
	"errors"
	"fmt"

	"github.com/newthinker/sepa/internal/backtest"
)

// Notifier interface for sending alerts.
type Notifier interface {
	Name() string
	Notify(msg string) error
}

// Firing is a rule that matched a run.
type Firing struct {
	Rule  Rule
	Value float64
}

// Evaluator evaluates alert rules and sends notifications.
type Evaluator struct {
	notifiers []Notifier
}

// NewEvaluator creates a new alert evaluator.
func NewEvaluator(notifiers ...Notifier) *Evaluator {
	return &Evaluator{notifiers: notifiers}
}

// EvaluateAll evaluates rules in order and notifies for every firing.
// Notifier failures do not stop evaluation and are returned joined.
func (e *Evaluator) EvaluateAll(rules []Rule, values map[string]float64) ([]Firing, error) {
	var firings []Firing
	var errs []error
	for _, rule := range rules {
		fired, value, err := rule.Evaluate(values)
		if err != nil {
			return nil, err
		}
		if !fired {
			continue
		}
		firings = append(firings, Firing{Rule: rule, Value: value})

		msg := rule.FormatMessage(value)
		for _, n := range e.notifiers {
			if err := n.Notify(msg); err != nil {
				errs = append(errs, fmt.Errorf("notifier %s: %w", n.Name(), err))
			}
		}
	}
	return firings, errors.Join(errs...)
}

// Critical reports whether any firing is critical.
func Critical(firings []Firing) bool {
	for _, f := range firings {
		if f.Rule.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

var knownMetrics = MetricValues(backtest.Metrics{})

// MetricValues names the run metrics rules can refer to.
func MetricValues(m backtest.Metrics) map[string]float64 {
	return map[string]float64{
		"total_trades":          float64(m.TotalTrades),
		"winning_trades":        float64(m.WinningTrades),
		"losing_trades":         float64(m.LosingTrades),
		"win_rate_pct":          m.WinRate,
		"total_return_pct":      m.TotalReturn,
		"cagr_pct":              m.CAGR,
		"annualized_return_pct": m.AnnualizedReturn,
		"sharpe_ratio":          m.SharpeRatio,
		"sortino_ratio":         m.SortinoRatio,
		"max_drawdown_pct":      m.MaxDrawdown,
		"profit_factor":         m.ProfitFactor,
		"expectancy":            m.Expectancy,
		"avg_holding_days":      m.AvgHoldingDays,
		"final_value":           m.FinalValue,
	}
}
