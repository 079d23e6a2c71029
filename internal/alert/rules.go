package alert

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SeverityCritical rules can fail a run.
const SeverityCritical = "critical"

// Rule defines an alert rule over run metrics, e.g.
// "max_drawdown_pct > 25".
type Rule struct {
	Name     string `mapstructure:"name"`
	Expr     string `mapstructure:"expr"`
	Severity string `mapstructure:"severity"`
	Message  string `mapstructure:"message"`
}

// Simple expression parser: "metric op value"
// Supports: >, <, >=, <=, ==, !=
var exprPattern = regexp.MustCompile(`^(\w+)\s*(>=|<=|==|!=|>|<)\s*(-?[\d.]+)$`)

type condition struct {
	metric    string
	op        string
	threshold float64
}

func (r Rule) parse() (condition, error) {
	matches := exprPattern.FindStringSubmatch(strings.TrimSpace(r.Expr))
	if len(matches) != 4 {
		return condition{}, fmt.Errorf("rule %q: cannot parse %q", r.Name, r.Expr)
	}
	threshold, err := strconv.ParseFloat(matches[3], 64)
	if err != nil {
		return condition{}, fmt.Errorf("rule %q: threshold: %w", r.Name, err)
	}
	return condition{metric: matches[1], op: matches[2], threshold: threshold}, nil
}

// Validate checks the expression and that it names a known metric.
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule has no name")
	}
	c, err := r.parse()
	if err != nil {
		return err
	}
	if _, ok := knownMetrics[c.metric]; !ok {
		return fmt.Errorf("rule %q: unknown metric %q", r.Name, c.metric)
	}
	return nil
}

// Evaluate reports whether the rule fires for values, and the value it read.
func (r Rule) Evaluate(values map[string]float64) (bool, float64, error) {
	c, err := r.parse()
	if err != nil {
		return false, 0, err
	}
	value, exists := values[c.metric]
	if !exists {
		return false, 0, fmt.Errorf("rule %q: metric %q not available", r.Name, c.metric)
	}

	switch c.op {
	case ">":
		return value > c.threshold, value, nil
	case "<":
		return value < c.threshold, value, nil
	case ">=":
		return value >= c.threshold, value, nil
	case "<=":
		return value <= c.threshold, value, nil
	case "==":
		return value == c.threshold, value, nil
	default:
		return value != c.threshold, value, nil
	}
}

// FormatMessage formats the alert message with the metric value.
func (r Rule) FormatMessage(value float64) string {
	severity := r.Severity
	if severity == "" {
		severity = "warning"
	}
	msg := fmt.Sprintf("[%s] %s: %s (%s, got %.2f)", strings.ToUpper(severity), r.Name, r.Message, r.Expr, value)
	return msg
}
