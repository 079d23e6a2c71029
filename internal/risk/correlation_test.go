package risk_test

import (
	"testing"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/risk"
	"github.com/stretchr/testify/assert"
)

func history(closes ...float64) []core.Bar {
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		bars[i] = core.Bar{Date: day(i), Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

func TestReturnCorrelation(t *testing.T) {
	bars := map[string][]core.Bar{
		"AAA": history(100, 102, 99, 104, 101, 107, 103),
		"BBB": history(50, 51, 49.5, 52, 50.5, 53.5, 51.5),
		"CCC": history(80, 78, 81, 76, 79, 74, 78),
	}
	c := risk.NewReturnCorrelation(bars, 0.8, 60)

	r, ok := c.Correlation("AAA", "BBB", day(10))
	assert.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-9)

	assert.True(t, c.Correlated("AAA", []string{"CCC", "BBB"}, day(10)))
	assert.False(t, c.Correlated("AAA", []string{"CCC"}, day(10)))
}

func TestReturnCorrelation_IgnoresFutureBars(t *testing.T) {
	bars := map[string][]core.Bar{
		"AAA": history(100, 102, 99, 104, 101, 107),
		"BBB": history(50, 51, 49.5, 52, 50.5, 53.5),
	}
	c := risk.NewReturnCorrelation(bars, 0.8, 60)

	_, ok := c.Correlation("AAA", "BBB", day(2))
	assert.False(t, ok, "only two returns are known by day 2")
}

func TestReturnCorrelation_DisabledThreshold(t *testing.T) {
	bars := map[string][]core.Bar{
		"AAA": history(100, 102, 99, 104),
		"BBB": history(100, 102, 99, 104),
	}
	c := risk.NewReturnCorrelation(bars, 1, 60)
	assert.False(t, c.Correlated("AAA", []string{"BBB"}, day(5)))
}
