package risk

import (
	"math"
	"time"

	"github.com/newthinker/sepa/internal/core"
)

// CorrelationChecker reports whether symbol moves too closely with any of
// others as of a date.
type CorrelationChecker interface {
	Correlated(symbol string, others []string, asOf time.Time) bool
}

// NoCorrelation never rejects.
type NoCorrelation struct{}

func (NoCorrelation) Correlated(string, []string, time.Time) bool { return false }

// ReturnCorrelation compares daily close-to-close returns over a trailing
// window of dates both symbols traded.
type ReturnCorrelation struct {
	bars      map[string][]core.Bar
	threshold float64
	lookback  int
}

// NewReturnCorrelation creates a checker over the given histories. A
// threshold of 1 or more never rejects.
func NewReturnCorrelation(bars map[string][]core.Bar, threshold float64, lookback int) *ReturnCorrelation {
	return &ReturnCorrelation{bars: bars, threshold: threshold, lookback: lookback}
}

func (c *ReturnCorrelation) Correlated(symbol string, others []string, asOf time.Time) bool {
	if c.threshold >= 1 {
		return false
	}
	for _, other := range others {
		if other == symbol {
			continue
		}
		r, ok := c.Correlation(symbol, other, asOf)
		if ok && r >= c.threshold {
			return true
		}
	}
	return false
}

// Correlation returns the Pearson correlation of returns for a and b. ok is
// false when fewer than three common returns exist.
func (c *ReturnCorrelation) Correlation(a, b string, asOf time.Time) (float64, bool) {
	ra, rb := c.alignedReturns(a, b, asOf)
	if len(ra) < 3 {
		return 0, false
	}
	return pearson(ra, rb)
}

func (c *ReturnCorrelation) alignedReturns(a, b string, asOf time.Time) ([]float64, []float64) {
	closeB := make(map[string]float64)
	for _, bar := range c.bars[b] {
		if !bar.Date.After(asOf) {
			closeB[bar.Key()] = bar.Close
		}
	}

	type pair struct{ a, b float64 }
	var common []pair
	for _, bar := range c.bars[a] {
		if bar.Date.After(asOf) {
			break
		}
		if cb, ok := closeB[bar.Key()]; ok {
			common = append(common, pair{bar.Close, cb})
		}
	}
	if n := len(common); n > c.lookback+1 {
		common = common[n-c.lookback-1:]
	}

	var ra, rb []float64
	for i := 1; i < len(common); i++ {
		ra = append(ra, common[i].a/common[i-1].a-1)
		rb = append(rb, common[i].b/common[i-1].b-1)
	}
	return ra, rb
}

func pearson(x, y []float64) (float64, bool) {
	n := float64(len(x))
	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= n
	my /= n

	var cov, vx, vy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0, false
	}
	return cov / math.Sqrt(vx*vy), true
}
