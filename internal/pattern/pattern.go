// Package pattern defines the chart-pattern detector contract and the
// scanner that runs a fixed detector set over many symbols.
package pattern

import (
	"time"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/indicator"
)

// Bias tells the engine what a match is good for
type Bias string

const (
	// BiasBullish matches are entry candidates.
	BiasBullish Bias = "bullish"
	// BiasBearish matches on a held symbol are exit signals.
	BiasBearish Bias = "bearish"
	// BiasNeutral matches are informational only.
	BiasNeutral Bias = "neutral"
)

// Match is one detection on one symbol at one date
type Match struct {
	Symbol     string
	Date       time.Time
	Pattern    string
	Bias       Bias
	Confidence float64 // 0 to 100
	Metadata   map[string]any
}

// Input provides data to detectors. Bars end at the evaluation date and
// Frame is aligned with Bars.
type Input struct {
	Symbol string
	Bars   []core.Bar
	Frame  *indicator.Frame
}

// Date returns the evaluation date, the zero time when Bars is empty.
func (in Input) Date() time.Time {
	if len(in.Bars) == 0 {
		return time.Time{}
	}
	return in.Bars[len(in.Bars)-1].Date
}

// Detector recognizes one pattern. Detect must be side-effect free and
// deterministic; insufficient history yields no match.
type Detector interface {
	Name() string
	Detect(in Input) []Match
}

// SMARequirer is implemented by detectors that read SMA periods from the frame.
type SMARequirer interface {
	RequiredSMA() []int
}

// RequiredSMA collects the SMA periods needed by detectors.
func RequiredSMA(detectors []Detector) []int {
	var periods []int
	for _, d := range detectors {
		if r, ok := d.(SMARequirer); ok {
			periods = append(periods, r.RequiredSMA()...)
		}
	}
	return periods
}

// RSReader is implemented by detectors that read relative strength, which
// is undefined without benchmark bars.
type RSReader interface {
	ReadsRS() bool
}

// ReadingRS names the detectors that read relative strength.
func ReadingRS(detectors []Detector) []string {
	var names []string
	for _, d := range detectors {
		if r, ok := d.(RSReader); ok && r.ReadsRS() {
			names = append(names, d.Name())
		}
	}
	return names
}

// Clamp bounds a confidence score to [0,100].
func Clamp(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

// PercentChange returns (to-from)/from in percent, 0 when from is 0.
func PercentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}
