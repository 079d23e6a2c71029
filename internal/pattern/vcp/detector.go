// Package vcp detects volatility contraction patterns: a base whose
// successive pullbacks get shallower, usually on drying volume.
package vcp

import (
	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/pattern"
)

const Name = "vcp"

// Config controls pivot detection and the contraction streak.
type Config struct {
	PivotWindow     int     // bars on each side of a pivot
	Tolerance       float64 // fraction; a pullback may be up to (1+Tolerance) x the prior depth
	MinContractions int
	MaxContractions int
	Lookback        int // bars analyzed, ending at the evaluation date
	MinBars         int
}

func DefaultConfig() Config {
	return Config{
		PivotWindow:     5,
		Tolerance:       0.20,
		MinContractions: 2,
		MaxContractions: 4,
		Lookback:        252,
		MinBars:         50,
	}
}

func (c Config) Validate() error {
	if c.MinContractions < 1 {
		return core.Errorf(core.ErrConfigInvalid, "min contractions must be at least 1, got %d", c.MinContractions)
	}
	if c.MinContractions > c.MaxContractions {
		return core.Errorf(core.ErrConfigInvalid, "min contractions %d > max contractions %d", c.MinContractions, c.MaxContractions)
	}
	if c.Tolerance < 0 {
		return core.Errorf(core.ErrConfigInvalid, "negative tolerance %f", c.Tolerance)
	}
	if c.PivotWindow < 1 || c.Lookback < 2*c.PivotWindow+1 {
		return core.Errorf(core.ErrConfigInvalid, "pivot window %d does not fit lookback %d", c.PivotWindow, c.Lookback)
	}
	return nil
}

// Pullback is a decline from a pivot high to the following pivot low.
type Pullback struct {
	High      pattern.Pivot
	Low       pattern.Pivot
	DepthPct  float64
	AvgVolume float64 // mean volume of the bars after the high through the low
}

// Analysis is the full breakdown behind a detection decision.
type Analysis struct {
	BaseHigh          pattern.Pivot
	Pullbacks         []Pullback
	Contractions      int
	VolumeContracting bool
	Confirmed         bool
	Confidence        float64
}

// Detector finds contraction streaks that start at the base high
type Detector struct {
	cfg Config
}

func New(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg}, nil
}

func (d *Detector) Name() string {
	return Name
}

// Pullbacks pairs each pivot high with the pivot low that follows it,
// starting from the first pivot at or after from.
func Pullbacks(bars []core.Bar, pivots []pattern.Pivot, from int) []Pullback {
	var out []Pullback
	for i := 0; i+1 < len(pivots); i++ {
		h, l := pivots[i], pivots[i+1]
		if h.Index < from || h.Kind != pattern.PivotHigh || l.Kind != pattern.PivotLow {
			continue
		}
		var vol float64
		for j := h.Index + 1; j <= l.Index; j++ {
			vol += float64(bars[j].Volume)
		}
		out = append(out, Pullback{
			High:      h,
			Low:       l,
			DepthPct:  -pattern.PercentChange(h.Price, l.Price),
			AvgVolume: vol / float64(l.Index-h.Index),
		})
	}
	return out
}

// CountContractions returns the length of the streak that begins with the
// first depth, where each depth is at most (1+tolerance) times the one
// before. The streak ends at the first violation.
func CountContractions(depths []float64, tolerance float64) int {
	if len(depths) == 0 {
		return 0
	}
	count := 1
	for i := 1; i < len(depths); i++ {
		if depths[i] > depths[i-1]*(1+tolerance) {
			break
		}
		count++
	}
	return count
}

// Analyze inspects the trailing Lookback bars.
func (d *Detector) Analyze(bars []core.Bar) Analysis {
	var a Analysis
	if len(bars) < d.cfg.MinBars {
		return a
	}
	offset := max(0, len(bars)-d.cfg.Lookback)
	window := bars[offset:]

	pivots := pattern.FindPivots(core.Closes(window), d.cfg.PivotWindow)
	highs := pattern.Highs(pivots)
	if len(highs) == 0 {
		return a
	}
	a.BaseHigh = highs[0]
	for _, h := range highs[1:] {
		if h.Price > a.BaseHigh.Price {
			a.BaseHigh = h
		}
	}

	a.Pullbacks = Pullbacks(window, pivots, a.BaseHigh.Index)
	depths := make([]float64, len(a.Pullbacks))
	for i, p := range a.Pullbacks {
		depths[i] = p.DepthPct
	}
	a.Contractions = CountContractions(depths, d.cfg.Tolerance)
	a.VolumeContracting = volumeContracting(a.Pullbacks[:a.Contractions])
	a.Confirmed = a.Contractions >= d.cfg.MinContractions && a.Contractions <= d.cfg.MaxContractions

	// report indices against the caller's bars
	a.BaseHigh.Index += offset
	for i := range a.Pullbacks {
		a.Pullbacks[i].High.Index += offset
		a.Pullbacks[i].Low.Index += offset
	}

	if a.Confirmed {
		score := 60.0
		if 2*a.Contractions >= d.cfg.MinContractions+d.cfg.MaxContractions {
			score += 15
		}
		if a.VolumeContracting {
			score += 20
		}
		a.Confidence = pattern.Clamp(score)
	}
	return a
}

func volumeContracting(pullbacks []Pullback) bool {
	if len(pullbacks) < 2 {
		return false
	}
	for i := 1; i < len(pullbacks); i++ {
		if pullbacks[i].AvgVolume >= pullbacks[i-1].AvgVolume {
			return false
		}
	}
	return true
}

func (d *Detector) Detect(in pattern.Input) []pattern.Match {
	a := d.Analyze(in.Bars)
	if !a.Confirmed {
		return nil
	}

	depths := make([]float64, a.Contractions)
	for i := range depths {
		depths[i] = a.Pullbacks[i].DepthPct
	}
	last := a.Pullbacks[a.Contractions-1]

	return []pattern.Match{{
		Symbol:     in.Symbol,
		Date:       in.Date(),
		Pattern:    Name,
		Bias:       pattern.BiasBullish,
		Confidence: a.Confidence,
		Metadata: map[string]any{
			"contractions":       a.Contractions,
			"depths":             depths,
			"base_high":          a.BaseHigh.Price,
			"pivot_price":        last.High.Price,
			"volume_contracting": a.VolumeContracting,
		},
	}}
}
