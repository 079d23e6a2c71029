package double_bottom

import (
	"math"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/pattern"
)

const Name = "double_bottom"

type Config struct {
	MaxLowDiffPct float64 // second low within this % of the first
	MinSeparation int     // bars between the two lows
	MaxSeparation int
	PivotWindow   int
	Lookback      int
}

func DefaultConfig() Config {
	return Config{
		MaxLowDiffPct: 5,
		MinSeparation: 10,
		MaxSeparation: 50,
		PivotWindow:   5,
		Lookback:      100,
	}
}

func (c Config) Validate() error {
	if c.MaxLowDiffPct < 0 {
		return core.Errorf(core.ErrConfigInvalid, "negative double bottom low difference %f", c.MaxLowDiffPct)
	}
	if c.MinSeparation <= 0 || c.MinSeparation > c.MaxSeparation {
		return core.Errorf(core.ErrConfigInvalid, "double bottom separation %d..%d invalid", c.MinSeparation, c.MaxSeparation)
	}
	if c.PivotWindow < 1 || c.Lookback <= c.MinSeparation {
		return core.Errorf(core.ErrConfigInvalid, "double bottom lookback %d too short", c.Lookback)
	}
	return nil
}

// Detector finds a "W": two pivot lows at about the same level with a
// peak in between.
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

func (d *Detector) Detect(in pattern.Input) []pattern.Match {
	bars := in.Bars
	if len(bars) < 2*d.cfg.MinSeparation {
		return nil
	}
	offset := max(0, len(bars)-d.cfg.Lookback)
	window := bars[offset:]
	lows := pattern.Lows(pattern.FindPivots(core.Lows(window), d.cfg.PivotWindow))

	// earliest qualifying pair wins
	for i := 0; i < len(lows)-1; i++ {
		for j := i + 1; j < len(lows); j++ {
			first, second := lows[i], lows[j]
			sep := second.Index - first.Index
			if sep < d.cfg.MinSeparation || sep > d.cfg.MaxSeparation {
				continue
			}
			if math.Abs(pattern.PercentChange(first.Price, second.Price)) > d.cfg.MaxLowDiffPct {
				continue
			}

			peak := 0.0
			for _, b := range window[first.Index:second.Index] {
				peak = max(peak, b.High)
			}
			undercut := second.Price < first.Price
			confidence := 75.0
			if undercut {
				confidence = 85
			}

			return []pattern.Match{{
				Symbol:     in.Symbol,
				Date:       in.Date(),
				Pattern:    Name,
				Bias:       pattern.BiasBullish,
				Confidence: confidence,
				Metadata: map[string]any{
					"first_low":   first.Price,
					"second_low":  second.Price,
					"middle_peak": peak,
					"depth_pct":   math.Abs(pattern.PercentChange(peak, first.Price)),
					"separation":  sep,
					"undercut":    undercut,
				},
			}}
		}
	}
	return nil
}
