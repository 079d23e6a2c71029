package high_tight_flag

import (
	"math"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/pattern"
)

const Name = "high_tight_flag"

type Config struct {
	MinPoleGainPct  float64 // 100 = price doubled
	MinPoleBars     int
	MaxPoleBars     int
	MaxFlagDepthPct float64
	MinFlagBars     int
	MaxFlagBars     int
}

func DefaultConfig() Config {
	return Config{
		MinPoleGainPct:  100,
		MinPoleBars:     20,
		MaxPoleBars:     40,
		MaxFlagDepthPct: 25,
		MinFlagBars:     10,
		MaxFlagBars:     30,
	}
}

func (c Config) Validate() error {
	if c.MinPoleGainPct <= 0 || c.MaxFlagDepthPct <= 0 {
		return core.Errorf(core.ErrConfigInvalid, "high tight flag percentages must be positive")
	}
	if c.MinPoleBars <= 0 || c.MinPoleBars > c.MaxPoleBars {
		return core.Errorf(core.ErrConfigInvalid, "pole length range %d..%d invalid", c.MinPoleBars, c.MaxPoleBars)
	}
	if c.MinFlagBars <= 0 || c.MinFlagBars > c.MaxFlagBars {
		return core.Errorf(core.ErrConfigInvalid, "flag length range %d..%d invalid", c.MinFlagBars, c.MaxFlagBars)
	}
	return nil
}

// Detector finds a near-vertical advance (the pole) followed by a tight
// sideways consolidation (the flag) that runs to the evaluation date.
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
	n := len(bars)
	if n < d.cfg.MaxPoleBars+d.cfg.MaxFlagBars {
		return nil
	}

	// shortest pole first, then the most recent pole top
	for poleLen := d.cfg.MinPoleBars; poleLen <= d.cfg.MaxPoleBars; poleLen += 5 {
		for flagLen := d.cfg.MinFlagBars; flagLen <= d.cfg.MaxFlagBars; flagLen += 5 {
			top := n - 1 - flagLen
			start := top - poleLen
			if start < 0 {
				continue
			}

			peak, peakIdx := 0.0, top
			for i := start; i <= top; i++ {
				if bars[i].High > peak {
					peak, peakIdx = bars[i].High, i
				}
			}
			gain := pattern.PercentChange(bars[start].Close, peak)
			if gain < d.cfg.MinPoleGainPct {
				continue
			}

			flag := bars[peakIdx:]
			if len(flag) < d.cfg.MinFlagBars {
				continue
			}
			hi, lo := 0.0, math.Inf(1)
			for _, b := range flag {
				hi, lo = max(hi, b.High), min(lo, b.Low)
			}
			depth := math.Abs(pattern.PercentChange(hi, lo))
			if depth > d.cfg.MaxFlagDepthPct {
				continue
			}

			return []pattern.Match{{
				Symbol:     in.Symbol,
				Date:       in.Date(),
				Pattern:    Name,
				Bias:       pattern.BiasBullish,
				Confidence: 90,
				Metadata: map[string]any{
					"pole_gain_pct":  gain,
					"flag_depth_pct": depth,
					"pole_bars":      poleLen,
					"flag_bars":      len(flag),
				},
			}}
		}
	}
	return nil
}
