package trend_template

import (
	"fmt"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/indicator"
	"github.com/newthinker/sepa/internal/pattern"
)

// Name identifies matches from this detector
const Name = "trend_template"

// Config holds the trend template thresholds
type Config struct {
	ShortMA         int     // 50
	MidMA           int     // 150
	LongMA          int     // 200
	LongMATrendBars int     // long MA must exceed its value this many bars ago
	MinAboveLowPct  float64 // close at least this % above the rolling low
	MaxBelowHighPct float64 // close within this % of the rolling high
	RSThreshold     float64 // normalized RS must exceed this
	BaseConfidence  float64
	MaxRSBonus      float64
}

// DefaultConfig returns the classic thresholds.
func DefaultConfig() Config {
	return Config{
		ShortMA:         50,
		MidMA:           150,
		LongMA:          200,
		LongMATrendBars: 20,
		MinAboveLowPct:  30,
		MaxBelowHighPct: 25,
		RSThreshold:     70,
		BaseConfidence:  70,
		MaxRSBonus:      30,
	}
}

// Validate checks ordering and ranges.
func (c Config) Validate() error {
	if c.ShortMA <= 0 || c.ShortMA >= c.MidMA || c.MidMA >= c.LongMA {
		return core.Errorf(core.ErrConfigInvalid, "trend template MAs must satisfy 0 < %d < %d < %d", c.ShortMA, c.MidMA, c.LongMA)
	}
	if c.LongMATrendBars <= 0 {
		return core.Errorf(core.ErrConfigInvalid, "long_ma_trend_bars must be positive, got %d", c.LongMATrendBars)
	}
	if c.MinAboveLowPct < 0 || c.MaxBelowHighPct < 0 || c.MaxBelowHighPct >= 100 {
		return core.Errorf(core.ErrConfigInvalid, "trend template percentages out of range")
	}
	if c.RSThreshold < 0 || c.RSThreshold >= 100 {
		return core.Errorf(core.ErrConfigInvalid, "rs_threshold must be in [0,100), got %f", c.RSThreshold)
	}
	return nil
}

// Criterion is one named check of the template.
type Criterion struct {
	Name   string
	Passed bool
}

// Snapshot is the indicator state the template is evaluated against.
type Snapshot struct {
	Close       float64
	ShortMA     float64
	MidMA       float64
	LongMA      float64
	LongMAPast  float64
	RollingLow  float64
	RollingHigh float64
	RS          float64
}

// Result is the per-criterion breakdown for one evaluation.
type Result struct {
	Criteria  []Criterion
	Available bool // false when any input was undefined
}

// Passed reports whether all nine criteria hold.
func (r Result) Passed() bool {
	if !r.Available {
		return false
	}
	for _, c := range r.Criteria {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failed lists the names of failing criteria.
func (r Result) Failed() []string {
	var names []string
	for _, c := range r.Criteria {
		if !c.Passed {
			names = append(names, c.Name)
		}
	}
	return names
}

// Detector implements the nine-criterion trend qualification filter
type Detector struct {
	cfg Config
}

// New creates a validated detector
func New(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg}, nil
}

func (d *Detector) Name() string {
	return Name
}

func (d *Detector) RequiredSMA() []int {
	return []int{d.cfg.ShortMA, d.cfg.MidMA, d.cfg.LongMA}
}

// ReadsRS is true: the last criterion compares RS to the threshold.
func (d *Detector) ReadsRS() bool { return true }

// Snapshot reads the latest template inputs from a frame.
func (d *Detector) Snapshot(f *indicator.Frame) Snapshot {
	return Snapshot{
		Close:       indicator.Last(f.Close),
		ShortMA:     indicator.Last(f.SMA(d.cfg.ShortMA)),
		MidMA:       indicator.Last(f.SMA(d.cfg.MidMA)),
		LongMA:      indicator.Last(f.SMA(d.cfg.LongMA)),
		LongMAPast:  indicator.Ago(f.SMA(d.cfg.LongMA), d.cfg.LongMATrendBars),
		RollingLow:  indicator.Last(f.Low),
		RollingHigh: indicator.Last(f.High),
		RS:          indicator.Last(f.RS),
	}
}

// Evaluate applies the nine criteria to s.
func (d *Detector) Evaluate(s Snapshot) Result {
	available := true
	for _, v := range []float64{s.Close, s.ShortMA, s.MidMA, s.LongMA, s.LongMAPast, s.RollingLow, s.RollingHigh, s.RS} {
		if !indicator.Defined(v) {
			available = false
		}
	}

	return Result{
		Available: available,
		Criteria: []Criterion{
			{"close_above_mid_ma", s.Close > s.MidMA},
			{"close_above_long_ma", s.Close > s.LongMA},
			{"mid_ma_above_long_ma", s.MidMA > s.LongMA},
			{"long_ma_rising", s.LongMA > s.LongMAPast},
			{"short_ma_above_mid_ma", s.ShortMA > s.MidMA},
			{"short_ma_above_long_ma", s.ShortMA > s.LongMA},
			{"above_rolling_low", s.Close >= s.RollingLow*(1+d.cfg.MinAboveLowPct/100)},
			{"near_rolling_high", s.Close >= s.RollingHigh*(1-d.cfg.MaxBelowHighPct/100)},
			{"relative_strength", s.RS > d.cfg.RSThreshold},
		},
	}
}

// Detect emits a bullish match when every criterion holds at the last bar.
func (d *Detector) Detect(in pattern.Input) []pattern.Match {
	if in.Frame == nil || in.Frame.Len() == 0 {
		return nil
	}
	s := d.Snapshot(in.Frame)
	res := d.Evaluate(s)
	if !res.Passed() {
		return nil
	}

	return []pattern.Match{{
		Symbol:     in.Symbol,
		Date:       in.Date(),
		Pattern:    Name,
		Bias:       pattern.BiasBullish,
		Confidence: d.confidence(s.RS),
		Metadata: map[string]any{
			"short_ma":               s.ShortMA,
			"long_ma":                s.LongMA,
			"rs":                     s.RS,
			"distance_from_high_pct": (s.RollingHigh - s.Close) / s.RollingHigh * 100,
			"distance_from_low_pct":  (s.Close - s.RollingLow) / s.RollingLow * 100,
			"criteria":               fmt.Sprintf("%d/%d", len(res.Criteria), len(res.Criteria)),
		},
	}}
}

// confidence scales with how far RS sits above the threshold
func (d *Detector) confidence(rs float64) float64 {
	headroom := 100 - d.cfg.RSThreshold
	strength := (rs - d.cfg.RSThreshold) / headroom
	if strength > 1 {
		strength = 1
	}
	return pattern.Clamp(d.cfg.BaseConfidence + d.cfg.MaxRSBonus*strength)
}
