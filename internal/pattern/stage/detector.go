// Package stage classifies where a security sits in the four-stage market
// cycle using the slope of a long moving average.
package stage

import (
	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/indicator"
	"github.com/newthinker/sepa/internal/pattern"
)

const Name = "stage"

// Stage of the market cycle
type Stage int

const (
	Unclassified Stage = iota
	Base
	Advance
	Top
	Decline
)

func (s Stage) String() string {
	switch s {
	case Base:
		return "base"
	case Advance:
		return "advance"
	case Top:
		return "top"
	case Decline:
		return "decline"
	default:
		return "unclassified"
	}
}

type Config struct {
	MAPeriod      int
	SlopeBars     int     // slope is measured against the MA this many bars ago
	FlatPct       float64 // |slope| at or under this percent counts as flat
	PivotWindow   int
	PivotLookback int // bars searched for higher highs or lower lows
}

func DefaultConfig() Config {
	return Config{
		MAPeriod:      150,
		SlopeBars:     20,
		FlatPct:       0.5,
		PivotWindow:   5,
		PivotLookback: 120,
	}
}

func (c Config) Validate() error {
	if c.MAPeriod <= 0 || c.SlopeBars <= 0 {
		return core.Errorf(core.ErrConfigInvalid, "stage ma period and slope bars must be positive")
	}
	if c.FlatPct < 0 {
		return core.Errorf(core.ErrConfigInvalid, "negative stage flat threshold %f", c.FlatPct)
	}
	if c.PivotWindow < 1 || c.PivotLookback < 2*c.PivotWindow+1 {
		return core.Errorf(core.ErrConfigInvalid, "pivot window %d does not fit lookback %d", c.PivotWindow, c.PivotLookback)
	}
	return nil
}

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

func (d *Detector) RequiredSMA() []int {
	return []int{d.cfg.MAPeriod}
}

// Classify returns the stage at the last bar of f along with the MA slope
// in percent. Unclassified is returned when history is too short.
func (d *Detector) Classify(f *indicator.Frame) (Stage, float64) {
	ma := f.SMA(d.cfg.MAPeriod)
	now, past := indicator.Last(ma), indicator.Ago(ma, d.cfg.SlopeBars)
	price := indicator.Last(f.Close)
	if !indicator.Defined(now) || !indicator.Defined(past) || past == 0 {
		return Unclassified, 0
	}

	slope := pattern.PercentChange(past, now)
	rising, falling := slope > d.cfg.FlatPct, slope < -d.cfg.FlatPct
	flat := !rising && !falling

	switch above := price > now; {
	case above && rising:
		return Advance, slope
	case !above && falling:
		return Decline, slope
	case !above && flat:
		return Base, slope
	case above && flat:
		return Top, slope
	default:
		return Unclassified, slope
	}
}

// higherHighs reports whether the last two pivot highs in the recent window are rising
func (d *Detector) higherHighs(closes []float64) bool {
	highs := pattern.Highs(d.recentPivots(closes))
	n := len(highs)
	return n >= 2 && highs[n-1].Price > highs[n-2].Price
}

// lowerLows reports whether the last two pivot lows in the recent window are falling
func (d *Detector) lowerLows(closes []float64) bool {
	lows := pattern.Lows(d.recentPivots(closes))
	n := len(lows)
	return n >= 2 && lows[n-1].Price < lows[n-2].Price
}

func (d *Detector) recentPivots(closes []float64) []pattern.Pivot {
	if n := len(closes); n > d.cfg.PivotLookback {
		closes = closes[n-d.cfg.PivotLookback:]
	}
	return pattern.FindPivots(closes, d.cfg.PivotWindow)
}

func (d *Detector) Detect(in pattern.Input) []pattern.Match {
	if in.Frame == nil {
		return nil
	}
	st, slope := d.Classify(in.Frame)

	var bias pattern.Bias
	var confidence float64
	switch st {
	case Advance:
		bias, confidence = pattern.BiasBullish, 70
		if d.higherHighs(in.Frame.Close) {
			confidence = 85
		}
	case Decline:
		bias, confidence = pattern.BiasBearish, 70
		if d.lowerLows(in.Frame.Close) {
			confidence = 85
		}
	case Base:
		bias, confidence = pattern.BiasNeutral, 60
	case Top:
		bias, confidence = pattern.BiasNeutral, 65
	default:
		return nil
	}

	return []pattern.Match{{
		Symbol:     in.Symbol,
		Date:       in.Date(),
		Pattern:    Name,
		Bias:       bias,
		Confidence: confidence,
		Metadata: map[string]any{
			"stage":        st.String(),
			"ma":           indicator.Last(in.Frame.SMA(d.cfg.MAPeriod)),
			"ma_slope_pct": slope,
		},
	}}
}
