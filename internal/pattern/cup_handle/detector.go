// Package cup_handle detects a rounded base (the cup) followed by a short,
// shallow drift (the handle) near the cup's right rim.
package cup_handle

import (
	"math"
	"sort"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/pattern"
)

const Name = "cup_handle"

type Config struct {
	MinDepthPct   float64
	MaxDepthPct   float64
	MinLength     int     // bars between the rims
	MaxLength     int     // bars analyzed
	MaxRimDiffPct float64 // right rim within this % of the left
	MinHandleBars int
	PivotWindow   int
}

func DefaultConfig() Config {
	return Config{
		MinDepthPct:   12,
		MaxDepthPct:   35,
		MinLength:     35,
		MaxLength:     325,
		MaxRimDiffPct: 10,
		MinHandleBars: 10,
		PivotWindow:   5,
	}
}

func (c Config) Validate() error {
	if c.MinDepthPct < 0 || c.MinDepthPct > c.MaxDepthPct {
		return core.Errorf(core.ErrConfigInvalid, "cup depth range %f..%f invalid", c.MinDepthPct, c.MaxDepthPct)
	}
	if c.MinLength <= 0 || c.MinLength > c.MaxLength {
		return core.Errorf(core.ErrConfigInvalid, "cup length range %d..%d invalid", c.MinLength, c.MaxLength)
	}
	if c.MaxRimDiffPct < 0 || c.MinHandleBars < 1 || c.PivotWindow < 1 {
		return core.Errorf(core.ErrConfigInvalid, "invalid cup handle settings")
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

// Detect pairs the highest rims first. A cup whose handle has not had
// MinHandleBars yet is reported as a neutral forming match.
func (d *Detector) Detect(in pattern.Input) []pattern.Match {
	bars := in.Bars
	if len(bars) < d.cfg.MinLength {
		return nil
	}
	offset := max(0, len(bars)-d.cfg.MaxLength)
	window := bars[offset:]

	peaks := pattern.Highs(pattern.FindPivots(core.Highs(window), d.cfg.PivotWindow))
	troughs := pattern.Lows(pattern.FindPivots(core.Lows(window), d.cfg.PivotWindow))
	if len(peaks) < 2 || len(troughs) == 0 {
		return nil
	}
	sort.SliceStable(peaks, func(i, j int) bool { return peaks[i].Price > peaks[j].Price })

	for i := 0; i < len(peaks)-1; i++ {
		for j := i + 1; j < len(peaks); j++ {
			left, right := peaks[i], peaks[j]
			if left.Index > right.Index {
				left, right = right, left
			}
			if right.Index-left.Index < d.cfg.MinLength {
				continue
			}

			bottom, ok := lowestBetween(troughs, left.Index, right.Index)
			if !ok {
				continue
			}
			depth := math.Abs(pattern.PercentChange(left.Price, bottom.Price))
			if depth < d.cfg.MinDepthPct || depth > d.cfg.MaxDepthPct {
				continue
			}
			if math.Abs(pattern.PercentChange(left.Price, right.Price)) > d.cfg.MaxRimDiffPct {
				continue
			}

			meta := map[string]any{
				"cup_depth_pct": depth,
				"cup_length":    right.Index - left.Index,
				"left_rim":      left.Price,
				"right_rim":     right.Price,
			}
			handle := window[right.Index:]
			if len(handle) < d.cfg.MinHandleBars {
				meta["forming"] = true
				return []pattern.Match{d.match(in, pattern.BiasNeutral, 60, meta)}
			}

			handleLow := math.Inf(1)
			for _, b := range handle {
				handleLow = min(handleLow, b.Low)
			}
			if handleLow < (left.Price+bottom.Price)/2 {
				continue
			}
			meta["forming"] = false
			meta["handle_depth_pct"] = math.Abs(pattern.PercentChange(right.Price, handleLow))
			return []pattern.Match{d.match(in, pattern.BiasBullish, 80, meta)}
		}
	}
	return nil
}

func (d *Detector) match(in pattern.Input, bias pattern.Bias, confidence float64, meta map[string]any) pattern.Match {
	return pattern.Match{
		Symbol:     in.Symbol,
		Date:       in.Date(),
		Pattern:    Name,
		Bias:       bias,
		Confidence: confidence,
		Metadata:   meta,
	}
}

func lowestBetween(troughs []pattern.Pivot, from, to int) (pattern.Pivot, bool) {
	var best pattern.Pivot
	found := false
	for _, t := range troughs {
		if t.Index <= from || t.Index >= to {
			continue
		}
		if !found || t.Price < best.Price {
			best, found = t, true
		}
	}
	return best, found
}
