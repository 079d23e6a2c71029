// Package catalog constructs the detector set a strategy enumerates.
package catalog

import (
	"slices"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/pattern"
	"github.com/newthinker/sepa/internal/pattern/cup_handle"
	"github.com/newthinker/sepa/internal/pattern/double_bottom"
	"github.com/newthinker/sepa/internal/pattern/high_tight_flag"
	"github.com/newthinker/sepa/internal/pattern/stage"
	"github.com/newthinker/sepa/internal/pattern/trend_template"
	"github.com/newthinker/sepa/internal/pattern/vcp"
)

// Config selects detectors by name and carries each detector's settings.
type Config struct {
	Enabled       []string
	TrendTemplate trend_template.Config
	VCP           vcp.Config
	Stage         stage.Config
	DoubleBottom  double_bottom.Config
	CupHandle     cup_handle.Config
	HighTightFlag high_tight_flag.Config
}

// DefaultConfig enables the trend template, VCP and stage detectors.
func DefaultConfig() Config {
	return Config{
		Enabled:       []string{trend_template.Name, vcp.Name, stage.Name},
		TrendTemplate: trend_template.DefaultConfig(),
		VCP:           vcp.DefaultConfig(),
		Stage:         stage.DefaultConfig(),
		DoubleBottom:  double_bottom.DefaultConfig(),
		CupHandle:     cup_handle.DefaultConfig(),
		HighTightFlag: high_tight_flag.DefaultConfig(),
	}
}

// Names lists every detector Build knows.
func Names() []string {
	return []string{
		cup_handle.Name,
		double_bottom.Name,
		high_tight_flag.Name,
		stage.Name,
		trend_template.Name,
		vcp.Name,
	}
}

// Build returns the enabled detectors in configuration order.
func Build(cfg Config) ([]pattern.Detector, error) {
	if len(cfg.Enabled) == 0 {
		return nil, core.Errorf(core.ErrConfigInvalid, "no pattern detectors enabled")
	}

	detectors := make([]pattern.Detector, 0, len(cfg.Enabled))
	for i, name := range cfg.Enabled {
		if slices.Contains(cfg.Enabled[:i], name) {
			return nil, core.Errorf(core.ErrConfigInvalid, "detector %q enabled twice", name)
		}
		d, err := build(name, cfg)
		if err != nil {
			return nil, err
		}
		detectors = append(detectors, d)
	}
	return detectors, nil
}

func build(name string, cfg Config) (pattern.Detector, error) {
	switch name {
	case trend_template.Name:
		return trend_template.New(cfg.TrendTemplate)
	case vcp.Name:
		return vcp.New(cfg.VCP)
	case stage.Name:
		return stage.New(cfg.Stage)
	case double_bottom.Name:
		return double_bottom.New(cfg.DoubleBottom)
	case cup_handle.Name:
		return cup_handle.New(cfg.CupHandle)
	case high_tight_flag.Name:
		return high_tight_flag.New(cfg.HighTightFlag)
	default:
		return nil, core.Errorf(core.ErrUnknownDetector, "%q (known: %v)", name, Names())
	}
}
