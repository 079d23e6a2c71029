package catalog

import (
	"testing"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_Defaults(t *testing.T) {
	detectors, err := Build(DefaultConfig())
	require.NoError(t, err)

	names := make([]string, len(detectors))
	for i, d := range detectors {
		names[i] = d.Name()
	}
	assert.Equal(t, []string{"trend_template", "vcp", "stage"}, names)
	assert.ElementsMatch(t, []int{50, 150, 200, 150}, pattern.RequiredSMA(detectors))
}

func TestBuild_AllKnownDetectors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = Names()
	detectors, err := Build(cfg)
	require.NoError(t, err)
	assert.Len(t, detectors, len(Names()))
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"unknown", func(c *Config) { c.Enabled = []string{"head_and_shoulders"} }, core.ErrUnknownDetector},
		{"empty", func(c *Config) { c.Enabled = nil }, core.ErrConfigInvalid},
		{"duplicate", func(c *Config) { c.Enabled = []string{"vcp", "vcp"} }, core.ErrConfigInvalid},
		{"bad vcp bounds", func(c *Config) { c.VCP.MinContractions = 6 }, core.ErrConfigInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := Build(cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
