package double_bottom

import (
	"testing"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/pattern"
	"github.com/newthinker/sepa/internal/pattern/patterntest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func w(secondLow float64) []core.Bar {
	return patterntest.Path(
		[]float64{100, 80, 95, secondLow, 90},
		[]int{10, 10, 10, 10},
		patterntest.Flat(4, 1000),
	)
}

func TestDetect_UndercutDoubleBottom(t *testing.T) {
	d, err := New(DefaultConfig())
	require.NoError(t, err)

	matches := d.Detect(pattern.Input{Symbol: "W", Bars: w(79)})
	require.Len(t, matches, 1)
	m := matches[0]
	assert.Equal(t, pattern.BiasBullish, m.Bias)
	assert.Equal(t, 85.0, m.Confidence)
	assert.Equal(t, 20, m.Metadata["separation"])
	assert.Equal(t, true, m.Metadata["undercut"])
	assert.InDelta(t, 95*1.01, m.Metadata["middle_peak"], 1e-9)
}

func TestDetect_HigherSecondLow(t *testing.T) {
	d, err := New(DefaultConfig())
	require.NoError(t, err)

	matches := d.Detect(pattern.Input{Symbol: "W", Bars: w(82)})
	require.Len(t, matches, 1)
	assert.Equal(t, 75.0, matches[0].Confidence)
}

func TestDetect_LowsTooFarApart(t *testing.T) {
	d, err := New(DefaultConfig())
	require.NoError(t, err)

	assert.Empty(t, d.Detect(pattern.Input{Symbol: "W", Bars: w(70)}))
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinSeparation = 60
	_, err := New(cfg)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}
