package high_tight_flag

import (
	"testing"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/pattern"
	"github.com/newthinker/sepa/internal/pattern/patterntest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flagged doubles from 50 to 110 in 20 bars after a flat stretch, then
// consolidates for 15 bars.
func flagged(flag ...float64) []core.Bar {
	points := append([]float64{50, 50, 110}, flag...)
	return patterntest.Path(points, []int{40, 20, 5, 5, 5}, patterntest.Flat(5, 1000))
}

func TestDetect_TightFlag(t *testing.T) {
	d, err := New(DefaultConfig())
	require.NoError(t, err)

	matches := d.Detect(pattern.Input{Symbol: "HTF", Bars: flagged(100, 105, 100)})
	require.Len(t, matches, 1)
	m := matches[0]
	assert.Equal(t, 90.0, m.Confidence)
	assert.Equal(t, 20, m.Metadata["pole_bars"])
	assert.Equal(t, 16, m.Metadata["flag_bars"])
	assert.InDelta(t, 122.2, m.Metadata["pole_gain_pct"], 0.01)
}

func TestDetect_LooseFlag(t *testing.T) {
	d, err := New(DefaultConfig())
	require.NoError(t, err)

	assert.Empty(t, d.Detect(pattern.Input{Symbol: "HTF", Bars: flagged(70, 80, 75)}))
}

func TestDetect_ShortHistory(t *testing.T) {
	d, err := New(DefaultConfig())
	require.NoError(t, err)

	bars := flagged(100, 105, 100)
	assert.Empty(t, d.Detect(pattern.Input{Symbol: "HTF", Bars: bars[len(bars)-60:]}))
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinFlagBars = 0
	_, err := New(cfg)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}
