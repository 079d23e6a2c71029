package pattern

import (
	"context"
	"testing"
	"time"

	"github.com/newthinker/sepa/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockDetector struct {
	name       string
	confidence map[string]float64
	panics     bool
}

func (m *mockDetector) Name() string { return m.name }
func (m *mockDetector) Detect(in Input) []Match {
	if m.panics {
		panic("boom")
	}
	c, ok := m.confidence[in.Symbol]
	if !ok {
		return nil
	}
	return []Match{{Symbol: in.Symbol, Date: in.Date(), Bias: BiasBullish, Confidence: c}}
}

func input(symbol string) Input {
	return Input{
		Symbol: symbol,
		Bars:   []core.Bar{{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 1, High: 1, Low: 1, Close: 1}},
	}
}

func TestScanner_ScanSortsDeterministically(t *testing.T) {
	scanner := NewScanner([]Detector{
		&mockDetector{name: "b", confidence: map[string]float64{"AAA": 80, "BBB": 90}},
		&mockDetector{name: "a", confidence: map[string]float64{"AAA": 80, "CCC": 70}},
	}, 4)

	matches, err := scanner.Scan(context.Background(), []Input{input("CCC"), input("BBB"), input("AAA")})
	require.NoError(t, err)
	require.Len(t, matches, 4)

	got := make([]string, len(matches))
	for i, m := range matches {
		got[i] = m.Symbol + "/" + m.Pattern
	}
	assert.Equal(t, []string{"BBB/b", "AAA/a", "AAA/b", "CCC/a"}, got)
}

func TestScanner_RepeatedScansAreIdentical(t *testing.T) {
	scanner := NewScanner([]Detector{
		&mockDetector{name: "x", confidence: map[string]float64{"A": 50, "B": 50, "C": 50, "D": 50}},
	}, 3)
	inputs := []Input{input("D"), input("C"), input("B"), input("A")}

	first, err := scanner.Scan(context.Background(), inputs)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := scanner.Scan(context.Background(), inputs)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestScanner_PanickingDetectorIsIsolated(t *testing.T) {
	scanner := NewScanner([]Detector{
		&mockDetector{name: "bad", panics: true},
		&mockDetector{name: "good", confidence: map[string]float64{"A": 60}},
	}, 1)

	matches := scanner.ScanOne(input("A"))
	require.Len(t, matches, 1)
	assert.Equal(t, "good", matches[0].Pattern)
}

func TestScanner_Cancelled(t *testing.T) {
	scanner := NewScanner([]Detector{&mockDetector{name: "x"}}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scanner.Scan(ctx, []Input{input("A")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequiredSMA(t *testing.T) {
	assert.Empty(t, RequiredSMA([]Detector{&mockDetector{name: "x"}}))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-5))
	assert.Equal(t, 100.0, Clamp(120))
	assert.Equal(t, 42.0, Clamp(42))
}
