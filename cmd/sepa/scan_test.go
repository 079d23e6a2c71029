package main

import (
	"testing"

	"github.com/newthinker/sepa/internal/pattern"
	"github.com/stretchr/testify/assert"
)

func TestFilterMatches(t *testing.T) {
	matches := []pattern.Match{
		{Symbol: "AAA", Pattern: "vcp", Bias: pattern.BiasBullish, Confidence: 95},
		{Symbol: "BBB", Pattern: "stage", Bias: pattern.BiasBearish, Confidence: 70},
		{Symbol: "CCC", Pattern: "trend_template", Bias: pattern.BiasBullish, Confidence: 72},
	}

	got := filterMatches(append([]pattern.Match(nil), matches...), 75, false)
	assert.Equal(t, []string{"AAA"}, symbolsOf(got))

	got = filterMatches(append([]pattern.Match(nil), matches...), 0, true)
	assert.Equal(t, []string{"AAA", "CCC"}, symbolsOf(got))
}

func symbolsOf(matches []pattern.Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Symbol
	}
	return out
}

func TestFetchList(t *testing.T) {
	assert.Equal(t, []string{"AAPL", "MSFT", "SPY"}, fetchList([]string{"AAPL", "MSFT"}, "SPY"))
	assert.Equal(t, []string{"SPY", "AAPL"}, fetchList([]string{"SPY", "AAPL"}, "SPY"))
	assert.Equal(t, []string{"AAPL"}, fetchList([]string{"AAPL"}, ""))
	assert.Empty(t, fetchList(nil, ""))
}
