package indicator

import (
	"math"

	"github.com/newthinker/sepa/internal/core"
)

// MansfieldRS computes the smoothed price ratio of a security against a
// benchmark and its min-max normalization to [0,100].
//
// The ratio is close / benchmark close, taken over the dates both series
// share. ratio holds the rolling mean over smoothing shared dates; rs
// normalizes each value against the defined smoothed values in the trailing
// normWindow shared dates, so a reading never depends on later bars. Results
// are mapped back to the security's bars; a date the benchmark did not trade
// stays undefined without holding back the dates after it. A flat window
// reads 50.
func MansfieldRS(bars, benchmark []core.Bar, smoothing, normWindow int) (ratio, rs []float64) {
	index := make(map[string]float64, len(benchmark))
	for _, b := range benchmark {
		index[b.Key()] = b.Close
	}

	shared := make([]int, 0, len(bars))
	raw := make([]float64, 0, len(bars))
	for i, b := range bars {
		ic, ok := index[b.Key()]
		if !ok || ic <= 0 {
			continue
		}
		shared = append(shared, i)
		raw = append(raw, b.Close/ic)
	}

	smoothed := SMA(raw, smoothing)
	normalized := normalizeTrailing(smoothed, normWindow)

	ratio, rs = undefined(len(bars)), undefined(len(bars))
	for k, i := range shared {
		ratio[i] = smoothed[k]
		rs[i] = normalized[k]
	}
	return ratio, rs
}

func normalizeTrailing(values []float64, window int) []float64 {
	out := undefined(len(values))
	if window <= 1 {
		return out
	}
	for i, v := range values {
		if !Defined(v) {
			continue
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		count := 0
		for j := max(0, i-window+1); j <= i; j++ {
			w := values[j]
			if !Defined(w) {
				continue
			}
			lo = math.Min(lo, w)
			hi = math.Max(hi, w)
			count++
		}
		if count < 2 {
			continue
		}
		if hi == lo {
			out[i] = 50
			continue
		}
		out[i] = (v - lo) / (hi - lo) * 100
	}
	return out
}
