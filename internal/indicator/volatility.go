package indicator

import (
	"math"

	"github.com/newthinker/sepa/internal/core"
)

// ATR calculates the Average True Range with Wilder smoothing.
// The first value is the mean true range of bars [0, period).
func ATR(bars []core.Bar, period int) []float64 {
	atr := undefined(len(bars))
	if period <= 0 || len(bars) < period {
		return atr
	}

	tr := make([]float64, len(bars))
	tr[0] = bars[0].High - bars[0].Low
	for i := 1; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		tr[i] = math.Max(bars[i].High-bars[i].Low,
			math.Max(math.Abs(bars[i].High-prevClose), math.Abs(bars[i].Low-prevClose)))
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += tr[i]
	}
	atr[period-1] = sum / float64(period)

	for i := period; i < len(bars); i++ {
		atr[i] = (atr[i-1]*float64(period-1) + tr[i]) / float64(period)
	}
	return atr
}

// RollingHigh returns the highest bar high over the trailing window.
func RollingHigh(bars []core.Bar, window int) []float64 {
	return rollingExtreme(bars, window, func(b core.Bar) float64 { return b.High }, math.Max)
}

// RollingLow returns the lowest bar low over the trailing window.
func RollingLow(bars []core.Bar, window int) []float64 {
	return rollingExtreme(bars, window, func(b core.Bar) float64 { return b.Low }, math.Min)
}

func rollingExtreme(bars []core.Bar, window int, field func(core.Bar) float64, pick func(a, b float64) float64) []float64 {
	out := undefined(len(bars))
	if window <= 0 {
		return out
	}
	// monotonic deque of indices; the front is the window extreme
	deque := make([]int, 0, window)
	for i, b := range bars {
		v := field(b)
		for len(deque) > 0 && pick(field(bars[deque[len(deque)-1]]), v) == v {
			deque = deque[:len(deque)-1]
		}
		deque = append(deque, i)
		if deque[0] <= i-window {
			deque = deque[1:]
		}
		if i >= window-1 {
			out[i] = field(bars[deque[0]])
		}
	}
	return out
}

// AverageVolume is the simple moving average of bar volume.
func AverageVolume(bars []core.Bar, period int) []float64 {
	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = float64(b.Volume)
	}
	return SMA(vols, period)
}
