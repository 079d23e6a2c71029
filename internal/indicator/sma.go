// Package indicator computes causal technical series over daily bars.
// Every series is aligned 1:1 with its input; indices without enough
// lookback hold NaN.
package indicator

import "math"

// Defined reports whether v holds a computed value.
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

func undefined(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA calculates Simple Moving Average.
// A window containing an undefined input yields an undefined output.
func SMA(values []float64, period int) []float64 {
	result := undefined(len(values))
	if period <= 0 || len(values) < period {
		return result
	}

	var sum float64
	var gaps int
	for i, v := range values {
		if Defined(v) {
			sum += v
		} else {
			gaps++
		}

		// Rolling calculation
		if i >= period {
			old := values[i-period]
			if Defined(old) {
				sum -= old
			} else {
				gaps--
			}
		}

		if i >= period-1 && gaps == 0 {
			result[i] = sum / float64(period)
		}
	}

	return result
}

// EMA calculates Exponential Moving Average, seeded with the SMA of the
// first period values.
func EMA(values []float64, period int) []float64 {
	return emaFrom(values, 0, period)
}

// emaFrom runs an EMA over values[start:], leaving earlier indices undefined.
func emaFrom(values []float64, start, period int) []float64 {
	result := undefined(len(values))
	if period <= 0 || start < 0 || len(values)-start < period {
		return result
	}

	multiplier := 2.0 / float64(period+1)

	// Start with SMA as first EMA value
	var sum float64
	for i := start; i < start+period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)
	result[start+period-1] = ema

	for i := start + period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		result[i] = ema
	}

	return result
}
