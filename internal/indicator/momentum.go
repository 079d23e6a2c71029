package indicator

// RSI calculates Wilder's Relative Strength Index. The first value is
// available at index period.
func RSI(closes []float64, period int) []float64 {
	rsi := undefined(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return rsi
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		gain, loss := change(closes[i-1], closes[i])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	rsi[period] = rsiValue(avgGain, avgLoss)

	// Wilder smoothing
	for i := period + 1; i < len(closes); i++ {
		gain, loss := change(closes[i-1], closes[i])
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		rsi[i] = rsiValue(avgGain, avgLoss)
	}

	return rsi
}

func change(prev, curr float64) (gain, loss float64) {
	d := curr - prev
	if d > 0 {
		return d, 0
	}
	return 0, -d
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACDResult holds the three MACD series.
type MACDResult struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// MACD calculates fast EMA minus slow EMA, its signal EMA and the histogram.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	n := len(closes)
	res := MACDResult{Line: undefined(n), Signal: undefined(n), Histogram: undefined(n)}
	if fast <= 0 || slow <= fast || signal <= 0 || n < slow {
		return res
	}

	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)
	for i := slow - 1; i < n; i++ {
		res.Line[i] = fastEMA[i] - slowEMA[i]
	}

	res.Signal = emaFrom(res.Line, slow-1, signal)
	for i := range res.Histogram {
		if Defined(res.Signal[i]) {
			res.Histogram[i] = res.Line[i] - res.Signal[i]
		}
	}
	return res
}
