package indicator

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/newthinker/sepa/internal/core"
)

// Params configures which series Build computes.
type Params struct {
	SMAPeriods      []int
	EMAPeriods      []int
	RSIPeriod       int
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	ATRPeriod       int
	HighLowWindow   int
	VolumePeriod    int
	RSSmoothing     int
	RSNormalization int
}

// DefaultParams returns the daily-bar defaults.
func DefaultParams() Params {
	return Params{
		SMAPeriods:      []int{50, 150, 200},
		EMAPeriods:      []int{21},
		RSIPeriod:       14,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		ATRPeriod:       14,
		HighLowWindow:   252,
		VolumePeriod:    50,
		RSSmoothing:     52,
		RSNormalization: 252,
	}
}

// WithSMA returns a copy of p that also computes the given SMA periods.
func (p Params) WithSMA(periods ...int) Params {
	merged := slices.Clone(p.SMAPeriods)
	for _, period := range periods {
		if !slices.Contains(merged, period) {
			merged = append(merged, period)
		}
	}
	slices.Sort(merged)
	p.SMAPeriods = merged
	return p
}

// Validate rejects non-positive windows.
func (p Params) Validate() error {
	for _, period := range append(slices.Clone(p.SMAPeriods), p.EMAPeriods...) {
		if period <= 0 {
			return core.Errorf(core.ErrConfigInvalid, "moving average period must be positive, got %d", period)
		}
	}
	windows := []struct {
		name  string
		value int
	}{
		{"rsi_period", p.RSIPeriod},
		{"atr_period", p.ATRPeriod},
		{"high_low_window", p.HighLowWindow},
		{"volume_period", p.VolumePeriod},
		{"rs_smoothing", p.RSSmoothing},
		{"rs_normalization", p.RSNormalization},
	}
	for _, w := range windows {
		if w.value <= 0 {
			return core.Errorf(core.ErrConfigInvalid, "%s must be positive, got %d", w.name, w.value)
		}
	}
	if p.MACDFast <= 0 || p.MACDSlow <= p.MACDFast || p.MACDSignal <= 0 {
		return core.Errorf(core.ErrConfigInvalid, "invalid MACD periods %d/%d/%d", p.MACDFast, p.MACDSlow, p.MACDSignal)
	}
	return nil
}

// Frame holds indicator series aligned with one security's bars.
// Frames are never mutated after Build; Upto hands out prefix views.
type Frame struct {
	Dates      []time.Time
	Close      []float64
	RSI        []float64
	MACD       []float64
	MACDSignal []float64
	MACDHist   []float64
	ATR        []float64
	High       []float64 // rolling HighLowWindow high
	Low        []float64 // rolling HighLowWindow low
	AvgVolume  []float64
	RSRatio    []float64 // smoothed close / benchmark close
	RS         []float64 // RSRatio normalized to [0,100]

	sma map[int][]float64
	ema map[int][]float64
}

// Build computes every configured series for bars. A benchmark with no
// bars leaves the relative strength series undefined.
func Build(bars, benchmark []core.Bar, p Params) (*Frame, error) {
	for i := 1; i < len(bars); i++ {
		if !bars[i-1].Date.Before(bars[i].Date) {
			return nil, core.Errorf(core.ErrInvalidInput, "bars not chronological at %s", bars[i].Key())
		}
	}

	closes := core.Closes(bars)
	dates := make([]time.Time, len(bars))
	for i, b := range bars {
		dates[i] = b.Date
	}

	macd := MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	f := &Frame{
		Dates:      dates,
		Close:      closes,
		RSI:        RSI(closes, p.RSIPeriod),
		MACD:       macd.Line,
		MACDSignal: macd.Signal,
		MACDHist:   macd.Histogram,
		ATR:        ATR(bars, p.ATRPeriod),
		High:       RollingHigh(bars, p.HighLowWindow),
		Low:        RollingLow(bars, p.HighLowWindow),
		AvgVolume:  AverageVolume(bars, p.VolumePeriod),
		sma:        make(map[int][]float64, len(p.SMAPeriods)),
		ema:        make(map[int][]float64, len(p.EMAPeriods)),
	}
	f.RSRatio, f.RS = MansfieldRS(bars, benchmark, p.RSSmoothing, p.RSNormalization)

	for _, period := range p.SMAPeriods {
		f.sma[period] = SMA(closes, period)
	}
	for _, period := range p.EMAPeriods {
		f.ema[period] = EMA(closes, period)
	}
	return f, nil
}

// Len returns the number of aligned bars.
func (f *Frame) Len() int {
	return len(f.Close)
}

// SMA returns the simple moving average series for period, or nil when it
// was not computed.
func (f *Frame) SMA(period int) []float64 {
	return f.sma[period]
}

// EMA returns the exponential moving average series for period, or nil.
func (f *Frame) EMA(period int) []float64 {
	return f.ema[period]
}

// Upto returns a view of the first n bars.
func (f *Frame) Upto(n int) *Frame {
	if n >= f.Len() {
		return f
	}
	if n < 0 {
		n = 0
	}
	view := &Frame{
		Dates:      f.Dates[:n:n],
		Close:      f.Close[:n:n],
		RSI:        f.RSI[:n:n],
		MACD:       f.MACD[:n:n],
		MACDSignal: f.MACDSignal[:n:n],
		MACDHist:   f.MACDHist[:n:n],
		ATR:        f.ATR[:n:n],
		High:       f.High[:n:n],
		Low:        f.Low[:n:n],
		AvgVolume:  f.AvgVolume[:n:n],
		RSRatio:    f.RSRatio[:n:n],
		RS:         f.RS[:n:n],
		sma:        make(map[int][]float64, len(f.sma)),
		ema:        make(map[int][]float64, len(f.ema)),
	}
	for k, v := range f.sma {
		view.sma[k] = v[:n:n]
	}
	for k, v := range f.ema {
		view.ema[k] = v[:n:n]
	}
	return view
}

// Last returns the final value of series, NaN when empty.
func Last(series []float64) float64 {
	return Ago(series, 0)
}

// Ago returns the value k bars before the last, NaN when out of range.
func Ago(series []float64, k int) float64 {
	i := len(series) - 1 - k
	if k < 0 || i < 0 {
		return math.NaN()
	}
	return series[i]
}

// String summarizes the frame for logging.
func (f *Frame) String() string {
	if f.Len() == 0 {
		return "Frame{empty}"
	}
	return fmt.Sprintf("Frame{%d bars %s..%s}", f.Len(),
		f.Dates[0].Format(core.DateLayout), f.Dates[f.Len()-1].Format(core.DateLayout))
}
