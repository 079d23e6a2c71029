package core

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used for bar keys and file I/O.
const DateLayout = "2006-01-02"

// Bar is one trading day of prices for a single symbol
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Key returns the calendar date of the bar as YYYY-MM-DD.
func (b Bar) Key() string {
	return b.Date.Format(DateLayout)
}

// Validate checks OHLC integrity of a single bar.
func (b Bar) Validate() error {
	if b.Date.IsZero() {
		return fmt.Errorf("bar has zero date")
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return fmt.Errorf("bar %s has non-positive price", b.Key())
	}
	if b.Low > b.High {
		return fmt.Errorf("bar %s low %.4f above high %.4f", b.Key(), b.Low, b.High)
	}
	if b.Open < b.Low || b.Open > b.High || b.Close < b.Low || b.Close > b.High {
		return fmt.Errorf("bar %s open/close outside low-high range", b.Key())
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar %s has negative volume", b.Key())
	}
	return nil
}

// Security is a symbol with its chronologically ordered bars.
// Non-trading days are absent, never zero-filled.
type Security struct {
	Symbol string
	Bars   []Bar
}

// Validate checks the input contract: known symbol, valid bars and
// strictly increasing calendar dates.
func (s Security) Validate() error {
	if s.Symbol == "" {
		return WrapError(ErrInvalidInput, fmt.Errorf("security has empty symbol"))
	}
	for i, b := range s.Bars {
		if err := b.Validate(); err != nil {
			return WrapError(ErrInvalidInput, fmt.Errorf("%s: %w", s.Symbol, err))
		}
		if i > 0 && !s.Bars[i-1].Date.Before(b.Date) {
			return WrapError(ErrInvalidInput,
				fmt.Errorf("%s: bars not chronological at %s", s.Symbol, b.Key()))
		}
	}
	return nil
}

// Closes extracts closing prices
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts high prices.
func Highs(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts low prices.
func Lows(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

// SameDay reports whether two timestamps fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
