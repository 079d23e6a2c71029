package indicator

import (
	"math"
	"testing"
)

func TestSMA_Calculate(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14, 15}

	sma := SMA(prices, 3)

	if len(sma) != len(prices) {
		t.Fatalf("expected aligned length %d, got %d", len(prices), len(sma))
	}

	// Leading values lack a full window
	for i := 0; i < 2; i++ {
		if Defined(sma[i]) {
			t.Errorf("sma[%d] = %f, want undefined", i, sma[i])
		}
	}

	expected := []float64{11, 12, 13, 14}
	for i, v := range expected {
		if sma[i+2] != v {
			t.Errorf("sma[%d] = %f, want %f", i+2, sma[i+2], v)
		}
	}
}

func TestSMA_NotEnoughData(t *testing.T) {
	sma := SMA([]float64{10, 11}, 5)

	for i, v := range sma {
		if Defined(v) {
			t.Errorf("sma[%d] = %f, want undefined", i, v)
		}
	}
}

func TestSMA_GapPropagates(t *testing.T) {
	values := []float64{1, 2, math.NaN(), 4, 5, 6}
	sma := SMA(values, 2)

	if Defined(sma[2]) || Defined(sma[3]) {
		t.Error("windows touching a gap should be undefined")
	}
	if !almostEqual(sma[4], 4.5, 1e-9) || !almostEqual(sma[5], 5.5, 1e-9) {
		t.Errorf("windows after the gap should recover, got %v", sma[4:])
	}
}

func TestEMA_Calculate(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14, 15}
	ema := EMA(prices, 3)

	// First EMA = SMA = 11
	if ema[2] != 11 {
		t.Errorf("first EMA should equal SMA, got %f", ema[2])
	}

	for i := 3; i < len(ema); i++ {
		if ema[i] <= ema[i-1] {
			t.Errorf("EMA should be increasing, ema[%d]=%f <= ema[%d]=%f", i, ema[i], i-1, ema[i-1])
		}
	}
}

func TestEMA_NotEnoughData(t *testing.T) {
	ema := EMA([]float64{10, 11}, 5)

	for _, v := range ema {
		if Defined(v) {
			t.Fatal("expected all values undefined")
		}
	}
}

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}
