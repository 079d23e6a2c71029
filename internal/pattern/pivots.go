package pattern

// PivotKind distinguishes local highs from local lows
type PivotKind int

const (
	PivotHigh PivotKind = iota
	PivotLow
)

func (k PivotKind) String() string {
	if k == PivotHigh {
		return "H"
	}
	return "L"
}

// Pivot is a turning point in a price series.
type Pivot struct {
	Index int
	Price float64
	Kind  PivotKind
}

// FindPivots returns alternating turning points of values. Index i is a
// pivot high when no value within window bars on either side is higher, and
// a pivot low when none is lower. Only indices with a full window on both
// sides qualify, so the last window bars never pivot. Flat stretches that
// satisfy both rules are skipped. When two pivots of the same kind follow
// each other the more extreme one is kept, the earlier one on ties.
func FindPivots(values []float64, window int) []Pivot {
	if window < 1 || len(values) < 2*window+1 {
		return nil
	}

	var pivots []Pivot
	for i := window; i < len(values)-window; i++ {
		hi, lo := true, true
		for j := i - window; j <= i+window; j++ {
			if values[j] > values[i] {
				hi = false
			}
			if values[j] < values[i] {
				lo = false
			}
			if !hi && !lo {
				break
			}
		}
		if hi == lo {
			continue
		}

		p := Pivot{Index: i, Price: values[i], Kind: PivotLow}
		if hi {
			p.Kind = PivotHigh
		}

		if n := len(pivots); n > 0 && pivots[n-1].Kind == p.Kind {
			prev := pivots[n-1]
			if (p.Kind == PivotHigh && p.Price > prev.Price) || (p.Kind == PivotLow && p.Price < prev.Price) {
				pivots[n-1] = p
			}
			continue
		}
		pivots = append(pivots, p)
	}
	return pivots
}

// Highs filters pivot highs
func Highs(pivots []Pivot) []Pivot {
	return filterKind(pivots, PivotHigh)
}

// Lows filters pivot lows
func Lows(pivots []Pivot) []Pivot {
	return filterKind(pivots, PivotLow)
}

func filterKind(pivots []Pivot, kind PivotKind) []Pivot {
	var out []Pivot
	for _, p := range pivots {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}
