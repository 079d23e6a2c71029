package pattern

import "testing"

func TestFindPivots_Alternating(t *testing.T) {
	values := []float64{1, 2, 5, 2, 1, 0, 1, 3, 4, 3, 2, 3}

	pivots := FindPivots(values, 2)

	want := []Pivot{
		{Index: 2, Price: 5, Kind: PivotHigh},
		{Index: 5, Price: 0, Kind: PivotLow},
		{Index: 8, Price: 4, Kind: PivotHigh},
	}
	if len(pivots) != len(want) {
		t.Fatalf("got %d pivots %+v, want %d", len(pivots), pivots, len(want))
	}
	for i := range want {
		if pivots[i] != want[i] {
			t.Errorf("pivot[%d] = %+v, want %+v", i, pivots[i], want[i])
		}
	}
}

func TestFindPivots_KeepsMoreExtremeOfSameKind(t *testing.T) {
	// two highs with no qualifying low in between
	values := []float64{1, 2, 5, 4, 4.5, 6, 3, 2, 1}

	pivots := FindPivots(values, 2)

	highs := Highs(pivots)
	if len(highs) != 1 || highs[0].Index != 5 {
		t.Fatalf("expected single high at index 5, got %+v", pivots)
	}
}

func TestFindPivots_FlatSeriesHasNoPivots(t *testing.T) {
	values := []float64{3, 3, 3, 3, 3, 3, 3}
	if got := FindPivots(values, 2); len(got) != 0 {
		t.Errorf("expected no pivots, got %+v", got)
	}
}

func TestFindPivots_ShortSeries(t *testing.T) {
	if got := FindPivots([]float64{1, 2, 1}, 2); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}
