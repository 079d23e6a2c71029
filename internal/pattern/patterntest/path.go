// Package patterntest builds synthetic bar series for detector tests.
package patterntest

import (
	"time"

	"github.com/newthinker/sepa/internal/core"
)

// Start is the date of the first generated bar.
var Start = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

// Path draws straight close-price lines between points, one bar per day.
// Segment k spans lens[k] bars traded at vols[k]; the first bar uses
// vols[0]. Highs and lows sit 1% either side of the close.
func Path(points []float64, lens []int, vols []int64) []core.Bar {
	closes := []float64{points[0]}
	volumes := []int64{vols[0]}
	for k := 0; k+1 < len(points); k++ {
		for s := 1; s <= lens[k]; s++ {
			closes = append(closes, points[k]+(points[k+1]-points[k])*float64(s)/float64(lens[k]))
			volumes = append(volumes, vols[k])
		}
	}
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		bars[i] = core.Bar{
			Date:   Start.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: volumes[i],
		}
	}
	return bars
}

// Flat returns n equal volume values for Path.
func Flat(n int, v int64) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
