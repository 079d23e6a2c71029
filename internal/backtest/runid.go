package backtest

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/newthinker/sepa/internal/core"
)

// runNamespace scopes run IDs so they never collide with other SHA1 UUIDs.
var runNamespace = uuid.MustParse("6f1c3b2e-9d4a-5e7f-8a21-3c5d7e9f0b14")

// RunID derives a stable identifier from the configuration, the detector
// set and every input bar. Identical runs share an ID.
func RunID(cfg Config, detectors []string, u Universe) string {
	h := sha256.New()
	fmt.Fprintf(h, "%+v|%v|%s|%s|", cfg, detectors, u.Start.Format(core.DateLayout), u.End.Format(core.DateLayout))

	securities := append([]core.Security{u.Benchmark}, sortedSecurities(u.Securities)...)
	var buf [8]byte
	for _, s := range securities {
		fmt.Fprintf(h, "%s:%d|", s.Symbol, len(s.Bars))
		for _, b := range s.Bars {
			h.Write([]byte(b.Key()))
			for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
				binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
				h.Write(buf[:])
			}
			binary.LittleEndian.PutUint64(buf[:], uint64(b.Volume))
			h.Write(buf[:])
		}
	}
	return uuid.NewSHA1(runNamespace, h.Sum(nil)).String()
}

func sortedSecurities(in []core.Security) []core.Security {
	out := append([]core.Security(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
