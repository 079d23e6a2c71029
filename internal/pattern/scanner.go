package pattern

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Scanner runs a fixed set of detectors over symbols. Detectors are pure,
// so symbols are scanned in parallel; results are always returned in
// SortMatches order.
type Scanner struct {
	detectors []Detector
	workers   int
	logger    *zap.Logger
}

// NewScanner creates a scanner. workers <= 0 uses GOMAXPROCS.
func NewScanner(detectors []Detector, workers int, logger ...*zap.Logger) *Scanner {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Scanner{
		detectors: detectors,
		workers:   workers,
		logger:    l,
	}
}

// Detectors returns the configured detector set.
func (s *Scanner) Detectors() []Detector {
	return s.detectors
}

// ScanOne runs every detector on a single input
func (s *Scanner) ScanOne(in Input) []Match {
	var matches []Match
	for _, d := range s.detectors {
		matches = append(matches, s.detect(d, in)...)
	}
	return matches
}

// detect isolates a misbehaving detector so the rest of the set still runs.
func (s *Scanner) detect(d Detector, in Input) (matches []Match) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("pattern detector failed",
				zap.String("detector", d.Name()),
				zap.String("symbol", in.Symbol),
				zap.String("panic", fmt.Sprint(r)),
			)
			matches = nil
		}
	}()
	matches = d.Detect(in)
	for i := range matches {
		matches[i].Pattern = d.Name()
	}
	return matches
}

// Scan runs all detectors over inputs. Cancellation is checked before each
// symbol is started.
func (s *Scanner) Scan(ctx context.Context, inputs []Input) ([]Match, error) {
	results := make([][]Match, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.ScanOne(inputs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []Match
	for _, r := range results {
		all = append(all, r...)
	}
	SortMatches(all)
	return all, nil
}

// SortMatches orders by confidence descending, then symbol and pattern name.
func SortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.Pattern < b.Pattern
	})
}
