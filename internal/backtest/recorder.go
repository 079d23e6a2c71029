package backtest

import "time"

// Recorder observes a run. Implementations must not influence results.
type Recorder interface {
	DayProcessed(date time.Time, totalValue, drawdownPct float64)
	PatternMatched(pattern, bias string)
	PositionOpened(p Position)
	TradeClosed(t Trade)
	CandidateRejected(reason string)
	RunCompleted(runID string, m Metrics, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) DayProcessed(time.Time, float64, float64) {}
func (nopRecorder) PatternMatched(string, string) {}
func (nopRecorder) PositionOpened(Position) {}
func (nopRecorder) TradeClosed(Trade) {}
func (nopRecorder) CandidateRejected(string) {}
func (nopRecorder) RunCompleted(string, Metrics, time.Duration) {}
