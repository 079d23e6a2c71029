package metrics

import (
	"time"

	"github.com/newthinker/sepa/internal/backtest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics. It implements backtest.Recorder.
type Registry struct {
	*prometheus.Registry

	// Simulation metrics
	daysProcessed     prometheus.Counter
	portfolioValue    prometheus.Gauge
	drawdown          prometheus.Gauge
	patternMatches    *prometheus.CounterVec
	positionsOpened   *prometheus.CounterVec
	tradesClosed      *prometheus.CounterVec
	tradeReturn       prometheus.Histogram
	candidatesRejects *prometheus.CounterVec

	// Run metrics
	backtestsTotal   prometheus.Counter
	backtestDuration prometheus.Histogram
	totalReturn      prometheus.Gauge
	maxDrawdown      prometheus.Gauge
	sharpeRatio      prometheus.Gauge

	// Scan metrics
	scansTotal   prometheus.Counter
	scanDuration prometheus.Histogram
	scanMatches  prometheus.Gauge
}

var _ backtest.Recorder = (*Registry)(nil)

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		daysProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sepa_days_processed_total",
				Help: "Total number of simulated trading days",
			},
		),
		portfolioValue: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sepa_portfolio_value",
				Help: "Portfolio value at the end of the last simulated day",
			},
		),
		drawdown: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sepa_drawdown_pct",
				Help: "Drawdown from the running peak at the end of the last simulated day",
			},
		),
		patternMatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sepa_pattern_matches_total",
				Help: "Total number of pattern matches",
			},
			[]string{"pattern", "bias"},
		),
		positionsOpened: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sepa_positions_opened_total",
				Help: "Total number of positions opened",
			},
			[]string{"pattern"},
		),
		tradesClosed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sepa_trades_closed_total",
				Help: "Total number of closed trades",
			},
			[]string{"exit_reason"},
		),
		tradeReturn: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sepa_trade_return_pct",
				Help:    "Return of closed trades in percent",
				Buckets: []float64{-20, -10, -5, 0, 5, 10, 20, 50, 100},
			},
		),
		candidatesRejects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sepa_candidates_rejected_total",
				Help: "Total number of entry candidates not admitted",
			},
			[]string{"reason"},
		),
	}

	reg.MustRegister(r.daysProcessed)
	reg.MustRegister(r.portfolioValue)
	reg.MustRegister(r.drawdown)
	reg.MustRegister(r.patternMatches)
	reg.MustRegister(r.positionsOpened)
	reg.MustRegister(r.tradesClosed)
	reg.MustRegister(r.tradeReturn)
	reg.MustRegister(r.candidatesRejects)

	// Run metrics
	r.backtestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sepa_backtests_total",
			Help: "Total number of completed backtests",
		},
	)
	r.backtestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sepa_backtest_duration_seconds",
			Help:    "Backtest duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)
	r.totalReturn = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sepa_backtest_total_return_pct",
			Help: "Total return of the last completed backtest",
		},
	)
	r.maxDrawdown = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sepa_backtest_max_drawdown_pct",
			Help: "Maximum drawdown of the last completed backtest",
		},
	)
	r.sharpeRatio = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sepa_backtest_sharpe_ratio",
			Help: "Sharpe ratio of the last completed backtest",
		},
	)
	r.scansTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sepa_scans_total",
			Help: "Total number of universe scans",
		},
	)
	r.scanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sepa_scan_duration_seconds",
			Help:    "Universe scan duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	r.scanMatches = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sepa_scan_matches",
			Help: "Number of matches found by the last scan",
		},
	)

	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.totalReturn)
	reg.MustRegister(r.maxDrawdown)
	reg.MustRegister(r.sharpeRatio)
	reg.MustRegister(r.scansTotal)
	reg.MustRegister(r.scanDuration)
	reg.MustRegister(r.scanMatches)

	return r
}

// DayProcessed records the end-of-day portfolio state.
func (r *Registry) DayProcessed(_ time.Time, totalValue, drawdownPct float64) {
	r.daysProcessed.Inc()
	r.portfolioValue.Set(totalValue)
	r.drawdown.Set(drawdownPct)
}

// PatternMatched records a detector match.
func (r *Registry) PatternMatched(pattern, bias string) {
	r.patternMatches.WithLabelValues(pattern, bias).Inc()
}

// PositionOpened records an entry.
func (r *Registry) PositionOpened(p backtest.Position) {
	r.positionsOpened.WithLabelValues(p.Pattern).Inc()
}

// TradeClosed records an exit.
func (r *Registry) TradeClosed(t backtest.Trade) {
	r.tradesClosed.WithLabelValues(string(t.ExitReason)).Inc()
	r.tradeReturn.Observe(t.ProfitLossPct)
}

// CandidateRejected records a candidate the gate did not admit.
func (r *Registry) CandidateRejected(reason string) {
	r.candidatesRejects.WithLabelValues(reason).Inc()
}

// RunCompleted records a backtest completion.
func (r *Registry) RunCompleted(_ string, m backtest.Metrics, elapsed time.Duration) {
	r.backtestsTotal.Inc()
	r.backtestDuration.Observe(elapsed.Seconds())
	r.totalReturn.Set(m.TotalReturn)
	r.maxDrawdown.Set(m.MaxDrawdown)
	r.sharpeRatio.Set(m.SharpeRatio)
}

// RecordScan records a latest-date scan.
func (r *Registry) RecordScan(matches int, duration time.Duration) {
	r.scansTotal.Inc()
	r.scanDuration.Observe(duration.Seconds())
	r.scanMatches.Set(float64(matches))
}

// WriteTextfile writes every metric in the text exposition format, for
// the node_exporter textfile collector. The file is replaced atomically.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Registry)
}
