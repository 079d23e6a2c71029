package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/indicator"
	"github.com/newthinker/sepa/internal/pattern"
	"github.com/newthinker/sepa/internal/risk"
	"go.uber.org/zap"
)

// Config holds the strategy settings of a run.
type Config struct {
	InitialCapital  float64
	ConfidenceFloor float64 // matches below this never become candidates
	Risk            risk.Config
	Indicators      indicator.Params
	Stats           StatsConfig
	// CorrelationThreshold rejects entries whose returns correlate at or
	// above it with a held symbol. 1 or more disables the check.
	CorrelationThreshold float64
	CorrelationLookback  int
}

// DefaultConfig returns a $100k, ten-slot configuration.
func DefaultConfig() Config {
	return Config{
		InitialCapital:       100000,
		ConfidenceFloor:      70,
		Risk:                 risk.DefaultConfig(),
		Indicators:           indicator.DefaultParams(),
		Stats:                DefaultStatsConfig(),
		CorrelationThreshold: 1,
		CorrelationLookback:  60,
	}
}

// Validate checks every section of the configuration.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return core.Errorf(core.ErrConfigInvalid, "initial capital must be positive, got %v", c.InitialCapital)
	}
	if c.ConfidenceFloor < 0 || c.ConfidenceFloor > 100 {
		return core.Errorf(core.ErrConfigInvalid, "confidence floor must be in [0,100], got %v", c.ConfidenceFloor)
	}
	if err := c.Risk.Validate(); err != nil {
		return err
	}
	if err := c.Indicators.Validate(); err != nil {
		return err
	}
	if c.Stats.PeriodsPerYear <= 0 || c.Stats.RiskFreeRatePct < 0 {
		return core.Errorf(core.ErrConfigInvalid, "invalid stats settings %+v", c.Stats)
	}
	if c.CorrelationThreshold < 1 && c.CorrelationLookback < 3 {
		return core.Errorf(core.ErrConfigInvalid, "correlation lookback must be at least 3, got %d", c.CorrelationLookback)
	}
	return nil
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRecorder attaches a run observer.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithCorrelation replaces the return-correlation check built from the universe.
func WithCorrelation(c risk.CorrelationChecker) Option {
	return func(e *Engine) { e.correlation = c }
}

// WithWorkers bounds the parallel pattern scan. Zero uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// Engine runs day-by-day simulations. An Engine holds no run state, so
// one Engine may serve concurrent Run calls.
type Engine struct {
	cfg         Config
	params      indicator.Params
	detectors   []pattern.Detector
	scanner     *pattern.Scanner
	logger      *zap.Logger
	recorder    Recorder
	correlation risk.CorrelationChecker
	workers     int
}

// New creates an engine for a fixed detector set.
func New(cfg Config, detectors []pattern.Detector, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(detectors) == 0 {
		return nil, core.Errorf(core.ErrConfigInvalid, "no pattern detectors")
	}

	e := &Engine{
		cfg:       cfg,
		detectors: detectors,
		logger:    zap.NewNop(),
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.params = cfg.Indicators.WithSMA(pattern.RequiredSMA(detectors)...)
	e.scanner = pattern.NewScanner(detectors, e.workers, e.logger)
	return e, nil
}

// DetectorNames lists the configured detectors in order.
func (e *Engine) DetectorNames() []string {
	names := make([]string, len(e.detectors))
	for i, d := range e.detectors {
		names[i] = d.Name()
	}
	return names
}

// series is one symbol's bars, frame and read position within a run.
type series struct {
	symbol string
	bars   []core.Bar
	frame  *indicator.Frame
	cursor int // last bar on or before the current day, -1 before the first
}

func (s *series) advance(dayKey string) {
	for s.cursor+1 < len(s.bars) && s.bars[s.cursor+1].Key() <= dayKey {
		s.cursor++
	}
}

func (s *series) tradesOn(dayKey string) bool {
	return s.cursor >= 0 && s.bars[s.cursor].Key() == dayKey
}

func (s *series) bar() core.Bar {
	return s.bars[s.cursor]
}

// input exposes bars and indicators up to the cursor only.
func (s *series) input() pattern.Input {
	n := s.cursor + 1
	return pattern.Input{
		Symbol: s.symbol,
		Bars:   s.bars[:n:n],
		Frame:  s.frame.Upto(n),
	}
}

type run struct {
	id        string
	series    []*series
	bySymbol  map[string]*series
	portfolio *Portfolio
	manager   *risk.Manager
	logger    *zap.Logger
}

type exit struct {
	symbol string
	price  float64
	reason ExitReason
}

// Run simulates u. Input and configuration problems are reported before
// the first day; cancellation is honored between days only.
func (e *Engine) Run(ctx context.Context, u Universe) (*Result, error) {
	started := time.Now()
	if err := validateUniverse(u); err != nil {
		return nil, err
	}
	days := tradingDays(u)
	if len(days) == 0 {
		return nil, core.Errorf(core.ErrNoData, "no bars between %s and %s",
			u.Start.Format(core.DateLayout), u.End.Format(core.DateLayout))
	}

	r, err := e.newRun(u)
	if err != nil {
		return nil, err
	}
	r.logger.Info("backtest started",
		zap.Int("symbols", len(r.series)),
		zap.Int("days", len(days)),
		zap.String("start", days[0].Format(core.DateLayout)),
		zap.String("end", days[len(days)-1].Format(core.DateLayout)),
	)

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.step(r, day); err != nil {
			return nil, fmt.Errorf("day %s: %w", day.Format(core.DateLayout), err)
		}
	}

	trades := r.portfolio.Trades()
	curve := r.portfolio.EquityCurve()
	metrics := CalculateStats(trades, curve, e.cfg.InitialCapital, e.cfg.Stats)
	result := &Result{
		RunID:         r.id,
		StartDate:     days[0],
		EndDate:       days[len(days)-1],
		Trades:        trades,
		EquityCurve:   curve,
		OpenPositions: r.portfolio.OpenPositions(),
		FinalCash:     r.portfolio.Cash(),
		Metrics:       metrics,
	}

	e.recorder.RunCompleted(r.id, metrics, time.Since(started))
	r.logger.Info("backtest completed",
		zap.Int("trades", metrics.TotalTrades),
		zap.Int("open_positions", len(result.OpenPositions)),
		zap.Float64("total_return_pct", metrics.TotalReturn),
		zap.Float64("max_drawdown_pct", metrics.MaxDrawdown),
	)
	return result, nil
}

func (e *Engine) newRun(u Universe) (*run, error) {
	r := &run{
		id:        RunID(e.cfg, e.DetectorNames(), u),
		bySymbol:  make(map[string]*series, len(u.Securities)),
		portfolio: NewPortfolio(e.cfg.InitialCapital),
	}
	r.logger = e.logger.With(zap.String("run_id", r.id))
	if names := pattern.ReadingRS(e.scanner.Detectors()); len(names) > 0 && len(u.Benchmark.Bars) == 0 {
		r.logger.Warn("no benchmark bars, relative strength is undefined and these detectors cannot match",
			zap.Strings("detectors", names))
	}

	history := make(map[string][]core.Bar, len(u.Securities))
	for _, sec := range sortedSecurities(u.Securities) {
		frame, err := indicator.Build(sec.Bars, u.Benchmark.Bars, e.params)
		if err != nil {
			return nil, fmt.Errorf("indicators for %s: %w", sec.Symbol, err)
		}
		s := &series{symbol: sec.Symbol, bars: sec.Bars, frame: frame, cursor: -1}
		r.series = append(r.series, s)
		r.bySymbol[sec.Symbol] = s
		history[sec.Symbol] = sec.Bars
	}

	checker := e.correlation
	if checker == nil && e.cfg.CorrelationThreshold < 1 {
		checker = risk.NewReturnCorrelation(history, e.cfg.CorrelationThreshold, e.cfg.CorrelationLookback)
	}
	m, err := risk.NewManager(e.cfg.Risk, checker)
	if err != nil {
		return nil, err
	}
	r.manager = m
	return r, nil
}

// step runs one trading day in its fixed order.
func (e *Engine) step(r *run, day time.Time) error {
	key := day.Format(core.DateLayout)
	for _, s := range r.series {
		s.advance(key)
	}
	stops := r.manager.Stops()
	pf := r.portfolio
	// a day is never interrupted once started
	scanCtx := context.Background()

	// A: mark open positions and move their stops
	held := pf.Symbols()
	for _, sym := range held {
		s := r.bySymbol[sym]
		if !s.tradesOn(key) {
			continue
		}
		pos, _ := pf.Position(sym)
		pos.CurrentPrice, pos.CurrentDate = s.bar().Close, day
		wasTrailing := pos.Stop.Trailing()
		pos.Stop = stops.Advance(pos.Stop, pos.EntryPrice, pos.CurrentPrice, s.frame.ATR[s.cursor], day)
		if !wasTrailing && pos.Stop.Trailing() {
			r.logger.Debug("trailing stop armed",
				zap.String("symbol", sym),
				zap.String("date", key),
				zap.Float64("stop", pos.StopLoss()),
			)
		}
	}

	// B: decide exits without touching the portfolio
	heldMatches, err := e.scanner.Scan(scanCtx, r.inputs(held, key))
	if err != nil {
		return err
	}
	bearish := make(map[string]bool)
	for _, m := range heldMatches {
		if m.Bias == pattern.BiasBearish {
			bearish[m.Symbol] = true
		}
	}
	var exits []exit
	for _, sym := range held {
		if !r.bySymbol[sym].tradesOn(key) {
			continue
		}
		pos, _ := pf.Position(sym)
		var reason ExitReason
		switch {
		case pos.CurrentPrice <= pos.StopLoss():
			reason = ExitStopLoss
			if pos.Stop.Trailing() {
				reason = ExitTrailingStop
			}
		case pos.CurrentPrice >= pos.TakeProfit:
			reason = ExitTakeProfit
		case bearish[sym]:
			reason = ExitSignal
		default:
			continue
		}
		exits = append(exits, exit{symbol: sym, price: pos.CurrentPrice, reason: reason})
	}

	// C: apply exits
	for _, x := range exits {
		t, err := pf.Close(x.symbol, day, x.price, x.reason)
		if err != nil {
			return err
		}
		e.recorder.TradeClosed(t)
		r.logger.Debug("position closed",
			zap.String("symbol", t.Symbol),
			zap.String("date", key),
			zap.String("reason", string(t.ExitReason)),
			zap.Float64("price", t.ExitPrice),
			zap.Float64("pnl", t.ProfitLoss),
		)
	}

	// D: value after exits, drawdown from the running peak
	value, drawdown := pf.Mark(day)
	e.recorder.DayProcessed(day, value, drawdown)

	// E: scan the symbols that were not held at the open of the day
	var others []string
	for _, s := range r.series {
		if !containsSorted(held, s.symbol) {
			others = append(others, s.symbol)
		}
	}
	otherMatches, err := e.scanner.Scan(scanCtx, r.inputs(others, key))
	if err != nil {
		return err
	}
	matches := append(heldMatches, otherMatches...)
	pattern.SortMatches(matches)
	for _, m := range matches {
		e.recorder.PatternMatched(m.Pattern, string(m.Bias))
	}

	// F: one candidate per symbol, best match first
	candidates := e.candidates(r, matches, key)

	// G: admission
	decision := r.manager.Admit(pf.Snapshot(), candidates)
	for _, rej := range decision.Rejected {
		e.recorder.CandidateRejected(string(rej.Reason))
		r.logger.Debug("candidate rejected",
			zap.String("symbol", rej.Symbol),
			zap.String("reason", string(rej.Reason)),
			zap.String("detail", rej.Detail),
		)
	}
	if decision.Halted != "" {
		for range decision.Unevaluated {
			e.recorder.CandidateRejected(string(decision.Halted))
		}
		r.logger.Debug("admission halted",
			zap.String("date", key),
			zap.String("reason", string(decision.Halted)),
			zap.Int("skipped", len(decision.Unevaluated)),
			zap.Float64("drawdown_pct", drawdown),
		)
	}

	// H: open approved entries
	for _, a := range decision.Approved {
		pos, err := pf.Open(a.Symbol, a.Pattern, day, a.Price, a.Shares, stops.Initial(a.Price), stops.TakeProfit(a.Price))
		if err != nil {
			return err
		}
		e.recorder.PositionOpened(*pos)
		r.logger.Debug("position opened",
			zap.String("symbol", pos.Symbol),
			zap.String("date", key),
			zap.String("pattern", pos.Pattern),
			zap.Int64("shares", pos.Shares),
			zap.Float64("price", pos.EntryPrice),
			zap.Float64("stop", pos.StopLoss()),
		)
	}
	return nil
}

// inputs builds scanner inputs for the symbols that traded on the day.
func (r *run) inputs(symbols []string, key string) []pattern.Input {
	var out []pattern.Input
	for _, sym := range symbols {
		if s := r.bySymbol[sym]; s.tradesOn(key) {
			out = append(out, s.input())
		}
	}
	return out
}

func (e *Engine) candidates(r *run, matches []pattern.Match, key string) []risk.Candidate {
	seen := make(map[string]bool)
	var out []risk.Candidate
	for _, m := range matches {
		if m.Bias != pattern.BiasBullish || m.Confidence < e.cfg.ConfidenceFloor {
			continue
		}
		if seen[m.Symbol] || r.portfolio.Holds(m.Symbol) {
			continue
		}
		seen[m.Symbol] = true
		s := r.bySymbol[m.Symbol]
		out = append(out, risk.Candidate{
			Symbol:     m.Symbol,
			Date:       s.bar().Date,
			Price:      s.bar().Close,
			Confidence: m.Confidence,
			Pattern:    m.Pattern,
		})
	}
	return out
}

func containsSorted(sorted []string, s string) bool {
	i := sort.SearchStrings(sorted, s)
	return i < len(sorted) && sorted[i] == s
}

func validateUniverse(u Universe) error {
	if len(u.Securities) == 0 {
		return core.Errorf(core.ErrNoData, "universe has no securities")
	}
	if !u.Start.IsZero() && !u.End.IsZero() && u.End.Before(u.Start) {
		return core.Errorf(core.ErrInvalidInput, "end %s before start %s",
			u.End.Format(core.DateLayout), u.Start.Format(core.DateLayout))
	}
	seen := make(map[string]bool, len(u.Securities))
	for _, s := range u.Securities {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.Symbol] {
			return core.Errorf(core.ErrInvalidInput, "duplicate symbol %s", s.Symbol)
		}
		seen[s.Symbol] = true
	}
	if len(u.Benchmark.Bars) > 0 {
		if err := u.Benchmark.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// tradingDays is the sorted union of security bar dates within the
// range. A zero Start or End leaves that side open.
func tradingDays(u Universe) []time.Time {
	startKey, endKey := "", "9999-12-31"
	if !u.Start.IsZero() {
		startKey = u.Start.Format(core.DateLayout)
	}
	if !u.End.IsZero() {
		endKey = u.End.Format(core.DateLayout)
	}

	byKey := make(map[string]time.Time)
	for _, s := range u.Securities {
		for _, b := range s.Bars {
			k := b.Key()
			if k < startKey || k > endKey {
				continue
			}
			if _, ok := byKey[k]; !ok {
				byKey[k] = time.Date(b.Date.Year(), b.Date.Month(), b.Date.Day(), 0, 0, 0, 0, time.UTC)
			}
		}
	}

	days := make([]time.Time, 0, len(byKey))
	for _, d := range byKey {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
