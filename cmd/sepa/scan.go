package main

import (
	"fmt"
	"os"
	"time"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/indicator"
	"github.com/newthinker/sepa/internal/metrics"
	"github.com/newthinker/sepa/internal/pattern"
	"github.com/newthinker/sepa/internal/pattern/catalog"
	"github.com/newthinker/sepa/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	scanSymbols       []string
	scanDataDir       string
	scanBenchmark     string
	scanMinConfidence float64
	scanBullishOnly   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the latest bar of every symbol for patterns",
	Long:  "Run the configured detectors on each symbol's most recent bar and print the matches as CSV, best first.",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringSliceVar(&scanSymbols, "symbols", nil, "Symbols to scan (default: data.symbols or every file)")
	scanCmd.Flags().StringVar(&scanDataDir, "data-dir", "", "Directory of <SYMBOL>.csv price files")
	scanCmd.Flags().StringVar(&scanBenchmark, "benchmark", "", "Benchmark symbol for relative strength")
	scanCmd.Flags().Float64Var(&scanMinConfidence, "min-confidence", 0, "Drop matches below this confidence")
	scanCmd.Flags().BoolVar(&scanBullishOnly, "bullish", false, "Only report entry patterns")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if len(scanSymbols) > 0 {
		cfg.Data.Symbols = scanSymbols
	}
	if scanDataDir != "" {
		cfg.Data.Dir = scanDataDir
	}
	if scanBenchmark != "" {
		cfg.Data.Benchmark = scanBenchmark
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	started := time.Now()
	securities, benchmark, err := loadUniverse(cfg)
	if err != nil {
		return fmt.Errorf("loading prices: %w", err)
	}
	detectors, err := catalog.Build(cfg.Catalog())
	if err != nil {
		return err
	}

	params := cfg.Engine().Indicators.WithSMA(pattern.RequiredSMA(detectors)...)
	inputs, err := latestInputs(securities, benchmark, params)
	if err != nil {
		return err
	}

	scanner := pattern.NewScanner(detectors, cfg.Backtest.Workers, log)
	matches, err := scanner.Scan(cmd.Context(), inputs)
	if err != nil {
		return err
	}
	matches = filterMatches(matches, scanMinConfidence, scanBullishOnly)

	log.Info("scan completed",
		zap.Int("symbols", len(inputs)),
		zap.Int("matches", len(matches)),
		zap.Duration("elapsed", time.Since(started)),
	)
	if cfg.Metrics.Enabled && cfg.Metrics.Textfile != "" {
		reg := metrics.NewRegistry()
		reg.RecordScan(len(matches), time.Since(started))
		if err := reg.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return report.WriteMatches(os.Stdout, matches)
}

// latestInputs evaluates every security at its own last bar.
func latestInputs(securities []core.Security, benchmark core.Security, params indicator.Params) ([]pattern.Input, error) {
	inputs := make([]pattern.Input, 0, len(securities))
	for _, sec := range securities {
		frame, err := indicator.Build(sec.Bars, benchmark.Bars, params)
		if err != nil {
			return nil, fmt.Errorf("indicators for %s: %w", sec.Symbol, err)
		}
		inputs = append(inputs, pattern.Input{Symbol: sec.Symbol, Bars: sec.Bars, Frame: frame})
	}
	return inputs, nil
}

func filterMatches(matches []pattern.Match, minConfidence float64, bullishOnly bool) []pattern.Match {
	out := matches[:0]
	for _, m := range matches {
		if m.Confidence < minConfidence || (bullishOnly && m.Bias != pattern.BiasBullish) {
			continue
		}
		out = append(out, m)
	}
	return out
}
