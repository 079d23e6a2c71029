package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/newthinker/sepa/internal/backtest"
	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/metrics"
	"github.com/newthinker/sepa/internal/pattern/catalog"
	"github.com/newthinker/sepa/internal/report"
	"github.com/newthinker/sepa/internal/storage/archive"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	backtestSymbols   []string
	backtestFrom      string
	backtestTo        string
	backtestDataDir   string
	backtestBenchmark string
	backtestOut       string
	backtestNoArchive bool
	backtestStrict    bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run the strategy over historical bars",
	Long: `Simulate the configured detectors and risk rules day by day over the price
files in the data directory, print the performance summary and archive the reports.`,
	RunE: runBacktest,
}

func init() {
	backtestCmd.Flags().StringSliceVar(&backtestSymbols, "symbols", nil, "Symbols to trade (default: data.symbols or every file)")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "Start date YYYY-MM-DD")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "End date YYYY-MM-DD")
	backtestCmd.Flags().StringVar(&backtestDataDir, "data-dir", "", "Directory of <SYMBOL>.csv price files")
	backtestCmd.Flags().StringVar(&backtestBenchmark, "benchmark", "", "Benchmark symbol for relative strength")
	backtestCmd.Flags().StringVar(&backtestOut, "out", "", "Also write the CSV reports to this directory")
	backtestCmd.Flags().BoolVar(&backtestNoArchive, "no-archive", false, "Skip archiving the run")
	backtestCmd.Flags().BoolVar(&backtestStrict, "strict", false, "Fail when a critical alert rule fires")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	// Flags override the file
	if len(backtestSymbols) > 0 {
		cfg.Data.Symbols = backtestSymbols
	}
	if backtestFrom != "" {
		cfg.Backtest.Start = backtestFrom
	}
	if backtestTo != "" {
		cfg.Backtest.End = backtestTo
	}
	if backtestDataDir != "" {
		cfg.Data.Dir = backtestDataDir
	}
	if backtestBenchmark != "" {
		cfg.Data.Benchmark = backtestBenchmark
	}
	if backtestNoArchive {
		cfg.Archive.Type = ""
	}
	if backtestStrict {
		cfg.Alerts.FailOnCritical = true
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	start, end, err := cfg.Range()
	if err != nil {
		return err
	}

	securities, benchmark, err := loadUniverse(cfg)
	if err != nil {
		return fmt.Errorf("loading prices: %w", err)
	}
	detectors, err := catalog.Build(cfg.Catalog())
	if err != nil {
		return err
	}

	opts := []backtest.Option{
		backtest.WithLogger(log),
		backtest.WithWorkers(cfg.Backtest.Workers),
	}
	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		opts = append(opts, backtest.WithRecorder(reg))
	}
	engine, err := backtest.New(cfg.Engine(), detectors, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := engine.Run(ctx, backtest.Universe{
		Securities: securities,
		Benchmark:  benchmark,
		Start:      start,
		End:        end,
	})
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	fmt.Printf("=== SEPA Backtest (%s) ===\n", strings.Join(engine.DetectorNames(), ", "))
	if err := report.Print(os.Stdout, result); err != nil {
		return err
	}

	files, err := report.Files(result)
	if err != nil {
		return err
	}
	if backtestOut != "" {
		if err := writeReports(backtestOut, files); err != nil {
			return err
		}
	}
	if cfg.Archive.Type != "" {
		if err := archiveRun(ctx, cfg.ArchiveBackend(), result.RunID, files); err != nil {
			return err
		}
		log.Info("run archived", zap.String("run_id", result.RunID), zap.String("archive", cfg.Archive.Type))
	}
	if reg != nil && cfg.Metrics.Textfile != "" {
		if err := reg.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return checkAlerts(cfg.Alerts, result, log)
}

func archiveRun(ctx context.Context, cfg archive.Config, runID string, files map[string][]byte) error {
	storage, err := archive.New(cfg)
	if err != nil {
		return core.WrapError(core.ErrArchiveFailed, err)
	}
	return archive.NewRuns(storage).Save(ctx, runID, files)
}

func writeReports(dir string, files map[string][]byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating report dir: %w", err)
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}
