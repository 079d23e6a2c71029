package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/newthinker/sepa/internal/config"
	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/logger"
	"github.com/newthinker/sepa/internal/marketdata"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "sepa",
	Short: "SEPA - systematic trend-following backtester",
	Long: `SEPA replays daily bars through trend template, VCP and stage detectors,
admits entries through a risk gate and reports the resulting ledger and metrics.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads and validates the configuration and builds the logger.
func setup() (*config.Config, *zap.Logger, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
	}
	if debug {
		cfg.Log.Development = true
		cfg.Log.Level = "debug"
	}

	log, err := logger.New(logger.Options{Development: cfg.Log.Development, Level: cfg.Log.Level})
	if err != nil {
		return nil, nil, err
	}
	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
	}
	return cfg, log, nil
}

// loadUniverse reads the configured symbols, or every file in the data
// directory when none are listed, plus the benchmark.
func loadUniverse(cfg *config.Config) ([]core.Security, core.Security, error) {
	symbols := cfg.Data.Symbols
	if len(symbols) == 0 {
		all, err := marketdata.Symbols(cfg.Data.Dir)
		if err != nil {
			return nil, core.Security{}, err
		}
		for _, s := range all {
			if s != cfg.Data.Benchmark {
				symbols = append(symbols, s)
			}
		}
	}
	if len(symbols) == 0 {
		return nil, core.Security{}, core.Errorf(core.ErrNoData, "no price files in %s", cfg.Data.Dir)
	}

	securities, err := marketdata.LoadDir(cfg.Data.Dir, symbols)
	if err != nil {
		return nil, core.Security{}, err
	}

	var benchmark core.Security
	if cfg.Data.Benchmark != "" {
		path := filepath.Join(cfg.Data.Dir, cfg.Data.Benchmark+".csv")
		benchmark, err = marketdata.LoadFile(path, cfg.Data.Benchmark)
		if err != nil {
			return nil, core.Security{}, fmt.Errorf("benchmark: %w", err)
		}
	}
	return securities, benchmark, nil
}
