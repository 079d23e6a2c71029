package main

import (
	"fmt"
	"time"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/marketdata"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	fetchSymbols     []string
	fetchFrom        string
	fetchTo          string
	fetchDataDir     string
	fetchConcurrency int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download daily bars into the data directory",
	Long: `Download daily history from Yahoo Finance for the configured symbols and the
benchmark, writing one <SYMBOL>.csv per symbol.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringSliceVar(&fetchSymbols, "symbols", nil, "Symbols to download (default: data.symbols)")
	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "Start date YYYY-MM-DD (default: two years ago)")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "End date YYYY-MM-DD (default: today)")
	fetchCmd.Flags().StringVar(&fetchDataDir, "data-dir", "", "Directory to write <SYMBOL>.csv files")
	fetchCmd.Flags().IntVar(&fetchConcurrency, "concurrency", 4, "Parallel downloads")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if len(fetchSymbols) > 0 {
		cfg.Data.Symbols = fetchSymbols
	}
	if fetchDataDir != "" {
		cfg.Data.Dir = fetchDataDir
	}
	symbols := fetchList(cfg.Data.Symbols, cfg.Data.Benchmark)
	if len(symbols) == 0 {
		return core.Errorf(core.ErrConfigMissing, "no symbols to fetch")
	}

	end := time.Now().UTC()
	if fetchTo != "" {
		if end, err = time.Parse(core.DateLayout, fetchTo); err != nil {
			return fmt.Errorf("--to: %w", err)
		}
	}
	start := end.AddDate(-2, 0, 0)
	if fetchFrom != "" {
		if start, err = time.Parse(core.DateLayout, fetchFrom); err != nil {
			return fmt.Errorf("--from: %w", err)
		}
	}

	yahoo := marketdata.NewYahoo(cfg.Data.YahooURL)
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(1, fetchConcurrency))
	for _, symbol := range symbols {
		g.Go(func() error {
			sec, err := yahoo.FetchHistory(ctx, symbol, start, end)
			if err != nil {
				return fmt.Errorf("%s: %w", symbol, err)
			}
			if err := marketdata.SaveFile(cfg.Data.Dir, sec); err != nil {
				return err
			}
			log.Info("fetched", zap.String("symbol", symbol), zap.Int("bars", len(sec.Bars)))
			return nil
		})
	}
	return g.Wait()
}

// fetchList appends the benchmark to symbols unless already listed.
func fetchList(symbols []string, benchmark string) []string {
	out := append([]string(nil), symbols...)
	if benchmark == "" {
		return out
	}
	for _, s := range out {
		if s == benchmark {
			return out
		}
	}
	return append(out, benchmark)
}
