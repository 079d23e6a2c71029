// Package report renders backtest results as CSV files and a console summary.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/newthinker/sepa/internal/backtest"
	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/pattern"
)

// File names used for archived runs.
const (
	TradesFile    = "trades.csv"
	EquityFile    = "equity.csv"
	MetricsFile   = "metrics.csv"
	PositionsFile = "positions.csv"
)

// WriteTrades writes the ledger in execution order.
func WriteTrades(w io.Writer, trades []backtest.Trade) error {
	rows := [][]string{{
		"symbol", "pattern", "entry_date", "entry_price", "exit_date", "exit_price",
		"shares", "profit_loss", "profit_loss_pct", "holding_days", "exit_reason",
	}}
	for _, t := range trades {
		rows = append(rows, []string{
			t.Symbol, t.Pattern, t.EntryDate.Format(core.DateLayout), formatF(t.EntryPrice),
			t.ExitDate.Format(core.DateLayout), formatF(t.ExitPrice),
			strconv.FormatInt(t.Shares, 10), formatF(t.ProfitLoss), formatF(t.ProfitLossPct),
			strconv.Itoa(t.HoldingDays()), string(t.ExitReason),
		})
	}
	return writeAll(w, rows)
}

// WriteEquity writes one row per simulated day.
func WriteEquity(w io.Writer, curve []backtest.EquityPoint) error {
	rows := [][]string{{"date", "value"}}
	for _, p := range curve {
		rows = append(rows, []string{p.Date.Format(core.DateLayout), formatF(p.Value)})
	}
	return writeAll(w, rows)
}

// WritePositions writes positions still open at the end of the run.
func WritePositions(w io.Writer, positions []backtest.Position) error {
	rows := [][]string{{
		"symbol", "pattern", "entry_date", "entry_price", "shares",
		"current_price", "stop_loss", "trailing", "take_profit", "unrealized_pct",
	}}
	for _, p := range positions {
		rows = append(rows, []string{
			p.Symbol, p.Pattern, p.EntryDate.Format(core.DateLayout), formatF(p.EntryPrice),
			strconv.FormatInt(p.Shares, 10), formatF(p.CurrentPrice), formatF(p.StopLoss()),
			strconv.FormatBool(p.Stop.Trailing()), formatF(p.TakeProfit), formatF(p.UnrealizedPct()),
		})
	}
	return writeAll(w, rows)
}

// WriteMetrics writes the run summary as metric,value pairs.
func WriteMetrics(w io.Writer, r *backtest.Result) error {
	rows := [][]string{{"metric", "value"}}
	for _, kv := range metricRows(r) {
		rows = append(rows, []string{kv.name, kv.value})
	}
	return writeAll(w, rows)
}

// WriteMatches writes scan results.
func WriteMatches(w io.Writer, matches []pattern.Match) error {
	rows := [][]string{{"symbol", "date", "pattern", "bias", "confidence"}}
	for _, m := range matches {
		rows = append(rows, []string{
			m.Symbol, m.Date.Format(core.DateLayout), m.Pattern, string(m.Bias), formatF(m.Confidence),
		})
	}
	return writeAll(w, rows)
}

// Files renders every report of a run, keyed by file name.
func Files(r *backtest.Result) (map[string][]byte, error) {
	writers := map[string]func(io.Writer) error{
		TradesFile:    func(w io.Writer) error { return WriteTrades(w, r.Trades) },
		EquityFile:    func(w io.Writer) error { return WriteEquity(w, r.EquityCurve) },
		MetricsFile:   func(w io.Writer) error { return WriteMetrics(w, r) },
		PositionsFile: func(w io.Writer) error { return WritePositions(w, r.OpenPositions) },
	}
	files := make(map[string][]byte, len(writers))
	for name, write := range writers {
		var buf bytes.Buffer
		if err := write(&buf); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		files[name] = buf.Bytes()
	}
	return files, nil
}

// Print writes a human readable summary.
func Print(w io.Writer, r *backtest.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, kv := range metricRows(r) {
		fmt.Fprintf(tw, "%s\t%s\n", kv.name, kv.value)
	}
	if len(r.OpenPositions) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "open position\tshares\tentry\tcurrent\tstop")
		for _, p := range r.OpenPositions {
			fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\n", p.Symbol, p.Shares, p.EntryPrice, p.CurrentPrice, p.StopLoss())
		}
	}
	return tw.Flush()
}

type metricRow struct {
	name  string
	value string
}

func metricRows(r *backtest.Result) []metricRow {
	m := r.Metrics
	return []metricRow{
		{"run_id", r.RunID},
		{"start_date", r.StartDate.Format(core.DateLayout)},
		{"end_date", r.EndDate.Format(core.DateLayout)},
		{"final_value", fixed(m.FinalValue)},
		{"final_cash", r.FinalCash.StringFixed(2)},
		{"total_return_pct", fixed(m.TotalReturn)},
		{"cagr_pct", fixed(m.CAGR)},
		{"annualized_return_pct", fixed(m.AnnualizedReturn)},
		{"sharpe_ratio", fixed(m.SharpeRatio)},
		{"sortino_ratio", fixed(m.SortinoRatio)},
		{"max_drawdown_pct", fixed(m.MaxDrawdown)},
		{"total_trades", strconv.Itoa(m.TotalTrades)},
		{"winning_trades", strconv.Itoa(m.WinningTrades)},
		{"losing_trades", strconv.Itoa(m.LosingTrades)},
		{"win_rate_pct", fixed(m.WinRate)},
		{"profit_factor", fixed(m.ProfitFactor)},
		{"avg_win", fixed(m.AvgWin)},
		{"avg_loss", fixed(m.AvgLoss)},
		{"expectancy", fixed(m.Expectancy)},
		{"avg_holding_days", fixed(m.AvgHoldingDays)},
		{"open_positions", strconv.Itoa(len(r.OpenPositions))},
	}
}

func writeAll(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func fixed(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
