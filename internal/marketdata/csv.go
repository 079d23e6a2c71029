// Package marketdata loads daily bars from CSV files.
package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/sepa/internal/core"
)

var dateLayouts = []string{core.DateLayout, time.RFC3339, "2006/01/02", "01/02/2006"}

// required columns; "adj close" and anything else is ignored
var columns = []string{"date", "open", "high", "low", "close", "volume"}

// ReadCSV parses bars with a header row naming the date, open, high, low,
// close and volume columns in any order. Rows may be in either date order;
// the returned security is ascending and validated.
func ReadCSV(r io.Reader, symbol string) (core.Security, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return core.Security{}, core.Errorf(core.ErrNoData, "%s: empty file", symbol)
	}
	if err != nil {
		return core.Security{}, fmt.Errorf("%s: reading header: %w", symbol, err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return core.Security{}, fmt.Errorf("%s: %w", symbol, err)
	}

	var bars []core.Bar
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return core.Security{}, fmt.Errorf("%s: line %d: %w", symbol, line, err)
		}
		bar, err := parseBar(rec, idx)
		if err != nil {
			return core.Security{}, core.Errorf(core.ErrInvalidInput, "%s: line %d: %v", symbol, line, err)
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return core.Security{}, core.Errorf(core.ErrNoData, "%s: no bars", symbol)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	sec := core.Security{Symbol: symbol, Bars: bars}
	if err := sec.Validate(); err != nil {
		return core.Security{}, err
	}
	return sec, nil
}

// LoadFile reads one symbol from path.
func LoadFile(path, symbol string) (core.Security, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.Security{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f, symbol)
}

// LoadDir reads <dir>/<SYMBOL>.csv for each symbol.
func LoadDir(dir string, symbols []string) ([]core.Security, error) {
	out := make([]core.Security, 0, len(symbols))
	for _, s := range symbols {
		sec, err := LoadFile(filepath.Join(dir, s+".csv"), s)
		if err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	return out, nil
}

// Symbols lists the symbols with a CSV file in dir, sorted.
func Symbols(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(matches))
	for _, m := range matches {
		symbols = append(symbols, strings.TrimSuffix(filepath.Base(m), ".csv"))
	}
	sort.Strings(symbols)
	return symbols, nil
}

// WriteCSV writes bars with the header ReadCSV expects.
func WriteCSV(w io.Writer, sec core.Security) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, b := range sec.Bars {
		err := cw.Write([]string{
			b.Key(),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatInt(b.Volume, 10),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveFile writes <dir>/<SYMBOL>.csv.
func SaveFile(dir string, sec core.Security) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	f, err := os.Create(filepath.Join(dir, sec.Symbol+".csv"))
	if err != nil {
		return err
	}
	if err := WriteCSV(f, sec); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", sec.Symbol, err)
	}
	return f.Close()
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(columns))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range columns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}
	return idx, nil
}

func parseBar(rec []string, idx map[string]int) (core.Bar, error) {
	field := func(name string) string {
		if i := idx[name]; i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	date, err := parseDate(field("date"))
	if err != nil {
		return core.Bar{}, err
	}
	var prices [4]float64
	for i, name := range []string{"open", "high", "low", "close"} {
		if prices[i], err = strconv.ParseFloat(field(name), 64); err != nil {
			return core.Bar{}, fmt.Errorf("%s: %w", name, err)
		}
	}
	volume, err := strconv.ParseFloat(field("volume"), 64)
	if err != nil {
		return core.Bar{}, fmt.Errorf("volume: %w", err)
	}

	return core.Bar{
		Date:   date,
		Open:   prices[0],
		High:   prices[1],
		Low:    prices[2],
		Close:  prices[3],
		Volume: int64(volume),
	}, nil
}

// parseDate keeps only the calendar date, in UTC.
func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
