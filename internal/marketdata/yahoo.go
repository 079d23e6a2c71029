package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/newthinker/sepa/internal/core"
)

const yahooURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// validSymbol matches stock symbols like AAPL, MSFT, 600519.SH, 0700.HK, ^GSPC
var validSymbol = regexp.MustCompile(`^\^?[A-Za-z0-9-]{1,10}(\.[A-Za-z]{1,4})?$`)

// Yahoo downloads daily history from Yahoo Finance.
type Yahoo struct {
	client  *http.Client
	baseURL string
}

// NewYahoo creates a Yahoo client. An empty baseURL uses the public endpoint.
func NewYahoo(baseURL string) *Yahoo {
	if baseURL == "" {
		baseURL = yahooURL
	}
	return &Yahoo{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// toYahooSymbol converts internal symbol format to Yahoo format
func toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

// FetchHistory fetches daily bars for [start, end]. Rows with missing
// fields are skipped and a repeated date keeps the last row.
func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, start, end time.Time) (core.Security, error) {
	if !validSymbol.MatchString(symbol) {
		return core.Security{}, core.Errorf(core.ErrInvalidInput, "invalid symbol format: %q", symbol)
	}

	url := fmt.Sprintf("%s/%s?interval=1d&period1=%d&period2=%d",
		y.baseURL, toYahooSymbol(symbol), start.Unix(), end.AddDate(0, 0, 1).Unix())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return core.Security{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return core.Security{}, fmt.Errorf("fetching history: %w", err)
	}
	defer resp.Body.Close()

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return core.Security{}, fmt.Errorf("%s: decoding response (status %d): %w", symbol, resp.StatusCode, err)
	}
	if result.Chart.Error != nil {
		return core.Security{}, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return core.Security{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return core.Security{}, core.Errorf(core.ErrNoData, "no data for symbol: %s", symbol)
	}

	r := result.Chart.Result[0]
	q := r.Indicators.Quote[0]
	var bars []core.Bar
	for i, ts := range r.Timestamp {
		if !q.complete(i) {
			continue
		}
		t := time.Unix(ts+r.Meta.GMTOffset, 0).UTC()
		bar := core.Bar{
			Date:   time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Open:   *q.Open[i],
			High:   *q.High[i],
			Low:    *q.Low[i],
			Close:  *q.Close[i],
			Volume: *q.Volume[i],
		}
		if n := len(bars); n > 0 && bars[n-1].Key() == bar.Key() {
			bars[n-1] = bar
			continue
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return core.Security{}, core.Errorf(core.ErrNoData, "no bars for symbol: %s", symbol)
	}

	sec := core.Security{Symbol: symbol, Bars: bars}
	if err := sec.Validate(); err != nil {
		return core.Security{}, err
	}
	return sec, nil
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []quoteIndicator `json:"quote"`
	} `json:"indicators"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

func (q quoteIndicator) complete(i int) bool {
	for _, col := range [][]*float64{q.Open, q.High, q.Low, q.Close} {
		if i >= len(col) || col[i] == nil {
			return false
		}
	}
	return i < len(q.Volume) && q.Volume[i] != nil
}
