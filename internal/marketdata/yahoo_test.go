package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/sepa/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-02 and 2024-01-03 14:30 UTC, then a partial row and a repeat of the 3rd
const chartJSON = `{"chart":{"result":[{"meta":{"symbol":"AAPL","gmtoffset":-18000},
"timestamp":[1704205800,1704292200,1704378600,1704299400],
"indicators":{"quote":[{
"open":[187.15,184.22,null,184.5],
"high":[188.44,185.88,null,185.9],
"low":[183.89,183.43,null,183.4],
"close":[185.64,184.25,null,184.3],
"volume":[82488700,58414500,null,58500000]}]}}],"error":null}}`

func TestYahoo_FetchHistory(t *testing.T) {
	var path, query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, query = r.URL.Path, r.URL.RawQuery
		w.Write([]byte(chartJSON))
	}))
	defer server.Close()

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	sec, err := NewYahoo(server.URL).FetchHistory(context.Background(), "AAPL", start, end)
	require.NoError(t, err)

	assert.Equal(t, "/AAPL", path)
	assert.Contains(t, query, "interval=1d")
	assert.Contains(t, query, "period1=1704153600")

	require.Len(t, sec.Bars, 2)
	assert.Equal(t, "2024-01-02", sec.Bars[0].Key())
	assert.Equal(t, core.Bar{
		Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		Open: 184.5, High: 185.9, Low: 183.4, Close: 184.3, Volume: 58500000,
	}, sec.Bars[1], "a repeated date keeps the last row")
}

func TestYahoo_FetchHistoryErrors(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
		body   string
		want   *core.Error
	}{
		{"bad symbol", "AA PL", chartJSON, core.ErrInvalidInput},
		{"no result", "AAPL", `{"chart":{"result":[],"error":null}}`, core.ErrNoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewYahoo(server.URL).FetchHistory(context.Background(), tt.symbol, time.Now(), time.Now())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestYahoo_ErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer server.Close()

	_, err := NewYahoo(server.URL).FetchHistory(context.Background(), "ZZZZ", time.Now(), time.Now())
	assert.ErrorContains(t, err, "symbol may be delisted")
}

func TestToYahooSymbol(t *testing.T) {
	assert.Equal(t, "600519.SS", toYahooSymbol("600519.SH"))
	assert.Equal(t, "0700.HK", toYahooSymbol("0700.HK"))
	assert.Equal(t, "AAPL", toYahooSymbol("AAPL"))
}
