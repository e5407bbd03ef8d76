package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmarceau/screener/pkg/config"
	"github.com/jmarceau/screener/pkg/logger"
)

func newTestClient(serverURL string) *Client {
	cfg := &config.Config{Env: "development", LogLevel: "error", LogFormat: "json"}
	cfg.AlphaVantage.APIKey = "test-key"
	cfg.AlphaVantage.BaseURL = serverURL
	cfg.AlphaVantage.RequestsPerMinute = 600 // no throttling in tests
	return New(cfg, logger.New(cfg))
}

func TestClient_DailyAdjusted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TIME_SERIES_DAILY_ADJUSTED", r.URL.Query().Get("function"))
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "full", r.URL.Query().Get("outputsize"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))

		w.Write([]byte(`{
			"Meta Data": {"2. Symbol": "AAPL"},
			"Time Series (Daily)": {
				"2026-08-28": {
					"1. open": "101.00", "2. high": "105.50", "3. low": "100.00",
					"4. close": "104.00", "5. adjusted close": "104.00", "6. volume": "1200000"
				},
				"2026-08-27": {
					"1. open": "99.00", "2. high": "102.00", "3. low": "98.50",
					"4. close": "101.00", "5. adjusted close": "101.00", "6. volume": "900000"
				},
				"2026-08-26": {
					"1. open": "bad", "2. high": "100.00", "3. low": "97.00",
					"4. close": "99.00", "5. adjusted close": "99.00", "6. volume": "800000"
				}
			}
		}`))
	}))
	defer server.Close()

	bars, err := newTestClient(server.URL).DailyAdjusted(context.Background(), "AAPL")
	require.NoError(t, err)

	// The malformed 08-26 bar is skipped; the rest come back oldest
	// first.
	require.Len(t, bars, 2)
	assert.Equal(t, "2026-08-27", bars[0].Date.Format("2006-01-02"))
	assert.Equal(t, "2026-08-28", bars[1].Date.Format("2006-01-02"))
	assert.True(t, bars[1].High.Equal(decimal.RequireFromString("105.50")))
	assert.True(t, bars[1].AdjustedClose.Equal(decimal.RequireFromString("104.00")))
	assert.Equal(t, int64(1200000), bars[1].Volume)
	assert.Equal(t, "AAPL", bars[1].Symbol)
}

func TestClient_DailyAdjusted_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Error Message": "Invalid API call."}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).DailyAdjusted(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API call")
}

func TestClient_DailyAdjusted_RateLimitNote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 5 requests per minute."}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).DailyAdjusted(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestClient_CompanyOverview(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "OVERVIEW", r.URL.Query().Get("function"))
		w.Write([]byte(`{
			"Symbol": "AAPL",
			"Name": "Apple Inc",
			"Exchange": "NASDAQ",
			"Currency": "USD",
			"Country": "USA",
			"Sector": "TECHNOLOGY",
			"Industry": "ELECTRONIC COMPUTERS",
			"MarketCapitalization": "2800000000000"
		}`))
	}))
	defer server.Close()

	overview, err := newTestClient(server.URL).CompanyOverview(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", overview.Name)
	assert.Equal(t, "NASDAQ", overview.Exchange)
	assert.Equal(t, int64(2_800_000_000_000), overview.MarketCap)
}

func TestClient_CompanyOverview_UnknownMarketCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Symbol": "XFND", "Name": "Some Fund", "MarketCapitalization": "None"}`))
	}))
	defer server.Close()

	overview, err := newTestClient(server.URL).CompanyOverview(context.Background(), "XFND")
	require.NoError(t, err)
	assert.Zero(t, overview.MarketCap)
}

func TestClient_CompanyOverview_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CompanyOverview(context.Background(), "NOPE")
	require.Error(t, err)
}
