package yahoo

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
	cfg.Yahoo.BaseURL = serverURL
	return New(cfg, logger.New(cfg))
}

func TestClient_DailyHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/MC.PA", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "5y", r.URL.Query().Get("range"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		// Three trading days; the middle one is a null (holiday) bar.
		w.Write([]byte(`{
			"chart": {
				"result": [{
					"timestamp": [1756252800, 1756339200, 1756425600],
					"indicators": {
						"quote": [{
							"open":   [100.5, null, 102.0],
							"high":   [103.0, null, 104.5],
							"low":    [99.0,  null, 101.0],
							"close":  [102.0, null, 103.5],
							"volume": [500000, null, 600000]
						}],
						"adjclose": [{"adjclose": [101.4, null, 103.5]}]
					}
				}],
				"error": null
			}
		}`))
	}))
	defer server.Close()

	bars, err := newTestClient(server.URL).DailyHistory(context.Background(), "MC.PA", 5)
	require.NoError(t, err)

	require.Len(t, bars, 2, "null bar dropped")
	assert.True(t, bars[0].Date.Before(bars[1].Date))
	assert.True(t, bars[0].AdjustedClose.Equal(decimal.NewFromFloat(101.4)), "adjusted close preferred over close")
	assert.True(t, bars[0].High.Equal(decimal.NewFromFloat(103.0)))
	assert.Equal(t, int64(500000), bars[0].Volume)
	assert.Equal(t, "MC.PA", bars[0].Symbol)
}

func TestClient_DailyHistory_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found, symbol may be delisted"}}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).DailyHistory(context.Background(), "GONE", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delisted")
}

func TestClient_DailyHistory_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart": {"result": [], "error": null}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).DailyHistory(context.Background(), "EMPTY", 5)
	require.Error(t, err)
}

func TestRangeForYears(t *testing.T) {
	tests := []struct {
		years int
		want  string
	}{
		{1, "1y"},
		{2, "2y"},
		{3, "5y"},
		{5, "5y"},
		{8, "10y"},
		{25, "max"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rangeForYears(tt.years), "years=%d", tt.years)
	}
}
