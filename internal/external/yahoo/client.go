package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmarceau/screener/internal/contracts"
	"github.com/jmarceau/screener/pkg/config"
	"github.com/jmarceau/screener/pkg/httputil"
	"github.com/jmarceau/screener/pkg/logger"
)

// Client fetches daily bars from the Yahoo Finance v8 chart API. Yahoo
// has no API key and no published quota, which makes it the fallback
// when the Alpha Vantage budget runs out, and the primary source for
// European listings Alpha Vantage does not cover well.
type Client struct {
	baseURL string
	http    *httputil.Client
	logger  *logger.Logger
}

// New creates a Yahoo chart client.
func New(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		baseURL: cfg.Yahoo.BaseURL,
		http:    httputil.NewWithTimeout(log, 30*time.Second),
		logger:  log.WithField("module", "yahoo"),
	}
}

// chartResponse mirrors the v8 chart payload. Quote arrays carry null
// entries on holidays, hence the pointer element types.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailyHistory fetches daily bars covering at least the given number of
// years, oldest first.
func (c *Client) DailyHistory(ctx context.Context, symbol string, years int) ([]contracts.PriceBar, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s&events=div%%2Csplit",
		c.baseURL, url.PathEscape(symbol), rangeForYears(years))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	// Yahoo rejects requests without a browser-looking user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d: %s", resp.StatusCode, string(body))
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo: %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("yahoo: no data for %s", symbol)
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: missing quote block for %s", symbol)
	}
	quote := result.Indicators.Quote[0]

	var adjClose []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjClose = result.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]contracts.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closeVal := at(quote.Close, i)
		if closeVal == nil {
			continue // holiday / null bar
		}

		adjusted := *closeVal
		if v := at(adjClose, i); v != nil {
			adjusted = *v
		}

		bar := contracts.PriceBar{
			Symbol:        symbol,
			Date:          time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			AdjustedClose: decimal.NewFromFloat(adjusted),
			Open:          decimalAt(quote.Open, i),
			High:          decimalAt(quote.High, i),
			Low:           decimalAt(quote.Low, i),
		}
		if v := at(quote.Volume, i); v != nil {
			bar.Volume = *v
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func rangeForYears(years int) string {
	switch {
	case years <= 1:
		return "1y"
	case years <= 2:
		return "2y"
	case years <= 5:
		return "5y"
	case years <= 10:
		return "10y"
	default:
		return "max"
	}
}

func at[T any](values []*T, i int) *T {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func decimalAt(values []*float64, i int) decimal.Decimal {
	if v := at(values, i); v != nil {
		return decimal.NewFromFloat(*v)
	}
	return decimal.Zero
}
