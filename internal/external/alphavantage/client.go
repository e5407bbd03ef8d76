package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmarceau/screener/internal/contracts"
	"github.com/jmarceau/screener/pkg/config"
	"github.com/jmarceau/screener/pkg/httputil"
	"github.com/jmarceau/screener/pkg/logger"
)

// Client talks to the Alpha Vantage REST API. The free tier allows
// 5 requests per minute; the embedded rate limiter blocks callers until
// a slot is available, so one Client must be shared per API key.
type Client struct {
	baseURL string
	apiKey  string
	http    *httputil.Client
	logger  *logger.Logger
}

// New creates a rate-limited Alpha Vantage client.
func New(cfg *config.Config, log *logger.Logger) *Client {
	rpm := cfg.AlphaVantage.RequestsPerMinute
	if rpm <= 0 {
		rpm = 5
	}
	return &Client{
		baseURL: cfg.AlphaVantage.BaseURL,
		apiKey:  cfg.AlphaVantage.APIKey,
		http:    httputil.NewWithTimeout(log, 30*time.Second).WithRateLimit(rpm, time.Minute),
		logger:  log.WithField("module", "alphavantage"),
	}
}

// Overview holds the subset of the OVERVIEW endpoint the catalog needs.
type Overview struct {
	Symbol    string
	Name      string
	Exchange  string
	Currency  string
	Country   string
	Sector    string
	Industry  string
	MarketCap int64
}

// apiEnvelope captures the error shapes Alpha Vantage mixes into
// otherwise-successful responses.
type apiEnvelope struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

func (e apiEnvelope) err() error {
	switch {
	case e.ErrorMessage != "":
		return fmt.Errorf("alphavantage: %s", e.ErrorMessage)
	case e.Note != "":
		return fmt.Errorf("alphavantage: rate limited: %s", e.Note)
	case e.Information != "":
		return fmt.Errorf("alphavantage: %s", e.Information)
	}
	return nil
}

func (c *Client) query(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("apikey", c.apiKey)

	resp, err := c.http.Get(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alphavantage: status %d: %s", resp.StatusCode, string(body))
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if err := envelope.err(); err != nil {
		return nil, err
	}
	return body, nil
}

// DailyAdjusted fetches the full adjusted daily series for a symbol,
// oldest bar first.
func (c *Client) DailyAdjusted(ctx context.Context, symbol string) ([]contracts.PriceBar, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY_ADJUSTED")
	params.Set("symbol", symbol)
	params.Set("outputsize", "full")

	body, err := c.query(ctx, params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Series map[string]struct {
			Open          string `json:"1. open"`
			High          string `json:"2. high"`
			Low           string `json:"3. low"`
			Close         string `json:"4. close"`
			AdjustedClose string `json:"5. adjusted close"`
			Volume        string `json:"6. volume"`
		} `json:"Time Series (Daily)"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode daily series: %w", err)
	}
	if len(payload.Series) == 0 {
		return nil, fmt.Errorf("alphavantage: no daily data for %s", symbol)
	}

	bars := make([]contracts.PriceBar, 0, len(payload.Series))
	for dateStr, row := range payload.Series {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			c.logger.WithField("date", dateStr).WithError(err).Warn("Skipping unparsable bar date")
			continue
		}
		bar, err := buildBar(symbol, date, row.Open, row.High, row.Low, row.AdjustedClose, row.Volume)
		if err != nil {
			c.logger.WithFields(map[string]interface{}{
				"symbol": symbol,
				"date":   dateStr,
			}).WithError(err).Warn("Skipping malformed bar")
			continue
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// CompanyOverview fetches company metadata for a symbol. An empty
// response (unknown symbol) returns an error rather than a zero struct.
func (c *Client) CompanyOverview(ctx context.Context, symbol string) (*Overview, error) {
	params := url.Values{}
	params.Set("function", "OVERVIEW")
	params.Set("symbol", symbol)

	body, err := c.query(ctx, params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Symbol    string `json:"Symbol"`
		Name      string `json:"Name"`
		Exchange  string `json:"Exchange"`
		Currency  string `json:"Currency"`
		Country   string `json:"Country"`
		Sector    string `json:"Sector"`
		Industry  string `json:"Industry"`
		MarketCap string `json:"MarketCapitalization"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode overview: %w", err)
	}
	if payload.Symbol == "" {
		return nil, fmt.Errorf("alphavantage: no overview for %s", symbol)
	}

	// MarketCapitalization comes back as "None" for funds and some
	// foreign listings; treat that as unknown.
	marketCap, err := strconv.ParseInt(payload.MarketCap, 10, 64)
	if err != nil {
		marketCap = 0
	}

	return &Overview{
		Symbol:    payload.Symbol,
		Name:      payload.Name,
		Exchange:  payload.Exchange,
		Currency:  payload.Currency,
		Country:   payload.Country,
		Sector:    payload.Sector,
		Industry:  payload.Industry,
		MarketCap: marketCap,
	}, nil
}

func buildBar(symbol string, date time.Time, open, high, low, adjClose, volume string) (contracts.PriceBar, error) {
	var bar contracts.PriceBar
	var err error

	if bar.AdjustedClose, err = decimal.NewFromString(adjClose); err != nil {
		return bar, fmt.Errorf("adjusted close %q: %w", adjClose, err)
	}
	if bar.Open, err = decimal.NewFromString(open); err != nil {
		return bar, fmt.Errorf("open %q: %w", open, err)
	}
	if bar.High, err = decimal.NewFromString(high); err != nil {
		return bar, fmt.Errorf("high %q: %w", high, err)
	}
	if bar.Low, err = decimal.NewFromString(low); err != nil {
		return bar, fmt.Errorf("low %q: %w", low, err)
	}
	if bar.Volume, err = strconv.ParseInt(volume, 10, 64); err != nil {
		return bar, fmt.Errorf("volume %q: %w", volume, err)
	}

	bar.Symbol = symbol
	bar.Date = date
	return bar, nil
}
