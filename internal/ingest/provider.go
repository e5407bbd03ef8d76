package ingest

import (
	"context"
	"fmt"

	"github.com/jmarceau/screener/internal/contracts"
	"github.com/jmarceau/screener/internal/external/alphavantage"
	"github.com/jmarceau/screener/internal/external/yahoo"
	"github.com/jmarceau/screener/pkg/config"
	"github.com/jmarceau/screener/pkg/logger"
)

// PriceProvider fetches the daily price history for one symbol,
// oldest bar first, covering at least the given number of years where
// the source allows.
type PriceProvider interface {
	Name() string
	DailyHistory(ctx context.Context, symbol string, years int) ([]contracts.PriceBar, error)
}

// AlphaVantageProvider adapts the Alpha Vantage client. The API always
// returns the full history, so years is ignored.
type AlphaVantageProvider struct {
	client *alphavantage.Client
}

func NewAlphaVantageProvider(client *alphavantage.Client) *AlphaVantageProvider {
	return &AlphaVantageProvider{client: client}
}

func (p *AlphaVantageProvider) Name() string { return "alphavantage" }

func (p *AlphaVantageProvider) DailyHistory(ctx context.Context, symbol string, _ int) ([]contracts.PriceBar, error) {
	return p.client.DailyAdjusted(ctx, symbol)
}

// YahooProvider adapts the Yahoo chart client.
type YahooProvider struct {
	client *yahoo.Client
}

func NewYahooProvider(client *yahoo.Client) *YahooProvider {
	return &YahooProvider{client: client}
}

func (p *YahooProvider) Name() string { return "yahoo" }

func (p *YahooProvider) DailyHistory(ctx context.Context, symbol string, years int) ([]contracts.PriceBar, error) {
	return p.client.DailyHistory(ctx, symbol, years)
}

// HybridProvider tries the primary provider and falls back to the
// secondary when the primary fails for a symbol. Alpha Vantage first
// for its adjusted closes, Yahoo second for coverage and quota room.
type HybridProvider struct {
	primary  PriceProvider
	fallback PriceProvider
	logger   *logger.Logger
}

func NewHybridProvider(primary, fallback PriceProvider, log *logger.Logger) *HybridProvider {
	return &HybridProvider{
		primary:  primary,
		fallback: fallback,
		logger:   log.WithField("module", "ingest"),
	}
}

func (p *HybridProvider) Name() string { return "hybrid" }

func (p *HybridProvider) DailyHistory(ctx context.Context, symbol string, years int) ([]contracts.PriceBar, error) {
	bars, err := p.primary.DailyHistory(ctx, symbol, years)
	if err == nil {
		return bars, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	p.logger.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"primary":  p.primary.Name(),
		"fallback": p.fallback.Name(),
	}).WithError(err).Warn("Primary provider failed, trying fallback")

	bars, ferr := p.fallback.DailyHistory(ctx, symbol, years)
	if ferr != nil {
		return nil, fmt.Errorf("primary %s: %v; fallback %s: %w", p.primary.Name(), err, p.fallback.Name(), ferr)
	}
	return bars, nil
}

// BuildProvider assembles the configured provider chain.
func BuildProvider(cfg *config.Config, log *logger.Logger) (PriceProvider, error) {
	av := NewAlphaVantageProvider(alphavantage.New(cfg, log))
	yh := NewYahooProvider(yahoo.New(cfg, log))

	switch cfg.Ingest.Provider {
	case "alphavantage":
		return av, nil
	case "yahoo":
		return yh, nil
	case "hybrid":
		return NewHybridProvider(av, yh, log), nil
	default:
		return nil, fmt.Errorf("unknown ingest provider %q", cfg.Ingest.Provider)
	}
}
