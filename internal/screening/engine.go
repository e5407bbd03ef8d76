package screening

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmarceau/screener/internal/contracts"
	"github.com/jmarceau/screener/pkg/logger"
)

// Engine joins catalog filters with price-derived metrics to produce
// ranked screening candidates. It owns no state and performs no
// writes, so concurrent Screen calls are safe.
type Engine struct {
	catalog contracts.TickerCatalog
	prices  contracts.PriceStore
	logger  *logger.Logger

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// NewEngine creates a screening engine.
func NewEngine(catalog contracts.TickerCatalog, prices contracts.PriceStore, log *logger.Logger) *Engine {
	return &Engine{
		catalog: catalog,
		prices:  prices,
		logger:  log.WithField("module", "screening"),
		now:     time.Now,
	}
}

// WithClock overrides the engine's notion of "today".
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Screen runs one screening pass and returns the ranked result set
// with the effective criteria echoed back.
//
// Tickers without price history, or whose bars all predate the
// lookback window, are dropped silently; only catalog or store
// failures abort the screen.
func (e *Engine) Screen(ctx context.Context, criteria contracts.Criteria) (*contracts.ScreenReport, error) {
	criteria = criteria.Normalize()
	start := time.Now()

	candidates, err := e.catalog.ListCandidates(ctx, contracts.TickerFilter{
		Index:        criteria.IndexFilter(),
		Countries:    criteria.Countries,
		Sectors:      criteria.Sectors,
		MinMarketCap: criteria.MinMarketCap,
	})
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	today := e.now()
	// Lookback uses a fixed 365-day year. This is a documented
	// approximation carried over from the reference behavior, not a
	// leap-year bug to fix: downstream consumers depend on the exact
	// window boundaries.
	lookbackStart := today.AddDate(0, 0, -criteria.LookbackYears*365)
	volumeStart := today.AddDate(0, 0, -30)
	threshold := decimal.NewFromFloat(criteria.ThresholdPct)

	results := make([]contracts.ScreenResult, 0, len(candidates))
	skipped := map[string]int{}

	for _, ticker := range candidates {
		result, reason, err := e.evaluate(ctx, ticker, lookbackStart, volumeStart, threshold, criteria.MinVolume)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", ticker.Symbol, err)
		}
		if reason != "" {
			skipped[reason]++
			continue
		}
		results = append(results, *result)
	}

	sortResults(results, criteria.SortBy)

	e.logger.WithFields(map[string]interface{}{
		"candidates": len(candidates),
		"results":    len(results),
		"skipped":    skipped,
		"duration":   time.Since(start),
	}).Info("Screen completed")

	return &contracts.ScreenReport{
		Results:    results,
		TotalCount: len(results),
		Criteria:   criteria,
	}, nil
}

// evaluate computes the price-derived metrics for one candidate.
// A non-empty reason means the ticker is excluded; an error aborts the
// whole screen.
func (e *Engine) evaluate(
	ctx context.Context,
	ticker *contracts.Ticker,
	lookbackStart, volumeStart time.Time,
	threshold decimal.Decimal,
	minVolume int64,
) (*contracts.ScreenResult, string, error) {
	latest, err := e.prices.LatestBar(ctx, ticker.Symbol)
	if errors.Is(err, contracts.ErrNoPriceHistory) {
		return nil, "no_history", nil
	}
	if err != nil {
		return nil, "", err
	}
	currentPrice := latest.AdjustedClose

	highBar, err := e.prices.MaxHighBarSince(ctx, ticker.Symbol, lookbackStart)
	if errors.Is(err, contracts.ErrEmptyLookbackWindow) {
		return nil, "stale_history", nil
	}
	if err != nil {
		return nil, "", err
	}

	pctExact, ok := PctOfHigh(currentPrice, highBar.High)
	if !ok {
		// A zero lookback high makes the ratio undefined; bad bars
		// from ingestion land here.
		return nil, "zero_high", nil
	}

	// Inclusion gate: the ticker trades at or below threshold percent
	// of its lookback high. Full precision, boundary included.
	if pctExact.GreaterThan(threshold) {
		return nil, "above_threshold", nil
	}

	avgVolume, err := e.prices.AverageVolumeSince(ctx, ticker.Symbol, volumeStart)
	if err != nil {
		return nil, "", err
	}
	avgVolume30d := int64(avgVolume)
	if avgVolume30d < minVolume {
		return nil, "low_volume", nil
	}

	return &contracts.ScreenResult{
		Symbol:           ticker.Symbol,
		Name:             ticker.Name,
		PctOfHigh:        pctExact.Round(2),
		PctOfHighExact:   pctExact,
		LookbackHigh:     highBar.High,
		LookbackHighDate: highBar.Date,
		CurrentPrice:     currentPrice,
		MarketCap:        ticker.MarketCap,
		Country:          ticker.Country,
		Sector:           ticker.Sector,
		Currency:         ticker.Currency,
		Exchange:         ticker.Exchange,
		AvgVolume30d:     avgVolume30d,
	}, "", nil
}

// sortResults orders results by the requested key. Unknown keys keep
// the input order.
func sortResults(results []contracts.ScreenResult, sortBy string) {
	switch sortBy {
	case contracts.SortByPctOfHigh:
		// Furthest fallen first.
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].PctOfHighExact.LessThan(results[j].PctOfHighExact)
		})
	case contracts.SortByMarketCap:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].MarketCap > results[j].MarketCap
		})
	case contracts.SortByCurrentPrice:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].CurrentPrice.GreaterThan(results[j].CurrentPrice)
		})
	}
}
