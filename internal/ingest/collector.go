package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmarceau/screener/internal/contracts"
	"github.com/jmarceau/screener/pkg/logger"
)

// HistoryWriter persists the full price history for one symbol. The
// replacement is atomic: readers never see a partially-ingested series.
type HistoryWriter interface {
	ReplaceHistory(ctx context.Context, symbol string, bars []*contracts.PriceBar) error
}

// CatalogWriter maintains the ticker catalog during ingestion.
type CatalogWriter interface {
	Upsert(ctx context.Context, t *contracts.Ticker) error
	ListSymbolsByIndex(ctx context.Context, index string) ([]string, error)
}

// ConstituentSource resolves index membership.
type ConstituentSource interface {
	Fetch(ctx context.Context, index string) ([]contracts.Ticker, error)
}

// Config holds collector tuning.
type Config struct {
	Workers       int
	LookbackYears int
}

// Collector orchestrates ingestion: constituent sync into the catalog
// and price history collection through a provider. One failing symbol
// never aborts a batch; its error is recorded in the FetchResult and
// the workers move on.
type Collector struct {
	provider PriceProvider
	prices   HistoryWriter
	catalog  CatalogWriter
	source   ConstituentSource
	logger   *logger.Logger
}

// NewCollector creates a Collector.
func NewCollector(provider PriceProvider, prices HistoryWriter, catalog CatalogWriter, source ConstituentSource, log *logger.Logger) *Collector {
	return &Collector{
		provider: provider,
		prices:   prices,
		catalog:  catalog,
		source:   source,
		logger:   log.WithField("module", "ingest"),
	}
}

// FetchResult is the per-symbol outcome of a collection run.
type FetchResult struct {
	Symbol   string
	BarCount int
	Error    error
}

// SyncConstituents refreshes catalog membership for every known index.
func (c *Collector) SyncConstituents(ctx context.Context) error {
	for _, index := range contracts.KnownIndices() {
		tickers, err := c.source.Fetch(ctx, index)
		if err != nil {
			return fmt.Errorf("fetch %s constituents: %w", index, err)
		}

		for i := range tickers {
			if err := c.catalog.Upsert(ctx, &tickers[i]); err != nil {
				return fmt.Errorf("upsert %s: %w", tickers[i].Symbol, err)
			}
		}

		c.logger.WithFields(map[string]interface{}{
			"index": index,
			"count": len(tickers),
		}).Info("Synced index constituents")
	}
	return nil
}

// CollectIndex collects price history for every symbol in an index.
func (c *Collector) CollectIndex(ctx context.Context, index string, cfg Config) ([]FetchResult, error) {
	symbols, err := c.catalog.ListSymbolsByIndex(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("list symbols for %s: %w", index, err)
	}
	return c.CollectSymbols(ctx, symbols, cfg), nil
}

// CollectAll collects price history across all known indices.
func (c *Collector) CollectAll(ctx context.Context, cfg Config) ([]FetchResult, error) {
	var all []FetchResult
	for _, index := range contracts.KnownIndices() {
		results, err := c.CollectIndex(ctx, index, cfg)
		if err != nil {
			return all, err
		}
		all = append(all, results...)
	}
	return all, nil
}

// CollectSymbols fans the symbol list out over a worker pool. Every
// symbol produces exactly one FetchResult.
func (c *Collector) CollectSymbols(ctx context.Context, symbols []string, cfg Config) []FetchResult {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.LookbackYears <= 0 {
		cfg.LookbackYears = contracts.DefaultLookbackYears
	}

	start := time.Now()
	c.logger.WithFields(map[string]interface{}{
		"symbols":  len(symbols),
		"workers":  cfg.Workers,
		"provider": c.provider.Name(),
	}).Info("Starting price collection")

	symbolCh := make(chan string, len(symbols))
	resultCh := make(chan FetchResult, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.worker(ctx, workerID, symbolCh, resultCh, cfg.LookbackYears)
		}(i)
	}

	for _, symbol := range symbols {
		symbolCh <- symbol
	}
	close(symbolCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]FetchResult, 0, len(symbols))
	successCount := 0
	failCount := 0
	for result := range resultCh {
		results = append(results, result)
		if result.Error != nil {
			failCount++
		} else {
			successCount++
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"success":  successCount,
		"failed":   failCount,
		"duration": time.Since(start),
	}).Info("Price collection completed")

	return results
}

func (c *Collector) worker(ctx context.Context, workerID int, symbolCh <-chan string, resultCh chan<- FetchResult, years int) {
	for symbol := range symbolCh {
		select {
		case <-ctx.Done():
			resultCh <- FetchResult{Symbol: symbol, Error: ctx.Err()}
			continue
		default:
		}

		bars, err := c.provider.DailyHistory(ctx, symbol, years)
		if err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": symbol,
			}).Error("Failed to fetch price history")
			resultCh <- FetchResult{Symbol: symbol, Error: err}
			continue
		}

		now := time.Now().UTC()
		ptrs := make([]*contracts.PriceBar, len(bars))
		for i := range bars {
			bars[i].IngestedAt = now
			ptrs[i] = &bars[i]
		}

		if err := c.prices.ReplaceHistory(ctx, symbol, ptrs); err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": symbol,
			}).Error("Failed to save price history")
			resultCh <- FetchResult{Symbol: symbol, BarCount: len(bars), Error: err}
			continue
		}

		c.logger.WithFields(map[string]interface{}{
			"worker": workerID,
			"symbol": symbol,
			"bars":   len(bars),
		}).Debug("Ingested price history")
		resultCh <- FetchResult{Symbol: symbol, BarCount: len(bars)}
	}
}
