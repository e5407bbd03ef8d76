package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/jmarceau/screener/internal/contracts"
)

// MemoryCatalog is an in-memory contracts.TickerCatalog with the same
// filter semantics as the Postgres repository. Used by engine tests and
// database-free tooling.
type MemoryCatalog struct {
	mu      sync.RWMutex
	tickers map[string]contracts.Ticker
}

// NewMemoryCatalog creates an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{tickers: make(map[string]contracts.Ticker)}
}

// Put creates or replaces a ticker.
func (m *MemoryCatalog) Put(t contracts.Ticker) {
	m.mu.Lock()
	m.tickers[t.Symbol] = t
	m.mu.Unlock()
}

// ListCandidates returns non-suspended tickers matching the filter,
// ordered by symbol.
func (m *MemoryCatalog) ListCandidates(_ context.Context, filter contracts.TickerFilter) ([]*contracts.Ticker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*contracts.Ticker
	for _, t := range m.tickers {
		if t.IsSuspended {
			continue
		}
		if filter.Index != "" && t.IndexMembership != filter.Index {
			continue
		}
		if len(filter.Countries) > 0 && !containsString(filter.Countries, t.Country) {
			continue
		}
		if len(filter.Sectors) > 0 && !containsString(filter.Sectors, t.Sector) {
			continue
		}
		if filter.MinMarketCap > 0 && t.MarketCap < filter.MinMarketCap {
			continue
		}
		ticker := t
		result = append(result, &ticker)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})
	return result, nil
}

// GetBySymbol returns a single ticker or ErrTickerNotFound.
func (m *MemoryCatalog) GetBySymbol(_ context.Context, symbol string) (*contracts.Ticker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tickers[symbol]
	if !ok {
		return nil, contracts.ErrTickerNotFound
	}
	return &t, nil
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
