package pricestore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jmarceau/screener/internal/contracts"
)

// MemoryStore is an in-memory contracts.PriceStore. Bars are kept
// sorted by date per symbol so the range queries start with a binary
// search instead of a full scan.
//
// It backs the screening engine's unit tests and serves as a small
// standalone store for tooling that has no database at hand.
type MemoryStore struct {
	mu   sync.RWMutex
	bars map[string][]contracts.PriceBar
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bars: make(map[string][]contracts.PriceBar)}
}

// ReplaceHistory replaces the full series for a symbol. The input is
// copied and sorted by date; callers keep ownership of their slice.
func (m *MemoryStore) ReplaceHistory(symbol string, bars []contracts.PriceBar) {
	series := make([]contracts.PriceBar, len(bars))
	copy(series, bars)
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})

	m.mu.Lock()
	m.bars[symbol] = series
	m.mu.Unlock()
}

// LatestBar returns the most recent bar for a symbol.
func (m *MemoryStore) LatestBar(_ context.Context, symbol string) (*contracts.PriceBar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	series := m.bars[symbol]
	if len(series) == 0 {
		return nil, contracts.ErrNoPriceHistory
	}

	bar := series[len(series)-1]
	return &bar, nil
}

// MaxHighBarSince returns the bar with the maximum High dated on or
// after from. Scanning in date order and keeping only strictly greater
// highs makes the earliest date win ties.
func (m *MemoryStore) MaxHighBarSince(_ context.Context, symbol string, from time.Time) (*contracts.PriceBar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	series := m.bars[symbol]
	start := firstOnOrAfter(series, from)
	if start == len(series) {
		return nil, contracts.ErrEmptyLookbackWindow
	}

	best := series[start]
	for _, bar := range series[start+1:] {
		if bar.High.GreaterThan(best.High) {
			best = bar
		}
	}
	return &best, nil
}

// AverageVolumeSince returns the mean volume over bars dated on or
// after from; 0 when none fall in the window.
func (m *MemoryStore) AverageVolumeSince(_ context.Context, symbol string, from time.Time) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	series := m.bars[symbol]
	start := firstOnOrAfter(series, from)
	if start == len(series) {
		return 0, nil
	}

	var total int64
	for _, bar := range series[start:] {
		total += bar.Volume
	}
	return float64(total) / float64(len(series)-start), nil
}

// firstOnOrAfter returns the index of the first bar dated on or after
// from, or len(series) when no bar qualifies.
func firstOnOrAfter(series []contracts.PriceBar, from time.Time) int {
	return sort.Search(len(series), func(i int) bool {
		return !series[i].Date.Before(from)
	})
}
