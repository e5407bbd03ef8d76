package contracts

import (
	"context"
	"time"
)

// Supported index universes.
const (
	IndexSP500        = "sp500"
	IndexEurostoxx600 = "eurostoxx600"
)

// KnownIndices returns the enumerated index universes in display order.
func KnownIndices() []string {
	return []string{IndexSP500, IndexEurostoxx600}
}

// Ticker represents a tradable instrument in the catalog.
// Symbol is globally unique; MarketCap of 0 means unknown.
type Ticker struct {
	Symbol          string     `json:"ticker"`
	ISIN            string     `json:"isin,omitempty"`
	Name            string     `json:"name"`
	Country         string     `json:"country"`
	Sector          string     `json:"sector"`
	MarketCap       int64      `json:"market_cap"`
	Currency        string     `json:"currency"`
	Exchange        string     `json:"exchange"`
	IndexMembership string     `json:"index_membership,omitempty"`
	IPODate         *time.Time `json:"ipo_date,omitempty"`
	IsSuspended     bool       `json:"is_suspended"`
}

// TickerFilter narrows the candidate set for a screen.
// Empty allow-lists mean no restriction. Suspended tickers are always
// excluded by implementations regardless of the other fields.
type TickerFilter struct {
	// Index restricts by membership only when it names exactly one
	// known index; empty means no index filter.
	Index        string
	Countries    []string
	Sectors      []string
	MinMarketCap int64
}

// TickerCatalog is the metadata query surface the screening engine
// depends on.
type TickerCatalog interface {
	// ListCandidates returns non-suspended tickers matching the filter.
	ListCandidates(ctx context.Context, filter TickerFilter) ([]*Ticker, error)

	// GetBySymbol returns a single ticker or ErrTickerNotFound.
	GetBySymbol(ctx context.Context, symbol string) (*Ticker, error)
}
