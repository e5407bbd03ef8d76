package contracts

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PriceBar is one daily OHLCV record. At most one bar exists per
// (Symbol, Date). Ingestion may produce bars where High < Open or
// High < Close; consumers must tolerate that.
type PriceBar struct {
	Symbol        string          `json:"ticker"`
	Date          time.Time       `json:"date"`
	AdjustedClose decimal.Decimal `json:"adjusted_close"`
	Open          decimal.Decimal `json:"open"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Volume        int64           `json:"volume"`
	IngestedAt    time.Time       `json:"ingested_at,omitempty"`
}

// PriceStore is the read surface the screening engine depends on.
// All three queries are invoked once per candidate ticker per screen,
// so implementations should keep bars ordered by date per symbol.
type PriceStore interface {
	// LatestBar returns the most recent bar for a symbol, or
	// ErrNoPriceHistory when the symbol has no bars at all.
	LatestBar(ctx context.Context, symbol string) (*PriceBar, error)

	// MaxHighBarSince returns the bar with the maximum High among bars
	// dated on or after from. Ties are broken by the earliest date.
	// Returns ErrEmptyLookbackWindow when no bars fall in the window.
	MaxHighBarSince(ctx context.Context, symbol string, from time.Time) (*PriceBar, error)

	// AverageVolumeSince returns the arithmetic mean of Volume over
	// bars dated on or after from, or 0 when there are none.
	AverageVolumeSince(ctx context.Context, symbol string, from time.Time) (float64, error)
}
