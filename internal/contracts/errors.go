package contracts

import "errors"

// Per-ticker data conditions. During a screen these cause the ticker to
// be skipped silently; only single-ticker lookups surface them.
var (
	// ErrTickerNotFound is returned for lookups of unknown symbols.
	ErrTickerNotFound = errors.New("ticker not found")

	// ErrNoPriceHistory is returned when a ticker has zero price bars.
	ErrNoPriceHistory = errors.New("no price history")

	// ErrEmptyLookbackWindow is returned when a ticker has bars but
	// none inside the requested window.
	ErrEmptyLookbackWindow = errors.New("no bars in lookback window")
)
