package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sort keys accepted by the screening engine.
const (
	SortByPctOfHigh    = "pct_of_high"
	SortByMarketCap    = "market_cap"
	SortByCurrentPrice = "current_price"
)

// Default criteria values (see Normalize).
const (
	DefaultLookbackYears = 5
	DefaultThresholdPct  = 50
)

// Criteria describes one screening request. All fields are optional;
// zero values take the documented defaults when Normalize is applied.
type Criteria struct {
	Indices       []string `json:"indices"`
	LookbackYears int      `json:"lookback_years"`
	ThresholdPct  float64  `json:"threshold_pct"`
	Countries     []string `json:"countries"`
	Sectors       []string `json:"sectors"`
	MinMarketCap  int64    `json:"min_market_cap_usd"`
	MinVolume     int64    `json:"min_volume"`
	SortBy        string   `json:"sort_by"`
}

// Normalize fills in defaults for unset fields and returns the
// effective criteria. The input is not modified.
func (c Criteria) Normalize() Criteria {
	if len(c.Indices) == 0 {
		c.Indices = KnownIndices()
	}
	if c.LookbackYears == 0 {
		c.LookbackYears = DefaultLookbackYears
	}
	if c.ThresholdPct == 0 {
		c.ThresholdPct = DefaultThresholdPct
	}
	if c.Countries == nil {
		c.Countries = []string{}
	}
	if c.Sectors == nil {
		c.Sectors = []string{}
	}
	if c.SortBy == "" {
		c.SortBy = SortByPctOfHigh
	}
	return c
}

// IndexFilter resolves the index-membership restriction: a filter is
// applied only when exactly one known index is requested. Listing both
// known indices, or none, screens the whole catalog.
func (c Criteria) IndexFilter() string {
	var matched []string
	for _, name := range c.Indices {
		for _, known := range KnownIndices() {
			if name == known {
				matched = append(matched, known)
				break
			}
		}
	}
	if len(matched) == 1 {
		return matched[0]
	}
	return ""
}

// ScreenResult is one qualifying ticker in a screen report.
// PctOfHigh is rounded to two decimals for display; PctOfHighExact
// carries full precision for gating and ordering.
type ScreenResult struct {
	Symbol           string          `json:"ticker"`
	Name             string          `json:"name"`
	PctOfHigh        decimal.Decimal `json:"pct_of_high"`
	PctOfHighExact   decimal.Decimal `json:"-"`
	LookbackHigh     decimal.Decimal `json:"lookback_high"`
	LookbackHighDate time.Time       `json:"lookback_high_date"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	MarketCap        int64           `json:"market_cap"`
	Country          string          `json:"country"`
	Sector           string          `json:"sector"`
	Currency         string          `json:"currency"`
	Exchange         string          `json:"exchange"`
	AvgVolume30d     int64           `json:"avg_volume_30d"`
}

// ScreenReport is the ordered result set of one screen, with the
// effective criteria echoed back for UI display and saved searches.
type ScreenReport struct {
	Results    []ScreenResult `json:"results"`
	TotalCount int            `json:"total_count"`
	Criteria   Criteria       `json:"search_parameters"`
}
