package screening

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmarceau/screener/internal/catalog"
	"github.com/jmarceau/screener/internal/contracts"
	"github.com/jmarceau/screener/internal/pricestore"
	"github.com/jmarceau/screener/pkg/config"
	"github.com/jmarceau/screener/pkg/logger"
)

// All engine tests run against a fixed clock so window boundaries are
// deterministic.
var testToday = time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

func newTestEngine(cat *catalog.MemoryCatalog, store *pricestore.MemoryStore) *Engine {
	log := logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
	return NewEngine(cat, store, log).WithClock(func() time.Time { return testToday })
}

func testTicker(symbol, index string) contracts.Ticker {
	return contracts.Ticker{
		Symbol:          symbol,
		Name:            symbol + " Inc.",
		Country:         "United States",
		Sector:          "Technology",
		MarketCap:       10_000_000_000,
		Currency:        "USD",
		Exchange:        "NYSE",
		IndexMembership: index,
	}
}

func testBar(symbol string, date time.Time, close, high float64, volume int64) contracts.PriceBar {
	return contracts.PriceBar{
		Symbol:        symbol,
		Date:          date,
		AdjustedClose: decimal.NewFromFloat(close),
		Open:          decimal.NewFromFloat(close),
		High:          decimal.NewFromFloat(high),
		Low:           decimal.NewFromFloat(close),
		Volume:        volume,
	}
}

// flatHistory builds a short recent series ending yesterday with the
// given latest close, window high and constant volume.
func flatHistory(symbol string, close, high float64, volume int64) []contracts.PriceBar {
	return []contracts.PriceBar{
		testBar(symbol, testToday.AddDate(0, 0, -3), close, high, volume),
		testBar(symbol, testToday.AddDate(0, 0, -2), close, close, volume),
		testBar(symbol, testToday.AddDate(0, 0, -1), close, close, volume),
	}
}

func TestEngine_Screen_ThresholdGate(t *testing.T) {
	cat := catalog.NewMemoryCatalog()
	store := pricestore.NewMemoryStore()

	// AAA trades at exactly 50% of its high: boundary is included.
	cat.Put(testTicker("AAA", contracts.IndexSP500))
	store.ReplaceHistory("AAA", flatHistory("AAA", 50.00, 100.00, 1000))

	// BBB trades just above the threshold: excluded.
	cat.Put(testTicker("BBB", contracts.IndexSP500))
	store.ReplaceHistory("BBB", flatHistory("BBB", 50.01, 100.00, 1000))

	// CCC fell far below: included.
	cat.Put(testTicker("CCC", contracts.IndexSP500))
	store.ReplaceHistory("CCC", flatHistory("CCC", 20.00, 100.00, 1000))

	report, err := newTestEngine(cat, store).Screen(context.Background(), contracts.Criteria{ThresholdPct: 50})
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.Equal(t, 2, report.TotalCount)

	symbols := []string{report.Results[0].Symbol, report.Results[1].Symbol}
	assert.Equal(t, []string{"CCC", "AAA"}, symbols, "sorted by pct_of_high ascending")

	for _, res := range report.Results {
		assert.True(t, res.PctOfHighExact.LessThanOrEqual(decimal.NewFromInt(50)),
			"%s pct %s exceeds threshold", res.Symbol, res.PctOfHighExact)
	}
}

func TestEngine_Screen_DefaultsApplied(t *testing.T) {
	cat := catalog.NewMemoryCatalog()
	store := pricestore.NewMemoryStore()

	report, err := newTestEngine(cat, store).Screen(context.Background(), contracts.Criteria{})
	require.NoError(t, err)

	assert.Equal(t, contracts.KnownIndices(), report.Criteria.Indices)
	assert.Equal(t, 5, report.Criteria.LookbackYears)
	assert.Equal(t, 50.0, report.Criteria.ThresholdPct)
	assert.Equal(t, contracts.SortByPctOfHigh, report.Criteria.SortBy)
	assert.Empty(t, report.Results)
	assert.Zero(t, report.TotalCount)
}

func TestEngine_Screen_ZeroBarsExcludedSilently(t *testing.T) {
	cat := catalog.NewMemoryCatalog()
	store := pricestore.NewMemoryStore()

	cat.Put(testTicker("ZZZZ", contracts.IndexSP500)) // no bars at all
	cat.Put(testTicker("AAA", contracts.IndexSP500))
	store.ReplaceHistory("AAA", flatHistory("AAA", 30, 100, 1000))

	report, err := newTestEngine(cat, store).Screen(context.Background(), contracts.Criteria{MinVolume: 0})
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.Equal(t, "AAA", report.Results[0].Symbol)
}

func TestEngine_Screen_StaleHistoryExcluded(t *testing.T) {
	cat := catalog.NewMemoryCatalog()
	store := pricestore.NewMemoryStore()

	// All bars are three years old; a one-year lookback finds nothing.
	cat.Put(testTicker("OLD", contracts.IndexSP500))
	old := testToday.AddDate(-3, 0, 0)
	store.ReplaceHistory("OLD", []contracts.PriceBar{
		testBar("OLD", old, 30, 100, 1000),
		testBar("OLD", old.AddDate(0, 0, 1), 31, 100, 1000),
	})

	report, err := newTestEngine(cat, store).Screen(context.Background(), contracts.Criteria{LookbackYears: 1})
	require.NoError(t, err)
	assert.Empty(t, report.Results)
}

func TestEngine_Screen_MarketCapFloor(t *testing.T) {
	cat := catalog.NewMemoryCatalog()
	store := pricestore.NewMemoryStore()

	small := testTicker("SMALL", contracts.IndexSP500)
	small.MarketCap = 500_000_000
	cat.Put(small)
	store.ReplaceHistory("SMALL", flatHistory("SMALL", 30, 100, 1000))

	unknown := testTicker("UNKN", contracts.IndexSP500)
	unknown.MarketCap = 0
	cat.Put(unknown)
	store.ReplaceHistory("UNKN", flatHistory("UNKN", 30, 100, 1000))

	big := testTicker("BIG", contracts.IndexSP500)
	big.MarketCap = 5_000_000_000
	cat.Put(big)
	store.ReplaceHistory("BIG", flatHistory("BIG", 30, 100, 1000))

	t.Run("non-zero floor excludes small and unknown caps", func(t *testing.T) {
		report, err := newTestEngine(cat, store).Screen(context.Background(),
			contracts.Criteria{MinMarketCap: 1_000_000_000})
		require.NoError(t, err)

		require.Len(t, report.Results, 1)
		assert.Equal(t, "BIG", report.Results[0].Symbol)
	})

	t.Run("zero floor keeps everything", func(t *testing.T) {
		report, err := newTestEngine(cat, store).Screen(context.Background(), contracts.Criteria{})
		require.NoError(t, err)
		assert.Len(t, report.Results, 3)
	})
}

func TestEngine_Screen_SuspendedAlwaysExcluded(t *testing.T) {
	cat := catalog.NewMemoryCatalog()
	store := pricestore.NewMemoryStore()

	halted := testTicker("HALT", contracts.IndexSP500)
	halted.IsSuspended = true
	cat.Put(halted)
	store.ReplaceHistory("HALT", flatHistory("HALT", 30, 100, 1000))

	report, err := newTestEngine(cat, store).Screen(context.Background(), contracts.Criteria{})
	require.NoError(t, err)
	assert.Empty(t, report.Results)
}

func TestEngine_Screen_IndexFilter(t *testing.T) {
	cat := catalog.NewMemoryCatalog()
	store := pricestore.NewMemoryStore()

	cat.Put(testTicker("US1", contracts.IndexSP500))
	store.ReplaceHistory("US1", flatHistory("US1", 30, 100, 1000))

	cat.Put(testTicker("EU1", contracts.IndexEurostoxx600))
	store.ReplaceHistory("EU1", flatHistory("EU1", 30, 100, 1000))

	cat.Put(testTicker("NONE", "")) // null membership
	store.ReplaceHistory("NONE", flatHistory("NONE", 30, 100, 1000))

	t.Run("single index excludes other and null membership", func(t *testing.T) {
		report, err := newTestEngine(cat, store).Screen(context.Background(),
			contracts.Criteria{Indices: []string{contracts.IndexSP500}})
		require.NoError(t, err)

		require.Len(t, report.Results, 1)
		assert.Equal(t, "US1", report.Results[0].Symbol)
	})

	t.Run("both indices apply no index filter", func(t *testing.T) {
		report, err := newTestEngine(cat, store).Screen(context.Background(),
			contracts.Criteria{Indices: []string{contracts.IndexSP500, contracts.IndexEurostoxx600}})
		require.NoError(t, err)
		assert.Len(t, report.Results, 3)
	})
}

func TestEngine_Screen_CountryAndSectorAllowLists(t *testing.T) {
	cat := catalog.NewMemoryCatalog()
	store := pricestore.NewMemoryStore()

	fr := testTicker("FR1", contracts.IndexEurostoxx600)
	fr.Country = "France"
	fr.Sector = "Luxury Goods"
	cat.Put(fr)
	store.ReplaceHistory("FR1", flatHistory("FR1", 30, 100, 1000))

	de := testTicker("DE1", contracts.IndexEurostoxx600)
	de.Country = "Germany"
	cat.Put(de)
	store.ReplaceHistory("DE1", flatHistory("DE1", 30, 100, 1000))

	report, err := newTestEngine(cat, store).Screen(context.Background(),
		contracts.Criteria{Countries: []string{"France"}})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "FR1", report.Results[0].Symbol)

	report, err = newTestEngine(cat, store).Screen(context.Background(),
		contracts.Criteria{Sectors: []string{"Luxury Goods"}})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "FR1", report.Results[0].Symbol)
}

func TestEngine_Screen_TrailingVolumeGate(t *testing.T) {
	cat := catalog.NewMemoryCatalog()
	store := pricestore.NewMemoryStore()

	// Volumes 100, 200, 300 over the last three days, nothing older in
	// the 30-day window: average is exactly 200.
	cat.Put(testTicker("VOL", contracts.IndexSP500))
	store.ReplaceHistory("VOL", []contracts.PriceBar{
		testBar("VOL", testToday.AddDate(0, 0, -3), 30, 100, 100),
		testBar("VOL", testToday.AddDate(0, 0, -2), 30, 30, 200),
		testBar("VOL", testToday.AddDate(0, 0, -1), 30, 30, 300),
	})

	t.Run("excluded when floor above average", func(t *testing.T) {
		report, err := newTestEngine(cat, store).Screen(context.Background(),
			contracts.Criteria{MinVolume: 250})
		require.NoError(t, err)
		assert.Empty(t, report.Results)
	})

	t.Run("included when floor below average", func(t *testing.T) {
		report, err := newTestEngine(cat, store).Screen(context.Background(),
			contracts.Criteria{MinVolume: 150})
		require.NoError(t, err)
		require.Len(t, report.Results, 1)
		assert.Equal(t, int64(200), report.Results[0].AvgVolume30d)
	})
}

func TestEngine_Screen_NoRecentBarsMeansZeroVolume(t *testing.T) {
	cat := catalog.NewMemoryCatalog()
	store := pricestore.NewMemoryStore()

	// Bars inside a 5y lookback but older than 30 days: the trailing
	// average is 0, which passes a zero floor and fails any other.
	cat.Put(testTicker("THIN", contracts.IndexSP500))
	store.ReplaceHistory("THIN", []contracts.PriceBar{
		testBar("THIN", testToday.AddDate(0, -6, 0), 30, 100, 50_000),
	})

	report, err := newTestEngine(cat, store).Screen(context.Background(), contracts.Criteria{MinVolume: 0})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Zero(t, report.Results[0].AvgVolume30d)

	report, err = newTestEngine(cat, store).Screen(context.Background(), contracts.Criteria{MinVolume: 1})
	require.NoError(t, err)
	assert.Empty(t, report.Results)
}

func TestEngine_Screen_SortOrders(t *testing.T) {
	cat := catalog.NewMemoryCatalog()
	store := pricestore.NewMemoryStore()

	fixtures := []struct {
		symbol    string
		close     float64
		marketCap int64
	}{
		{"AAA", 40, 3_000},
		{"BBB", 10, 9_000},
		{"CCC", 25, 1_000},
	}
	for _, f := range fixtures {
		tk := testTicker(f.symbol, contracts.IndexSP500)
		tk.MarketCap = f.marketCap
		cat.Put(tk)
		store.ReplaceHistory(f.symbol, flatHistory(f.symbol, f.close, 100, 1000))
	}

	engine := newTestEngine(cat, store)

	tests := []struct {
		sortBy string
		want   []string
	}{
		{contracts.SortByPctOfHigh, []string{"BBB", "CCC", "AAA"}},
		{contracts.SortByMarketCap, []string{"BBB", "AAA", "CCC"}},
		{contracts.SortByCurrentPrice, []string{"AAA", "CCC", "BBB"}},
		{"not_a_key", []string{"AAA", "BBB", "CCC"}}, // input order, no error
	}

	for _, tt := range tests {
		t.Run(tt.sortBy, func(t *testing.T) {
			report, err := engine.Screen(context.Background(), contracts.Criteria{SortBy: tt.sortBy})
			require.NoError(t, err)

			var got []string
			for _, r := range report.Results {
				got = append(got, r.Symbol)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngine_Screen_PctAscendingAdjacency(t *testing.T) {
	cat := catalog.NewMemoryCatalog()
	store := pricestore.NewMemoryStore()

	closes := []float64{48.31, 7.02, 33.33, 12.00, 49.99, 25.50}
	for i, close := range closes {
		symbol := string(rune('A'+i)) + "XX"
		cat.Put(testTicker(symbol, contracts.IndexSP500))
		store.ReplaceHistory(symbol, flatHistory(symbol, close, 100, 1000))
	}

	report, err := newTestEngine(cat, store).Screen(context.Background(), contracts.Criteria{})
	require.NoError(t, err)
	require.Len(t, report.Results, len(closes))

	for i := 0; i+1 < len(report.Results); i++ {
		assert.True(t,
			report.Results[i].PctOfHighExact.LessThanOrEqual(report.Results[i+1].PctOfHighExact),
			"results[%d] > results[%d]", i, i+1)
	}
}

func TestEngine_Screen_Idempotent(t *testing.T) {
	cat := catalog.NewMemoryCatalog()
	store := pricestore.NewMemoryStore()

	for _, f := range []struct {
		symbol string
		close  float64
	}{{"AAA", 20}, {"BBB", 35}, {"CCC", 12}} {
		cat.Put(testTicker(f.symbol, contracts.IndexSP500))
		store.ReplaceHistory(f.symbol, flatHistory(f.symbol, f.close, 100, 1000))
	}

	engine := newTestEngine(cat, store)
	criteria := contracts.Criteria{ThresholdPct: 40, MinVolume: 500}

	first, err := engine.Screen(context.Background(), criteria)
	require.NoError(t, err)
	second, err := engine.Screen(context.Background(), criteria)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEngine_Screen_ZeroHighSkipped(t *testing.T) {
	cat := catalog.NewMemoryCatalog()
	store := pricestore.NewMemoryStore()

	// Ingestion can produce degenerate bars; a zero window high must
	// not crash the screen or divide by zero.
	cat.Put(testTicker("BAD", contracts.IndexSP500))
	store.ReplaceHistory("BAD", []contracts.PriceBar{
		testBar("BAD", testToday.AddDate(0, 0, -1), 10, 0, 1000),
	})

	report, err := newTestEngine(cat, store).Screen(context.Background(), contracts.Criteria{})
	require.NoError(t, err)
	assert.Empty(t, report.Results)
}

func TestEngine_Screen_ResultFields(t *testing.T) {
	cat := catalog.NewMemoryCatalog()
	store := pricestore.NewMemoryStore()

	tk := testTicker("LVMH", contracts.IndexEurostoxx600)
	tk.Country = "France"
	tk.Sector = "Luxury Goods"
	tk.Currency = "EUR"
	tk.Exchange = "PAR"
	tk.MarketCap = 300_000_000_000
	cat.Put(tk)

	highDate := testToday.AddDate(0, -8, 0)
	store.ReplaceHistory("LVMH", []contracts.PriceBar{
		testBar("LVMH", highDate, 800, 900.50, 400_000),
		testBar("LVMH", testToday.AddDate(0, 0, -1), 300.1234, 310, 500_000),
	})

	report, err := newTestEngine(cat, store).Screen(context.Background(), contracts.Criteria{})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	res := report.Results[0]
	assert.Equal(t, "LVMH", res.Symbol)
	assert.Equal(t, "LVMH Inc.", res.Name)
	assert.Equal(t, "France", res.Country)
	assert.Equal(t, "Luxury Goods", res.Sector)
	assert.Equal(t, "EUR", res.Currency)
	assert.Equal(t, "PAR", res.Exchange)
	assert.Equal(t, int64(300_000_000_000), res.MarketCap)
	assert.Equal(t, highDate, res.LookbackHighDate)
	assert.True(t, res.LookbackHigh.Equal(decimal.RequireFromString("900.5")))
	assert.True(t, res.CurrentPrice.Equal(decimal.RequireFromString("300.1234")))

	// Display value is rounded to two decimals; the exact value keeps
	// full precision. 300.1234 / 900.50 * 100 = 33.3285...
	assert.Equal(t, "33.33", res.PctOfHigh.StringFixed(2))
	assert.True(t, res.PctOfHighExact.GreaterThan(decimal.RequireFromString("33.32")))
	assert.True(t, res.PctOfHighExact.LessThan(decimal.RequireFromString("33.34")))
}
