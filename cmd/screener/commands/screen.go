package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmarceau/screener/internal/catalog"
	"github.com/jmarceau/screener/internal/contracts"
	"github.com/jmarceau/screener/internal/pricestore"
	"github.com/jmarceau/screener/internal/screening"
	"github.com/jmarceau/screener/pkg/config"
	"github.com/jmarceau/screener/pkg/database"
	"github.com/jmarceau/screener/pkg/logger"
)

// screenCmd represents the screen command
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Run a screen and print the results",
	Long: `Run a screening pass against the local database and print the
ranked results.

Example:
  go run ./cmd/screener screen
  go run ./cmd/screener screen --threshold 40 --lookback 3
  go run ./cmd/screener screen --indices sp500 --countries "United States"`,
	RunE: runScreen,
}

var (
	screenIndices   []string
	screenLookback  int
	screenThreshold float64
	screenCountries []string
	screenSectors   []string
	screenMinCap    int64
	screenMinVolume int64
	screenSortBy    string
	screenLimit     int
)

func init() {
	rootCmd.AddCommand(screenCmd)

	screenCmd.Flags().StringSliceVar(&screenIndices, "indices", nil, "index universes (sp500, eurostoxx600)")
	screenCmd.Flags().IntVar(&screenLookback, "lookback", 0, "lookback window in years (default 5)")
	screenCmd.Flags().Float64Var(&screenThreshold, "threshold", 0, "max percent of lookback high (default 50)")
	screenCmd.Flags().StringSliceVar(&screenCountries, "countries", nil, "restrict to these countries")
	screenCmd.Flags().StringSliceVar(&screenSectors, "sectors", nil, "restrict to these sectors")
	screenCmd.Flags().Int64Var(&screenMinCap, "min-market-cap", 0, "minimum market cap in USD")
	screenCmd.Flags().Int64Var(&screenMinVolume, "min-volume", 0, "minimum 30-day average volume")
	screenCmd.Flags().StringVar(&screenSortBy, "sort", "", "sort key (pct_of_high|market_cap|current_price)")
	screenCmd.Flags().IntVar(&screenLimit, "limit", 50, "max rows to print (0 = all)")
}

func runScreen(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	engine := screening.NewEngine(
		catalog.NewRepository(db.Pool),
		pricestore.NewRepository(db.Pool),
		log,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := engine.Screen(ctx, contracts.Criteria{
		Indices:       screenIndices,
		LookbackYears: screenLookback,
		ThresholdPct:  screenThreshold,
		Countries:     screenCountries,
		Sectors:       screenSectors,
		MinMarketCap:  screenMinCap,
		MinVolume:     screenMinVolume,
		SortBy:        screenSortBy,
	})
	if err != nil {
		return fmt.Errorf("screen: %w", err)
	}

	printScreenReport(report, screenLimit)
	return nil
}

func printScreenReport(report *contracts.ScreenReport, limit int) {
	c := report.Criteria
	fmt.Printf("Criteria: indices=%v lookback=%dy threshold=%.1f%% sort=%s\n",
		c.Indices, c.LookbackYears, c.ThresholdPct, c.SortBy)
	fmt.Printf("Matches: %d\n\n", report.TotalCount)

	rows := report.Results
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tNAME\t% OF HIGH\tPRICE\tHIGH\tHIGH DATE\tCOUNTRY\tSECTOR")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Symbol,
			truncate(r.Name, 28),
			r.PctOfHigh.StringFixed(2),
			r.CurrentPrice.StringFixed(2),
			r.LookbackHigh.StringFixed(2),
			r.LookbackHighDate.Format("2006-01-02"),
			r.Country,
			truncate(r.Sector, 24),
		)
	}
	w.Flush()

	if limit > 0 && report.TotalCount > limit {
		fmt.Printf("\n(%d more rows, use --limit 0 to print all)\n", report.TotalCount-limit)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
