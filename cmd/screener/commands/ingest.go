package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmarceau/screener/internal/catalog"
	"github.com/jmarceau/screener/internal/external/constituents"
	"github.com/jmarceau/screener/internal/ingest"
	"github.com/jmarceau/screener/internal/pricestore"
	"github.com/jmarceau/screener/pkg/config"
	"github.com/jmarceau/screener/pkg/database"
	"github.com/jmarceau/screener/pkg/logger"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Collect index constituents and price history",
	Long: `Run a one-off ingestion pass.

Types:
  constituents - sync index membership into the catalog
  prices       - collect price history for catalog symbols
  all          - both, constituents first

Example:
  go run ./cmd/screener ingest --type all
  go run ./cmd/screener ingest --type prices --symbols AAPL,MSFT
  go run ./cmd/screener ingest --type prices --years 10`,
	RunE: runIngest,
}

var (
	ingestType    string
	ingestSymbols []string
	ingestWorkers int
	ingestYears   int
)

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestType, "type", "all", "what to collect (all|constituents|prices)")
	ingestCmd.Flags().StringSliceVar(&ingestSymbols, "symbols", nil, "restrict price collection to these symbols")
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 0, "concurrent fetch workers (default from config)")
	ingestCmd.Flags().IntVar(&ingestYears, "years", 0, "years of history to fetch (default 5)")
}

func runIngest(cmd *cobra.Command, args []string) error {
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

	provider, err := ingest.BuildProvider(cfg, log)
	if err != nil {
		return fmt.Errorf("build ingest provider: %w", err)
	}
	collector := ingest.NewCollector(
		provider,
		pricestore.NewRepository(db.Pool),
		catalog.NewRepository(db.Pool),
		constituents.New(log),
		log,
	)

	switch ingestType {
	case "all", "constituents", "prices":
	default:
		return fmt.Errorf("invalid --type %q (valid: all, constituents, prices)", ingestType)
	}

	workers := ingestWorkers
	if workers <= 0 {
		workers = cfg.Ingest.Workers
	}
	collectCfg := ingest.Config{Workers: workers, LookbackYears: ingestYears}

	// Ctrl+C aborts the run; in-flight symbols report context errors.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if ingestType == "constituents" || ingestType == "all" {
		fmt.Println("Syncing index constituents...")
		if err := collector.SyncConstituents(ctx); err != nil {
			return fmt.Errorf("sync constituents: %w", err)
		}
	}

	if ingestType == "prices" || ingestType == "all" {
		fmt.Println("Collecting price history...")
		var results []ingest.FetchResult
		if len(ingestSymbols) > 0 {
			results = collector.CollectSymbols(ctx, ingestSymbols, collectCfg)
		} else {
			results, err = collector.CollectAll(ctx, collectCfg)
			if err != nil {
				return fmt.Errorf("collect prices: %w", err)
			}
		}
		printFetchResults(results)
	}

	return nil
}

func printFetchResults(results []ingest.FetchResult) {
	failed := 0
	bars := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
			fmt.Printf("  FAIL %-12s %v\n", r.Symbol, r.Error)
			continue
		}
		bars += r.BarCount
	}
	fmt.Printf("Collected %d bars across %d symbols (%d failed)\n", bars, len(results)-failed, failed)
}
