package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmarceau/screener/internal/catalog"
	"github.com/jmarceau/screener/internal/external/constituents"
	"github.com/jmarceau/screener/internal/ingest"
	"github.com/jmarceau/screener/internal/pricestore"
	"github.com/jmarceau/screener/internal/scheduler"
	"github.com/jmarceau/screener/internal/scheduler/jobs"
	"github.com/jmarceau/screener/pkg/config"
	"github.com/jmarceau/screener/pkg/database"
	"github.com/jmarceau/screener/pkg/logger"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the ingestion scheduler",
	Long: `Run the background scheduler.

Jobs:
  price_ingestion  - daily price history refresh (22:30 UTC, weekdays)
  constituent_sync - weekly index membership sync (Sunday 06:00 UTC)

Example:
  go run ./cmd/screener scheduler`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
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

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewPriceIngestionJob(collector, cfg, log)); err != nil {
		return fmt.Errorf("add price ingestion job: %w", err)
	}
	if err := sched.AddJob(jobs.NewConstituentSyncJob(collector, log)); err != nil {
		return fmt.Errorf("add constituent sync job: %w", err)
	}

	sched.Start()
	fmt.Println("Scheduler running (Ctrl+C to stop)")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}
