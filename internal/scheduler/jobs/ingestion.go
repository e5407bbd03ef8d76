package jobs

import (
	"context"
	"fmt"

	"github.com/jmarceau/screener/internal/ingest"
	"github.com/jmarceau/screener/pkg/config"
	"github.com/jmarceau/screener/pkg/logger"
)

// PriceIngestionJob refreshes the full price history for every catalog
// symbol after the US close on trading days.
type PriceIngestionJob struct {
	collector *ingest.Collector
	config    *config.Config
	logger    *logger.Logger
}

// NewPriceIngestionJob creates the daily price ingestion job.
func NewPriceIngestionJob(collector *ingest.Collector, cfg *config.Config, log *logger.Logger) *PriceIngestionJob {
	return &PriceIngestionJob{
		collector: collector,
		config:    cfg,
		logger:    log,
	}
}

func (j *PriceIngestionJob) Name() string {
	return "price_ingestion"
}

// Schedule returns the cron schedule: 22:30 UTC on weekdays, after the
// US session has closed.
func (j *PriceIngestionJob) Schedule() string {
	return "0 30 22 * * 1-5"
}

// Run executes the price collection.
func (j *PriceIngestionJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled price ingestion")

	cfg := ingest.Config{Workers: j.config.Ingest.Workers}
	results, err := j.collector.CollectAll(ctx, cfg)
	if err != nil {
		return fmt.Errorf("collect prices: %w", err)
	}

	failed := 0
	for _, result := range results {
		if result.Error != nil {
			failed++
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"symbols": len(results),
		"failed":  failed,
	}).Info("Scheduled price ingestion completed")
	return nil
}

// ConstituentSyncJob refreshes index membership weekly. Constituent
// changes are rare, so a Sunday sync keeps the catalog current before
// the Monday session.
type ConstituentSyncJob struct {
	collector *ingest.Collector
	logger    *logger.Logger
}

// NewConstituentSyncJob creates the weekly constituent sync job.
func NewConstituentSyncJob(collector *ingest.Collector, log *logger.Logger) *ConstituentSyncJob {
	return &ConstituentSyncJob{
		collector: collector,
		logger:    log,
	}
}

func (j *ConstituentSyncJob) Name() string {
	return "constituent_sync"
}

// Schedule returns the cron schedule: Sunday 06:00 UTC.
func (j *ConstituentSyncJob) Schedule() string {
	return "0 0 6 * * 0"
}

// Run executes the constituent sync.
func (j *ConstituentSyncJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled constituent sync")

	if err := j.collector.SyncConstituents(ctx); err != nil {
		return fmt.Errorf("sync constituents: %w", err)
	}

	j.logger.Info("Scheduled constituent sync completed")
	return nil
}
