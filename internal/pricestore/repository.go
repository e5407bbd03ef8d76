package pricestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmarceau/screener/internal/contracts"
)

// Repository is the Postgres-backed price store. It implements
// contracts.PriceStore plus the write surface used by ingestion.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new price repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const barColumns = `symbol, date, adjusted_close,
	COALESCE(open, 0), COALESCE(high, 0), COALESCE(low, 0),
	volume, ingested_at`

// LatestBar returns the most recent bar for a symbol.
func (r *Repository) LatestBar(ctx context.Context, symbol string) (*contracts.PriceBar, error) {
	query := `
		SELECT ` + barColumns + `
		FROM prices
		WHERE symbol = $1
		ORDER BY date DESC
		LIMIT 1
	`

	bar, err := r.queryBar(ctx, query, symbol)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNoPriceHistory
	}
	return bar, err
}

// MaxHighBarSince returns the bar with the maximum High dated on or
// after from. Ties on High resolve to the earliest date.
func (r *Repository) MaxHighBarSince(ctx context.Context, symbol string, from time.Time) (*contracts.PriceBar, error) {
	query := `
		SELECT ` + barColumns + `
		FROM prices
		WHERE symbol = $1 AND date >= $2
		ORDER BY high DESC, date ASC
		LIMIT 1
	`

	bar, err := r.queryBar(ctx, query, symbol, from)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrEmptyLookbackWindow
	}
	return bar, err
}

// AverageVolumeSince returns the mean daily volume over bars dated on
// or after from; 0 when no bars fall in the window.
func (r *Repository) AverageVolumeSince(ctx context.Context, symbol string, from time.Time) (float64, error) {
	query := `
		SELECT COALESCE(AVG(volume), 0)
		FROM prices
		WHERE symbol = $1 AND date >= $2
	`

	var avg float64
	if err := r.pool.QueryRow(ctx, query, symbol, from).Scan(&avg); err != nil {
		return 0, fmt.Errorf("average volume for %s: %w", symbol, err)
	}
	return avg, nil
}

// RecentBars returns up to limit bars for a symbol, most recent first.
func (r *Repository) RecentBars(ctx context.Context, symbol string, limit int) ([]*contracts.PriceBar, error) {
	query := `
		SELECT ` + barColumns + `
		FROM prices
		WHERE symbol = $1
		ORDER BY date DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent bars for %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []*contracts.PriceBar
	for rows.Next() {
		var b contracts.PriceBar
		if err := scanBar(rows, &b); err != nil {
			return nil, err
		}
		bars = append(bars, &b)
	}
	return bars, rows.Err()
}

// ReplaceHistory atomically replaces the full price history of a
// symbol. Delete and insert run inside one transaction so a concurrent
// screen never observes a partially replaced series.
func (r *Repository) ReplaceHistory(ctx context.Context, symbol string, bars []*contracts.PriceBar) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace history: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM prices WHERE symbol = $1`, symbol); err != nil {
		return fmt.Errorf("delete prior history for %s: %w", symbol, err)
	}

	if len(bars) > 0 {
		now := time.Now()
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"prices"},
			[]string{"symbol", "date", "adjusted_close", "open", "high", "low", "volume", "ingested_at"},
			pgx.CopyFromSlice(len(bars), func(i int) ([]interface{}, error) {
				b := bars[i]
				return []interface{}{
					symbol, b.Date, b.AdjustedClose, b.Open, b.High, b.Low, b.Volume, now,
				}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("insert history for %s: %w", symbol, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace history for %s: %w", symbol, err)
	}
	return nil
}

// DeleteHistory removes all bars for a symbol.
func (r *Repository) DeleteHistory(ctx context.Context, symbol string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM prices WHERE symbol = $1`, symbol)
	if err != nil {
		return fmt.Errorf("delete history for %s: %w", symbol, err)
	}
	return nil
}

func (r *Repository) queryBar(ctx context.Context, query string, args ...interface{}) (*contracts.PriceBar, error) {
	var b contracts.PriceBar
	row := r.pool.QueryRow(ctx, query, args...)
	if err := scanBar(row, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBar(row pgx.Row, b *contracts.PriceBar) error {
	return row.Scan(
		&b.Symbol, &b.Date, &b.AdjustedClose, &b.Open, &b.High, &b.Low,
		&b.Volume, &b.IngestedAt,
	)
}
