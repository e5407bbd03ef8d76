package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmarceau/screener/internal/contracts"
)

// Repository is the Postgres-backed ticker catalog. It implements
// contracts.TickerCatalog plus the write surface used by ingestion.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new catalog repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const tickerColumns = `symbol, COALESCE(isin, ''), name, country, sector,
	market_cap, currency, exchange, index_membership, ipo_date, is_suspended`

// ListCandidates returns non-suspended tickers matching the filter.
// Tickers with unknown market cap (0) are excluded whenever a non-zero
// floor is set.
func (r *Repository) ListCandidates(ctx context.Context, filter contracts.TickerFilter) ([]*contracts.Ticker, error) {
	query := `
		SELECT ` + tickerColumns + `
		FROM tickers
		WHERE is_suspended = FALSE
		  AND ($1 = '' OR index_membership = $1)
		  AND (cardinality($2::text[]) = 0 OR country = ANY($2))
		  AND (cardinality($3::text[]) = 0 OR sector = ANY($3))
		  AND ($4::bigint = 0 OR market_cap >= $4)
		ORDER BY symbol
	`

	countries := filter.Countries
	if countries == nil {
		countries = []string{}
	}
	sectors := filter.Sectors
	if sectors == nil {
		sectors = []string{}
	}

	rows, err := r.pool.Query(ctx, query, filter.Index, countries, sectors, filter.MinMarketCap)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var tickers []*contracts.Ticker
	for rows.Next() {
		var t contracts.Ticker
		if err := scanTicker(rows, &t); err != nil {
			return nil, err
		}
		tickers = append(tickers, &t)
	}
	return tickers, rows.Err()
}

// GetBySymbol returns a single ticker or ErrTickerNotFound.
func (r *Repository) GetBySymbol(ctx context.Context, symbol string) (*contracts.Ticker, error) {
	query := `
		SELECT ` + tickerColumns + `
		FROM tickers
		WHERE symbol = $1
	`

	var t contracts.Ticker
	err := scanTicker(r.pool.QueryRow(ctx, query, symbol), &t)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrTickerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ticker %s: %w", symbol, err)
	}
	return &t, nil
}

// Upsert creates or updates a ticker. Ingestion runs call this once
// per symbol; the symbol itself never changes.
func (r *Repository) Upsert(ctx context.Context, t *contracts.Ticker) error {
	query := `
		INSERT INTO tickers (
			symbol, isin, name, country, sector, market_cap,
			currency, exchange, index_membership, ipo_date, is_suspended
		) VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (symbol) DO UPDATE SET
			isin = EXCLUDED.isin,
			name = EXCLUDED.name,
			country = EXCLUDED.country,
			sector = EXCLUDED.sector,
			market_cap = EXCLUDED.market_cap,
			currency = EXCLUDED.currency,
			exchange = EXCLUDED.exchange,
			index_membership = EXCLUDED.index_membership,
			ipo_date = EXCLUDED.ipo_date,
			is_suspended = EXCLUDED.is_suspended
	`

	_, err := r.pool.Exec(ctx, query,
		t.Symbol, t.ISIN, t.Name, t.Country, t.Sector, t.MarketCap,
		t.Currency, t.Exchange, t.IndexMembership, t.IPODate, t.IsSuspended,
	)
	if err != nil {
		return fmt.Errorf("upsert ticker %s: %w", t.Symbol, err)
	}
	return nil
}

// Delete purges a ticker; its price history goes with it (ON DELETE
// CASCADE).
func (r *Repository) Delete(ctx context.Context, symbol string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tickers WHERE symbol = $1`, symbol)
	if err != nil {
		return fmt.Errorf("delete ticker %s: %w", symbol, err)
	}
	if tag.RowsAffected() == 0 {
		return contracts.ErrTickerNotFound
	}
	return nil
}

// DistinctCountries returns all countries present in the catalog.
func (r *Repository) DistinctCountries(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT country FROM tickers WHERE country <> '' ORDER BY country`)
}

// DistinctSectors returns all sectors present in the catalog.
func (r *Repository) DistinctSectors(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT sector FROM tickers WHERE sector <> '' ORDER BY sector`)
}

// ListSymbolsByIndex returns all symbols tagged with an index.
func (r *Repository) ListSymbolsByIndex(ctx context.Context, index string) ([]string, error) {
	return r.distinct(ctx,
		`SELECT symbol FROM tickers WHERE index_membership = $1 ORDER BY symbol`, index)
}

func (r *Repository) distinct(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func scanTicker(row pgx.Row, t *contracts.Ticker) error {
	return row.Scan(
		&t.Symbol, &t.ISIN, &t.Name, &t.Country, &t.Sector,
		&t.MarketCap, &t.Currency, &t.Exchange, &t.IndexMembership,
		&t.IPODate, &t.IsSuspended,
	)
}
