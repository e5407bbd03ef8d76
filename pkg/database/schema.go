package database

import (
	"context"
	"fmt"
)

// Schema DDL, applied by the migrate command. Statements are idempotent
// so the command can be re-run safely.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tickers (
		symbol           TEXT PRIMARY KEY,
		isin             TEXT UNIQUE,
		name             TEXT NOT NULL,
		country          TEXT NOT NULL DEFAULT '',
		sector           TEXT NOT NULL DEFAULT '',
		market_cap       BIGINT NOT NULL DEFAULT 0,
		currency         TEXT NOT NULL DEFAULT 'USD',
		exchange         TEXT NOT NULL DEFAULT '',
		index_membership TEXT NOT NULL DEFAULT '',
		ipo_date         DATE,
		is_suspended     BOOLEAN NOT NULL DEFAULT FALSE
	)`,

	`CREATE TABLE IF NOT EXISTS prices (
		symbol         TEXT NOT NULL REFERENCES tickers(symbol) ON DELETE CASCADE,
		date           DATE NOT NULL,
		adjusted_close NUMERIC(18,4) NOT NULL,
		open           NUMERIC(18,4),
		high           NUMERIC(18,4),
		low            NUMERIC(18,4),
		volume         BIGINT NOT NULL DEFAULT 0,
		ingested_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (symbol, date)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_prices_symbol_date_desc
		ON prices (symbol, date DESC)`,

	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS saved_searches (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name       TEXT NOT NULL,
		criteria   JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

var dropStatements = []string{
	`DROP TABLE IF EXISTS saved_searches`,
	`DROP TABLE IF EXISTS users`,
	`DROP TABLE IF EXISTS prices`,
	`DROP TABLE IF EXISTS tickers`,
}

// Migrate creates all tables and indexes.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}

// Reset drops all tables and recreates them. Destroys all data.
func (db *DB) Reset(ctx context.Context) error {
	for _, stmt := range dropStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return db.Migrate(ctx)
}
