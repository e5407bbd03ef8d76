package savedsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmarceau/screener/internal/contracts"
)

// ErrNotFound is returned when a saved search does not exist or belongs
// to another user.
var ErrNotFound = errors.New("saved search not found")

// SavedSearch is a named screening criteria set owned by a user.
type SavedSearch struct {
	ID        int64              `json:"id"`
	UserID    int64              `json:"user_id"`
	Name      string             `json:"name"`
	Criteria  contracts.Criteria `json:"parameters"`
	CreatedAt time.Time          `json:"created_at"`
}

// Repository persists saved searches in Postgres. Criteria live in a
// JSONB column so new criteria fields need no migration.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a saved search repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create stores a named criteria set for a user.
func (r *Repository) Create(ctx context.Context, userID int64, name string, criteria contracts.Criteria) (*SavedSearch, error) {
	payload, err := json.Marshal(criteria)
	if err != nil {
		return nil, fmt.Errorf("marshal criteria: %w", err)
	}

	search := &SavedSearch{UserID: userID, Name: name, Criteria: criteria}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO saved_searches (user_id, name, criteria)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		userID, name, payload,
	).Scan(&search.ID, &search.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert saved search: %w", err)
	}
	return search, nil
}

// ListByUser returns all saved searches for a user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]*SavedSearch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, name, criteria, created_at
		FROM saved_searches
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query saved searches: %w", err)
	}
	defer rows.Close()

	var searches []*SavedSearch
	for rows.Next() {
		var search SavedSearch
		var payload []byte
		if err := rows.Scan(&search.ID, &search.UserID, &search.Name, &payload, &search.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan saved search: %w", err)
		}
		if err := json.Unmarshal(payload, &search.Criteria); err != nil {
			return nil, fmt.Errorf("unmarshal criteria for search %d: %w", search.ID, err)
		}
		searches = append(searches, &search)
	}
	return searches, rows.Err()
}

// Delete removes a saved search owned by the user. Deleting someone
// else's search reports ErrNotFound rather than leaking its existence.
func (r *Repository) Delete(ctx context.Context, id, userID int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM saved_searches WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete saved search: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
