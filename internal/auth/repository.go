package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when the username is already registered.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("email already taken")
)

// User is a registered account. PasswordHash never leaves this package.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository persists users in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a user repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new user. Duplicate usernames and emails map to
// their sentinel errors via the unique constraints.
func (r *Repository) Create(ctx context.Context, username, email, passwordHash string) (*User, error) {
	user := &User{Username: username, Email: email, PasswordHash: passwordHash}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		username, email, passwordHash,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if strings.Contains(pgErr.ConstraintName, "email") {
				return nil, ErrEmailTaken
			}
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// GetByUsername returns a user by username or ErrUserNotFound.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.get(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE username = $1`, username)
}

// GetByID returns a user by ID or ErrUserNotFound.
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.get(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE id = $1`, id)
}

func (r *Repository) get(ctx context.Context, query string, arg interface{}) (*User, error) {
	var user User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}
