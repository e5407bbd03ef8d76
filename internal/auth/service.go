package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/jmarceau/screener/pkg/logger"
	"github.com/jmarceau/screener/pkg/redis"
)

var (
	// ErrInvalidCredentials is returned on a bad username or password.
	// Deliberately the same error for both so login attempts cannot
	// probe which usernames exist.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrNotAuthenticated is returned for missing or expired sessions.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvalidInput is returned when required registration fields are
	// missing or malformed.
	ErrInvalidInput = errors.New("username, email and password are required")
)

// UserStore is the persistence surface the service needs.
type UserStore interface {
	Create(ctx context.Context, username, email, passwordHash string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
}

// Service implements registration, login and session resolution.
type Service struct {
	users    UserStore
	sessions *redis.SessionStore
	logger   *logger.Logger
}

// NewService creates an auth service.
func NewService(users UserStore, sessions *redis.SessionStore, log *logger.Logger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		logger:   log.WithField("module", "auth"),
	}
}

// Register creates an account and logs the new user straight in,
// returning a session token.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, string, error) {
	if username == "" || email == "" || password == "" {
		return nil, "", ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, username, email, string(hash))
	if err != nil {
		return nil, "", err
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}

	s.logger.WithField("username", username).Info("User registered")
	return user, token, nil
}

// Login verifies credentials and issues a session token.
func (s *Service) Login(ctx context.Context, username, password string) (*User, string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}

	s.logger.WithField("username", username).Info("User logged in")
	return user, token, nil
}

// Logout invalidates a session token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

// CurrentUser resolves a session token to its user.
func (s *Service) CurrentUser(ctx context.Context, token string) (*User, error) {
	userID, err := s.sessions.Resolve(ctx, token)
	if errors.Is(err, redis.ErrSessionNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		// Account deleted after the session was issued.
		return nil, ErrNotAuthenticated
	}
	return user, err
}
