package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned for unknown or expired session tokens.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore maps opaque session tokens to user IDs with a TTL.
// Sessions live in Redis; when Redis is disabled an in-process map is
// used so single-node development still works.
type SessionStore struct {
	client *Client
	prefix string
	ttl    time.Duration

	mu    sync.Mutex
	local map[string]localSession
}

type localSession struct {
	userID    int64
	expiresAt time.Time
}

// NewSessionStore creates a session store with the given TTL.
func NewSessionStore(client *Client, prefix string, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		local:  make(map[string]localSession),
	}
}

// Create issues a new session token for a user.
func (s *SessionStore) Create(ctx context.Context, userID int64) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if !s.client.Enabled() {
		s.mu.Lock()
		s.local[token] = localSession{userID: userID, expiresAt: time.Now().Add(s.ttl)}
		s.mu.Unlock()
		return token, nil
	}

	key := s.key(token)
	if err := s.client.Redis().Set(ctx, key, strconv.FormatInt(userID, 10), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Resolve returns the user ID for a token, or ErrSessionNotFound.
func (s *SessionStore) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrSessionNotFound
	}

	if !s.client.Enabled() {
		s.mu.Lock()
		defer s.mu.Unlock()
		sess, ok := s.local[token]
		if !ok || time.Now().After(sess.expiresAt) {
			delete(s.local, token)
			return 0, ErrSessionNotFound
		}
		return sess.userID, nil
	}

	val, err := s.client.Redis().Get(ctx, s.key(token)).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("resolve session: %w", err)
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt session value: %w", err)
	}
	return userID, nil
}

// Destroy invalidates a session token.
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	if !s.client.Enabled() {
		s.mu.Lock()
		delete(s.local, token)
		s.mu.Unlock()
		return nil
	}
	return s.client.Redis().Del(ctx, s.key(token)).Err()
}

func (s *SessionStore) key(token string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, token)
}
