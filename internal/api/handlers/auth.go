package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jmarceau/screener/internal/auth"
	"github.com/jmarceau/screener/pkg/logger"
)

const sessionCookie = "session_token"

// AuthService is the account surface the HTTP layer needs.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*auth.User, string, error)
	Login(ctx context.Context, username, password string) (*auth.User, string, error)
	Logout(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (*auth.User, error)
}

// AuthHandler serves registration, login and session endpoints.
type AuthHandler struct {
	service    AuthService
	sessionTTL time.Duration
	secure     bool
	logger     *logger.Logger
}

// NewAuthHandler creates an auth handler. secure controls the cookie
// Secure flag and should be true outside development.
func NewAuthHandler(service AuthService, sessionTTL time.Duration, secure bool, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		service:    service,
		sessionTTL: sessionTTL,
		secure:     secure,
		logger:     log,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account and starts a session.
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, token, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrUsernameTaken), errors.Is(err, auth.ErrEmailTaken):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.WithError(err).Error("Registration failed")
		respondError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	h.setSessionCookie(w, token, h.sessionTTL)
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

// Login verifies credentials and starts a session.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Login failed")
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	h.setSessionCookie(w, token, h.sessionTTL)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

// Logout destroys the current session.
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := SessionToken(r); token != "" {
		if err := h.service.Logout(r.Context(), token); err != nil {
			h.logger.WithError(err).Warn("Failed to destroy session")
		}
	}

	h.setSessionCookie(w, "", -time.Hour)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me returns the authenticated user.
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.CurrentUser(r.Context(), SessionToken(r))
	if errors.Is(err, auth.ErrNotAuthenticated) {
		respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to resolve session")
		respondError(w, http.StatusInternalServerError, "Failed to resolve session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionToken extracts the session token from the cookie or an
// Authorization bearer header.
func SessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
