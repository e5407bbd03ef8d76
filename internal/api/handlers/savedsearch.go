package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/jmarceau/screener/internal/auth"
	"github.com/jmarceau/screener/internal/contracts"
	"github.com/jmarceau/screener/internal/savedsearch"
	"github.com/jmarceau/screener/pkg/logger"
)

// SavedSearchStore is the persistence surface for saved searches.
type SavedSearchStore interface {
	Create(ctx context.Context, userID int64, name string, criteria contracts.Criteria) (*savedsearch.SavedSearch, error)
	ListByUser(ctx context.Context, userID int64) ([]*savedsearch.SavedSearch, error)
	Delete(ctx context.Context, id, userID int64) error
}

// SavedSearchHandler serves the saved search endpoints. All routes
// require an authenticated session.
type SavedSearchHandler struct {
	store   SavedSearchStore
	service AuthService
	logger  *logger.Logger
}

// NewSavedSearchHandler creates a saved search handler.
func NewSavedSearchHandler(store SavedSearchStore, service AuthService, log *logger.Logger) *SavedSearchHandler {
	return &SavedSearchHandler{
		store:   store,
		service: service,
		logger:  log,
	}
}

func (h *SavedSearchHandler) requireUser(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user, err := h.service.CurrentUser(r.Context(), SessionToken(r))
	if errors.Is(err, auth.ErrNotAuthenticated) {
		respondError(w, http.StatusUnauthorized, "Not authenticated")
		return nil, false
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to resolve session")
		respondError(w, http.StatusInternalServerError, "Failed to resolve session")
		return nil, false
	}
	return user, true
}

// List returns the user's saved searches, newest first.
// GET /api/saved-searches
func (h *SavedSearchHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	searches, err := h.store.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list saved searches")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve saved searches")
		return
	}
	if searches == nil {
		searches = []*savedsearch.SavedSearch{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"saved_searches": searches,
	})
}

type createSearchRequest struct {
	Name       string             `json:"name"`
	Parameters contracts.Criteria `json:"parameters"`
}

// Create stores a new saved search for the user.
// POST /api/saved-searches
func (h *SavedSearchHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req createSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Name is required")
		return
	}

	search, err := h.store.Create(r.Context(), user.ID, req.Name, req.Parameters)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create saved search")
		respondError(w, http.StatusInternalServerError, "Failed to save search")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"saved_search": search,
	})
}

// Delete removes one of the user's saved searches.
// DELETE /api/saved-searches/{id}
func (h *SavedSearchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid search ID")
		return
	}

	err = h.store.Delete(r.Context(), id, user.ID)
	if errors.Is(err, savedsearch.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Saved search not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to delete saved search")
		respondError(w, http.StatusInternalServerError, "Failed to delete search")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Saved search deleted"})
}
