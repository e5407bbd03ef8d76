package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jmarceau/screener/internal/contracts"
	"github.com/jmarceau/screener/pkg/logger"
	"github.com/jmarceau/screener/pkg/redis"
)

// Screener runs one screening pass.
type Screener interface {
	Screen(ctx context.Context, criteria contracts.Criteria) (*contracts.ScreenReport, error)
}

// ScreenHandler serves the screening endpoint.
type ScreenHandler struct {
	engine Screener
	cache  *redis.Cache
	logger *logger.Logger
}

// NewScreenHandler creates a screen handler. cache may be nil.
func NewScreenHandler(engine Screener, cache *redis.Cache, log *logger.Logger) *ScreenHandler {
	return &ScreenHandler{
		engine: engine,
		cache:  cache,
		logger: log,
	}
}

// Screen runs a screen with the posted criteria.
// POST /api/screen
func (h *ScreenHandler) Screen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var criteria contracts.Criteria
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	// Cache on the normalized criteria so equivalent requests share an
	// entry.
	cacheKey := redis.ScreenReportKey(criteria.Normalize())
	if h.cache != nil {
		var cached contracts.ScreenReport
		if hit, err := h.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			respondJSON(w, http.StatusOK, &cached)
			return
		}
	}

	report, err := h.engine.Screen(ctx, criteria)
	if err != nil {
		h.logger.WithError(err).Error("Screen failed")
		respondError(w, http.StatusInternalServerError, "Screening failed")
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, cacheKey, report, redis.TTLShort); err != nil {
			h.logger.WithError(err).Warn("Failed to cache screen report")
		}
	}

	respondJSON(w, http.StatusOK, report)
}
