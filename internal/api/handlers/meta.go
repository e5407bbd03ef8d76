package handlers

import (
	"context"
	"net/http"

	"github.com/jmarceau/screener/internal/contracts"
	"github.com/jmarceau/screener/pkg/logger"
	"github.com/jmarceau/screener/pkg/redis"
)

// DimensionReader lists the filter dimensions present in the catalog.
type DimensionReader interface {
	DistinctCountries(ctx context.Context) ([]string, error)
	DistinctSectors(ctx context.Context) ([]string, error)
}

// MetaHandler serves the filter dimension endpoints the UI populates
// its dropdowns from.
type MetaHandler struct {
	dims   DimensionReader
	cache  *redis.Cache
	logger *logger.Logger
}

// NewMetaHandler creates a meta handler. cache may be nil.
func NewMetaHandler(dims DimensionReader, cache *redis.Cache, log *logger.Logger) *MetaHandler {
	return &MetaHandler{
		dims:   dims,
		cache:  cache,
		logger: log,
	}
}

// Indices returns the supported index universes.
// GET /api/indices
func (h *MetaHandler) Indices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{
		"indices": contracts.KnownIndices(),
	})
}

// Countries returns all countries present in the catalog.
// GET /api/countries
func (h *MetaHandler) Countries(w http.ResponseWriter, r *http.Request) {
	h.dimension(w, r, "countries", h.dims.DistinctCountries)
}

// Sectors returns all sectors present in the catalog.
// GET /api/sectors
func (h *MetaHandler) Sectors(w http.ResponseWriter, r *http.Request) {
	h.dimension(w, r, "sectors", h.dims.DistinctSectors)
}

func (h *MetaHandler) dimension(w http.ResponseWriter, r *http.Request, name string, load func(context.Context) ([]string, error)) {
	ctx := r.Context()

	if h.cache != nil {
		var cached []string
		if hit, err := h.cache.Get(ctx, name, &cached); err == nil && hit {
			respondJSON(w, http.StatusOK, map[string][]string{name: cached})
			return
		}
	}

	values, err := load(ctx)
	if err != nil {
		h.logger.WithError(err).WithField("dimension", name).Error("Failed to load filter dimension")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve "+name)
		return
	}
	if values == nil {
		values = []string{}
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, name, values, redis.TTLLong); err != nil {
			h.logger.WithError(err).Warn("Failed to cache filter dimension")
		}
	}

	respondJSON(w, http.StatusOK, map[string][]string{name: values})
}
