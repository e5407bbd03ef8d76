package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jmarceau/screener/internal/ingest"
	"github.com/jmarceau/screener/pkg/logger"
)

// Ingester triggers data collection runs.
type Ingester interface {
	SyncConstituents(ctx context.Context) error
	CollectAll(ctx context.Context, cfg ingest.Config) ([]ingest.FetchResult, error)
	CollectSymbols(ctx context.Context, symbols []string, cfg ingest.Config) []ingest.FetchResult
}

// IngestHandler serves the manual ingestion trigger.
type IngestHandler struct {
	collector Ingester
	workers   int
	logger    *logger.Logger
}

// NewIngestHandler creates an ingest handler.
func NewIngestHandler(collector Ingester, workers int, log *logger.Logger) *IngestHandler {
	return &IngestHandler{
		collector: collector,
		workers:   workers,
		logger:    log,
	}
}

// IngestRequest selects what to collect.
type IngestRequest struct {
	Type          string   `json:"type"`    // "all", "constituents", "prices"
	Symbols       []string `json:"symbols"` // optional: restrict price collection
	LookbackYears int      `json:"lookback_years"`
}

// IngestResponse reports the outcome of a collection run.
type IngestResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Results interface{} `json:"results,omitempty"`
}

// Trigger runs a collection pass synchronously.
// POST /api/ingest
func (h *IngestHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req IngestRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if req.Type == "" {
		req.Type = "all"
	}

	cfg := ingest.Config{Workers: h.workers, LookbackYears: req.LookbackYears}

	h.logger.WithFields(map[string]interface{}{
		"type":    req.Type,
		"symbols": len(req.Symbols),
	}).Info("Ingestion triggered")

	switch req.Type {
	case "constituents":
		if err := h.collector.SyncConstituents(ctx); err != nil {
			h.logger.WithError(err).Error("Failed to sync constituents")
			respondError(w, http.StatusInternalServerError, "Failed to sync constituents")
			return
		}
		respondJSON(w, http.StatusOK, IngestResponse{
			Status:  "success",
			Message: "Index constituents synced",
			Type:    req.Type,
		})

	case "prices":
		var results []ingest.FetchResult
		if len(req.Symbols) > 0 {
			results = h.collector.CollectSymbols(ctx, req.Symbols, cfg)
		} else {
			var err error
			results, err = h.collector.CollectAll(ctx, cfg)
			if err != nil {
				h.logger.WithError(err).Error("Failed to collect prices")
				respondError(w, http.StatusInternalServerError, "Failed to collect prices")
				return
			}
		}
		respondJSON(w, http.StatusOK, IngestResponse{
			Status:  "success",
			Message: "Price history collected",
			Type:    req.Type,
			Results: results,
		})

	case "all":
		if err := h.collector.SyncConstituents(ctx); err != nil {
			h.logger.WithError(err).Error("Failed to sync constituents")
			respondError(w, http.StatusInternalServerError, "Failed to sync constituents")
			return
		}
		results, err := h.collector.CollectAll(ctx, cfg)
		if err != nil {
			h.logger.WithError(err).Error("Failed to collect prices")
			respondError(w, http.StatusInternalServerError, "Failed to collect prices")
			return
		}
		respondJSON(w, http.StatusOK, IngestResponse{
			Status:  "success",
			Message: "Constituents synced and price history collected",
			Type:    req.Type,
			Results: results,
		})

	default:
		respondError(w, http.StatusBadRequest, "Invalid ingestion type (valid: all, constituents, prices)")
	}
}
