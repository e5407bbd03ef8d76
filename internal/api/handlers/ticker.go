package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jmarceau/screener/internal/contracts"
	"github.com/jmarceau/screener/pkg/logger"
)

// BarReader reads recent price bars for the ticker detail endpoint.
type BarReader interface {
	RecentBars(ctx context.Context, symbol string, limit int) ([]*contracts.PriceBar, error)
}

// TickerHandler serves ticker detail endpoints.
type TickerHandler struct {
	catalog contracts.TickerCatalog
	prices  BarReader
	logger  *logger.Logger
}

// NewTickerHandler creates a ticker handler.
func NewTickerHandler(catalog contracts.TickerCatalog, prices BarReader, log *logger.Logger) *TickerHandler {
	return &TickerHandler{
		catalog: catalog,
		prices:  prices,
		logger:  log,
	}
}

// TickerDetail is the ticker detail payload: catalog metadata plus the
// most recent month of bars.
type TickerDetail struct {
	Ticker     *contracts.Ticker     `json:"ticker"`
	RecentBars []*contracts.PriceBar `json:"recent_bars"`
}

// Get returns one ticker with its recent price history.
// GET /api/tickers/{symbol}
func (h *TickerHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := mux.Vars(r)["symbol"]

	ticker, err := h.catalog.GetBySymbol(ctx, symbol)
	if errors.Is(err, contracts.ErrTickerNotFound) {
		respondError(w, http.StatusNotFound, "Ticker not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to get ticker")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve ticker")
		return
	}

	bars, err := h.prices.RecentBars(ctx, symbol, 30)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to get recent bars")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve price history")
		return
	}

	respondJSON(w, http.StatusOK, TickerDetail{
		Ticker:     ticker,
		RecentBars: bars,
	})
}
