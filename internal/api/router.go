package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jmarceau/screener/internal/api/handlers"
	"github.com/jmarceau/screener/pkg/logger"
)

// Handlers bundles the endpoint handlers the router wires up. Auth and
// saved search handlers are optional so the screener can run headless
// without user accounts.
type Handlers struct {
	Screen      *handlers.ScreenHandler
	Ticker      *handlers.TickerHandler
	Meta        *handlers.MetaHandler
	Ingest      *handlers.IngestHandler
	Auth        *handlers.AuthHandler
	SavedSearch *handlers.SavedSearchHandler
}

// NewRouter creates and configures the HTTP router.
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Screening
	api.HandleFunc("/screen", h.Screen.Screen).Methods("POST")

	// Filter dimensions
	api.HandleFunc("/indices", h.Meta.Indices).Methods("GET")
	api.HandleFunc("/countries", h.Meta.Countries).Methods("GET")
	api.HandleFunc("/sectors", h.Meta.Sectors).Methods("GET")

	// Ticker detail
	api.HandleFunc("/tickers/{symbol}", h.Ticker.Get).Methods("GET")

	// Ingestion trigger
	if h.Ingest != nil {
		api.HandleFunc("/ingest", h.Ingest.Trigger).Methods("POST")
	}

	// Accounts and saved searches
	if h.Auth != nil {
		api.HandleFunc("/auth/register", h.Auth.Register).Methods("POST")
		api.HandleFunc("/auth/login", h.Auth.Login).Methods("POST")
		api.HandleFunc("/auth/logout", h.Auth.Logout).Methods("POST")
		api.HandleFunc("/auth/me", h.Auth.Me).Methods("GET")
	}
	if h.SavedSearch != nil {
		api.HandleFunc("/saved-searches", h.SavedSearch.List).Methods("GET")
		api.HandleFunc("/saved-searches", h.SavedSearch.Create).Methods("POST")
		api.HandleFunc("/saved-searches/{id}", h.SavedSearch.Delete).Methods("DELETE")
	}

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "screener-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
