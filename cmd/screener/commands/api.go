package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmarceau/screener/internal/api"
	"github.com/jmarceau/screener/internal/api/handlers"
	"github.com/jmarceau/screener/internal/auth"
	"github.com/jmarceau/screener/internal/catalog"
	"github.com/jmarceau/screener/internal/external/constituents"
	"github.com/jmarceau/screener/internal/ingest"
	"github.com/jmarceau/screener/internal/pricestore"
	"github.com/jmarceau/screener/internal/savedsearch"
	"github.com/jmarceau/screener/internal/screening"
	"github.com/jmarceau/screener/pkg/config"
	"github.com/jmarceau/screener/pkg/database"
	"github.com/jmarceau/screener/pkg/logger"
	"github.com/jmarceau/screener/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the REST API server",
	Long: `Start the REST API server.

Endpoints:
  GET  /health                    - Health check
  POST /api/screen                - Run a screen
  GET  /api/indices               - Supported index universes
  GET  /api/countries             - Countries present in the catalog
  GET  /api/sectors               - Sectors present in the catalog
  GET  /api/tickers/{symbol}      - Ticker detail with recent bars
  POST /api/ingest                - Trigger data collection
  POST /api/auth/register         - Create an account
  POST /api/auth/login            - Log in
  POST /api/auth/logout           - Log out
  GET  /api/auth/me               - Current user
  GET  /api/saved-searches        - List saved searches
  POST /api/saved-searches        - Save a search
  DELETE /api/saved-searches/{id} - Delete a saved search

Example:
  go run ./cmd/screener api
  go run ./cmd/screener api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log := logger.New(cfg)
	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Connected to database")

	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	cache := redis.NewCache(redisClient, "screener")
	sessions := redis.NewSessionStore(redisClient, "screener", cfg.Session.TTL)

	// Repositories
	catalogRepo := catalog.NewRepository(db.Pool)
	priceRepo := pricestore.NewRepository(db.Pool)
	userRepo := auth.NewRepository(db.Pool)
	searchRepo := savedsearch.NewRepository(db.Pool)

	// Services
	engine := screening.NewEngine(catalogRepo, priceRepo, log)
	authService := auth.NewService(userRepo, sessions, log)

	provider, err := ingest.BuildProvider(cfg, log)
	if err != nil {
		return fmt.Errorf("build ingest provider: %w", err)
	}
	collector := ingest.NewCollector(provider, priceRepo, catalogRepo, constituents.New(log), log)

	// Handlers and router
	router := api.NewRouter(api.Handlers{
		Screen:      handlers.NewScreenHandler(engine, cache, log),
		Ticker:      handlers.NewTickerHandler(catalogRepo, priceRepo, log),
		Meta:        handlers.NewMetaHandler(catalogRepo, cache, log),
		Ingest:      handlers.NewIngestHandler(collector, cfg.Ingest.Workers, log),
		Auth:        handlers.NewAuthHandler(authService, cfg.Session.TTL, cfg.Env == "production", log),
		SavedSearch: handlers.NewSavedSearchHandler(searchRepo, authService, log),
	}, log)

	server := api.New(cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Server running on http://localhost:%s (Ctrl+C to stop)\n", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
