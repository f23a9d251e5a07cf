package bootstrap

import (
	"context"
	"errors"
	"os"
	"time"

	"assetverse-backend/internal/application/allocation"
	"assetverse-backend/internal/application/restock"
	"assetverse-backend/internal/config"
	"assetverse-backend/internal/infrastructure/database"
	"assetverse-backend/internal/interfaces/router"
	"assetverse-backend/internal/obs"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Server is everything a process entry point needs: the HTTP app, the restock relay to run
// in the background, and the shared handles to release on shutdown.
type Server struct {
	Config      *config.Config
	App         *fiber.App
	Coordinator *allocation.Coordinator
	Handle      *database.Handle
	Rdb         *redis.Client
	Relay       *restock.Relay
}

// New loads config and builds the server (used by cmd/api and the serverless handler in api/).
func New() (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg)
}

// NewWithConfig builds the server from an explicit config.
func NewWithConfig(cfg *config.Config) (*Server, error) {
	ConfigureLogging(cfg)
	obs.Init()

	app, coord, handle, rdb, err := router.CreateApp(cfg)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.RestockRelayRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RestockRelayRate), 1)
	}
	relay := &restock.Relay{
		Log:         coord.Restock,
		Interval:    cfg.RestockRelayInterval,
		Limiter:     limiter,
		MaxAttempts: cfg.RestockMaxAttempts,
	}

	return &Server{
		Config:      cfg,
		App:         app,
		Coordinator: coord,
		Handle:      handle,
		Rdb:         rdb,
		Relay:       relay,
	}, nil
}

// ConfigureLogging sets the global zerolog level from LOG_LEVEL. Outside production logs are
// written in console format.
func ConfigureLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// Shutdown drains in-flight requests, then releases Redis and the database handle.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.App != nil {
		if err := s.App.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Rdb != nil {
		if err := s.Rdb.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.Handle.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
