package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assetverse-backend/bootstrap"

	"github.com/rs/zerolog/log"
)

func main() {
	srv, err := bootstrap.New()
	if err != nil {
		log.Fatal().Err(err).Msg("app create")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Verify connections before serving.
	if err := srv.Handle.Ping(); err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	log.Info().Msg("database connected")
	if err := srv.Rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	log.Info().Msg("redis connected")

	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		srv.Relay.Run(ctx)
	}()

	port := srv.Config.Port
	go func() {
		log.Info().Str("port", port).Bool("atomic", srv.Config.AllocationAtomic).
			Msgf("server running at http://localhost:%s (health: /health/json)", port)
		if err := srv.App.Listen(":" + port); err != nil {
			log.Error().Err(err).Msg("listen")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	<-relayDone
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
