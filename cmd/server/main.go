// Shelfplay - Board Game Collection and Match Tracker
// SPDX-License-Identifier: MIT
// https://github.com/shelfplay/shelfplay

// Shelfplay tracks a board game collection and its match history, keeping
// the local catalog in step with a BoardGameGeek collection.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shelfplay/shelfplay/internal/api"
	"github.com/shelfplay/shelfplay/internal/bgg"
	"github.com/shelfplay/shelfplay/internal/config"
	"github.com/shelfplay/shelfplay/internal/database"
	"github.com/shelfplay/shelfplay/internal/logging"
	"github.com/shelfplay/shelfplay/internal/server"
	"github.com/shelfplay/shelfplay/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Msg("Starting Shelfplay")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close database")
		}
	}()

	bggClient := bgg.NewClient(&cfg.BGG)
	fetcher := bgg.NewBreakerClient(bggClient)
	reconciler := sync.NewReconciler(fetcher, sync.NewDBStore(db))

	handlers := api.NewHandlers(db, cfg, reconciler, bggClient)
	router := api.NewRouter(handlers, api.NewMiddleware(cfg))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	sup := server.NewSupervisor(logging.NewSlogLogger())
	sup.Add(server.NewHTTPService(httpServer, 10*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", httpServer.Addr).Msg("HTTP server starting")
	errCh := sup.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	logging.Info().Msg("Shelfplay stopped")
}
