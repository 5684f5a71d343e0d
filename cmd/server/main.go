// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

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
	_ "time/tzdata" // zone database for recommend.stats.timezone

	"github.com/tomtom215/forkcast/internal/api"
	"github.com/tomtom215/forkcast/internal/config"
	"github.com/tomtom215/forkcast/internal/database"
	"github.com/tomtom215/forkcast/internal/logging"
	"github.com/tomtom215/forkcast/internal/supervisor"
	"github.com/tomtom215/forkcast/internal/supervisor/services"
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("algorithm", cfg.Recommend.Trainer.Algorithm).
		Bool("nats", cfg.NATS.Enabled).
		Bool("feedback", cfg.Feedback.Enabled).
		Msg("Starting Forkcast with supervisor tree")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rc, err := initRecommend(ctx, cfg, db, logging.WithComponent("recommend"))
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize recommendation engine")
		return
	}
	defer rc.Close()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfigFrom(&cfg.Supervisor))
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create supervisor tree")
		return
	}

	// === DATA LAYER ===
	addDataServices(tree, cfg, rc)

	// === MESSAGING LAYER ===
	natsComponents, err := InitNATS(ctx, cfg, rc.Aggregator)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize feedback pipeline")
		return
	}
	AddNATSToSupervisor(tree, natsComponents, &cfg.NATS)

	// === API LAYER ===
	deps := api.Dependencies{
		Engine:         rc.Engine,
		Entities:       db,
		Health:         db,
		RequestTimeout: cfg.Server.Timeout,
		TrainTimeout:   cfg.Recommend.Training.Timeout,
		DefaultCount:   cfg.Recommend.Ranking.DefaultCount,
	}
	// A nil *Publisher in the interface would not compare equal to nil.
	if pub := natsComponents.Publisher(); pub != nil {
		deps.Feedback = pub
	}
	handler, err := api.NewHandler(deps)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create API handler")
		return
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Handler:           api.NewRouter(handler, api.MiddlewareConfigFrom(&cfg.Server)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, addr, cfg.Server.ShutdownTimeout, logging.WithComponent("http")))
	logging.Info().Str("addr", addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	// Covers deployments with the stats flush service disabled.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer flushCancel()
	if _, err := rc.Aggregator.Flush(flushCtx); err != nil {
		logging.Warn().Err(err).Msg("Final stats flush failed")
	}

	logging.Info().Msg("Application stopped gracefully")
}
