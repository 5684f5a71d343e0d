// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/forkcast/internal/cache"
	"github.com/tomtom215/forkcast/internal/config"
	"github.com/tomtom215/forkcast/internal/database"
	"github.com/tomtom215/forkcast/internal/logging"
	"github.com/tomtom215/forkcast/internal/recommend"
	"github.com/tomtom215/forkcast/internal/recommend/algorithms"
	"github.com/tomtom215/forkcast/internal/recommend/feedback"
	"github.com/tomtom215/forkcast/internal/recommend/storage"
	"github.com/tomtom215/forkcast/internal/supervisor"
	"github.com/tomtom215/forkcast/internal/supervisor/services"
)

// RecommendComponents holds the engine and the stores it owns.
type RecommendComponents struct {
	Engine     *recommend.Engine
	Aggregator *feedback.Aggregator
	Embeddings *storage.EmbeddingStore
	Models     *storage.ModelStore
}

// initRecommend builds the engine on top of db. The embedding store is
// opened here and must be released with Close.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initRecommend(ctx context.Context, cfg *config.Config, db *database.DB, logger zerolog.Logger) (*RecommendComponents, error) {
	logger.Info().
		Str("algorithm", cfg.Recommend.Trainer.Algorithm).
		Int("factors", cfg.Recommend.Trainer.Factors).
		Bool("cache", cfg.Recommend.Cache.Enabled).
		Str("cache_policy", cfg.Recommend.Cache.Policy).
		Msg("initializing recommendation engine")

	engine, err := recommend.NewEngine(&cfg.Recommend, logger)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	trainer, err := algorithms.New(cfg.Recommend.Trainer)
	if err != nil {
		return nil, fmt.Errorf("create trainer: %w", err)
	}
	engine.SetTrainer(trainer)
	engine.SetDataProvider(database.NewBreakerProvider(db, cfg.Database.Breaker, "interaction-store"))

	if c := cfg.Recommend.Cache; c.Enabled {
		if c.Policy == "lfu" {
			engine.SetCache(cache.NewLFU[*recommend.Result](c.MaxEntries, c.TTL))
		} else {
			engine.SetCache(cache.NewLRU[*recommend.Result](c.MaxEntries, c.TTL))
		}
	}

	models, err := storage.NewModelStore(cfg.Snapshots.Dir, cfg.Snapshots.Keep)
	if err != nil {
		return nil, fmt.Errorf("open model store: %w", err)
	}
	engine.SetModelStore(models)

	embeddings, err := storage.OpenEmbeddingStore(cfg.Embeddings, logging.WithComponent("embeddings"))
	if err != nil {
		return nil, fmt.Errorf("open embedding store: %w", err)
	}
	engine.SetEmbeddingStore(embeddings)

	rc := &RecommendComponents{
		Engine:     engine,
		Aggregator: feedback.NewAggregator(db, db, db, cfg.Recommend.Stats, cfg.Feedback.Weights, logging.WithComponent("feedback")),
		Embeddings: embeddings,
		Models:     models,
	}

	// A restored snapshot serves immediately; training replaces it later.
	if err := engine.RestoreLatest(); err != nil {
		logger.Warn().Err(err).Msg("failed to restore model snapshot, serving popularity until training completes")
	}
	if err := engine.LoadStats(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to load persisted stats")
	}

	return rc, nil
}

// Close releases the embedding store.
func (rc *RecommendComponents) Close() {
	if rc == nil || rc.Embeddings == nil {
		return
	}
	if err := rc.Embeddings.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing embedding store")
	}
}

// addDataServices adds retraining, stats flushing and embedding GC to the
// data layer. A zero interval leaves the job out.
func addDataServices(tree *supervisor.SupervisorTree, cfg *config.Config, rc *RecommendComponents) {
	sched := cfg.Scheduler

	tree.AddDataService(services.NewTrainingService(rc.Engine, services.TrainingServiceConfig{
		TrainOnStartup: sched.TrainOnStartup,
		TrainInterval:  sched.TrainInterval,
		Timeout:        cfg.Recommend.Training.Timeout,
	}, logging.WithComponent("training")))
	logging.Info().
		Bool("on_startup", sched.TrainOnStartup).
		Dur("interval", sched.TrainInterval).
		Msg("Training service added")

	if sched.StatsFlushInterval > 0 {
		tree.AddDataService(services.NewStatsFlushService(rc.Aggregator, rc.Engine, sched.StatsFlushInterval, logging.WithComponent("stats")))
		logging.Info().Dur("interval", sched.StatsFlushInterval).Msg("Stats flush service added")
	}

	if sched.EmbeddingGCInterval > 0 && rc.Embeddings != nil && !cfg.Embeddings.InMemory {
		tree.AddDataService(services.NewEmbeddingGCService(rc.Embeddings, sched.EmbeddingGCInterval, sched.EmbeddingGCRatio, logging.WithComponent("embeddings-gc")))
		logging.Info().Dur("interval", sched.EmbeddingGCInterval).Msg("Embedding GC service added")
	}
}
