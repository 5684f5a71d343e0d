// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package config

import (
	"fmt"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validateStorage,
		c.validateRecommend,
		c.validateFeedback,
		c.validateScheduler,
		c.validateNATS,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

// validateServer validates HTTP server settings
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Server.RateLimitDisabled {
		return nil
	}
	if c.Server.RateLimitRequests < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	}
	if c.Server.RateLimitWindow < time.Second {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s")
	}
	return nil
}

// validateDatabase validates DuckDB and breaker settings
func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative")
	}
	if c.Database.UnratedOrderRating <= 0 || c.Database.UnratedOrderRating > 5 {
		return fmt.Errorf("UNRATED_ORDER_RATING must be in (0, 5]")
	}

	b := c.Database.Breaker
	if !b.Enabled {
		return nil
	}
	if b.FailureRatio <= 0 || b.FailureRatio > 1 {
		return fmt.Errorf("DB_BREAKER_FAIL_RATIO must be in (0, 1]")
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("DB_BREAKER_TIMEOUT must be positive")
	}
	if b.MaxRequests == 0 {
		return fmt.Errorf("database.breaker.max_requests must be at least 1")
	}
	return nil
}

// validateStorage validates embedding and snapshot storage
func (c *Config) validateStorage() error {
	if !c.Embeddings.InMemory && c.Embeddings.Path == "" {
		return fmt.Errorf("EMBEDDINGS_PATH is required unless EMBEDDINGS_IN_MEMORY=true")
	}
	if c.Snapshots.Dir == "" {
		return fmt.Errorf("SNAPSHOT_DIR is required")
	}
	if c.Snapshots.Keep < 1 {
		return fmt.Errorf("SNAPSHOT_KEEP must be at least 1")
	}
	return nil
}

// validateRecommend delegates to the engine's own validation
func (c *Config) validateRecommend() error {
	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	return nil
}

// validateFeedback validates feedback ingestion settings
func (c *Config) validateFeedback() error {
	w := c.Feedback.Weights
	for name, v := range map[string]float64{"ordered": w.Ordered, "clicked": w.Clicked, "dismissed": w.Dismissed} {
		if v < 0 || v > 5 {
			return fmt.Errorf("feedback.weights.%s must be in [0, 5], got %v", name, v)
		}
	}
	if c.Feedback.ThrottlePerSecond < 0 {
		return fmt.Errorf("FEEDBACK_THROTTLE must not be negative")
	}
	if !c.Feedback.Enabled {
		return nil
	}
	if !c.NATS.Enabled {
		return fmt.Errorf("FEEDBACK_ENABLED=true requires NATS_ENABLED=true")
	}
	if c.Feedback.Topic == "" {
		return fmt.Errorf("FEEDBACK_TOPIC is required when feedback is enabled")
	}
	return nil
}

// validateScheduler validates background job intervals
func (c *Config) validateScheduler() error {
	s := c.Scheduler
	if s.TrainInterval < 0 || s.StatsFlushInterval < 0 || s.EmbeddingGCInterval < 0 {
		return fmt.Errorf("scheduler intervals must not be negative")
	}
	if s.TrainInterval > 0 && s.TrainInterval < time.Minute {
		return fmt.Errorf("TRAIN_INTERVAL must be at least 1m")
	}
	if s.EmbeddingGCInterval > 0 && (s.EmbeddingGCRatio <= 0 || s.EmbeddingGCRatio >= 1) {
		return fmt.Errorf("scheduler.embedding_gc_ratio must be in (0, 1)")
	}
	return nil
}

// NATS limit constants
const (
	natsMinMemory      = 64 * 1024 * 1024  // 64MB
	natsMinStore       = 100 * 1024 * 1024 // 100MB
	natsMaxRetention   = 365
	natsMaxSubscribers = 32
)

// validateNATS validates NATS configuration (only if enabled)
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if c.NATS.EmbeddedServer && c.NATS.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required for the embedded server")
	}
	if c.NATS.MaxMemory < natsMinMemory {
		return fmt.Errorf("NATS_MAX_MEMORY must be at least 64MB (67108864 bytes)")
	}
	if c.NATS.MaxStore < natsMinStore {
		return fmt.Errorf("NATS_MAX_STORE must be at least 100MB (104857600 bytes)")
	}
	if c.NATS.StreamRetentionDays < 1 || c.NATS.StreamRetentionDays > natsMaxRetention {
		return fmt.Errorf("NATS_RETENTION_DAYS must be between 1 and 365")
	}
	if c.NATS.SubscribersCount < 1 || c.NATS.SubscribersCount > natsMaxSubscribers {
		return fmt.Errorf("NATS_SUBSCRIBERS must be between 1 and 32")
	}
	if c.NATS.StreamName == "" || c.NATS.DurableName == "" {
		return fmt.Errorf("NATS_STREAM_NAME and NATS_DURABLE_NAME are required")
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"json": true, "console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
