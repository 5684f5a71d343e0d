// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package config

import (
	"time"

	"github.com/tomtom215/forkcast/internal/recommend"
	"github.com/tomtom215/forkcast/internal/recommend/feedback"
	"github.com/tomtom215/forkcast/internal/recommend/storage"
)

// Config holds all application configuration.
//
// Example - Load and wire:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal().Err(err).Msg("Failed to load config")
//	}
//	db, err := database.New(&cfg.Database)
//	engine, err := recommend.NewEngine(&cfg.Recommend, logger)
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Server     ServerConfig            `koanf:"server"`
	Database   DatabaseConfig          `koanf:"database"`
	Embeddings storage.EmbeddingConfig `koanf:"embeddings"`
	Snapshots  SnapshotConfig          `koanf:"snapshots"`
	Logging    LoggingConfig           `koanf:"logging"`
	Recommend  recommend.Config        `koanf:"recommend"`
	Feedback   FeedbackConfig          `koanf:"feedback"`
	Scheduler  SchedulerConfig         `koanf:"scheduler"`
	NATS       NATSConfig              `koanf:"nats"` // Optional: feedback events over JetStream
	Supervisor SupervisorConfig        `koanf:"supervisor"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed origins. "*" allows all.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitRequests per RateLimitWindow per client IP.
	RateLimitRequests int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path        string `koanf:"path"`
	MaxMemory   string `koanf:"max_memory"`
	Threads     int    `koanf:"threads"`      // Number of DuckDB threads (0 = use NumCPU)
	SkipIndexes bool   `koanf:"skip_indexes"` // Skip index creation (fast test setup)

	// UnratedOrderRating is the training signal of an order without a rating.
	// Default: 4.0
	UnratedOrderRating float64 `koanf:"unrated_order_rating"`

	Breaker BreakerConfig `koanf:"breaker"`
}

// BreakerConfig configures the circuit breaker around interaction store reads.
type BreakerConfig struct {
	Enabled bool `koanf:"enabled"`

	// MaxRequests allowed through while half-open.
	MaxRequests uint32 `koanf:"max_requests"`

	// Interval is the closed-state window after which counts reset.
	Interval time.Duration `koanf:"interval"`

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration `koanf:"timeout"`

	// MinRequests before the failure ratio is considered.
	MinRequests uint32 `koanf:"min_requests"`

	// FailureRatio at or above which the breaker trips.
	FailureRatio float64 `koanf:"failure_ratio"`
}

// SnapshotConfig holds model snapshot persistence settings.
type SnapshotConfig struct {
	Dir  string `koanf:"dir"`
	Keep int    `koanf:"keep"`
}

// LoggingConfig holds logging configuration.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// FeedbackConfig holds recommendation feedback ingestion settings.
type FeedbackConfig struct {
	// Enabled starts the feedback consumer. Requires NATS.
	Enabled bool `koanf:"enabled"`

	// Topic carries feedback events.
	Topic string `koanf:"topic"`

	// ThrottlePerSecond bounds interaction writes. 0 disables the throttle.
	ThrottlePerSecond int `koanf:"throttle_per_second"`

	Weights feedback.WeightConfig `koanf:"weights"`
}

// SchedulerConfig holds the background job schedule.
type SchedulerConfig struct {
	// TrainInterval between retraining runs. 0 disables periodic training.
	TrainInterval time.Duration `koanf:"train_interval"`

	// TrainOnStartup trains once as soon as the service starts.
	TrainOnStartup bool `koanf:"train_on_startup"`

	// StatsFlushInterval between refreshes of dirty user and restaurant stats.
	StatsFlushInterval time.Duration `koanf:"stats_flush_interval"`

	// EmbeddingGCInterval between badger value log collections. 0 disables it.
	EmbeddingGCInterval time.Duration `koanf:"embedding_gc_interval"`

	// EmbeddingGCRatio is the discard ratio passed to the value log GC.
	EmbeddingGCRatio float64 `koanf:"embedding_gc_ratio"`
}

// NATSConfig holds NATS JetStream settings for feedback events.
type NATSConfig struct {
	Enabled bool `koanf:"enabled"`

	// URL is the NATS server connection URL.
	URL string `koanf:"url"`

	// EmbeddedServer runs a NATS server in-process.
	// If false, expects an external server at URL.
	EmbeddedServer bool `koanf:"embedded_server"`

	// StoreDir is the JetStream storage directory.
	StoreDir string `koanf:"store_dir"`

	// MaxMemory and MaxStore bound JetStream in bytes.
	MaxMemory int64 `koanf:"max_memory"`
	MaxStore  int64 `koanf:"max_store"`

	// StreamName is the JetStream stream holding feedback subjects.
	StreamName string `koanf:"stream_name"`

	// StreamRetentionDays is how long to keep events.
	StreamRetentionDays int `koanf:"stream_retention_days"`

	DurableName      string `koanf:"durable_name"`
	QueueGroup       string `koanf:"queue_group"`
	SubscribersCount int    `koanf:"subscribers_count"`

	// Router middleware settings.
	RetryCount           int           `koanf:"router_retry_count"`
	RetryInitialInterval time.Duration `koanf:"router_retry_initial_interval"`
	CloseTimeout         time.Duration `koanf:"router_close_timeout"`
}

// SupervisorConfig holds supervisor tree failure handling settings.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, then validates it. See LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
