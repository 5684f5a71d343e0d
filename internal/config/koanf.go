// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/forkcast/internal/recommend"
	"github.com/tomtom215/forkcast/internal/recommend/feedback"
	"github.com/tomtom215/forkcast/internal/recommend/storage"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/forkcast/config.yaml",
	"/etc/forkcast/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8650,
			Timeout:           30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Database: DatabaseConfig{
			Path:               "/data/forkcast.duckdb",
			MaxMemory:          "2GB",
			Threads:            0, // 0 = use runtime.NumCPU()
			UnratedOrderRating: 4.0,
			Breaker: BreakerConfig{
				Enabled:      true,
				MaxRequests:  3,
				Interval:     time.Minute,
				Timeout:      2 * time.Minute,
				MinRequests:  10,
				FailureRatio: 0.6,
			},
		},
		Embeddings: storage.EmbeddingConfig{
			Path:        "/data/embeddings",
			Compression: true,
		},
		Snapshots: SnapshotConfig{
			Dir:  "/data/models",
			Keep: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Recommend: *recommend.DefaultConfig(),
		Feedback: FeedbackConfig{
			Enabled:           false, // Requires NATS
			Topic:             "forkcast.feedback",
			ThrottlePerSecond: 0, // Unlimited
			Weights:           feedback.DefaultWeightConfig(),
		},
		Scheduler: SchedulerConfig{
			TrainInterval:       6 * time.Hour,
			TrainOnStartup:      true,
			StatsFlushInterval:  time.Minute,
			EmbeddingGCInterval: 30 * time.Minute,
			EmbeddingGCRatio:    0.5,
		},
		NATS: NATSConfig{
			Enabled:              false,
			URL:                  "nats://127.0.0.1:4222",
			EmbeddedServer:       true,
			StoreDir:             "/data/nats/jetstream",
			MaxMemory:            256 << 20, // 256MB
			MaxStore:             1 << 30,   // 1GB
			StreamName:           "FORKCAST",
			StreamRetentionDays:  7,
			DurableName:          "forkcast-feedback",
			QueueGroup:           "feedback",
			SubscribersCount:     2,
			RetryCount:           3,
			RetryInitialInterval: 100 * time.Millisecond,
			CloseTimeout:         30 * time.Second,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5.0,
			FailureDecay:     30.0,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// RECOMMEND_TRAINER_FACTORS -> recommend.trainer.factors
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored so unrelated environment never leaks into config.
var envMappings = map[string]string{
	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":          "server.cors_origins",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",

	// Database
	"duckdb_path":            "database.path",
	"duckdb_max_memory":      "database.max_memory",
	"duckdb_threads":         "database.threads",
	"unrated_order_rating":   "database.unrated_order_rating",
	"db_breaker_enabled":     "database.breaker.enabled",
	"db_breaker_timeout":     "database.breaker.timeout",
	"db_breaker_fail_ratio":  "database.breaker.failure_ratio",
	"db_breaker_min_request": "database.breaker.min_requests",

	// Embedding store and snapshots
	"embeddings_path":        "embeddings.path",
	"embeddings_in_memory":   "embeddings.in_memory",
	"embeddings_sync_writes": "embeddings.sync_writes",
	"embeddings_compression": "embeddings.compression",
	"snapshot_dir":           "snapshots.dir",
	"snapshot_keep":          "snapshots.keep",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Trainer
	"recommend_trainer_algorithm":      "recommend.trainer.algorithm",
	"recommend_trainer_factors":        "recommend.trainer.factors",
	"recommend_trainer_iterations":     "recommend.trainer.iterations",
	"recommend_trainer_learning_rate":  "recommend.trainer.learning_rate",
	"recommend_trainer_regularization": "recommend.trainer.regularization",
	"recommend_trainer_seed":           "recommend.trainer.seed",
	"recommend_trainer_init_scale":     "recommend.trainer.init_scale",
	"recommend_trainer_workers":        "recommend.trainer.workers",

	// Training limits
	"recommend_min_interactions": "recommend.training.min_interactions",
	"recommend_training_timeout": "recommend.training.timeout",
	"recommend_max_versions":     "recommend.training.max_versions",

	// Ranking
	"recommend_cold_start_threshold": "recommend.ranking.cold_start_threshold",
	"recommend_min_similarity":       "recommend.ranking.min_similarity",
	"recommend_search_limit":         "recommend.ranking.search_limit",
	"recommend_default_count":        "recommend.ranking.default_count",
	"recommend_max_count":            "recommend.ranking.max_count",
	"recommend_exclude_interacted":   "recommend.ranking.exclude_interacted",

	// Evaluation
	"recommend_evaluation_enabled": "recommend.evaluation.enabled",
	"recommend_evaluation_k":       "recommend.evaluation.k",
	"recommend_split_policy":       "recommend.evaluation.split_policy",
	"recommend_test_fraction":      "recommend.evaluation.test_fraction",
	"recommend_positive_threshold": "recommend.evaluation.positive_threshold",

	// Stats normalization
	"stats_user_cold_start_k": "recommend.stats.user_cold_start_k",
	"stats_item_cold_start_k": "recommend.stats.item_cold_start_k",
	"stats_max_orders_cap":    "recommend.stats.max_orders_cap",
	"stats_timezone":          "recommend.stats.timezone",

	// Result cache
	"recommend_cache_enabled":     "recommend.cache.enabled",
	"recommend_cache_ttl":         "recommend.cache.ttl",
	"recommend_cache_max_entries": "recommend.cache.max_entries",
	"recommend_cache_policy":      "recommend.cache.policy",

	// Feedback
	"feedback_enabled":          "feedback.enabled",
	"feedback_topic":            "feedback.topic",
	"feedback_throttle":         "feedback.throttle_per_second",
	"feedback_weight_ordered":   "feedback.weights.ordered",
	"feedback_weight_clicked":   "feedback.weights.clicked",
	"feedback_weight_dismissed": "feedback.weights.dismissed",

	// Scheduler
	"train_interval":        "scheduler.train_interval",
	"train_on_startup":      "scheduler.train_on_startup",
	"stats_flush_interval":  "scheduler.stats_flush_interval",
	"embedding_gc_interval": "scheduler.embedding_gc_interval",

	// NATS
	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded_server",
	"nats_store_dir":      "nats.store_dir",
	"nats_max_memory":     "nats.max_memory",
	"nats_max_store":      "nats.max_store",
	"nats_stream_name":    "nats.stream_name",
	"nats_retention_days": "nats.stream_retention_days",
	"nats_durable_name":   "nats.durable_name",
	"nats_queue_group":    "nats.queue_group",
	"nats_subscribers":    "nats.subscribers_count",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - RECOMMEND_TRAINER_FACTORS -> recommend.trainer.factors
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	// For unmapped keys, return empty string to skip them
	return ""
}
