// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string // empty means valid
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "port zero", mutate: func(c *Config) { c.Server.Port = 0 }, errMsg: "HTTP_PORT"},
		{name: "port too high", mutate: func(c *Config) { c.Server.Port = 70000 }, errMsg: "HTTP_PORT"},
		{name: "rate limit window", mutate: func(c *Config) { c.Server.RateLimitWindow = time.Millisecond }, errMsg: "RATE_LIMIT_WINDOW"},
		{
			name: "rate limit ignored when disabled",
			mutate: func(c *Config) {
				c.Server.RateLimitDisabled = true
				c.Server.RateLimitRequests = 0
			},
		},
		{name: "empty database path", mutate: func(c *Config) { c.Database.Path = "" }, errMsg: "DUCKDB_PATH"},
		{name: "unrated rating zero", mutate: func(c *Config) { c.Database.UnratedOrderRating = 0 }, errMsg: "UNRATED_ORDER_RATING"},
		{name: "unrated rating above scale", mutate: func(c *Config) { c.Database.UnratedOrderRating = 6 }, errMsg: "UNRATED_ORDER_RATING"},
		{name: "breaker ratio", mutate: func(c *Config) { c.Database.Breaker.FailureRatio = 1.5 }, errMsg: "DB_BREAKER_FAIL_RATIO"},
		{
			name: "breaker ignored when disabled",
			mutate: func(c *Config) {
				c.Database.Breaker.Enabled = false
				c.Database.Breaker.FailureRatio = 0
			},
		},
		{name: "embedding path", mutate: func(c *Config) { c.Embeddings.Path = "" }, errMsg: "EMBEDDINGS_PATH"},
		{
			name: "in-memory embeddings need no path",
			mutate: func(c *Config) {
				c.Embeddings.Path = ""
				c.Embeddings.InMemory = true
			},
		},
		{name: "snapshot keep", mutate: func(c *Config) { c.Snapshots.Keep = 0 }, errMsg: "SNAPSHOT_KEEP"},
		{name: "engine config", mutate: func(c *Config) { c.Recommend.Ranking.ColdStartThreshold = 2 }, errMsg: "cold_start_threshold"},
		{name: "negative weight", mutate: func(c *Config) { c.Feedback.Weights.Clicked = -1 }, errMsg: "feedback.weights.clicked"},
		{name: "short train interval", mutate: func(c *Config) { c.Scheduler.TrainInterval = time.Second }, errMsg: "TRAIN_INTERVAL"},
		{
			name:   "gc ratio",
			mutate: func(c *Config) { c.Scheduler.EmbeddingGCRatio = 1 },
			errMsg: "embedding_gc_ratio",
		},
		{
			name: "feedback with nats",
			mutate: func(c *Config) {
				c.NATS.Enabled = true
				c.Feedback.Enabled = true
			},
		},
		{
			name: "nats store too small",
			mutate: func(c *Config) {
				c.NATS.Enabled = true
				c.NATS.MaxStore = 1024
			},
			errMsg: "NATS_MAX_STORE",
		},
		{name: "log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, errMsg: "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.errMsg)
			}
		})
	}
}

func TestValidateNATSURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url     string
		wantErr bool
	}{
		{url: "nats://127.0.0.1:4222"},
		{url: "tls://nats.example.com:4222"},
		{url: "wss://nats.example.com"},
		{url: "http://localhost:4222", wantErr: true},
		{url: "nats://", wantErr: true},
		{url: "://bad", wantErr: true},
	}

	for _, tt := range tests {
		if err := validateNATSURL(tt.url); (err != nil) != tt.wantErr {
			t.Errorf("validateNATSURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
	}
}
