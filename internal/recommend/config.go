// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package recommend

import (
	"fmt"
	"math"
	"time"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Trainer holds the factorization hyperparameters.
	Trainer TrainerConfig `json:"trainer" koanf:"trainer"`

	// Training holds scheduling and data-sufficiency limits.
	Training TrainingConfig `json:"training" koanf:"training"`

	// Ranking holds recommendation and similarity parameters.
	Ranking RankingConfig `json:"ranking" koanf:"ranking"`

	// Evaluation holds holdout and metric parameters.
	Evaluation EvaluationConfig `json:"evaluation" koanf:"evaluation"`

	// Stats holds the normalization constants of the feedback aggregator.
	Stats StatsConfig `json:"stats" koanf:"stats"`

	// Cache holds result cache bounds.
	Cache CacheConfig `json:"cache" koanf:"cache"`
}

// TrainerConfig contains the latent factor training hyperparameters.
type TrainerConfig struct {
	// Algorithm selects the trainer: "sgd" or "als".
	// Default: sgd.
	Algorithm string `json:"algorithm" koanf:"algorithm"`

	// Factors is the embedding dimensionality D.
	// Default: 15.
	Factors int `json:"factors" koanf:"factors"`

	// Iterations is the number of training epochs.
	// Default: 100.
	Iterations int `json:"iterations" koanf:"iterations"`

	// LearningRate is the SGD step size. ALS ignores it.
	// Default: 0.01.
	LearningRate float64 `json:"learning_rate" koanf:"learning_rate"`

	// Regularization is the L2 penalty.
	// Default: 0.01.
	Regularization float64 `json:"regularization" koanf:"regularization"`

	// Seed makes initialization and shuffling reproducible.
	// Default: 42.
	Seed int64 `json:"seed" koanf:"seed"`

	// InitScale bounds initial vector values to [-InitScale, InitScale].
	// Default: 0.1.
	InitScale float64 `json:"init_scale" koanf:"init_scale"`

	// Workers bounds ALS row solves running at once.
	// Default: 4.
	Workers int `json:"workers" koanf:"workers"`
}

// Validate checks the hyperparameters. Errors wrap ErrInvalidConfiguration.
func (c TrainerConfig) Validate() error {
	if c.Factors <= 0 {
		return fmt.Errorf("%w: factors must be positive, got %d", ErrInvalidConfiguration, c.Factors)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidConfiguration, c.Iterations)
	}
	if !(c.LearningRate > 0) || math.IsInf(c.LearningRate, 0) {
		return fmt.Errorf("%w: learning_rate must be positive, got %v", ErrInvalidConfiguration, c.LearningRate)
	}
	if !(c.Regularization > 0) || math.IsInf(c.Regularization, 0) {
		return fmt.Errorf("%w: regularization must be positive, got %v", ErrInvalidConfiguration, c.Regularization)
	}
	if c.InitScale < 0 {
		return fmt.Errorf("%w: init_scale must be non-negative, got %v", ErrInvalidConfiguration, c.InitScale)
	}
	switch c.Algorithm {
	case "", "sgd", "als":
	default:
		return fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfiguration, c.Algorithm)
	}
	return nil
}

// TrainingConfig contains training schedule parameters.
type TrainingConfig struct {
	// MinInteractions is the minimum interaction count required to train.
	// Default: 1.
	MinInteractions int `json:"min_interactions" koanf:"min_interactions"`

	// Timeout bounds a single training run.
	// Default: 30m.
	Timeout time.Duration `json:"timeout" koanf:"timeout"`

	// MaxVersions is how many model versions stay pinnable.
	// Default: 3.
	MaxVersions int `json:"max_versions" koanf:"max_versions"`
}

// RankingConfig contains recommendation and similarity parameters.
type RankingConfig struct {
	// ColdStartThreshold routes users with a higher cold start score to popularity.
	// Default: 0.7.
	ColdStartThreshold float64 `json:"cold_start_threshold" koanf:"cold_start_threshold"`

	// MinSimilarity drops similar-entity results below this cosine.
	// Default: 0.1.
	MinSimilarity float64 `json:"min_similarity" koanf:"min_similarity"`

	// SearchLimit bounds how many candidates FindSimilar compares against.
	// Default: 1000.
	SearchLimit int `json:"search_limit" koanf:"search_limit"`

	// DefaultCount is the result count the HTTP API uses when the request
	// does not name one. The engine itself returns nothing for a count <= 0.
	// Default: 10.
	DefaultCount int `json:"default_count" koanf:"default_count"`

	// MaxCount caps the requested result count.
	// Default: 100.
	MaxCount int `json:"max_count" koanf:"max_count"`

	// ExcludeInteracted removes restaurants the user already ordered from.
	// Default: false (reorders are common in food delivery).
	ExcludeInteracted bool `json:"exclude_interacted" koanf:"exclude_interacted"`
}

// SplitPolicy selects how interactions are divided into train and test sets.
type SplitPolicy string

const (
	// SplitTime trains on the past and tests on the most recent interactions.
	SplitTime SplitPolicy = "time"

	// SplitRandom shuffles interactions with the evaluation seed.
	SplitRandom SplitPolicy = "random"
)

// EvaluationConfig contains offline evaluation parameters.
type EvaluationConfig struct {
	// Enabled holds out a test slice at every training run and retains it
	// with the model version for Evaluate.
	// Default: false.
	Enabled bool `json:"enabled" koanf:"enabled"`

	// K is the cutoff for precision@K and recall@K.
	// Default: 10.
	K int `json:"k" koanf:"k"`

	// SplitPolicy is "time" or "random".
	// Default: time.
	SplitPolicy SplitPolicy `json:"split_policy" koanf:"split_policy"`

	// TestFraction is the share of interactions held out.
	// Default: 0.2.
	TestFraction float64 `json:"test_fraction" koanf:"test_fraction"`

	// PositiveThreshold is the minimum explicit rating that counts as relevant.
	// Default: 4.0.
	PositiveThreshold float64 `json:"positive_threshold" koanf:"positive_threshold"`

	// Seed drives the random split.
	// Default: 42.
	Seed int64 `json:"seed" koanf:"seed"`
}

// StatsConfig contains the normalization constants of the aggregator.
// None of these generalize across catalog sizes; tune them per deployment.
type StatsConfig struct {
	// UserColdStartK is the order count at which a user stops being cold.
	// Default: 20.
	UserColdStartK int `json:"user_cold_start_k" koanf:"user_cold_start_k"`

	// ItemColdStartK is the order count at which a restaurant stops being cold.
	// Default: 50.
	ItemColdStartK int `json:"item_cold_start_k" koanf:"item_cold_start_k"`

	// MaxOrdersCap is the order count that maps to popularity 1.0.
	// Default: 1000.
	MaxOrdersCap int `json:"max_orders_cap" koanf:"max_orders_cap"`

	// TopCuisines is how many cuisines a preference summary keeps.
	// Default: 3.
	TopCuisines int `json:"top_cuisines" koanf:"top_cuisines"`

	// PeakBuckets is how many peak time buckets a restaurant keeps.
	// Default: 3.
	PeakBuckets int `json:"peak_buckets" koanf:"peak_buckets"`

	// Timezone is the IANA zone order times are bucketed in, normally the
	// one the restaurants operate in. Empty means UTC.
	// Default: "UTC".
	Timezone string `json:"timezone" koanf:"timezone"`
}

// Location returns the zone named by Timezone, UTC when it is empty or
// unknown. Validate rejects unknown names.
func (c StatsConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CacheConfig contains result cache bounds.
type CacheConfig struct {
	// Enabled turns the result cache on.
	// Default: true.
	Enabled bool `json:"enabled" koanf:"enabled"`

	// TTL is the cache entry time-to-live.
	// Default: 5m.
	TTL time.Duration `json:"ttl" koanf:"ttl"`

	// MaxEntries is the maximum number of cached results.
	// Default: 10000.
	MaxEntries int `json:"max_entries" koanf:"max_entries"`

	// Policy is the eviction policy: "lru" or "lfu".
	// Default: lru.
	Policy string `json:"policy" koanf:"policy"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Trainer: TrainerConfig{
			Algorithm:      "sgd",
			Factors:        15,
			Iterations:     100,
			LearningRate:   0.01,
			Regularization: 0.01,
			Seed:           42,
			InitScale:      0.1,
			Workers:        4,
		},
		Training: TrainingConfig{
			MinInteractions: 1,
			Timeout:         30 * time.Minute,
			MaxVersions:     3,
		},
		Ranking: RankingConfig{
			ColdStartThreshold: 0.7,
			MinSimilarity:      0.1,
			SearchLimit:        1000,
			DefaultCount:       10,
			MaxCount:           100,
		},
		Evaluation: EvaluationConfig{
			K:                 10,
			SplitPolicy:       SplitTime,
			TestFraction:      0.2,
			PositiveThreshold: 4.0,
			Seed:              42,
		},
		Stats: StatsConfig{
			UserColdStartK: 20,
			ItemColdStartK: 50,
			MaxOrdersCap:   1000,
			TopCuisines:    3,
			PeakBuckets:    3,
			Timezone:       "UTC",
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			MaxEntries: 10000,
			Policy:     "lru",
		},
	}
}

// Validate checks the configuration. Errors wrap ErrInvalidConfiguration.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	if err := c.Trainer.Validate(); err != nil {
		return fmt.Errorf("trainer: %w", err)
	}

	if c.Training.MinInteractions < 0 {
		return fmt.Errorf("%w: training.min_interactions must be non-negative, got %d", ErrInvalidConfiguration, c.Training.MinInteractions)
	}
	if c.Training.Timeout <= 0 {
		return fmt.Errorf("%w: training.timeout must be positive, got %v", ErrInvalidConfiguration, c.Training.Timeout)
	}
	if c.Training.MaxVersions < 1 {
		return fmt.Errorf("%w: training.max_versions must be positive, got %d", ErrInvalidConfiguration, c.Training.MaxVersions)
	}

	if c.Ranking.ColdStartThreshold < 0 || c.Ranking.ColdStartThreshold > 1 {
		return fmt.Errorf("%w: ranking.cold_start_threshold must be in [0, 1], got %v", ErrInvalidConfiguration, c.Ranking.ColdStartThreshold)
	}
	if c.Ranking.MinSimilarity < -1 || c.Ranking.MinSimilarity > 1 {
		return fmt.Errorf("%w: ranking.min_similarity must be in [-1, 1], got %v", ErrInvalidConfiguration, c.Ranking.MinSimilarity)
	}
	if c.Ranking.SearchLimit < 1 {
		return fmt.Errorf("%w: ranking.search_limit must be positive, got %d", ErrInvalidConfiguration, c.Ranking.SearchLimit)
	}
	if c.Ranking.DefaultCount < 1 {
		return fmt.Errorf("%w: ranking.default_count must be positive, got %d", ErrInvalidConfiguration, c.Ranking.DefaultCount)
	}
	if c.Ranking.MaxCount < c.Ranking.DefaultCount {
		return fmt.Errorf("%w: ranking.max_count must be >= ranking.default_count, got %d < %d", ErrInvalidConfiguration, c.Ranking.MaxCount, c.Ranking.DefaultCount)
	}

	if c.Evaluation.K < 1 {
		return fmt.Errorf("%w: evaluation.k must be positive, got %d", ErrInvalidConfiguration, c.Evaluation.K)
	}
	if c.Evaluation.SplitPolicy != SplitTime && c.Evaluation.SplitPolicy != SplitRandom {
		return fmt.Errorf("%w: evaluation.split_policy must be %q or %q, got %q", ErrInvalidConfiguration, SplitTime, SplitRandom, c.Evaluation.SplitPolicy)
	}
	if !(c.Evaluation.TestFraction > 0 && c.Evaluation.TestFraction < 1) {
		return fmt.Errorf("%w: evaluation.test_fraction must be in (0, 1), got %v", ErrInvalidConfiguration, c.Evaluation.TestFraction)
	}

	if c.Stats.UserColdStartK < 1 || c.Stats.ItemColdStartK < 1 {
		return fmt.Errorf("%w: stats cold start constants must be positive", ErrInvalidConfiguration)
	}
	if c.Stats.MaxOrdersCap < 1 {
		return fmt.Errorf("%w: stats.max_orders_cap must be positive, got %d", ErrInvalidConfiguration, c.Stats.MaxOrdersCap)
	}
	if c.Stats.TopCuisines < 1 || c.Stats.PeakBuckets < 1 {
		return fmt.Errorf("%w: stats summary sizes must be positive", ErrInvalidConfiguration)
	}
	if c.Stats.Timezone != "" {
		if _, err := time.LoadLocation(c.Stats.Timezone); err != nil {
			return fmt.Errorf("%w: stats.timezone %q: %v", ErrInvalidConfiguration, c.Stats.Timezone, err)
		}
	}

	if c.Cache.Enabled {
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("%w: cache.ttl must be positive, got %v", ErrInvalidConfiguration, c.Cache.TTL)
		}
		if c.Cache.MaxEntries < 1 {
			return fmt.Errorf("%w: cache.max_entries must be positive, got %d", ErrInvalidConfiguration, c.Cache.MaxEntries)
		}
		if p := c.Cache.Policy; p != "" && p != "lru" && p != "lfu" {
			return fmt.Errorf("%w: cache.policy must be lru or lfu, got %q", ErrInvalidConfiguration, p)
		}
	}

	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	// All nested structs hold value types only.
	clone := *c
	return &clone
}
