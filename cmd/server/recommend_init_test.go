// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package main

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/tomtom215/forkcast/internal/config"
	"github.com/tomtom215/forkcast/internal/database"
	"github.com/tomtom215/forkcast/internal/logging"
	"github.com/tomtom215/forkcast/internal/recommend"
	"github.com/tomtom215/forkcast/internal/recommend/feedback"
	"github.com/tomtom215/forkcast/internal/recommend/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Database: config.DatabaseConfig{
			Path:               ":memory:",
			MaxMemory:          "512MB",
			Threads:            1,
			UnratedOrderRating: 4.0,
		},
		Embeddings: storage.EmbeddingConfig{InMemory: true},
		Snapshots:  config.SnapshotConfig{Dir: t.TempDir(), Keep: 2},
		Recommend:  *recommend.DefaultConfig(),
		Feedback:   config.FeedbackConfig{Weights: feedback.DefaultWeightConfig()},
	}
}

func seedOrders(t *testing.T, db *database.DB) {
	t.Helper()
	ctx := context.Background()

	users := []string{"u1", "u2", "u3", "u4"}
	if err := db.UpsertUsers(ctx, users...); err != nil {
		t.Fatalf("UpsertUsers() error = %v", err)
	}
	restaurants := []database.Restaurant{
		{ID: "r1", Name: "Noodle Bar", Cuisine: "thai", PriceRange: "$"},
		{ID: "r2", Name: "Taqueria", Cuisine: "mexican", PriceRange: "$"},
		{ID: "r3", Name: "Trattoria", Cuisine: "italian", PriceRange: "$$"},
	}
	if err := db.UpsertRestaurants(ctx, restaurants...); err != nil {
		t.Fatalf("UpsertRestaurants() error = %v", err)
	}

	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	var orders []recommend.OrderRecord
	n := 0
	for _, u := range users {
		for _, r := range restaurants {
			n++
			orders = append(orders, recommend.OrderRecord{
				OrderID:      fmt.Sprintf("o%d", n),
				UserID:       u,
				RestaurantID: r.ID,
				Rating:       float64(1 + n%5),
				Cuisine:      r.Cuisine,
				PriceRange:   r.PriceRange,
				Total:        20,
				CreatedAt:    base.Add(time.Duration(n) * time.Hour),
			})
		}
	}
	if err := db.InsertOrders(ctx, orders...); err != nil {
		t.Fatalf("InsertOrders() error = %v", err)
	}
}

func TestInitRecommendTrainsAndRestores(t *testing.T) {
	if testing.Short() {
		t.Skip("DuckDB-backed test skipped in short mode")
	}

	cfg := testConfig(t)
	db, err := database.New(&cfg.Database)
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	seedOrders(t, db)

	ctx := context.Background()
	logger := logging.NewTestLogger(io.Discard)

	first, err := initRecommend(ctx, cfg, db, logger)
	if err != nil {
		t.Fatalf("initRecommend() error = %v", err)
	}
	if v := first.Engine.CurrentVersion(); v != "" {
		t.Fatalf("fresh engine serves %q, want no model", v)
	}
	if err := first.Engine.Train(ctx); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	trained := first.Engine.CurrentVersion()
	if trained == "" {
		t.Fatal("no version after Train")
	}
	first.Close()

	// A second start restores the snapshot without training.
	second, err := initRecommend(ctx, cfg, db, logger)
	if err != nil {
		t.Fatalf("second initRecommend() error = %v", err)
	}
	defer second.Close()
	if got := second.Engine.CurrentVersion(); got != trained {
		t.Errorf("restored version = %q, want %q", got, trained)
	}

	res, err := second.Engine.Recommend(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if res == nil {
		t.Fatal("Recommend() returned nil result")
	}
}

func TestInitRecommendRejectsUnknownAlgorithm(t *testing.T) {
	cfg := testConfig(t)
	cfg.Recommend.Trainer.Algorithm = "bogus"

	if _, err := initRecommend(context.Background(), cfg, nil, logging.NewTestLogger(io.Discard)); err == nil {
		t.Fatal("initRecommend() with unknown algorithm should fail")
	}
}

func TestRecommendComponentsCloseNil(t *testing.T) {
	var rc *RecommendComponents
	rc.Close()
	(&RecommendComponents{}).Close()
}
