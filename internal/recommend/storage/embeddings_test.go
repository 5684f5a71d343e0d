// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/forkcast/internal/recommend"
)

func openTestEmbeddings(t *testing.T) *EmbeddingStore {
	t.Helper()
	s, err := OpenEmbeddingStore(EmbeddingConfig{InMemory: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenEmbeddingStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenEmbeddingStore_RequiresPath(t *testing.T) {
	t.Parallel()
	if _, err := OpenEmbeddingStore(EmbeddingConfig{}, zerolog.Nop()); err == nil {
		t.Error("OpenEmbeddingStore() without path succeeded")
	}
}

func TestOpenEmbeddingStore_OnDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenEmbeddingStore(EmbeddingConfig{Path: dir, Compression: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenEmbeddingStore() error = %v", err)
	}
	emb := recommend.Embedding{OwnerID: "u1", Kind: recommend.KindUser, Vector: []float64{1, 2}, ModelVersion: "1.0"}
	if err := s.SaveEmbedding(ctx, emb); err != nil {
		t.Fatalf("SaveEmbedding() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := OpenEmbeddingStore(EmbeddingConfig{Path: dir, Compression: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer func() { _ = reopened.Close() }()

	got, ok, err := reopened.LoadEmbedding(ctx, recommend.KindUser, "u1")
	if err != nil || !ok || got.Vector[1] != 2 {
		t.Errorf("LoadEmbedding() after reopen = %+v, %v, %v", got, ok, err)
	}
}

func TestEmbeddingStore_SaveLoadDelete(t *testing.T) {
	t.Parallel()

	s := openTestEmbeddings(t)
	ctx := context.Background()

	if _, ok, err := s.LoadEmbedding(ctx, recommend.KindItem, "missing"); err != nil || ok {
		t.Fatalf("LoadEmbedding(missing) = %v, %v", ok, err)
	}

	emb := recommend.Embedding{
		OwnerID:          "r1",
		Kind:             recommend.KindItem,
		Vector:           []float64{0.25, -0.5},
		ModelVersion:     "2.0",
		TrainingEpoch:    100,
		InteractionCount: 7,
		Features:         &recommend.ItemFeatures{Cuisine: "thai", PeakBuckets: []recommend.TimeBucket{recommend.BucketEvening}},
	}
	if err := s.SaveEmbedding(ctx, emb); err != nil {
		t.Fatalf("SaveEmbedding() error = %v", err)
	}

	got, ok, err := s.LoadEmbedding(ctx, recommend.KindItem, "r1")
	if err != nil || !ok {
		t.Fatalf("LoadEmbedding() = %v, %v", ok, err)
	}
	if got.ModelVersion != "2.0" || got.InteractionCount != 7 || got.Vector[1] != -0.5 {
		t.Errorf("LoadEmbedding() = %+v", got)
	}
	if got.Features == nil || got.Features.Cuisine != "thai" {
		t.Errorf("Features = %+v", got.Features)
	}

	// same ID, other kind
	if _, ok, _ := s.LoadEmbedding(ctx, recommend.KindUser, "r1"); ok {
		t.Error("user lookup found a restaurant embedding")
	}

	if err := s.DeleteEmbedding(ctx, recommend.KindItem, "r1"); err != nil {
		t.Fatalf("DeleteEmbedding() error = %v", err)
	}
	if _, ok, _ := s.LoadEmbedding(ctx, recommend.KindItem, "r1"); ok {
		t.Error("embedding still present after delete")
	}
	if err := s.DeleteEmbedding(ctx, recommend.KindItem, "never-existed"); err != nil {
		t.Errorf("DeleteEmbedding(missing) error = %v", err)
	}
}

func TestEmbeddingStore_SaveEmbeddingValidation(t *testing.T) {
	t.Parallel()

	s := openTestEmbeddings(t)
	for _, emb := range []recommend.Embedding{
		{OwnerID: "x"},
		{Kind: recommend.KindUser},
	} {
		if err := s.SaveEmbedding(context.Background(), emb); !errors.Is(err, recommend.ErrInvalidConfiguration) {
			t.Errorf("SaveEmbedding(%+v) error = %v", emb, err)
		}
	}
}

func TestEmbeddingStore_SaveModel(t *testing.T) {
	t.Parallel()

	s := openTestEmbeddings(t)
	ctx := context.Background()

	if err := s.SaveModel(ctx, testModel(1)); err != nil {
		t.Fatalf("SaveModel() error = %v", err)
	}

	if n, err := s.Count(ctx, recommend.KindUser); err != nil || n != 2 {
		t.Errorf("Count(user) = %d, %v; want 2", n, err)
	}
	if n, err := s.Count(ctx, recommend.KindItem); err != nil || n != 3 {
		t.Errorf("Count(item) = %d, %v; want 3", n, err)
	}

	owners, err := s.Owners(ctx, recommend.KindItem)
	if err != nil || len(owners) != 3 || owners[0] != "r1" || owners[2] != "r3" {
		t.Errorf("Owners(item) = %v, %v", owners, err)
	}

	got, ok, err := s.LoadEmbedding(ctx, recommend.KindUser, "u1")
	if err != nil || !ok {
		t.Fatalf("LoadEmbedding(u1) = %v, %v", ok, err)
	}
	if got.ModelVersion != "1.0" || got.TrainingEpoch != 100 || got.InteractionCount != 2 || got.Kind != recommend.KindUser {
		t.Errorf("u1 = %+v", got)
	}

	// a newer model replaces vectors wholesale
	next := testModel(2)
	next.Users["u1"] = []float64{9, 9}
	next.Index()
	if err := s.SaveModel(ctx, next); err != nil {
		t.Fatalf("SaveModel(2) error = %v", err)
	}
	got, _, _ = s.LoadEmbedding(ctx, recommend.KindUser, "u1")
	if got.ModelVersion != "2.0" || got.Vector[0] != 9 {
		t.Errorf("u1 after retrain = %+v", got)
	}

	if err := s.RunGC(0.5); err != nil {
		t.Errorf("RunGC() error = %v", err)
	}
}
