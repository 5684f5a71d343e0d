// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/forkcast/internal/recommend"
)

const embeddingPrefix = "embedding/"

// EmbeddingConfig configures the badger-backed embedding store.
type EmbeddingConfig struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path string `koanf:"path"`

	// InMemory keeps everything in memory. Used by tests.
	InMemory bool `koanf:"in_memory"`

	// SyncWrites forces fsync after every write.
	SyncWrites bool `koanf:"sync_writes"`

	// Compression enables snappy block compression.
	Compression bool `koanf:"compression"`
}

// EmbeddingStore keeps the latest vector of every user and restaurant in
// badger, keyed by kind and owner ID. It implements recommend.EmbeddingStore.
type EmbeddingStore struct {
	db     *badger.DB
	logger zerolog.Logger
}

// OpenEmbeddingStore opens (or creates) the store.
func OpenEmbeddingStore(cfg EmbeddingConfig, logger zerolog.Logger) (*EmbeddingStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("embedding store: path is required")
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	if cfg.Compression {
		opts.Compression = options.Snappy
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	s := &EmbeddingStore{
		db:     db,
		logger: logger.With().Str("component", "embedding_store").Logger(),
	}
	s.logger.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Msg("embedding store opened")
	return s, nil
}

// Close flushes and closes the database.
func (s *EmbeddingStore) Close() error {
	return s.db.Close()
}

func embeddingKey(kind recommend.EntityKind, ownerID string) []byte {
	return []byte(embeddingPrefix + string(kind) + "/" + ownerID)
}

// LoadEmbedding returns the stored embedding, or false when there is none.
func (s *EmbeddingStore) LoadEmbedding(ctx context.Context, kind recommend.EntityKind, ownerID string) (recommend.Embedding, bool, error) {
	var emb recommend.Embedding
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(embeddingKey(kind, ownerID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &emb)
		})
	})
	if err != nil {
		return recommend.Embedding{}, false, fmt.Errorf("load embedding %s/%s: %w", kind, ownerID, err)
	}
	return emb, found, nil
}

// SaveEmbedding writes one embedding, replacing any previous one.
func (s *EmbeddingStore) SaveEmbedding(ctx context.Context, emb recommend.Embedding) error {
	if !emb.Kind.Valid() || emb.OwnerID == "" {
		return fmt.Errorf("%w: embedding needs a kind and owner", recommend.ErrInvalidConfiguration)
	}
	data, err := json.Marshal(emb)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(embeddingKey(emb.Kind, emb.OwnerID), data)
	})
}

// SaveModel writes every vector of a model in one batch. Vectors of owners
// absent from the model are left as they are.
func (s *EmbeddingStore) SaveModel(ctx context.Context, model *recommend.Model) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	written := 0
	for _, kind := range []recommend.EntityKind{recommend.KindUser, recommend.KindItem} {
		for _, id := range model.IDs(kind) {
			if err := ctx.Err(); err != nil {
				return err
			}
			vec, _ := model.Vector(kind, id)
			emb := recommend.Embedding{
				OwnerID:          id,
				Kind:             kind,
				Vector:           vec,
				ModelVersion:     model.Version,
				TrainingEpoch:    model.Epochs,
				InteractionCount: model.Count(kind, id),
				UpdatedAt:        model.TrainedAt,
			}
			data, err := json.Marshal(emb)
			if err != nil {
				return fmt.Errorf("marshal embedding %s/%s: %w", kind, id, err)
			}
			if err := wb.Set(embeddingKey(kind, id), data); err != nil {
				return fmt.Errorf("batch set %s/%s: %w", kind, id, err)
			}
			written++
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush embeddings: %w", err)
	}

	s.logger.Debug().
		Str("version", model.Version).
		Int("embeddings", written).
		Msg("model embeddings saved")
	return nil
}

// DeleteEmbedding removes an owner's embedding. Deleting a missing one is not
// an error.
func (s *EmbeddingStore) DeleteEmbedding(ctx context.Context, kind recommend.EntityKind, ownerID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(embeddingKey(kind, ownerID))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete embedding %s/%s: %w", kind, ownerID, err)
	}
	return nil
}

// Count returns how many embeddings of a kind are stored.
func (s *EmbeddingStore) Count(ctx context.Context, kind recommend.EntityKind) (int, error) {
	prefix := []byte(embeddingPrefix + string(kind) + "/")
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Owners returns the stored owner IDs of a kind in key order.
func (s *EmbeddingStore) Owners(ctx context.Context, kind recommend.EntityKind) ([]string, error) {
	prefix := embeddingPrefix + string(kind) + "/"
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), prefix))
		}
		return nil
	})
	return ids, err
}

// RunGC reclaims value log space. Having nothing to collect, or running in
// memory, is not reported.
func (s *EmbeddingStore) RunGC(discardRatio float64) error {
	err := s.db.RunValueLogGC(discardRatio)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrGCInMemoryMode) {
		return err
	}
	return nil
}
