// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

// Package storage persists trained models and per-owner embeddings.
//
// # Model Snapshots
//
// ModelStore writes each published model as a gob-encoded, gzip-compressed
// file with a SHA-256 checksum of the payload:
//
//	filename: model_v{sequence}.gob.gz
//
//	structure:
//	  - Metadata (SnapshotMetadata)
//	  - CompressedData (gzip-compressed gob-encoded model state)
//
// The newest snapshot is loaded at startup so the service can serve before
// its first training run. Only the newest Keep snapshots are retained.
//
// # Embeddings
//
// EmbeddingStore keeps the latest vector of every user and restaurant in
// BadgerDB under embedding/{kind}/{owner_id}, JSON-encoded. It serves
// lookups for owners missing from the in-memory model and drops entries on
// owner deletion.
//
// # Thread Safety
//
// Both stores are safe for concurrent use.
package storage
