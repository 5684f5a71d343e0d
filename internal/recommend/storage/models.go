// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package storage

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/forkcast/internal/recommend"
)

const snapshotSuffix = ".gob.gz"

// SnapshotMetadata describes one stored model snapshot.
type SnapshotMetadata struct {
	// Version is the model version string, e.g. "3.0".
	Version string `json:"version"`

	// Sequence is the numeric part of Version.
	Sequence int `json:"sequence"`

	Algorithm string    `json:"algorithm"`
	TrainedAt time.Time `json:"trained_at"`
	SavedAt   time.Time `json:"saved_at"`

	Users        int `json:"users"`
	Items        int `json:"items"`
	Interactions int `json:"interactions"`

	// Checksum is the SHA-256 of the uncompressed gob payload.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed payload size.
	SizeBytes int64 `json:"size_bytes"`
}

// storedFile is the on-disk format.
type storedFile struct {
	Metadata       SnapshotMetadata
	CompressedData []byte
}

// modelState is the gob payload. recommend.Model keeps its sorted indexes
// unexported, so they are rebuilt on load.
type modelState struct {
	Version    string
	Algorithm  string
	Factors    int
	Epochs     int
	Seed       int64
	TrainedAt  time.Time
	Users      map[string][]float64
	Items      map[string][]float64
	UserCounts map[string]int
	ItemCounts map[string]int
}

// ModelStore keeps gzip-compressed gob snapshots of whole models on disk,
// one file per version, and prunes all but the newest Keep versions after
// every save. It implements recommend.ModelStore.
type ModelStore struct {
	baseDir string
	keep    int
	mu      sync.RWMutex
}

// NewModelStore creates a store at the given directory. keep < 1 keeps one
// snapshot.
func NewModelStore(baseDir string, keep int) (*ModelStore, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	if keep < 1 {
		keep = 1
	}
	return &ModelStore{baseDir: baseDir, keep: keep}, nil
}

// SaveSnapshot writes a model and prunes old snapshots.
func (s *ModelStore) SaveSnapshot(model *recommend.Model) error {
	seq, err := sequenceOf(model.Version)
	if err != nil {
		return err
	}

	state := modelState{
		Version:    model.Version,
		Algorithm:  model.Algorithm,
		Factors:    model.Factors,
		Epochs:     model.Epochs,
		Seed:       model.Seed,
		TrainedAt:  model.TrainedAt,
		Users:      model.Users,
		Items:      model.Items,
		UserCounts: model.UserCounts,
		ItemCounts: model.ItemCounts,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	raw := buf.Bytes()
	hash := sha256.Sum256(raw)

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw); err != nil {
		return fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	sf := storedFile{
		Metadata: SnapshotMetadata{
			Version:      model.Version,
			Sequence:     seq,
			Algorithm:    model.Algorithm,
			TrainedAt:    model.TrainedAt,
			SavedAt:      time.Now().UTC(),
			Users:        len(model.Users),
			Items:        len(model.Items),
			Interactions: model.InteractionTotal(),
			Checksum:     hex.EncodeToString(hash[:]),
			SizeBytes:    int64(compressed.Len()),
		},
		CompressedData: compressed.Bytes(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// write to a temp file and rename so readers never see a partial snapshot
	final := s.snapshotPath(seq)
	tmp := final + ".tmp"
	f, err := os.Create(tmp) //nolint:gosec // path is built from a parsed integer
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(sf); err != nil {
		_ = f.Close()      //nolint:errcheck // already failing
		_ = os.Remove(tmp) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("write snapshot file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close snapshot file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("rename snapshot file: %w", err)
	}

	return s.pruneLocked(s.keep)
}

// LoadLatestSnapshot returns the newest snapshot, or nil when there is none.
func (s *ModelStore) LoadLatestSnapshot() (*recommend.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seqs, err := s.sequencesLocked()
	if err != nil {
		return nil, err
	}
	if len(seqs) == 0 {
		return nil, nil
	}
	return s.loadLocked(seqs[0])
}

// Load returns the snapshot of a specific version.
func (s *ModelStore) Load(version string) (*recommend.Model, error) {
	seq, err := sequenceOf(version)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLocked(seq)
}

func (s *ModelStore) loadLocked(seq int) (*recommend.Model, error) {
	sf, err := s.readFile(seq)
	if err != nil {
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		return nil, fmt.Errorf("checksum mismatch: expected %s, got %s", sf.Metadata.Checksum, checksum)
	}

	var state modelState
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&state); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}

	m := &recommend.Model{
		Version:    state.Version,
		Algorithm:  state.Algorithm,
		Factors:    state.Factors,
		Epochs:     state.Epochs,
		Seed:       state.Seed,
		TrainedAt:  state.TrainedAt,
		Users:      nonNilVectors(state.Users),
		Items:      nonNilVectors(state.Items),
		UserCounts: nonNilCounts(state.UserCounts),
		ItemCounts: nonNilCounts(state.ItemCounts),
	}
	m.Index()
	return m, nil
}

// List returns metadata of every stored snapshot, newest first.
func (s *ModelStore) List() ([]SnapshotMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seqs, err := s.sequencesLocked()
	if err != nil {
		return nil, err
	}
	out := make([]SnapshotMetadata, 0, len(seqs))
	for _, seq := range seqs {
		sf, err := s.readFile(seq)
		if err != nil {
			continue
		}
		out = append(out, sf.Metadata)
	}
	return out, nil
}

// Prune removes all but the newest keep snapshots.
func (s *ModelStore) Prune(keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(keep)
}

func (s *ModelStore) pruneLocked(keep int) error {
	if keep < 1 {
		keep = 1
	}
	seqs, err := s.sequencesLocked()
	if err != nil {
		return err
	}
	for _, seq := range seqs[min(keep, len(seqs)):] {
		if err := os.Remove(s.snapshotPath(seq)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove snapshot %d: %w", seq, err)
		}
	}
	return nil
}

// sequencesLocked returns the stored sequence numbers, newest first.
func (s *ModelStore) sequencesLocked() ([]int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var seqs []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if seq, ok := parseSnapshotFilename(entry.Name()); ok {
			seqs = append(seqs, seq)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(seqs)))
	return seqs, nil
}

func (s *ModelStore) readFile(seq int) (*storedFile, error) {
	f, err := os.Open(s.snapshotPath(seq)) //nolint:gosec // path is built from a parsed integer
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	return &sf, nil
}

func (s *ModelStore) snapshotPath(seq int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("model_v%d%s", seq, snapshotSuffix))
}

// parseSnapshotFilename extracts the sequence from "model_v{n}.gob.gz".
func parseSnapshotFilename(name string) (int, bool) {
	if !strings.HasPrefix(name, "model_v") || !strings.HasSuffix(name, snapshotSuffix) {
		return 0, false
	}
	seq, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "model_v"), snapshotSuffix))
	if err != nil || seq < 1 {
		return 0, false
	}
	return seq, true
}

// sequenceOf parses a "<n>.0" version string.
func sequenceOf(version string) (int, error) {
	seq, err := strconv.Atoi(strings.TrimSuffix(version, ".0"))
	if err != nil || seq < 1 || !strings.HasSuffix(version, ".0") {
		return 0, fmt.Errorf("%w: malformed model version %q", recommend.ErrVersionNotFound, version)
	}
	return seq, nil
}

func nonNilVectors(m map[string][]float64) map[string][]float64 {
	if m == nil {
		return make(map[string][]float64)
	}
	return m
}

func nonNilCounts(m map[string]int) map[string]int {
	if m == nil {
		return make(map[string]int)
	}
	return m
}
