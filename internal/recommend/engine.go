// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package recommend

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/forkcast/internal/metrics"
)

// modelVersion is a published model plus what was retained alongside it.
// It is never mutated after publication.
type modelVersion struct {
	model *Model
	seq   int

	finalLoss float64
	duration  time.Duration

	// holdout is the test slice split off before training, if evaluation was enabled.
	holdout []Interaction

	// seen maps a user to the items present in the training set.
	seen map[string]map[string]struct{}
}

// statsSnapshot is an immutable view of the aggregator statistics and the
// tombstones of deleted owners. Writers replace it wholesale.
type statsSnapshot struct {
	// gen increases with every swap. It is part of every result cache key,
	// so a result ranked from an older snapshot never lands under the key
	// of a newer one.
	gen uint64

	users        map[string]UserStats
	items        map[string]ItemStats
	deletedUsers map[string]struct{}
	deletedItems map[string]struct{}
}

func emptyStats() *statsSnapshot {
	return &statsSnapshot{
		users:        map[string]UserStats{},
		items:        map[string]ItemStats{},
		deletedUsers: map[string]struct{}{},
		deletedItems: map[string]struct{}{},
	}
}

func (s *statsSnapshot) deleted(kind EntityKind, id string) bool {
	if kind == KindUser {
		_, ok := s.deletedUsers[id]
		return ok
	}
	_, ok := s.deletedItems[id]
	return ok
}

// clone returns a copy of the next generation whose maps may be written.
func (s *statsSnapshot) clone() *statsSnapshot {
	c := &statsSnapshot{
		gen:          s.gen + 1,
		users:        make(map[string]UserStats, len(s.users)),
		items:        make(map[string]ItemStats, len(s.items)),
		deletedUsers: make(map[string]struct{}, len(s.deletedUsers)),
		deletedItems: make(map[string]struct{}, len(s.deletedItems)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k := range s.deletedUsers {
		c.deletedUsers[k] = struct{}{}
	}
	for k := range s.deletedItems {
		c.deletedItems[k] = struct{}{}
	}
	return c
}

// Engine trains latent factor models and serves rankings from them.
//
// Training runs one at a time behind a try-lock and publishes a new immutable
// model version through an atomic pointer, so ranking calls never block on
// training and never observe a partially written model. The last
// Training.MaxVersions versions stay available for pinning.
//
// The Set* methods wire collaborators and must be called before the engine
// is shared. All other methods are safe for concurrent use.
type Engine struct {
	config *Config
	logger zerolog.Logger

	dataProvider DataProvider
	trainer      Trainer
	cache        ResultCache
	embeddings   EmbeddingStore
	snapshots    ModelStore

	// trainMu is held for the whole of a training run.
	trainMu sync.Mutex

	statusMu sync.RWMutex
	status   TrainingStatus

	current    atomic.Pointer[modelVersion]
	versionsMu sync.RWMutex
	versions   []*modelVersion // oldest first
	lastSeq    int             // written only with trainMu held

	stats   atomic.Pointer[statsSnapshot]
	statsMu sync.Mutex // serializes stats writers
}

// NewEngine creates an engine. A nil config uses DefaultConfig.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &Engine{
		config: cfg.Clone(),
		logger: logger.With().Str("component", "recommend").Logger(),
	}
	e.stats.Store(emptyStats())
	return e, nil
}

// SetDataProvider sets the interaction store.
func (e *Engine) SetDataProvider(dp DataProvider) {
	e.dataProvider = dp
}

// SetTrainer sets the trainer used by Train.
func (e *Engine) SetTrainer(t Trainer) {
	e.trainer = t
}

// SetCache sets the result cache. A nil cache disables caching.
func (e *Engine) SetCache(c ResultCache) {
	e.cache = c
}

// SetEmbeddingStore sets where per-owner embeddings are persisted after training.
func (e *Engine) SetEmbeddingStore(s EmbeddingStore) {
	e.embeddings = s
}

// SetModelStore sets where whole model snapshots are persisted.
func (e *Engine) SetModelStore(s ModelStore) {
	e.snapshots = s
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}

// Train fetches all interactions, fits a new model and publishes it as the
// next version. It returns ErrTrainingInProgress if a run is already active.
func (e *Engine) Train(ctx context.Context) error {
	if !e.trainMu.TryLock() {
		return ErrTrainingInProgress
	}
	defer e.trainMu.Unlock()

	if e.dataProvider == nil {
		return ErrNoDataProvider
	}
	if e.trainer == nil {
		return ErrNoTrainer
	}

	runID := uuid.NewString()
	logger := e.logger.With().
		Str("run_id", runID).
		Str("algorithm", e.trainer.Name()).
		Logger()

	start := time.Now()
	e.setTraining(true)
	logger.Info().Msg("starting model training")

	mv, err := e.train(ctx, logger)
	e.finishTraining(start, mv, err)
	metrics.RecordTraining(e.trainer.Name(), time.Since(start), err)

	if err != nil {
		logger.Error().Err(err).Msg("model training failed")
		return err
	}

	e.publish(mv)
	e.persist(ctx, mv, logger)

	logger.Info().
		Str("version", mv.model.Version).
		Int("users", len(mv.model.Users)).
		Int("items", len(mv.model.Items)).
		Int("holdout", len(mv.holdout)).
		Float64("final_loss", mv.finalLoss).
		Dur("duration", mv.duration).
		Msg("model training complete")

	return nil
}

// train runs one training pass and returns the unpublished version.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (e *Engine) train(ctx context.Context, logger zerolog.Logger) (*modelVersion, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Training.Timeout)
	defer cancel()

	interactions, err := e.dataProvider.FetchInteractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch interactions: %w", err)
	}

	minInteractions := e.config.Training.MinInteractions
	if minInteractions < 1 {
		minInteractions = 1
	}
	if len(interactions) < minInteractions {
		return nil, fmt.Errorf("%w: %d interactions, need %d", ErrInsufficientData, len(interactions), minInteractions)
	}

	users, items, err := e.dataProvider.FetchEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch entities: %w", err)
	}

	trainSet, holdout := interactions, []Interaction(nil)
	if e.config.Evaluation.Enabled {
		trainSet, holdout = SplitInteractions(interactions, e.config.Evaluation.SplitConfig())
	}

	logger.Info().
		Int("interactions", len(interactions)).
		Int("train", len(trainSet)).
		Int("holdout", len(holdout)).
		Int("catalog_users", len(users)).
		Int("catalog_items", len(items)).
		Msg("loaded training data")

	seq := e.lastSeq + 1
	res, err := e.trainer.Train(ctx, TrainInput{
		Interactions: trainSet,
		Users:        users,
		Items:        items,
		Version:      formatVersion(seq),
		Progress: func(epoch int, loss float64) {
			logger.Debug().Int("epoch", epoch).Float64("loss", loss).Msg("training epoch")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}

	return &modelVersion{
		model:     res.Model,
		seq:       seq,
		finalLoss: res.FinalLoss,
		duration:  res.Duration,
		holdout:   holdout,
		seen:      seenItems(trainSet),
	}, nil
}

// publish makes mv the serving version and drops versions beyond MaxVersions.
// It must be called with trainMu held or during startup.
func (e *Engine) publish(mv *modelVersion) {
	e.versionsMu.Lock()
	e.versions = append(e.versions, mv)
	if extra := len(e.versions) - e.config.Training.MaxVersions; extra > 0 {
		e.versions = append([]*modelVersion(nil), e.versions[extra:]...)
	}
	e.lastSeq = mv.seq
	e.versionsMu.Unlock()

	e.current.Store(mv)
	e.clearCache()

	metrics.RecordModelPublished(mv.seq, len(mv.model.Users), len(mv.model.Items), mv.finalLoss)
}

// persist writes the snapshot and embeddings. Failures are logged; the model
// is already serving from memory.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (e *Engine) persist(ctx context.Context, mv *modelVersion, logger zerolog.Logger) {
	if e.snapshots != nil {
		if err := e.snapshots.SaveSnapshot(mv.model); err != nil {
			logger.Warn().Err(err).Msg("failed to save model snapshot")
		}
	}
	if e.embeddings != nil {
		if err := e.embeddings.SaveModel(ctx, mv.model); err != nil {
			logger.Warn().Err(err).Msg("failed to save embeddings")
		}
	}
}

// RestoreLatest loads the newest model snapshot and serves it. It is a no-op
// when no model store is set or the store is empty.
func (e *Engine) RestoreLatest() error {
	if e.snapshots == nil {
		return nil
	}

	e.trainMu.Lock()
	defer e.trainMu.Unlock()

	model, err := e.snapshots.LoadLatestSnapshot()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if model == nil {
		return nil
	}

	seq, err := parseVersion(model.Version)
	if err != nil {
		return fmt.Errorf("snapshot version: %w", err)
	}

	mv := &modelVersion{model: model, seq: seq}
	e.publish(mv)

	e.statusMu.Lock()
	e.status.ModelVersion = model.Version
	e.status.LastTrainedAt = model.TrainedAt
	e.status.UserCount = len(model.Users)
	e.status.ItemCount = len(model.Items)
	e.status.InteractionCount = model.InteractionTotal()
	e.statusMu.Unlock()

	e.logger.Info().
		Str("version", model.Version).
		Int("users", len(model.Users)).
		Int("items", len(model.Items)).
		Msg("restored model snapshot")

	return nil
}

func (e *Engine) setTraining(active bool) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.status.IsTraining = active
	if active {
		e.status.LastError = ""
	}
}

func (e *Engine) finishTraining(start time.Time, mv *modelVersion, err error) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	e.status.IsTraining = false
	e.status.LastTrainingDurationMS = time.Since(start).Milliseconds()
	if err != nil {
		e.status.LastError = err.Error()
		return
	}

	e.status.LastTrainedAt = mv.model.TrainedAt
	e.status.ModelVersion = mv.model.Version
	e.status.InteractionCount = mv.model.InteractionTotal()
	e.status.UserCount = len(mv.model.Users)
	e.status.ItemCount = len(mv.model.Items)
	e.status.FinalLoss = mv.finalLoss
}

// Status returns the training state.
func (e *Engine) Status() TrainingStatus {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	return e.status
}

// CurrentVersion returns the serving model version, or "" before the first
// successful training run.
func (e *Engine) CurrentVersion() string {
	if mv := e.current.Load(); mv != nil {
		return mv.model.Version
	}
	return ""
}

// Models describes the retained versions, newest first.
func (e *Engine) Models() []ModelInfo {
	current := e.current.Load()

	e.versionsMu.RLock()
	defer e.versionsMu.RUnlock()

	out := make([]ModelInfo, 0, len(e.versions))
	for i := len(e.versions) - 1; i >= 0; i-- {
		mv := e.versions[i]
		m := mv.model
		out = append(out, ModelInfo{
			Version:      m.Version,
			Algorithm:    m.Algorithm,
			Factors:      m.Factors,
			Epochs:       m.Epochs,
			TrainedAt:    m.TrainedAt,
			Users:        len(m.Users),
			Items:        len(m.Items),
			Interactions: m.InteractionTotal(),
			FinalLoss:    mv.finalLoss,
			DurationMS:   mv.duration.Milliseconds(),
			HoldoutSize:  len(mv.holdout),
			Current:      mv == current,
		})
	}
	return out
}

// version returns a retained version, or the current one for "".
func (e *Engine) version(v string) (*modelVersion, error) {
	if v == "" {
		if mv := e.current.Load(); mv != nil {
			return mv, nil
		}
		return nil, fmt.Errorf("%w: no model trained", ErrVersionNotFound)
	}

	e.versionsMu.RLock()
	defer e.versionsMu.RUnlock()
	for _, mv := range e.versions {
		if mv.model.Version == v {
			return mv, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, v)
}

// Model returns the model of a retained version, or the current one for "".
func (e *Engine) Model(version string) (*Model, error) {
	mv, err := e.version(version)
	if err != nil {
		return nil, err
	}
	return mv.model, nil
}

// ApplyStats merges aggregator statistics into the stats snapshot. Vectors
// are untouched. Statistics for deleted owners are ignored.
func (e *Engine) ApplyStats(update StatsUpdate) {
	if update.Empty() {
		return
	}

	e.statsMu.Lock()
	next := e.stats.Load().clone()
	for _, u := range update.Users {
		if _, gone := next.deletedUsers[u.UserID]; !gone {
			next.users[u.UserID] = u
		}
	}
	for _, it := range update.Items {
		if _, gone := next.deletedItems[it.ItemID]; !gone {
			next.items[it.ItemID] = it
		}
	}
	e.stats.Store(next)
	e.statsMu.Unlock()

	e.clearCache()

	e.logger.Debug().
		Int("users", len(update.Users)).
		Int("items", len(update.Items)).
		Msg("applied stats update")
}

// LoadStats reads the persisted statistics through the data provider and
// applies them.
func (e *Engine) LoadStats(ctx context.Context) error {
	if e.dataProvider == nil {
		return ErrNoDataProvider
	}
	update, err := e.dataProvider.LoadStats(ctx)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}
	e.ApplyStats(update)
	e.logger.Info().
		Int("users", len(update.Users)).
		Int("items", len(update.Items)).
		Msg("loaded persisted stats")
	return nil
}

// HandleEntityDeleted logically deletes an owner. Ranking never returns it
// again and its persisted embedding is removed.
func (e *Engine) HandleEntityDeleted(ctx context.Context, kind EntityKind, id string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: entity kind %q", ErrInvalidConfiguration, kind)
	}

	e.statsMu.Lock()
	next := e.stats.Load().clone()
	if kind == KindUser {
		next.deletedUsers[id] = struct{}{}
		delete(next.users, id)
	} else {
		next.deletedItems[id] = struct{}{}
		delete(next.items, id)
	}
	e.stats.Store(next)
	e.statsMu.Unlock()

	e.clearCache()

	e.logger.Info().Str("kind", string(kind)).Str("owner_id", id).Msg("entity deleted")

	if e.embeddings != nil {
		if err := e.embeddings.DeleteEmbedding(ctx, kind, id); err != nil {
			return fmt.Errorf("delete embedding %s/%s: %w", kind, id, err)
		}
	}
	return nil
}

// Embedding returns the merged view of an owner in the current model: its
// vector plus the latest statistics. It returns ErrEntityNotFound when the
// owner is unknown or deleted.
func (e *Engine) Embedding(ctx context.Context, kind EntityKind, id string) (Embedding, error) {
	snap := e.stats.Load()
	if snap.deleted(kind, id) {
		return Embedding{}, fmt.Errorf("%w: %s/%s", ErrEntityNotFound, kind, id)
	}

	if mv := e.current.Load(); mv != nil {
		if emb, ok := e.embedding(mv, snap, kind, id); ok {
			return emb, nil
		}
	}

	if e.embeddings != nil {
		emb, ok, err := e.embeddings.LoadEmbedding(ctx, kind, id)
		if err != nil {
			return Embedding{}, fmt.Errorf("load embedding: %w", err)
		}
		if ok {
			return emb, nil
		}
	}

	return Embedding{}, fmt.Errorf("%w: %s/%s", ErrEntityNotFound, kind, id)
}

// embedding assembles an owner's view from a model and a stats snapshot.
// Vector slices are shared with the model and must not be modified.
func (e *Engine) embedding(mv *modelVersion, snap *statsSnapshot, kind EntityKind, id string) (Embedding, bool) {
	vec, ok := mv.model.Vector(kind, id)
	if !ok {
		return Embedding{}, false
	}

	emb := Embedding{
		OwnerID:          id,
		Kind:             kind,
		Vector:           vec,
		ModelVersion:     mv.model.Version,
		TrainingEpoch:    mv.model.Epochs,
		InteractionCount: mv.model.Count(kind, id),
		UpdatedAt:        mv.model.TrainedAt,
	}

	if kind == KindUser {
		if s, ok := snap.users[id]; ok {
			emb.InteractionCount = s.InteractionCount
			emb.AverageRating = s.AverageRating
			emb.ColdStartScore = s.ColdStartScore
			prefs := s.Preferences
			emb.Preferences = &prefs
			emb.UpdatedAt = s.UpdatedAt
		} else {
			emb.ColdStartScore = coldStart(emb.InteractionCount, e.config.Stats.UserColdStartK)
		}
		return emb, true
	}

	if s, ok := snap.items[id]; ok {
		emb.InteractionCount = s.TotalOrders
		emb.AverageRating = s.AverageRating
		emb.ColdStartScore = s.ColdStartScore
		features := s.Features
		emb.Features = &features
		emb.UpdatedAt = s.UpdatedAt
	} else {
		emb.ColdStartScore = coldStart(emb.InteractionCount, e.config.Stats.ItemColdStartK)
	}
	return emb, true
}

// coldStart is max(0, 1 - n/k).
func coldStart(n, k int) float64 {
	if k <= 0 {
		return 0
	}
	s := 1 - float64(n)/float64(k)
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

func (e *Engine) clearCache() {
	if e.cache != nil {
		e.cache.Clear()
	}
}

// seenItems indexes the training set by user.
func seenItems(interactions []Interaction) map[string]map[string]struct{} {
	seen := make(map[string]map[string]struct{})
	for _, in := range interactions {
		items, ok := seen[in.UserID]
		if !ok {
			items = make(map[string]struct{})
			seen[in.UserID] = items
		}
		items[in.ItemID] = struct{}{}
	}
	return seen
}

func formatVersion(seq int) string {
	return strconv.Itoa(seq) + ".0"
}

// parseVersion extracts n from "<n>.0".
func parseVersion(v string) (int, error) {
	head, _, _ := strings.Cut(v, ".")
	n, err := strconv.Atoi(head)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("malformed model version %q", v)
	}
	return n, nil
}
