// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package feedback

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/forkcast/internal/metrics"
	"github.com/tomtom215/forkcast/internal/recommend"
)

// ErrNoOrderSource is returned when Refresh runs without an order source.
var ErrNoOrderSource = errors.New("feedback: no order source configured")

// OrderSource supplies order history. recommend.DataProvider satisfies it.
type OrderSource interface {
	FetchOrderHistoryByUser(ctx context.Context, userID string) ([]recommend.OrderRecord, error)
	FetchOrderHistoryByItem(ctx context.Context, itemID string) ([]recommend.OrderRecord, error)
}

// StatsWriter persists computed statistics.
type StatsWriter interface {
	SaveStats(ctx context.Context, update recommend.StatsUpdate) error
}

// InteractionWriter appends interactions derived from feedback.
type InteractionWriter interface {
	AppendInteractions(ctx context.Context, interactions []recommend.Interaction) error
}

// Aggregator keeps user and restaurant statistics current between training
// runs. Computation is delegated to the pure Compute functions; the
// aggregator only moves data between the source, the writers and the caller.
type Aggregator struct {
	source       OrderSource
	stats        StatsWriter
	interactions InteractionWriter
	cfg          recommend.StatsConfig
	weights      WeightConfig
	logger       zerolog.Logger
	now          func() time.Time

	mu         sync.Mutex
	dirtyUsers map[string]struct{}
	dirtyItems map[string]struct{}
}

// NewAggregator creates an aggregator. stats and interactions may be nil, in
// which case nothing is persisted for that concern.
func NewAggregator(source OrderSource, stats StatsWriter, interactions InteractionWriter, cfg recommend.StatsConfig, weights WeightConfig, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		source:       source,
		stats:        stats,
		interactions: interactions,
		cfg:          cfg,
		weights:      weights,
		logger:       logger.With().Str("component", "feedback").Logger(),
		now:          time.Now,
		dirtyUsers:   make(map[string]struct{}),
		dirtyItems:   make(map[string]struct{}),
	}
}

// Refresh recomputes statistics for the given users and restaurants, persists
// them and returns the update for the engine to apply.
func (a *Aggregator) Refresh(ctx context.Context, users, items []string) (recommend.StatsUpdate, error) {
	if a.source == nil {
		return recommend.StatsUpdate{}, ErrNoOrderSource
	}

	now := a.now().UTC()
	update := recommend.StatsUpdate{
		Users: make([]recommend.UserStats, 0, len(users)),
		Items: make([]recommend.ItemStats, 0, len(items)),
	}

	for _, id := range users {
		if err := ctx.Err(); err != nil {
			return recommend.StatsUpdate{}, err
		}
		orders, err := a.source.FetchOrderHistoryByUser(ctx, id)
		if err != nil {
			return recommend.StatsUpdate{}, fmt.Errorf("fetch orders for user %s: %w", id, err)
		}
		s := ComputeUserStats(id, orders, a.cfg)
		s.UpdatedAt = now
		update.Users = append(update.Users, s)
	}

	for _, id := range items {
		if err := ctx.Err(); err != nil {
			return recommend.StatsUpdate{}, err
		}
		orders, err := a.source.FetchOrderHistoryByItem(ctx, id)
		if err != nil {
			return recommend.StatsUpdate{}, fmt.Errorf("fetch orders for restaurant %s: %w", id, err)
		}
		s := ComputeItemStats(id, orders, a.cfg)
		s.UpdatedAt = now
		update.Items = append(update.Items, s)
	}

	if a.stats != nil && !update.Empty() {
		if err := a.stats.SaveStats(ctx, update); err != nil {
			return recommend.StatsUpdate{}, fmt.Errorf("save stats: %w", err)
		}
	}

	metrics.RecordStatsRefresh(len(update.Users), len(update.Items))
	a.logger.Debug().
		Int("users", len(update.Users)).
		Int("items", len(update.Items)).
		Msg("statistics refreshed")

	return update, nil
}

// Record turns served-recommendation feedback into interactions, appends
// them, and marks every touched user and restaurant for the next Flush.
// It returns how many records carried a signal.
func (a *Aggregator) Record(ctx context.Context, records []recommend.RecommendationRecord) (int, error) {
	derived := InteractionWeights(records, a.weights)
	metrics.RecordFeedback("skipped", len(records)-len(derived))
	if len(derived) == 0 {
		return 0, nil
	}

	if a.interactions != nil {
		if err := a.interactions.AppendInteractions(ctx, derived); err != nil {
			metrics.RecordFeedback("failed", len(derived))
			return 0, fmt.Errorf("append interactions: %w", err)
		}
	}

	a.mu.Lock()
	for _, in := range derived {
		a.dirtyUsers[in.UserID] = struct{}{}
		a.dirtyItems[in.ItemID] = struct{}{}
	}
	dirty := len(a.dirtyUsers) + len(a.dirtyItems)
	a.mu.Unlock()

	metrics.RecordFeedback("accepted", len(derived))
	metrics.StatsDirtyEntities.Set(float64(dirty))

	return len(derived), nil
}

// Pending returns how many users and restaurants wait for a flush.
func (a *Aggregator) Pending() (users, items int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.dirtyUsers), len(a.dirtyItems)
}

// Flush refreshes everything marked dirty by Record. On failure the IDs stay
// dirty and are retried on the next call.
func (a *Aggregator) Flush(ctx context.Context) (recommend.StatsUpdate, error) {
	a.mu.Lock()
	users, items := a.dirtyUsers, a.dirtyItems
	a.dirtyUsers = make(map[string]struct{})
	a.dirtyItems = make(map[string]struct{})
	a.mu.Unlock()

	if len(users) == 0 && len(items) == 0 {
		return recommend.StatsUpdate{}, nil
	}

	update, err := a.Refresh(ctx, sortedKeys(users), sortedKeys(items))
	if err != nil {
		a.mu.Lock()
		for id := range users {
			a.dirtyUsers[id] = struct{}{}
		}
		for id := range items {
			a.dirtyItems[id] = struct{}{}
		}
		a.mu.Unlock()
		return recommend.StatsUpdate{}, err
	}

	u, i := a.Pending()
	metrics.StatsDirtyEntities.Set(float64(u + i))

	return update, nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
