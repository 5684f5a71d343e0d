// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package database

import (
	"context"
	"errors"
	"fmt"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/forkcast/internal/config"
	"github.com/tomtom215/forkcast/internal/logging"
	"github.com/tomtom215/forkcast/internal/metrics"
	"github.com/tomtom215/forkcast/internal/recommend"
)

// ErrStoreUnavailable is returned while the breaker is open.
var ErrStoreUnavailable = errors.New("interaction store unavailable")

// BreakerProvider wraps a recommend.DataProvider with a circuit breaker so a
// failing store makes training and stats refresh fail fast instead of piling
// up 30-second timeouts. Only connection-level failures and timeouts count
// toward opening the circuit; query errors pass through uncounted.
//
// The breaker uses real time for its interval and timeout. Tests exercise
// the trip logic through breakerSettings rather than sleeping.
type BreakerProvider struct {
	next recommend.DataProvider
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// NewBreakerProvider wraps next. name labels the metrics and log lines.
func NewBreakerProvider(next recommend.DataProvider, cfg config.BreakerConfig, name string) *BreakerProvider {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return &BreakerProvider{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[any](breakerSettings(cfg, name)),
		name: name,
	}
}

func breakerSettings(cfg config.BreakerConfig, name string) gobreaker.Settings {
	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = 1
	}
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= cfg.FailureRatio {
				logging.Warn().
					Str("breaker", name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_ratio", ratio).
					Msg("Opening circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: countsAsSuccess,
	}
}

// countsAsSuccess decides whether err should leave the breaker's failure
// count alone. Cancellation and bad queries say nothing about store health.
func countsAsSuccess(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, context.Canceled):
		return true
	case errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return !isConnectionError(err)
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// State returns the current breaker state.
func (b *BreakerProvider) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerProvider) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	case err != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return result, nil
}

// castResult type-asserts a breaker result.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func (b *BreakerProvider) FetchInteractions(ctx context.Context) ([]recommend.Interaction, error) {
	return castResult[[]recommend.Interaction](b.execute(func() (any, error) {
		return b.next.FetchInteractions(ctx)
	}))
}

func (b *BreakerProvider) FetchEntities(ctx context.Context) (users, items []string, err error) {
	type entities struct{ users, items []string }
	res, err := castResult[entities](b.execute(func() (any, error) {
		u, i, err := b.next.FetchEntities(ctx)
		if err != nil {
			return nil, err
		}
		return entities{u, i}, nil
	}))
	return res.users, res.items, err
}

func (b *BreakerProvider) FetchOrderHistoryByUser(ctx context.Context, userID string) ([]recommend.OrderRecord, error) {
	return castResult[[]recommend.OrderRecord](b.execute(func() (any, error) {
		return b.next.FetchOrderHistoryByUser(ctx, userID)
	}))
}

func (b *BreakerProvider) FetchOrderHistoryByItem(ctx context.Context, itemID string) ([]recommend.OrderRecord, error) {
	return castResult[[]recommend.OrderRecord](b.execute(func() (any, error) {
		return b.next.FetchOrderHistoryByItem(ctx, itemID)
	}))
}

func (b *BreakerProvider) LoadStats(ctx context.Context) (recommend.StatsUpdate, error) {
	return castResult[recommend.StatsUpdate](b.execute(func() (any, error) {
		return b.next.LoadStats(ctx)
	}))
}
