// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/forkcast/internal/logging"
	"github.com/tomtom215/forkcast/internal/recommend"
)

// StatsFlusher recomputes statistics for owners that received feedback.
// *feedback.Aggregator implements it.
type StatsFlusher interface {
	Flush(ctx context.Context) (recommend.StatsUpdate, error)
}

// StatsApplier publishes refreshed statistics to the serving path.
// *recommend.Engine implements it.
type StatsApplier interface {
	ApplyStats(update recommend.StatsUpdate)
}

// finalFlushTimeout bounds the flush run on shutdown.
const finalFlushTimeout = 10 * time.Second

// StatsFlushService periodically flushes dirty statistics and hands the
// result to the engine. It flushes once more on shutdown so accepted
// feedback is not left unapplied.
type StatsFlushService struct {
	flusher  StatsFlusher
	applier  StatsApplier
	interval time.Duration
	events   *logging.EventLogger
	logger   zerolog.Logger
	name     string
}

// NewStatsFlushService creates the service. A non-positive interval
// defaults to one minute.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStatsFlushService(flusher StatsFlusher, applier StatsApplier, interval time.Duration, logger zerolog.Logger) *StatsFlushService {
	if interval <= 0 {
		interval = time.Minute
	}
	logger = logger.With().Str("service", "stats-flush").Logger()
	return &StatsFlushService{
		flusher:  flusher,
		applier:  applier,
		interval: interval,
		events:   logging.NewEventLoggerWithLogger(logger),
		logger:   logger,
		name:     "stats-flush-service",
	}
}

// Serve implements suture.Service.
func (s *StatsFlushService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
			s.flush(flushCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			s.flush(ctx)
		}
	}
}

func (s *StatsFlushService) flush(ctx context.Context) {
	start := time.Now()
	update, err := s.flusher.Flush(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("statistics flush failed, owners stay dirty")
		return
	}
	if update.Empty() {
		return
	}
	s.applier.ApplyStats(update)
	s.events.LogBatchFlush(ctx, len(update.Users)+len(update.Items), time.Since(start))
}

// String implements fmt.Stringer for suture's logs.
func (s *StatsFlushService) String() string {
	return s.name
}
