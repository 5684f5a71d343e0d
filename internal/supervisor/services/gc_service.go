// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ValueLogCollector reclaims badger value log space.
// *storage.EmbeddingStore implements it.
type ValueLogCollector interface {
	RunGC(discardRatio float64) error
}

// EmbeddingGCService runs badger value log GC on an interval. Every
// retraining rewrites all embeddings, so the log grows quickly without it.
type EmbeddingGCService struct {
	collector ValueLogCollector
	interval  time.Duration
	ratio     float64
	logger    zerolog.Logger
	name      string
}

// NewEmbeddingGCService creates the service. ratio outside (0, 1) becomes 0.5.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEmbeddingGCService(collector ValueLogCollector, interval time.Duration, ratio float64, logger zerolog.Logger) *EmbeddingGCService {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}
	return &EmbeddingGCService{
		collector: collector,
		interval:  interval,
		ratio:     ratio,
		logger:    logger.With().Str("service", "embedding-gc").Logger(),
		name:      "embedding-gc-service",
	}
}

// Serve implements suture.Service.
func (s *EmbeddingGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.collector.RunGC(s.ratio); err != nil {
				s.logger.Warn().Err(err).Msg("value log GC failed")
				continue
			}
			s.logger.Debug().Dur("duration", time.Since(start)).Msg("value log GC finished")
		}
	}
}

// String implements fmt.Stringer for suture's logs.
func (s *EmbeddingGCService) String() string {
	return s.name
}
