// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/forkcast/internal/recommend"
)

// ModelTrainer is the part of recommend.Engine the training service drives.
type ModelTrainer interface {
	Train(ctx context.Context) error
}

// TrainingServiceConfig holds the retraining schedule.
type TrainingServiceConfig struct {
	// TrainOnStartup trains once when the service starts.
	TrainOnStartup bool

	// TrainInterval between scheduled runs. 0 disables scheduled training.
	TrainInterval time.Duration

	// Timeout bounds a single run. The engine applies its own training
	// timeout inside this one.
	Timeout time.Duration
}

// TrainingService retrains the recommendation model on a schedule.
// Failed runs are logged and retried at the next tick; the previously
// published model keeps serving.
type TrainingService struct {
	trainer ModelTrainer
	config  TrainingServiceConfig
	logger  zerolog.Logger
	name    string
}

// NewTrainingService creates the service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTrainingService(trainer ModelTrainer, cfg TrainingServiceConfig, logger zerolog.Logger) *TrainingService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	return &TrainingService{
		trainer: trainer,
		config:  cfg,
		logger:  logger.With().Str("service", "training").Logger(),
		name:    "training-service",
	}
}

// Serve implements suture.Service.
func (s *TrainingService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("train_on_startup", s.config.TrainOnStartup).
		Dur("train_interval", s.config.TrainInterval).
		Msg("training service starting")

	if s.config.TrainOnStartup {
		s.train(ctx, "startup")
	}

	if s.config.TrainInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.TrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("training service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.train(ctx, "schedule")
		}
	}
}

func (s *TrainingService) train(ctx context.Context, trigger string) {
	trainCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	err := s.trainer.Train(trainCtx)
	switch {
	case err == nil:
	case errors.Is(err, recommend.ErrTrainingInProgress):
		s.logger.Debug().Str("trigger", trigger).Msg("training already running, skipped")
	case errors.Is(err, recommend.ErrInsufficientData):
		s.logger.Info().Str("trigger", trigger).Err(err).Msg("not enough interactions to train yet")
	case ctx.Err() != nil:
		// Shutting down.
	default:
		s.logger.Warn().Str("trigger", trigger).Err(err).Msg("training failed, will retry on schedule")
	}
}

// String implements fmt.Stringer for suture's logs.
func (s *TrainingService) String() string {
	return s.name
}
