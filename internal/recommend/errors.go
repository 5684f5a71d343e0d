// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package recommend

import (
	"errors"

	"github.com/tomtom215/forkcast/internal/recommend/factor"
)

// Sentinel errors. Wrap with fmt.Errorf("...: %w", err) and test with errors.Is.
var (
	// ErrInvalidConfiguration reports bad hyperparameters or limits.
	// It is returned before any computation starts.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInsufficientData reports an empty or too sparse interaction set.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDimensionMismatch reports vectors of different length being compared.
	ErrDimensionMismatch = factor.ErrDimensionMismatch

	// ErrEntityNotFound reports an owner without an embedding. Ranking never
	// surfaces it; it degrades to the popularity fallback instead.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrTrainingInProgress is returned when Train is called while a run is active.
	ErrTrainingInProgress = errors.New("training already in progress")

	// ErrNoDataProvider is returned when Train is called before SetDataProvider.
	ErrNoDataProvider = errors.New("data provider not set")

	// ErrNoTrainer is returned when Train is called before SetTrainer.
	ErrNoTrainer = errors.New("trainer not set")

	// ErrVersionNotFound is returned for a model version that is not retained.
	ErrVersionNotFound = errors.New("model version not found")
)
