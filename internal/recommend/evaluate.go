// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/forkcast/internal/metrics"
)

// PrecisionAtK is |recommended ∩ relevant| / k. Only the first k
// recommendations count. It is 0 for k <= 0.
func PrecisionAtK(recommended []string, relevant map[string]struct{}, k int) float64 {
	if k <= 0 {
		return 0
	}
	return float64(hits(recommended, relevant, k)) / float64(k)
}

// RecallAtK is |recommended ∩ relevant| / |relevant|. It is 0 when nothing
// is relevant.
func RecallAtK(recommended []string, relevant map[string]struct{}, k int) float64 {
	if len(relevant) == 0 || k <= 0 {
		return 0
	}
	return float64(hits(recommended, relevant, k)) / float64(len(relevant))
}

// RandomBaselinePrecision is the expected precision@K of uniformly random
// recommendations, k / totalItems capped at 1. It is 0 for an empty catalog.
func RandomBaselinePrecision(k, totalItems int) float64 {
	if totalItems <= 0 || k <= 0 {
		return 0
	}
	if k >= totalItems {
		return 1
	}
	return float64(k) / float64(totalItems)
}

func hits(recommended []string, relevant map[string]struct{}, k int) int {
	if len(recommended) > k {
		recommended = recommended[:k]
	}
	n := 0
	seen := make(map[string]struct{}, len(recommended))
	for _, id := range recommended {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := relevant[id]; ok {
			n++
		}
	}
	return n
}

// Evaluate measures a retained version against the holdout split off when it
// was trained, at Evaluation.K. An empty version means the serving one.
func (e *Engine) Evaluate(ctx context.Context, version string) (*EvaluationReport, error) {
	mv, err := e.version(version)
	if err != nil {
		return nil, err
	}
	if mv.holdout == nil {
		return nil, fmt.Errorf("%w: no holdout retained for version %s", ErrInsufficientData, mv.model.Version)
	}
	return e.evaluate(ctx, mv, mv.holdout, e.config.Evaluation.K)
}

// EvaluateHoldout measures a retained version against a supplied set of
// interactions the model was not trained on. k <= 0 uses Evaluation.K.
func (e *Engine) EvaluateHoldout(ctx context.Context, version string, heldOut []Interaction, k int) (*EvaluationReport, error) {
	mv, err := e.version(version)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = e.config.Evaluation.K
	}
	return e.evaluate(ctx, mv, heldOut, k)
}

// evaluate averages precision@K and recall@K over users with at least one
// held-out positive. Each user's top-K comes from the ranking path with the
// items the user already had in training removed.
func (e *Engine) evaluate(ctx context.Context, mv *modelVersion, heldOut []Interaction, k int) (*EvaluationReport, error) {
	start := time.Now()
	threshold := e.config.Evaluation.PositiveThreshold

	positives := make(map[string]map[string]struct{})
	for _, in := range heldOut {
		if !in.IsPositive(threshold) {
			continue
		}
		set, ok := positives[in.UserID]
		if !ok {
			set = make(map[string]struct{})
			positives[in.UserID] = set
		}
		set[in.ItemID] = struct{}{}
	}

	users := make([]string, 0, len(positives))
	for u := range positives {
		users = append(users, u)
	}
	sort.Strings(users)

	snap := e.stats.Load()
	var sumPrecision, sumRecall float64
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res := e.rank(mv, snap, u, k, mv.seen[u])
		ids := make([]string, len(res.Items))
		for i, it := range res.Items {
			ids[i] = it.ID
		}

		sumPrecision += PrecisionAtK(ids, positives[u], k)
		sumRecall += RecallAtK(ids, positives[u], k)
	}

	report := &EvaluationReport{
		ModelVersion:   mv.model.Version,
		K:              k,
		UsersEvaluated: len(users),
		HeldOut:        len(heldOut),
		TotalItems:     len(mv.model.IDs(KindItem)),
	}
	if len(users) > 0 {
		report.PrecisionAtK = sumPrecision / float64(len(users))
		report.RecallAtK = sumRecall / float64(len(users))
	}
	report.RandomBaselinePrecision = RandomBaselinePrecision(k, report.TotalItems)
	if report.RandomBaselinePrecision > 0 {
		report.Lift = report.PrecisionAtK / report.RandomBaselinePrecision
	}

	metrics.RecordEvaluation(report.ModelVersion, report.PrecisionAtK, report.RecallAtK)

	e.logger.Info().
		Str("version", report.ModelVersion).
		Int("k", k).
		Int("users_evaluated", report.UsersEvaluated).
		Float64("precision_at_k", report.PrecisionAtK).
		Float64("recall_at_k", report.RecallAtK).
		Float64("lift", report.Lift).
		Dur("duration", time.Since(start)).
		Msg("evaluation complete")

	return report, nil
}
