// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package recommend

import (
	"context"
	"errors"
	"math"
	"testing"
)

func set(ids ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPrecisionAndRecallAtK(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		recommended   []string
		relevant      map[string]struct{}
		k             int
		wantPrecision float64
		wantRecall    float64
	}{
		{name: "all hits", recommended: []string{"a", "b"}, relevant: set("a", "b"), k: 2, wantPrecision: 1, wantRecall: 1},
		{name: "half hits", recommended: []string{"a", "x"}, relevant: set("a", "b"), k: 2, wantPrecision: 0.5, wantRecall: 0.5},
		{name: "hits beyond k ignored", recommended: []string{"x", "y", "a"}, relevant: set("a"), k: 2, wantPrecision: 0, wantRecall: 0},
		{name: "short list divides by k", recommended: []string{"a"}, relevant: set("a"), k: 4, wantPrecision: 0.25, wantRecall: 1},
		{name: "duplicates count once", recommended: []string{"a", "a"}, relevant: set("a", "b"), k: 2, wantPrecision: 0.5, wantRecall: 0.5},
		{name: "nothing relevant", recommended: []string{"a"}, relevant: set(), k: 1, wantPrecision: 0, wantRecall: 0},
		{name: "zero k", recommended: []string{"a"}, relevant: set("a"), k: 0, wantPrecision: 0, wantRecall: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := PrecisionAtK(tt.recommended, tt.relevant, tt.k); !approx(got, tt.wantPrecision) {
				t.Errorf("PrecisionAtK() = %v, want %v", got, tt.wantPrecision)
			}
			if got := RecallAtK(tt.recommended, tt.relevant, tt.k); !approx(got, tt.wantRecall) {
				t.Errorf("RecallAtK() = %v, want %v", got, tt.wantRecall)
			}
		})
	}
}

func TestRandomBaselinePrecision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		k, total int
		want     float64
	}{
		{k: 10, total: 100, want: 0.1},
		{k: 2, total: 4, want: 0.5},
		{k: 10, total: 5, want: 1},
		{k: 10, total: 0, want: 0},
		{k: 0, total: 10, want: 0},
	}

	for _, tt := range tests {
		if got := RandomBaselinePrecision(tt.k, tt.total); !approx(got, tt.want) {
			t.Errorf("RandomBaselinePrecision(%d, %d) = %v, want %v", tt.k, tt.total, got, tt.want)
		}
	}
}

// evaluationEngine trains one version where u1 has only had d and points at a.
func evaluationEngine(t *testing.T, cfg *Config) *Engine {
	t.Helper()

	dp := &mockDataProvider{
		interactions: []Interaction{
			{UserID: "u1", ItemID: "d", Rating: 1, Timestamp: ts(9)},
		},
	}
	tr := &fakeTrainer{
		users: map[string][]float64{"u1": {1, 0}},
		items: map[string][]float64{
			"a": {1, 0},
			"b": {0.5, 0},
			"c": {0.1, 0},
			"d": {-1, 0},
		},
	}
	e := newTestEngine(t, cfg, dp, tr)
	if err := e.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	e.ApplyStats(StatsUpdate{Users: []UserStats{warmUser("u1")}})
	return e
}

func TestEngine_EvaluateHoldout(t *testing.T) {
	t.Parallel()

	e := evaluationEngine(t, nil)
	heldOut := []Interaction{
		{UserID: "u1", ItemID: "a", Rating: 5, Timestamp: ts(12)},
		{UserID: "u1", ItemID: "c", Rating: 4, Timestamp: ts(13)},
		{UserID: "u1", ItemID: "b", Rating: 2, Timestamp: ts(14)},
	}

	report, err := e.EvaluateHoldout(context.Background(), "", heldOut, 2)
	if err != nil {
		t.Fatalf("EvaluateHoldout() error = %v", err)
	}

	// top-2 is [a b]: a is relevant, b is rated below the threshold, c is missed
	if report.UsersEvaluated != 1 {
		t.Errorf("UsersEvaluated = %d, want 1", report.UsersEvaluated)
	}
	if !approx(report.PrecisionAtK, 0.5) {
		t.Errorf("PrecisionAtK = %v, want 0.5", report.PrecisionAtK)
	}
	if !approx(report.RecallAtK, 0.5) {
		t.Errorf("RecallAtK = %v, want 0.5", report.RecallAtK)
	}
	if report.TotalItems != 4 || !approx(report.RandomBaselinePrecision, 0.5) {
		t.Errorf("baseline = %v over %d items, want 0.5 over 4", report.RandomBaselinePrecision, report.TotalItems)
	}
	if !approx(report.Lift, 1) {
		t.Errorf("Lift = %v, want 1", report.Lift)
	}
	if report.ModelVersion != "1.0" || report.K != 2 || report.HeldOut != 3 {
		t.Errorf("report = %+v", report)
	}
}

func TestEngine_EvaluateHoldout_NoPositives(t *testing.T) {
	t.Parallel()

	e := evaluationEngine(t, nil)
	report, err := e.EvaluateHoldout(context.Background(), "", []Interaction{
		{UserID: "u1", ItemID: "a", Rating: 3},
		{UserID: "u1", ItemID: "b", Rating: 0.2, Implicit: true},
	}, 0)
	if err != nil {
		t.Fatalf("EvaluateHoldout() error = %v", err)
	}
	if report.UsersEvaluated != 0 || report.PrecisionAtK != 0 || report.RecallAtK != 0 {
		t.Errorf("report = %+v, want zero users and scores", report)
	}
	if report.K != DefaultConfig().Evaluation.K {
		t.Errorf("K = %d, want configured default", report.K)
	}
}

func TestEngine_EvaluateHoldout_Errors(t *testing.T) {
	t.Parallel()

	t.Run("no model", func(t *testing.T) {
		t.Parallel()
		e := newTestEngine(t, nil, &mockDataProvider{}, &fakeTrainer{})
		if _, err := e.EvaluateHoldout(context.Background(), "", nil, 5); !errors.Is(err, ErrVersionNotFound) {
			t.Errorf("EvaluateHoldout() error = %v, want ErrVersionNotFound", err)
		}
	})

	t.Run("unknown version", func(t *testing.T) {
		t.Parallel()
		e := evaluationEngine(t, nil)
		if _, err := e.EvaluateHoldout(context.Background(), "9.0", nil, 5); !errors.Is(err, ErrVersionNotFound) {
			t.Errorf("EvaluateHoldout() error = %v, want ErrVersionNotFound", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		e := evaluationEngine(t, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := e.EvaluateHoldout(ctx, "", []Interaction{{UserID: "u1", ItemID: "a", Rating: 5}}, 2)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("EvaluateHoldout() error = %v, want context.Canceled", err)
		}
	})
}

func TestEngine_Evaluate(t *testing.T) {
	t.Parallel()

	t.Run("without holdout", func(t *testing.T) {
		t.Parallel()
		e := evaluationEngine(t, nil)
		if _, err := e.Evaluate(context.Background(), ""); !errors.Is(err, ErrInsufficientData) {
			t.Errorf("Evaluate() error = %v, want ErrInsufficientData", err)
		}
	})

	t.Run("retained holdout", func(t *testing.T) {
		t.Parallel()
		cfg := DefaultConfig()
		cfg.Evaluation.Enabled = true

		dp, tr := rankingFixture()
		e := newTestEngine(t, cfg, dp, tr)
		if err := e.Train(context.Background()); err != nil {
			t.Fatalf("Train() error = %v", err)
		}

		// the latest interaction (u2 rated b 4) is held out and never trained on
		if n := len(tr.last.Interactions); n != 2 {
			t.Errorf("trainer saw %d interactions, want 2", n)
		}

		report, err := e.Evaluate(context.Background(), "")
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if report.HeldOut != 1 || report.UsersEvaluated != 1 || report.ModelVersion != "1.0" {
			t.Errorf("report = %+v", report)
		}
	})
}
