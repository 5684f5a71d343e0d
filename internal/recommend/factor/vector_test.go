// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package factor

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestScore(t *testing.T) {
	t.Parallel()

	got, err := Score([]float64{1, 2, 3}, []float64{4, 5, 6})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if got != 32 {
		t.Errorf("Score() = %v, want 32", got)
	}
}

func TestScore_DimensionMismatch(t *testing.T) {
	t.Parallel()

	_, err := Score([]float64{1, 2}, []float64{1, 2, 3})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Score() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{name: "orthogonal", a: []float64{1, 0}, b: []float64{0, 1}, want: 0},
		{name: "identical", a: []float64{1, 0}, b: []float64{1, 0}, want: 1},
		{name: "opposite", a: []float64{1, 1}, b: []float64{-1, -1}, want: -1},
		{name: "scaled", a: []float64{2, 0}, b: []float64{5, 0}, want: 1},
		{name: "zero vector", a: []float64{0, 0}, b: []float64{1, 0}, want: 0},
		{name: "length mismatch", a: []float64{1}, b: []float64{1, 0}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("CosineSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCosineSimilarity_SymmetricAndBounded(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		a := InitVector(rng, 8, 5)
		b := InitVector(rng, 8, 5)

		ab := CosineSimilarity(a, b)
		ba := CosineSimilarity(b, a)
		if ab != ba {
			t.Fatalf("CosineSimilarity not symmetric: %v != %v", ab, ba)
		}
		if ab < -1 || ab > 1 {
			t.Fatalf("CosineSimilarity = %v, outside [-1, 1]", ab)
		}
	}
}

func TestInitVector_Range(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	v := InitVector(rng, 1000, 0)
	if len(v) != 1000 {
		t.Fatalf("len = %d, want 1000", len(v))
	}
	for _, x := range v {
		if x < -DefaultInitScale || x > DefaultInitScale {
			t.Fatalf("value %v outside [-%v, %v]", x, DefaultInitScale, DefaultInitScale)
		}
	}
}

func TestInitVector_Deterministic(t *testing.T) {
	t.Parallel()

	a := InitVector(rand.New(rand.NewSource(42)), 6, 0.1)
	b := InitVector(rand.New(rand.NewSource(42)), 6, 0.1)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("InitVector differs at %d: %v != %v", i, a[i], b[i])
		}
	}
}

func TestMagnitude(t *testing.T) {
	t.Parallel()

	if got := Magnitude([]float64{3, 4}); got != 5 {
		t.Errorf("Magnitude() = %v, want 5", got)
	}
	if got := Magnitude(nil); got != 0 {
		t.Errorf("Magnitude(nil) = %v, want 0", got)
	}
}

func TestIsFinite(t *testing.T) {
	t.Parallel()

	if !IsFinite([]float64{1, -2, 0}) {
		t.Error("IsFinite() = false for finite vector")
	}
	if IsFinite([]float64{1, math.NaN()}) {
		t.Error("IsFinite() = true for NaN component")
	}
	if IsFinite([]float64{math.Inf(1)}) {
		t.Error("IsFinite() = true for Inf component")
	}
}
