// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

// Package factor holds the vector math of the latent factor model.
//
// Everything here is a pure function over caller-supplied slices. Nothing is
// cached or stored; derived values such as a vector's magnitude are recomputed
// on demand. Persistence of vectors is the storage package's job.
package factor

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// DefaultInitScale bounds the uniform initialization range [-scale, scale].
const DefaultInitScale = 0.1

// ErrDimensionMismatch is returned when two vectors of different length are combined.
// It indicates embeddings from incompatible model generations were mixed.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// Dot returns the dot product of a and b over their common prefix.
// Callers that need a length check should use Score.
func Dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Score returns the predicted affinity between a user and an item vector.
// Higher means stronger predicted affinity.
func Score(user, item []float64) (float64, error) {
	if len(user) != len(item) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(user), len(item))
	}
	return Dot(user, item), nil
}

// CosineSimilarity returns the normalized dot product of a and b in [-1, 1].
// Zero-magnitude vectors and vectors of different length yield 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	// Rounding can push the quotient a hair past the unit interval.
	switch {
	case sim > 1:
		return 1
	case sim < -1:
		return -1
	case math.IsNaN(sim):
		return 0
	}
	return sim
}

// Magnitude returns the Euclidean norm of v.
func Magnitude(v []float64) float64 {
	return math.Sqrt(SquaredNorm(v))
}

// SquaredNorm returns the sum of squares of v.
func SquaredNorm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return sum
}

// InitVector returns a vector of length d with values drawn uniformly from
// [-scale, scale]. A non-positive scale falls back to DefaultInitScale.
func InitVector(rng *rand.Rand, d int, scale float64) []float64 {
	if scale <= 0 {
		scale = DefaultInitScale
	}

	v := make([]float64, d)
	for i := range v {
		v[i] = (rng.Float64()*2 - 1) * scale
	}
	return v
}

// Clone returns a copy of v.
func Clone(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// IsFinite reports whether every component of v is a finite number.
func IsFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
