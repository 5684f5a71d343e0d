// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package algorithms

import (
	"context"
	"math"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/forkcast/internal/recommend"
)

// ALS implements Alternating Least Squares for explicit ratings.
//
// Each epoch fixes the item matrix and solves every user row exactly, then
// fixes the user matrix and solves every item row:
//
//	U_u = (sum_{i in I_u} V_i V_i' + lambda*I)^-1 * sum_{i in I_u} r_ui V_i
//
// This minimizes the same objective as SGD, so the loss curves of the two
// trainers are directly comparable. Row solves run concurrently; each row only
// reads the fixed opposite matrix, which keeps the result deterministic.
type ALS struct {
	config recommend.TrainerConfig
}

// entry is one observed rating seen from a row.
type entry struct {
	row int
	r   float64
}

// NewALS creates an ALS trainer. The configuration is validated by Train.
func NewALS(cfg recommend.TrainerConfig) *ALS {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &ALS{config: cfg}
}

// Name returns the algorithm identifier.
func (a *ALS) Name() string {
	return "als"
}

// Train fits a new model using alternating optimization.
//
//nolint:gocritic // in is passed by value to keep the caller's slices untouched
func (a *ALS) Train(ctx context.Context, in recommend.TrainInput) (*recommend.TrainResult, error) {
	if err := checkInput(a.config, in); err != nil {
		return nil, err
	}

	start := time.Now()
	cfg := a.config

	idx := buildIndex(in)
	samples := idx.samples(in.Interactions)
	userCounts, itemCounts := rowCounts(samples, len(idx.users), len(idx.items))

	byUser := make([][]entry, len(idx.users))
	byItem := make([][]entry, len(idx.items))
	for _, s := range samples {
		byUser[s.u] = append(byUser[s.u], entry{row: s.i, r: s.r})
		byItem[s.i] = append(byItem[s.i], entry{row: s.u, r: s.r})
	}

	//nolint:gosec // G404: math/rand is acceptable for ML initialization (not security)
	rng := rand.New(rand.NewSource(cfg.Seed))
	users, items := idx.initFactors(rng, cfg.Factors, cfg.InitScale)

	lambda := cfg.Regularization
	lossCurve := make([]float64, 0, cfg.Iterations)

	for epoch := 0; epoch < cfg.Iterations; epoch++ {
		if ContextCancelled(ctx) {
			return nil, ctx.Err()
		}

		if err := a.solveRows(ctx, users, items, byUser, lambda); err != nil {
			return nil, err
		}
		if err := a.solveRows(ctx, items, users, byItem, lambda); err != nil {
			return nil, err
		}

		loss := regularizedLoss(samples, users, items, userCounts, itemCounts, lambda)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return nil, divergedError(epoch + 1)
		}
		lossCurve = append(lossCurve, loss)

		if in.Progress != nil {
			in.Progress(epoch+1, loss)
		}
	}

	model := buildModel(a.Name(), cfg, in, idx, users, items, userCounts, itemCounts)

	return &recommend.TrainResult{
		Model:     model,
		Duration:  time.Since(start),
		FinalLoss: lossCurve[len(lossCurve)-1],
		LossCurve: lossCurve,
	}, nil
}

// solveRows replaces every target row that has observations with its exact
// least-squares solution against the fixed matrix. Rows without observations
// are left untouched.
func (a *ALS) solveRows(ctx context.Context, target, fixed [][]float64, observed [][]entry, lambda float64) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Workers)

	for row := range target {
		if len(observed[row]) == 0 {
			continue
		}
		g.Go(func() error {
			if ContextCancelled(gctx) {
				return gctx.Err()
			}
			target[row] = solveRow(fixed, observed[row], len(target[row]), lambda)
			return nil
		})
	}

	return g.Wait()
}

// solveRow builds A = sum v v' + lambda*I and b = sum r v, then solves A x = b.
//
//nolint:gocritic // A follows standard linear algebra notation
func solveRow(fixed [][]float64, obs []entry, d int, lambda float64) []float64 {
	A := make([][]float64, d)
	for f := range A {
		A[f] = make([]float64, d)
		A[f][f] = lambda
	}
	b := make([]float64, d)

	for _, o := range obs {
		v := fixed[o.row]
		for f1 := 0; f1 < d; f1++ {
			for f2 := f1; f2 < d; f2++ {
				delta := v[f1] * v[f2]
				A[f1][f2] += delta
				if f1 != f2 {
					A[f2][f1] += delta
				}
			}
			b[f1] += o.r * v[f1]
		}
	}

	return solveLinearSystem(A, b)
}

// solveLinearSystem solves A*x = b using Cholesky decomposition.
// A is symmetric positive definite here because lambda > 0.
//
//nolint:gocritic // A, L follow standard linear algebra notation
func solveLinearSystem(A [][]float64, b []float64) []float64 {
	n := len(b)

	L := make([][]float64, n)
	for i := range L {
		L[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := A[i][j]
			for k := 0; k < j; k++ {
				sum -= L[i][k] * L[j][k]
			}

			if i == j {
				if sum <= 0 {
					sum = 1e-10
				}
				L[i][j] = math.Sqrt(sum)
			} else if L[j][j] != 0 {
				L[i][j] = sum / L[j][j]
			}
		}
	}

	// Forward substitution: L z = b
	z := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := b[i]
		for j := 0; j < i; j++ {
			sum -= L[i][j] * z[j]
		}
		if L[i][i] != 0 {
			z[i] = sum / L[i][i]
		}
	}

	// Back substitution: L' x = z
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := z[i]
		for j := i + 1; j < n; j++ {
			sum -= L[j][i] * x[j]
		}
		if L[i][i] != 0 {
			x[i] = sum / L[i][i]
		}
	}

	return x
}
