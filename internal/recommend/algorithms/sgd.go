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

	"github.com/tomtom215/forkcast/internal/recommend"
	"github.com/tomtom215/forkcast/internal/recommend/factor"
)

// SGD implements gradient-descent matrix factorization with L2 regularization.
//
// For every observed interaction (u, i, r) in an epoch:
//
//	e   = r - U_u . V_i
//	U_u += lr * (e * V_i - lambda * U_u)
//	V_i += lr * (e * U_u - lambda * V_i)
//
// Both updates read the pre-update vectors. Interactions are visited in an
// order shuffled by the seeded RNG each epoch, so runs are reproducible.
// Owners without interactions keep their initialization vector.
//
// SGD holds no state between runs and is safe for concurrent use.
type SGD struct {
	config recommend.TrainerConfig
}

// NewSGD creates an SGD trainer. The configuration is validated by Train.
func NewSGD(cfg recommend.TrainerConfig) *SGD {
	return &SGD{config: cfg}
}

// Name returns the algorithm identifier.
func (s *SGD) Name() string {
	return "sgd"
}

// Train fits a new model.
//
//nolint:gocritic // in is passed by value to keep the caller's slices untouched
func (s *SGD) Train(ctx context.Context, in recommend.TrainInput) (*recommend.TrainResult, error) {
	if err := checkInput(s.config, in); err != nil {
		return nil, err
	}

	start := time.Now()
	cfg := s.config

	idx := buildIndex(in)
	samples := idx.samples(in.Interactions)
	userCounts, itemCounts := rowCounts(samples, len(idx.users), len(idx.items))

	//nolint:gosec // G404: math/rand is acceptable for ML initialization (not security)
	rng := rand.New(rand.NewSource(cfg.Seed))
	users, items := idx.initFactors(rng, cfg.Factors, cfg.InitScale)

	lr := cfg.LearningRate
	reg := cfg.Regularization
	lossCurve := make([]float64, 0, cfg.Iterations)

	for epoch := 0; epoch < cfg.Iterations; epoch++ {
		if ContextCancelled(ctx) {
			return nil, ctx.Err()
		}

		rng.Shuffle(len(samples), func(a, b int) {
			samples[a], samples[b] = samples[b], samples[a]
		})

		for _, smp := range samples {
			u := users[smp.u]
			v := items[smp.i]
			e := smp.r - factor.Dot(u, v)

			for f := range u {
				uf := u[f]
				vf := v[f]
				u[f] += lr * (e*vf - reg*uf)
				v[f] += lr * (e*uf - reg*vf)
			}
		}

		loss := regularizedLoss(samples, users, items, userCounts, itemCounts, reg)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return nil, divergedError(epoch + 1)
		}
		lossCurve = append(lossCurve, loss)

		if in.Progress != nil {
			in.Progress(epoch+1, loss)
		}
	}

	model := buildModel(s.Name(), cfg, in, idx, users, items, userCounts, itemCounts)

	return &recommend.TrainResult{
		Model:     model,
		Duration:  time.Since(start),
		FinalLoss: lossCurve[len(lossCurve)-1],
		LossCurve: lossCurve,
	}, nil
}
