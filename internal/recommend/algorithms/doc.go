// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

// Package algorithms implements the latent factor trainers.
//
// Each trainer implements recommend.Trainer and produces an immutable
// recommend.Model. Two are provided:
//
//   - SGD: stochastic gradient descent matrix factorization with L2 regularization
//   - ALS: alternating regularized least squares over the same objective
//
// Both minimize
//
//	sum_{(u,i,r)} (r - U_u . V_i)^2 + lambda * (sum_u ||U_u||^2 + sum_i ||V_i||^2)
//
// and report it divided by the interaction count, one value per epoch.
//
// # Determinism
//
// Owner IDs are sorted before vectors are drawn from the seeded RNG, so the
// same interactions, configuration and seed always produce bit-identical
// vectors and loss curves regardless of map iteration order.
//
// # Selecting a Trainer
//
// New maps recommend.TrainerConfig.Algorithm to a trainer:
//
//	trainer, err := algorithms.New(cfg.Recommend.Trainer) // "sgd" or "als"
//	engine.SetTrainer(trainer)
package algorithms
