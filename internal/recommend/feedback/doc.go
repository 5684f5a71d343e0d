// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

// Package feedback maintains the per-user and per-restaurant statistics the
// ranking engine reads between training runs.
//
// The Compute functions are pure: they turn order history into UserStats and
// ItemStats with no I/O. The Aggregator wires them to an OrderSource and a
// StatsWriter, and converts served-recommendation feedback into interactions
// for the next training run.
//
// # Signal Weights
//
// Feedback is mapped to the rating scale before training:
//
//   - explicit rating: used as is
//   - ordered: 4.0
//   - clicked: 3.0
//   - dismissed: 1.0
//
// Impressions with no feedback carry no signal and are skipped.
package feedback
