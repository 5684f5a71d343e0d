// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package recommend

import (
	"math"
	"math/rand"
	"sort"
)

// SplitConfig selects how interactions are divided for evaluation.
type SplitConfig struct {
	Policy       SplitPolicy
	TestFraction float64
	Seed         int64
}

// SplitConfig returns the split settings of the evaluation configuration.
func (c EvaluationConfig) SplitConfig() SplitConfig {
	return SplitConfig{
		Policy:       c.SplitPolicy,
		TestFraction: c.TestFraction,
		Seed:         c.Seed,
	}
}

// testSize returns how many of n interactions are held out. At least one
// interaction is always kept for training, and at least one is held out when
// n > 1 and the fraction is positive.
func (c SplitConfig) testSize(n int) int {
	if n < 2 || !(c.TestFraction > 0) {
		return 0
	}
	size := int(math.Round(float64(n) * c.TestFraction))
	if size < 1 {
		size = 1
	}
	if size > n-1 {
		size = n - 1
	}
	return size
}

// SplitInteractions divides interactions into a training and a test set.
//
// With SplitTime the most recent TestFraction of interactions (by timestamp,
// ties broken by user then item) is held out, so the model is trained on the
// past and tested on the future. With SplitRandom the interactions are
// shuffled with the configured seed first. The input slice is not modified.
func SplitInteractions(interactions []Interaction, cfg SplitConfig) (train, test []Interaction) {
	n := len(interactions)
	if n == 0 {
		return nil, nil
	}

	ordered := make([]Interaction, n)
	copy(ordered, interactions)

	switch cfg.Policy {
	case SplitRandom:
		//nolint:gosec // G404: math/rand is acceptable for evaluation splits (not security)
		rng := rand.New(rand.NewSource(cfg.Seed))
		rng.Shuffle(n, func(a, b int) {
			ordered[a], ordered[b] = ordered[b], ordered[a]
		})
	default:
		sort.SliceStable(ordered, func(a, b int) bool {
			ia, ib := ordered[a], ordered[b]
			if !ia.Timestamp.Equal(ib.Timestamp) {
				return ia.Timestamp.Before(ib.Timestamp)
			}
			if ia.UserID != ib.UserID {
				return ia.UserID < ib.UserID
			}
			return ia.ItemID < ib.ItemID
		})
	}

	cut := n - cfg.testSize(n)
	return ordered[:cut:cut], ordered[cut:]
}
