// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package algorithms

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/tomtom215/forkcast/internal/recommend"
	"github.com/tomtom215/forkcast/internal/recommend/factor"
)

// sample is an interaction resolved to matrix rows.
type sample struct {
	u int
	i int
	r float64
}

// factorIndex maps owner IDs to matrix rows.
type factorIndex struct {
	users   []string
	items   []string
	userRow map[string]int
	itemRow map[string]int
}

// buildIndex collects every owner from the interactions and the catalog lists
// and assigns rows in ascending ID order.
func buildIndex(in recommend.TrainInput) *factorIndex {
	userSet := make(map[string]struct{}, len(in.Users))
	itemSet := make(map[string]struct{}, len(in.Items))

	for _, inter := range in.Interactions {
		userSet[inter.UserID] = struct{}{}
		itemSet[inter.ItemID] = struct{}{}
	}
	for _, id := range in.Users {
		if id != "" {
			userSet[id] = struct{}{}
		}
	}
	for _, id := range in.Items {
		if id != "" {
			itemSet[id] = struct{}{}
		}
	}

	idx := &factorIndex{
		users:   setToSorted(userSet),
		items:   setToSorted(itemSet),
		userRow: make(map[string]int, len(userSet)),
		itemRow: make(map[string]int, len(itemSet)),
	}
	for row, id := range idx.users {
		idx.userRow[id] = row
	}
	for row, id := range idx.items {
		idx.itemRow[id] = row
	}
	return idx
}

func setToSorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// samples resolves interactions to rows in input order.
func (x *factorIndex) samples(interactions []recommend.Interaction) []sample {
	out := make([]sample, len(interactions))
	for n, inter := range interactions {
		out[n] = sample{
			u: x.userRow[inter.UserID],
			i: x.itemRow[inter.ItemID],
			r: inter.Rating,
		}
	}
	return out
}

// initFactors draws user rows then item rows from rng.
func (x *factorIndex) initFactors(rng *rand.Rand, d int, scale float64) (users, items [][]float64) {
	users = make([][]float64, len(x.users))
	for row := range users {
		users[row] = factor.InitVector(rng, d, scale)
	}
	items = make([][]float64, len(x.items))
	for row := range items {
		items[row] = factor.InitVector(rng, d, scale)
	}
	return users, items
}

// rowCounts returns how many samples touch each user and item row.
func rowCounts(samples []sample, numUsers, numItems int) (users, items []int) {
	users = make([]int, numUsers)
	items = make([]int, numItems)
	for _, s := range samples {
		users[s.u]++
		items[s.i]++
	}
	return users, items
}

// regularizedLoss returns the mean squared error plus the L2 term over rows
// that took part in training, divided by the sample count.
func regularizedLoss(samples []sample, users, items [][]float64, userCounts, itemCounts []int, lambda float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sse float64
	for _, s := range samples {
		e := s.r - factor.Dot(users[s.u], items[s.i])
		sse += e * e
	}

	var norms float64
	for row, v := range users {
		if userCounts[row] > 0 {
			norms += factor.SquaredNorm(v)
		}
	}
	for row, v := range items {
		if itemCounts[row] > 0 {
			norms += factor.SquaredNorm(v)
		}
	}

	n := float64(len(samples))
	return sse/n + lambda*norms/n
}

// buildModel copies the factor matrices into an indexed, immutable model.
func buildModel(name string, cfg recommend.TrainerConfig, in recommend.TrainInput, idx *factorIndex, users, items [][]float64, userCounts, itemCounts []int) *recommend.Model {
	m := &recommend.Model{
		Version:    in.Version,
		Algorithm:  name,
		Factors:    cfg.Factors,
		Epochs:     cfg.Iterations,
		Seed:       cfg.Seed,
		TrainedAt:  time.Now().UTC(),
		Users:      make(map[string][]float64, len(idx.users)),
		Items:      make(map[string][]float64, len(idx.items)),
		UserCounts: make(map[string]int, len(idx.users)),
		ItemCounts: make(map[string]int, len(idx.items)),
	}

	for row, id := range idx.users {
		m.Users[id] = factor.Clone(users[row])
		if userCounts[row] > 0 {
			m.UserCounts[id] = userCounts[row]
		}
	}
	for row, id := range idx.items {
		m.Items[id] = factor.Clone(items[row])
		if itemCounts[row] > 0 {
			m.ItemCounts[id] = itemCounts[row]
		}
	}

	m.Index()
	return m
}

// checkInput validates configuration before data, then the interactions.
func checkInput(cfg recommend.TrainerConfig, in recommend.TrainInput) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(in.Interactions) == 0 {
		return fmt.Errorf("%w: no interactions to train on", recommend.ErrInsufficientData)
	}
	for n, inter := range in.Interactions {
		if inter.UserID == "" || inter.ItemID == "" {
			return fmt.Errorf("%w: interaction %d has an empty owner id", recommend.ErrInsufficientData, n)
		}
		if math.IsNaN(inter.Rating) || math.IsInf(inter.Rating, 0) {
			return fmt.Errorf("%w: interaction %d has a non-finite rating", recommend.ErrInsufficientData, n)
		}
	}
	return nil
}

// divergedError reports a non-finite loss, which means the step size is too large.
func divergedError(epoch int) error {
	return fmt.Errorf("%w: loss diverged at epoch %d, lower learning_rate", recommend.ErrInvalidConfiguration, epoch)
}

// ContextCancelled checks if the context has been cancelled.
func ContextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// New returns the trainer named by cfg.Algorithm.
func New(cfg recommend.TrainerConfig) (recommend.Trainer, error) {
	switch cfg.Algorithm {
	case "", "sgd":
		return NewSGD(cfg), nil
	case "als":
		return NewALS(cfg), nil
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", recommend.ErrInvalidConfiguration, cfg.Algorithm)
	}
}
