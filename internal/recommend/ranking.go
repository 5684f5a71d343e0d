// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package recommend

import (
	"sort"

	"github.com/tomtom215/forkcast/internal/recommend/factor"
)

// RankPersonalized scores every item against the user vector and returns the
// top n by descending score, then descending popularity, then item ID.
//
// Only items whose ModelVersion equals the user's are considered, so vectors
// from incompatible training runs are never compared. The result is empty when
// no item matches.
func RankPersonalized(user Embedding, items []Embedding, popularity map[string]float64, n int) []ScoredItem {
	if n <= 0 || len(user.Vector) == 0 {
		return []ScoredItem{}
	}

	type candidate struct {
		id         string
		score      float64
		popularity float64
	}

	candidates := make([]candidate, 0, len(items))
	for _, item := range items {
		if item.ModelVersion != user.ModelVersion {
			continue
		}
		score, err := factor.Score(user.Vector, item.Vector)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{
			id:         item.OwnerID,
			score:      score,
			popularity: popularity[item.OwnerID],
		})
	}

	sort.Slice(candidates, func(a, b int) bool {
		ca, cb := candidates[a], candidates[b]
		if ca.score != cb.score {
			return ca.score > cb.score
		}
		if ca.popularity != cb.popularity {
			return ca.popularity > cb.popularity
		}
		return ca.id < cb.id
	})

	if len(candidates) > n {
		candidates = candidates[:n]
	}

	out := make([]ScoredItem, len(candidates))
	for i, c := range candidates {
		out[i] = ScoredItem{ID: c.id, Score: c.score}
	}
	return out
}

// RankByPopularity orders IDs by descending popularity with ties broken by ID
// and returns the top n. IDs for which skip returns true are left out.
func RankByPopularity(popularity map[string]float64, n int, skip func(id string) bool) []ScoredItem {
	if n <= 0 || len(popularity) == 0 {
		return []ScoredItem{}
	}

	out := make([]ScoredItem, 0, len(popularity))
	for id, score := range popularity {
		if skip != nil && skip(id) {
			continue
		}
		out = append(out, ScoredItem{ID: id, Score: score})
	}

	sortScored(out)

	if len(out) > n {
		out = out[:n]
	}
	return out
}

// RankSimilar computes cosine similarity between the query and each candidate
// of the same ModelVersion, drops the query itself and everything below
// minSimilarity, and returns the top n by descending similarity then ID.
func RankSimilar(query Embedding, candidates []Embedding, minSimilarity float64, n int) []ScoredItem {
	if n <= 0 || len(query.Vector) == 0 {
		return []ScoredItem{}
	}

	out := make([]ScoredItem, 0, n)
	for _, c := range candidates {
		if c.OwnerID == query.OwnerID || c.ModelVersion != query.ModelVersion {
			continue
		}
		sim := factor.CosineSimilarity(query.Vector, c.Vector)
		if sim < minSimilarity {
			continue
		}
		out = append(out, ScoredItem{ID: c.OwnerID, Score: sim})
	}

	sortScored(out)

	if len(out) > n {
		out = out[:n]
	}
	return out
}

// sortScored orders by descending score, then ascending ID.
func sortScored(items []ScoredItem) {
	sort.Slice(items, func(a, b int) bool {
		if items[a].Score != items[b].Score {
			return items[a].Score > items[b].Score
		}
		return items[a].ID < items[b].ID
	})
}
