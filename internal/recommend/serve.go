// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package recommend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/forkcast/internal/metrics"
)

const resultCacheName = "recommend_results"

// Recommend returns up to n restaurants for a user from the serving model.
//
// Users with a trained vector, at least one interaction and a cold start
// score at or below Ranking.ColdStartThreshold get personalized scores.
// Everyone else gets the popularity ranking. When no popularity data exists
// the result is empty with StrategyNone; missing entities are never an error.
// A count of zero or less yields an empty result.
func (e *Engine) Recommend(ctx context.Context, userID string, n int) (*Result, error) {
	return e.RecommendAt(ctx, "", userID, n)
}

// RecommendAt is Recommend pinned to a retained model version. An empty
// version means the serving one. Before the first training run the
// popularity ranking is served from statistics alone.
func (e *Engine) RecommendAt(ctx context.Context, version, userID string, n int) (*Result, error) {
	start := time.Now()

	mv, err := e.servingVersion(version)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return emptyResult(mv), nil
	}
	n = e.clampCount(n)

	snap := e.stats.Load()
	key := cacheKey("rec", mv, snap, userID, n)
	if res, ok := e.cached(key); ok {
		metrics.RecordRanking("recommend", string(res.Strategy), time.Since(start))
		return res, nil
	}

	var exclude map[string]struct{}
	if e.config.Ranking.ExcludeInteracted && mv != nil {
		exclude = mv.seen[userID]
	}

	res := e.rank(mv, snap, userID, n, exclude)
	e.store(key, res)

	metrics.RecordRanking("recommend", string(res.Strategy), time.Since(start))
	return res, nil
}

// Popular returns the n most popular restaurants, none for n <= 0.
func (e *Engine) Popular(ctx context.Context, n int) (*Result, error) {
	start := time.Now()
	mv := e.current.Load()
	if n <= 0 {
		return emptyResult(mv), nil
	}
	n = e.clampCount(n)

	snap := e.stats.Load()
	key := cacheKey("pop", mv, snap, n)
	if res, ok := e.cached(key); ok {
		metrics.RecordRanking("popular", string(res.Strategy), time.Since(start))
		return res, nil
	}

	res := e.popularity(mv, snap, KindItem, n, nil, "")
	e.store(key, res)

	metrics.RecordRanking("popular", string(res.Strategy), time.Since(start))
	return res, nil
}

// FindSimilar returns up to n owners of the same kind most similar to id,
// comparing against at most Ranking.SearchLimit candidates.
func (e *Engine) FindSimilar(ctx context.Context, kind EntityKind, id string, n int) (*Result, error) {
	return e.FindSimilarWithLimit(ctx, kind, id, n, e.config.Ranking.SearchLimit)
}

// FindSimilarWithLimit is FindSimilar with an explicit candidate bound.
// Candidates are taken in ascending ID order so the bound is deterministic.
// An owner without a vector degrades to same-kind popularity.
func (e *Engine) FindSimilarWithLimit(ctx context.Context, kind EntityKind, id string, n, searchLimit int) (*Result, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: entity kind %q", ErrInvalidConfiguration, kind)
	}
	if searchLimit <= 0 {
		searchLimit = e.config.Ranking.SearchLimit
	}

	start := time.Now()
	mv := e.current.Load()
	if n <= 0 {
		return emptyResult(mv), nil
	}
	snap := e.stats.Load()
	n = e.clampCount(n)

	key := cacheKey("sim", mv, snap, kind, id, n, searchLimit)
	if res, ok := e.cached(key); ok {
		metrics.RecordRanking("similar", string(res.Strategy), time.Since(start))
		return res, nil
	}

	var res *Result
	query, ok := Embedding{}, false
	if mv != nil && !snap.deleted(kind, id) {
		query, ok = e.embedding(mv, snap, kind, id)
	}

	if ok {
		candidates := make([]Embedding, 0, min(searchLimit, len(mv.model.IDs(kind))))
		for _, cid := range mv.model.IDs(kind) {
			if len(candidates) >= searchLimit {
				break
			}
			if cid == id || snap.deleted(kind, cid) {
				continue
			}
			vec, _ := mv.model.Vector(kind, cid)
			candidates = append(candidates, Embedding{
				OwnerID:      cid,
				Kind:         kind,
				Vector:       vec,
				ModelVersion: mv.model.Version,
			})
		}

		items := RankSimilar(query, candidates, e.config.Ranking.MinSimilarity, n)
		res = &Result{Items: items, Strategy: StrategySimilarity, ModelVersion: mv.model.Version}
	} else {
		res = e.popularity(mv, snap, kind, n, nil, id)
	}

	e.store(key, res)
	metrics.RecordRanking("similar", string(res.Strategy), time.Since(start))
	return res, nil
}

// rank runs the personalized path with the popularity fallback.
// Items in exclude are never returned.
func (e *Engine) rank(mv *modelVersion, snap *statsSnapshot, userID string, n int, exclude map[string]struct{}) *Result {
	if mv != nil && !snap.deleted(KindUser, userID) {
		if user, ok := e.embedding(mv, snap, KindUser, userID); ok &&
			user.InteractionCount > 0 &&
			user.ColdStartScore <= e.config.Ranking.ColdStartThreshold {

			ids := mv.model.IDs(KindItem)
			items := make([]Embedding, 0, len(ids))
			for _, id := range ids {
				if snap.deleted(KindItem, id) {
					continue
				}
				if _, skip := exclude[id]; skip {
					continue
				}
				vec, _ := mv.model.Vector(KindItem, id)
				items = append(items, Embedding{
					OwnerID:      id,
					Kind:         KindItem,
					Vector:       vec,
					ModelVersion: mv.model.Version,
				})
			}

			ranked := RankPersonalized(user, items, e.popularityScores(mv, snap, KindItem), n)
			if len(ranked) > 0 {
				return &Result{Items: ranked, Strategy: StrategyPersonalized, ModelVersion: mv.model.Version}
			}
		}
	}

	return e.popularity(mv, snap, KindItem, n, exclude, "")
}

// popularity ranks owners of a kind by volume, leaving out deleted owners,
// excluded IDs and self.
func (e *Engine) popularity(mv *modelVersion, snap *statsSnapshot, kind EntityKind, n int, exclude map[string]struct{}, self string) *Result {
	scores := e.popularityScores(mv, snap, kind)
	items := RankByPopularity(scores, n, func(id string) bool {
		if id == self || snap.deleted(kind, id) {
			return true
		}
		_, skip := exclude[id]
		return skip
	})

	res := &Result{Items: items, Strategy: StrategyPopularity}
	if mv != nil {
		res.ModelVersion = mv.model.Version
	}
	if len(items) == 0 {
		res.Strategy = StrategyNone
	}
	return res
}

// popularityScores returns the volume of every known owner of a kind. The
// aggregator statistics win; owners without statistics fall back to their
// interaction count in the training set.
func (e *Engine) popularityScores(mv *modelVersion, snap *statsSnapshot, kind EntityKind) map[string]float64 {
	scores := make(map[string]float64)

	if mv != nil {
		for _, id := range mv.model.IDs(kind) {
			scores[id] = float64(mv.model.Count(kind, id))
		}
	}

	if kind == KindItem {
		for id, s := range snap.items {
			scores[id] = float64(s.TotalOrders)
		}
	} else {
		for id, s := range snap.users {
			scores[id] = float64(s.InteractionCount)
		}
	}

	return scores
}

// servingVersion resolves a version for ranking. Unlike version, an empty
// version with no trained model is not an error.
func (e *Engine) servingVersion(v string) (*modelVersion, error) {
	if v == "" {
		return e.current.Load(), nil
	}
	return e.version(v)
}

// clampCount caps a positive count at Ranking.MaxCount.
func (e *Engine) clampCount(n int) int {
	if n > e.config.Ranking.MaxCount {
		return e.config.Ranking.MaxCount
	}
	return n
}

// cached returns a copy of a cached result marked as a hit.
func (e *Engine) cached(key string) (*Result, bool) {
	if e.cache == nil || !e.config.Cache.Enabled {
		return nil, false
	}

	res, ok := e.cache.Get(key)
	metrics.RecordCacheLookup(resultCacheName, ok)
	if !ok {
		return nil, false
	}

	out := *res
	out.Items = cloneItems(res.Items)
	out.CacheHit = true
	return &out, true
}

// store caches a copy of res so callers may modify what they receive.
func (e *Engine) store(key string, res *Result) {
	if e.cache == nil || !e.config.Cache.Enabled {
		return
	}
	stored := *res
	stored.Items = cloneItems(res.Items)
	e.cache.Set(key, &stored)
}

func emptyResult(mv *modelVersion) *Result {
	res := &Result{Items: []ScoredItem{}, Strategy: StrategyNone}
	if mv != nil {
		res.ModelVersion = mv.model.Version
	}
	return res
}

// cacheKey identifies a result by the model version and stats generation it
// was ranked from, followed by the request parts.
func cacheKey(op string, mv *modelVersion, snap *statsSnapshot, parts ...any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%s:%d", op, versionKey(mv), snap.gen)
	for _, p := range parts {
		fmt.Fprintf(&b, ":%v", p)
	}
	return b.String()
}

func versionKey(mv *modelVersion) string {
	if mv == nil {
		return "none"
	}
	return mv.model.Version
}

func cloneItems(items []ScoredItem) []ScoredItem {
	out := make([]ScoredItem, len(items))
	copy(out, items)
	return out
}
