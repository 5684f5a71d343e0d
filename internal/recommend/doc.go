// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

// Package recommend implements the collaborative-filtering core of Forkcast:
// training latent-factor models over user/restaurant interactions, serving
// ranked restaurant lists from them, and measuring their quality offline.
//
// # Architecture
//
// The Engine owns a short history of immutable model versions and a snapshot
// of aggregated statistics:
//
//   - A Trainer (see package algorithms) learns one vector per user and per
//     restaurant from explicit ratings and implicit signals.
//   - Each successful Train call publishes a new version ("1.0", "2.0", ...).
//     The newest Training.MaxVersions versions stay queryable via RecommendAt.
//   - Statistics produced by the feedback aggregator (interaction counts,
//     cold-start scores, taste summaries) are applied with ApplyStats and
//     decide whether a user is ranked personally or by popularity.
//
// # Ranking
//
// A user with a trained vector, at least one interaction, and a cold-start
// score at or below Ranking.ColdStartThreshold is ranked by dot product
// against every restaurant of the same model version. Everyone else, and any
// personalized ranking that comes back empty, gets restaurants ordered by
// total orders. Ties always break on popularity and then ID so results are
// reproducible.
//
// # Usage
//
//	engine, err := recommend.NewEngine(recommend.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	engine.SetDataProvider(db)
//	engine.SetTrainer(trainer)
//	engine.SetCache(cache.NewLRU[*recommend.Result](10000, 5*time.Minute))
//
//	if err := engine.Train(ctx); err != nil {
//	    return err
//	}
//	res, err := engine.Recommend(ctx, userID, 10)
//
// # Thread Safety
//
// The Engine is safe for concurrent use. Only one training run executes at a
// time; a second concurrent Train returns ErrTrainingInProgress. Readers load
// the current version and statistics snapshot atomically and never block on
// training.
package recommend
