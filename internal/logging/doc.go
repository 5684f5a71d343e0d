// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

// Package logging provides the zerolog-based structured logging used across
// Forkcast.
//
// A global logger is configured once at startup:
//
//	logging.Init(logging.Config{Level: "info", Format: "json", Timestamp: true})
//
//	logging.Info().Str("version", v).Int("users", n).Msg("model published")
//	logging.Err(err).Msg("training failed")
//
// Context-aware logging adds correlation_id, request_id and model_version
// when they are present in the context:
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	logging.Ctx(ctx).Info().Msg("training started")
//
// Libraries that expect *slog.Logger (Suture, Watermill) are bridged through
// SlogHandler so their output uses the same format and level.
//
// EventLogger carries the feedback-pipeline log lines (publish, receive,
// reject, flush).
//
// Always terminate an event chain with Msg or Send; an unterminated chain
// writes nothing.
package logging
