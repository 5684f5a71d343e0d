// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

// Package eventprocessor carries recommendation feedback over NATS
// JetStream using Watermill.
//
// # Data Flow
//
//	POST /api/v1/feedback ──► Publisher ──► JetStream stream (FORKCAST)
//	                                              │
//	                                              ▼
//	                      Subscriber (durable, queue group)
//	                                              │
//	                                              ▼
//	                Router: PoisonQueue ─► Retry ─► Recoverer
//	                                              │
//	                                              ▼
//	                FeedbackHandler ─► feedback.Aggregator.Record
//
// The aggregator appends derived interactions to DuckDB and marks the
// touched users and restaurants for the next statistics flush.
//
// # Delivery
//
// Publishers set Nats-Msg-Id to the event ID, so a client that resubmits
// the same event within the stream's duplicate window is stored once.
// The handler acknowledges events that fail to decode or validate; they
// can never succeed. Store errors are retried with exponential backoff and
// then moved to "<topic>.poison".
//
// # Components
//
//   - EmbeddedServer: optional in-process NATS server with JetStream
//   - StreamInitializer: creates or updates the stream at startup
//   - Publisher, Subscriber: Watermill NATS adapters
//   - Router: Watermill router with the shared middleware stack
//   - FeedbackHandler: validation, throttling (golang.org/x/time/rate)
//     and recording
//   - ZerologAdapter: Watermill logging through zerolog
//
// When NATS is disabled the API calls FeedbackHandler.Submit directly.
package eventprocessor
