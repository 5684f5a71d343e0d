// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package logging

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// EventLogger logs the lifecycle of feedback events moving through the
// message bus.
type EventLogger struct {
	logger zerolog.Logger
}

// NewEventLogger tags the global logger with component=feedback.
func NewEventLogger() *EventLogger {
	return NewEventLoggerWithLogger(Logger())
}

//nolint:gocritic // zerolog.Logger is passed by value
func NewEventLoggerWithLogger(logger zerolog.Logger) *EventLogger {
	return &EventLogger{logger: logger.With().Str("component", "feedback").Logger()}
}

func (e *EventLogger) ctx(ctx context.Context) zerolog.Logger {
	return CtxWith(ContextWithLogger(ctx, e.logger)).Logger()
}

// LogEventPublished logs a successful publish.
func (e *EventLogger) LogEventPublished(ctx context.Context, eventID, topic string) {
	l := e.ctx(ctx)
	l.Debug().Str("event_id", eventID).Str("topic", topic).Msg("feedback event published")
}

// LogEventReceived logs an event pulled off the bus.
func (e *EventLogger) LogEventReceived(ctx context.Context, eventID, userID, restaurantID, kind string) {
	l := e.ctx(ctx)
	l.Debug().
		Str("event_id", eventID).
		Str("user_id", userID).
		Str("restaurant_id", restaurantID).
		Str("kind", kind).
		Msg("feedback event received")
}

// LogEventProcessed logs a recorded event.
func (e *EventLogger) LogEventProcessed(ctx context.Context, eventID string, d time.Duration) {
	l := e.ctx(ctx)
	l.Debug().Str("event_id", eventID).Dur("duration", d).Msg("feedback event processed")
}

// LogEventRejected logs an event dropped without retry because it can never
// succeed, such as a malformed payload or unknown kind.
func (e *EventLogger) LogEventRejected(ctx context.Context, eventID string, err error) {
	l := e.ctx(ctx)
	l.Warn().Str("event_id", eventID).Err(err).Msg("feedback event rejected")
}

// LogEventFailed logs a processing error that will be retried.
func (e *EventLogger) LogEventFailed(ctx context.Context, eventID string, err error) {
	l := e.ctx(ctx)
	l.Error().Str("event_id", eventID).Err(err).Msg("feedback event failed")
}

// LogBatchFlush logs an aggregator flush to the store.
func (e *EventLogger) LogBatchFlush(ctx context.Context, count int, d time.Duration) {
	l := e.ctx(ctx)
	l.Info().Int("event_count", count).Dur("duration", d).Msg("feedback batch flushed")
}

func (e *EventLogger) LogSubscriptionStarted(topic, queue string) {
	e.logger.Info().Str("topic", topic).Str("queue", queue).Msg("subscription started")
}

func (e *EventLogger) LogSubscriptionStopped(topic string) {
	e.logger.Info().Str("topic", topic).Msg("subscription stopped")
}
