// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	requestIDKey     contextKey = "request_id"
	modelVersionKey  contextKey = "model_version"
	loggerKey        contextKey = "logger"
)

// GenerateCorrelationID returns a short ID (first 8 chars of a UUID) for
// tying together the log lines of one training or feedback batch.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// GenerateRequestID returns a full UUID.
func GenerateRequestID() string {
	return uuid.New().String()
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID attaches a freshly generated correlation ID.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext returns "" when no ID is set.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns "" when no ID is set.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ContextWithModelVersion tags every Ctx logger with the model version
// that served or produced the work.
func ContextWithModelVersion(ctx context.Context, version string) context.Context {
	return context.WithValue(ctx, modelVersionKey, version)
}

// ModelVersionFromContext returns "" when no version is set.
func ModelVersionFromContext(ctx context.Context) string {
	v, _ := ctx.Value(modelVersionKey).(string)
	return v
}

//nolint:gocritic // zerolog.Logger is passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the stored logger or the global one.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// CtxWith returns a logger context pre-populated with the correlation ID,
// request ID and model version found in ctx.
//
//	logger := logging.CtxWith(ctx).Str("user_id", id).Logger()
func CtxWith(ctx context.Context) zerolog.Context {
	logger := LoggerFromContext(ctx)
	logCtx := logger.With()

	if id := CorrelationIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("correlation_id", id)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("request_id", id)
	}
	if v := ModelVersionFromContext(ctx); v != "" {
		logCtx = logCtx.Str("model_version", v)
	}
	return logCtx
}

// Ctx returns a logger carrying the context fields.
//
//	logging.Ctx(ctx).Info().Int("count", n).Msg("ranked")
func Ctx(ctx context.Context) *zerolog.Logger {
	l := CtxWith(ctx).Logger()
	return &l
}

func CtxDebug(ctx context.Context) *zerolog.Event { return Ctx(ctx).Debug() }
func CtxInfo(ctx context.Context) *zerolog.Event  { return Ctx(ctx).Info() }
func CtxWarn(ctx context.Context) *zerolog.Event  { return Ctx(ctx).Warn() }

// CtxErr is Ctx(ctx).Err(err).
func CtxErr(ctx context.Context, err error) *zerolog.Event {
	return Ctx(ctx).Err(err)
}

// WithComponent returns a child of the global logger tagged with component.
//
//	trainLog := logging.WithComponent("trainer")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
