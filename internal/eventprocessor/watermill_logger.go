// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package eventprocessor

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"

	"github.com/tomtom215/forkcast/internal/logging"
)

// ZerologAdapter routes Watermill's logging into zerolog.
//
// Watermill logs every delivered message at Trace and handler lifecycle at
// Debug, so Info and above is all a production level shows.
type ZerologAdapter struct {
	logger zerolog.Logger
}

// NewWatermillLogger returns an adapter over the global logger tagged
// component=watermill.
func NewWatermillLogger() watermill.LoggerAdapter {
	return &ZerologAdapter{logger: logging.WithComponent("watermill")}
}

// NewWatermillLoggerWith wraps an explicit logger. Tests use it with
// logging.NewTestLogger.
func NewWatermillLoggerWith(logger zerolog.Logger) watermill.LoggerAdapter {
	return &ZerologAdapter{logger: logger}
}

func (a *ZerologAdapter) Error(msg string, err error, fields watermill.LogFields) {
	withFields(a.logger.Error().Err(err), fields).Msg(msg)
}

func (a *ZerologAdapter) Info(msg string, fields watermill.LogFields) {
	withFields(a.logger.Info(), fields).Msg(msg)
}

func (a *ZerologAdapter) Debug(msg string, fields watermill.LogFields) {
	withFields(a.logger.Debug(), fields).Msg(msg)
}

func (a *ZerologAdapter) Trace(msg string, fields watermill.LogFields) {
	withFields(a.logger.Trace(), fields).Msg(msg)
}

func (a *ZerologAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &ZerologAdapter{logger: a.logger.With().Fields(map[string]any(fields)).Logger()}
}

// withFields tolerates a nil event, which zerolog returns for disabled levels.
func withFields(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	if e == nil || len(fields) == 0 {
		return e
	}
	return e.Fields(map[string]any(fields))
}
