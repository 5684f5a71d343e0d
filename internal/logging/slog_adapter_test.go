// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newBufferedSlog(t *testing.T, level zerolog.Level) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	prevLevel := GetLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prevLevel) })

	var buf bytes.Buffer
	return slog.New(NewSlogHandlerWithLogger(zerolog.New(&buf).Level(level))), &buf
}

func TestSlogHandlerLevels(t *testing.T) {
	logger, buf := newBufferedSlog(t, zerolog.TraceLevel)

	tests := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelDebug - 4, "trace"},
		{slog.LevelDebug, "debug"},
		{slog.LevelInfo, "info"},
		{slog.LevelWarn, "warn"},
		{slog.LevelError, "error"},
		{slog.LevelError + 4, "error"},
	}

	for _, tt := range tests {
		buf.Reset()
		logger.Log(context.Background(), tt.level, "msg")
		if !strings.Contains(buf.String(), `"level":"`+tt.want+`"`) {
			t.Errorf("slog level %v: got %s, want %s", tt.level, buf.String(), tt.want)
		}
	}
}

func TestSlogHandlerEnabled(t *testing.T) {
	prevLevel := GetLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prevLevel) })

	h := NewSlogHandlerWithLogger(zerolog.New(&bytes.Buffer{}).Level(zerolog.WarnLevel))
	ctx := context.Background()

	if h.Enabled(ctx, slog.LevelInfo) {
		t.Error("Enabled(info) = true for warn logger")
	}
	if !h.Enabled(ctx, slog.LevelError) {
		t.Error("Enabled(error) = false for warn logger")
	}
}

func TestSlogHandlerAttrs(t *testing.T) {
	logger, buf := newBufferedSlog(t, zerolog.TraceLevel)

	logger.Info("service restarted",
		slog.String("service", "trainer"),
		slog.Int("attempt", 2),
		slog.Uint64("bytes", 10),
		slog.Float64("ratio", 0.5),
		slog.Bool("ok", true),
		slog.Duration("backoff", 15*time.Second),
		slog.Any("err", errors.New("panic recovered")),
	)

	out := buf.String()
	for _, want := range []string{
		`"service":"trainer"`, `"attempt":2`, `"bytes":10`, `"ratio":0.5`,
		`"ok":true`, `"backoff":`, `"err":"panic recovered"`, `"message":"service restarted"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
}

func TestSlogHandlerGroups(t *testing.T) {
	logger, buf := newBufferedSlog(t, zerolog.TraceLevel)

	logger.With("layer", "data").
		WithGroup("supervisor").
		With("name", "root").
		Info("event", slog.Group("failure", slog.Int("count", 3)))

	out := buf.String()
	for _, want := range []string{`"layer":"data"`, `"supervisor.name":"root"`, `"supervisor.failure.count":3`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}

	h := NewSlogHandler()
	if h.WithGroup("") != h {
		t.Error("WithGroup(\"\") should return the same handler")
	}
	if h.WithAttrs(nil) != h {
		t.Error("WithAttrs(nil) should return the same handler")
	}
}

func TestNewSlogLoggerComponent(t *testing.T) {
	buf := captureGlobal(t)

	NewSlogLogger("supervisor").Warn("backoff")
	if !strings.Contains(buf.String(), `"component":"supervisor"`) {
		t.Errorf("missing component: %s", buf.String())
	}
}
