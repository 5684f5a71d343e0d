// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// captureGlobal swaps the global logger for one writing to a buffer at
// trace level and restores both on cleanup.
func captureGlobal(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevLogger := Logger()
	prevLevel := GetLevel()
	SetLogger(zerolog.New(&buf))
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() {
		SetLogger(prevLogger)
		zerolog.SetGlobalLevel(prevLevel)
	})
	return &buf
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" || cfg.Format != "json" {
		t.Errorf("DefaultConfig() = %+v, want info/json", cfg)
	}
	if cfg.Caller {
		t.Error("expected caller disabled by default")
	}
	if !cfg.Timestamp {
		t.Error("expected timestamps enabled by default")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"disabled", zerolog.Disabled},
		{"off", zerolog.Disabled},
		{" DEBUG ", zerolog.DebugLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestInit(t *testing.T) {
	prevLogger := Logger()
	prevLevel := GetLevel()
	t.Cleanup(func() {
		SetLogger(prevLogger)
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})
	Info().Str("version", "1.0").Msg("model published")

	out := buf.String()
	for _, want := range []string{`"level":"info"`, `"version":"1.0"`, `"message":"model published"`, `"time":`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}

	buf.Reset()
	Init(Config{Level: "info", Format: "console", Output: &buf})
	Info().Msg("console line")
	if strings.Contains(buf.String(), `"level"`) {
		t.Errorf("console format produced JSON: %s", buf.String())
	}
}

func TestLevelHelpers(t *testing.T) {
	buf := captureGlobal(t)

	tests := []struct {
		emit  func()
		level string
	}{
		{func() { Trace().Msg("m") }, "trace"},
		{func() { Debug().Msg("m") }, "debug"},
		{func() { Info().Msg("m") }, "info"},
		{func() { Warn().Msg("m") }, "warn"},
		{func() { Error().Msg("m") }, "error"},
		{func() { Err(errors.New("boom")).Msg("m") }, "error"},
	}

	for _, tt := range tests {
		buf.Reset()
		tt.emit()
		if !strings.Contains(buf.String(), `"level":"`+tt.level+`"`) {
			t.Errorf("expected level %s in %s", tt.level, buf.String())
		}
	}
}

func TestGlobalLevelFilters(t *testing.T) {
	buf := captureGlobal(t)

	SetLevelString("warn")
	Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("info written at warn level: %s", buf.String())
	}
	if IsLevelEnabled(zerolog.InfoLevel) {
		t.Error("IsLevelEnabled(info) = true at warn level")
	}
	if !IsLevelEnabled(zerolog.ErrorLevel) {
		t.Error("IsLevelEnabled(error) = false at warn level")
	}

	Warn().Msg("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn not written: %s", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	buf := captureGlobal(t)

	l := WithComponent("trainer")
	l.Info().Msg("epoch done")
	if !strings.Contains(buf.String(), `"component":"trainer"`) {
		t.Errorf("expected component field: %s", buf.String())
	}
}
