// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/forkcast/internal/config"
	"github.com/tomtom215/forkcast/internal/recommend"
)

type memoryData struct {
	interactions []recommend.Interaction
	users, items []string
}

func (m *memoryData) FetchInteractions(context.Context) ([]recommend.Interaction, error) {
	return m.interactions, nil
}

func (m *memoryData) FetchEntities(context.Context) (users, items []string, err error) {
	return m.users, m.items, nil
}

func (m *memoryData) FetchOrderHistoryByUser(context.Context, string) ([]recommend.OrderRecord, error) {
	return nil, nil
}

func (m *memoryData) FetchOrderHistoryByItem(context.Context, string) ([]recommend.OrderRecord, error) {
	return nil, nil
}

func (m *memoryData) LoadStats(context.Context) (recommend.StatsUpdate, error) {
	return recommend.StatsUpdate{}, nil
}

func newMemoryData() *memoryData {
	m := &memoryData{}
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		m.items = append(m.items, fmt.Sprintf("r%d", i))
	}
	n := 0
	for u := 0; u < 6; u++ {
		user := fmt.Sprintf("u%d", u)
		m.users = append(m.users, user)
		for i := 0; i < 8; i++ {
			if (u+i)%3 == 0 {
				continue
			}
			n++
			m.interactions = append(m.interactions, recommend.Interaction{
				UserID:    user,
				ItemID:    m.items[i],
				Rating:    float64(1 + (u+i)%5),
				Timestamp: base.Add(time.Duration(n) * time.Hour),
			})
		}
	}
	return m
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"no flags", nil, false},
		{"all flags", []string{"-db", "x.duckdb", "-algorithm", "als", "-split", "random", "-test-fraction", "0.3", "-k", "5", "-seed", "7", "-json"}, false},
		{"unknown flag", []string{"-nope"}, true},
		{"positional", []string{"extra"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := parseFlags(tt.args, io.Discard)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseFlags(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestParseFlagsHelp(t *testing.T) {
	t.Parallel()
	if _, err := parseFlags([]string{"-h"}, io.Discard); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("parseFlags(-h) error = %v, want flag.ErrHelp", err)
	}
}

func TestOptionsApply(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Recommend: *recommend.DefaultConfig()}
	opts, err := parseFlags([]string{"-db", "x.duckdb", "-algorithm", "als", "-split", "random", "-test-fraction", "0.3", "-k", "5", "-seed", "7"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	opts.apply(cfg)

	ev := cfg.Recommend.Evaluation
	if cfg.Database.Path != "x.duckdb" || cfg.Recommend.Trainer.Algorithm != "als" {
		t.Errorf("db/algorithm not applied: %q %q", cfg.Database.Path, cfg.Recommend.Trainer.Algorithm)
	}
	if !ev.Enabled || ev.SplitPolicy != recommend.SplitRandom || ev.TestFraction != 0.3 || ev.K != 5 || ev.Seed != 7 {
		t.Errorf("evaluation = %+v", ev)
	}
	if cfg.Recommend.Trainer.Seed != 7 {
		t.Errorf("trainer seed = %d, want 7", cfg.Recommend.Trainer.Seed)
	}

	// Without flags only the holdout is forced on.
	def := &config.Config{Recommend: *recommend.DefaultConfig()}
	empty, _ := parseFlags(nil, io.Discard)
	empty.apply(def)
	if !def.Recommend.Evaluation.Enabled || def.Recommend.Evaluation.K != recommend.DefaultConfig().Evaluation.K {
		t.Errorf("defaults changed: %+v", def.Recommend.Evaluation)
	}
}

func TestEvaluateProducesReport(t *testing.T) {
	t.Parallel()

	cfg := recommend.DefaultConfig()
	cfg.Evaluation.Enabled = true
	cfg.Evaluation.K = 3

	report, err := evaluate(context.Background(), cfg, newMemoryData())
	if err != nil {
		t.Fatalf("evaluate() error = %v", err)
	}
	if report.K != 3 || report.HeldOut == 0 || report.TotalItems == 0 {
		t.Errorf("report = %+v", report)
	}
	if report.PrecisionAtK < 0 || report.PrecisionAtK > 1 || report.RecallAtK < 0 || report.RecallAtK > 1 {
		t.Errorf("metrics out of range: %+v", report)
	}
}

func TestEvaluateNoData(t *testing.T) {
	t.Parallel()

	cfg := recommend.DefaultConfig()
	cfg.Evaluation.Enabled = true

	_, err := evaluate(context.Background(), cfg, &memoryData{})
	if !errors.Is(err, recommend.ErrInsufficientData) {
		t.Errorf("evaluate() error = %v, want ErrInsufficientData", err)
	}
}

func TestPrintReport(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Recommend: *recommend.DefaultConfig()}
	cfg.Database.Path = "orders.duckdb"
	report := &recommend.EvaluationReport{
		ModelVersion:            "v3",
		K:                       10,
		PrecisionAtK:            0.25,
		RecallAtK:               0.5,
		UsersEvaluated:          4,
		HeldOut:                 12,
		TotalItems:              40,
		RandomBaselinePrecision: 0.25,
		Lift:                    1,
	}

	var buf bytes.Buffer
	if err := printReport(&buf, cfg, report); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"orders.duckdb", "v3", "precision@10", "0.2500", "recall@10", "0.5000", "1.00x"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
