// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	_ "time/tzdata" // zone database for recommend.stats.timezone

	"github.com/goccy/go-json"

	"github.com/tomtom215/forkcast/internal/config"
	"github.com/tomtom215/forkcast/internal/database"
	"github.com/tomtom215/forkcast/internal/logging"
	"github.com/tomtom215/forkcast/internal/recommend"
	"github.com/tomtom215/forkcast/internal/recommend/algorithms"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		logging.Error().Err(err).Msg("Evaluation failed")
		os.Exit(1)
	}
}

// options are the flags that override the loaded configuration.
type options struct {
	dbPath    string
	algorithm string
	policy    string
	fraction  float64
	k         int
	seed      int64
	asJSON    bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.dbPath, "db", "", "DuckDB file to read (default: DUCKDB_PATH)")
	fs.StringVar(&o.algorithm, "algorithm", "", "trainer: sgd or als (default: config)")
	fs.StringVar(&o.policy, "split", "", "holdout split: time or random (default: config)")
	fs.Float64Var(&o.fraction, "test-fraction", 0, "share of interactions held out (default: config)")
	fs.IntVar(&o.k, "k", 0, "precision/recall cutoff (default: config)")
	fs.Int64Var(&o.seed, "seed", 0, "seed for the trainer and the random split (default: config)")
	fs.BoolVar(&o.asJSON, "json", false, "print the report as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

// apply overlays the flags onto cfg and forces a holdout split.
func (o *options) apply(cfg *config.Config) {
	if o.dbPath != "" {
		cfg.Database.Path = o.dbPath
	}
	if o.algorithm != "" {
		cfg.Recommend.Trainer.Algorithm = o.algorithm
	}
	if o.policy != "" {
		cfg.Recommend.Evaluation.SplitPolicy = recommend.SplitPolicy(o.policy)
	}
	if o.fraction > 0 {
		cfg.Recommend.Evaluation.TestFraction = o.fraction
	}
	if o.k > 0 {
		cfg.Recommend.Evaluation.K = o.k
	}
	if o.seed != 0 {
		cfg.Recommend.Trainer.Seed = o.seed
		cfg.Recommend.Evaluation.Seed = o.seed
	}
	cfg.Recommend.Evaluation.Enabled = true
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	opts.apply(cfg)

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: "console",
		Caller: cfg.Logging.Caller,
	})

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	report, err := evaluate(ctx, &cfg.Recommend, db)
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return printReport(stdout, cfg, report)
}

// evaluate trains one model with a holdout and measures it.
func evaluate(ctx context.Context, cfg *recommend.Config, data recommend.DataProvider) (*recommend.EvaluationReport, error) {
	engine, err := recommend.NewEngine(cfg, logging.WithComponent("evaluate"))
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	trainer, err := algorithms.New(cfg.Trainer)
	if err != nil {
		return nil, err
	}
	engine.SetTrainer(trainer)
	engine.SetDataProvider(data)

	if err := engine.Train(ctx); err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	report, err := engine.Evaluate(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	return report, nil
}

func printReport(w io.Writer, cfg *config.Config, r *recommend.EvaluationReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := []struct {
		label string
		value any
	}{
		{"database", cfg.Database.Path},
		{"algorithm", cfg.Recommend.Trainer.Algorithm},
		{"split", fmt.Sprintf("%s (%.0f%% held out)", cfg.Recommend.Evaluation.SplitPolicy, cfg.Recommend.Evaluation.TestFraction*100)},
		{"model version", r.ModelVersion},
		{"held-out interactions", r.HeldOut},
		{"users evaluated", r.UsersEvaluated},
		{"catalog restaurants", r.TotalItems},
		{fmt.Sprintf("precision@%d", r.K), fmt.Sprintf("%.4f", r.PrecisionAtK)},
		{fmt.Sprintf("recall@%d", r.K), fmt.Sprintf("%.4f", r.RecallAtK)},
		{"random baseline", fmt.Sprintf("%.4f", r.RandomBaselinePrecision)},
		{"lift", fmt.Sprintf("%.2fx", r.Lift)},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%v\n", row.label, row.value); err != nil {
			return err
		}
	}
	return tw.Flush()
}
