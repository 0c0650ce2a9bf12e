package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cpamm/internal/config"
	"cpamm/internal/model"
	"cpamm/internal/simulate"
	"cpamm/internal/storage"
	"cpamm/internal/storage/postgres"
)

// teeJournal writes every batch to each journal in turn.
type teeJournal []storage.Journal

func (t teeJournal) PutActions(ctx context.Context, records []model.ActionRecord) error {
	for _, j := range t {
		if err := j.PutActions(ctx, records); err != nil {
			return err
		}
	}
	return nil
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if len(cfg.Scenarios) == 0 {
		return fmt.Errorf("at least one scenario is required")
	}
	if cfg.Journal == "" {
		return fmt.Errorf("journal path is required")
	}

	scenarios := make([]simulate.Scenario, 0, len(cfg.Scenarios))
	for _, path := range cfg.Scenarios {
		sc, err := simulate.LoadScenario(path)
		if err != nil {
			return err
		}
		scenarios = append(scenarios, sc)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	journal := teeJournal{storage.NewJsonlJournal(cfg.Journal)}
	var states simulate.StateSink
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		journal = append(journal, store)
		states = store
	}

	runner := simulate.NewRunner(simulate.Config{
		SnapshotDir: cfg.SnapshotDir,
		FailFast:    cfg.FailFast,
		Parallel:    cfg.Parallel,
	}, journal, states, logger)

	logger.Info("simulate start",
		zap.Strings("scenarios", cfg.Scenarios),
		zap.String("journal", cfg.Journal),
		zap.String("snapshot_dir", cfg.SnapshotDir),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Bool("fail_fast", cfg.FailFast),
		zap.Int("parallel", cfg.Parallel),
	)

	reports, err := runner.RunAll(ctx, scenarios)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range reports {
		fmt.Fprintf(out, "%s pool=%s steps=%d accepted=%d rejected=%d unexpected=%d reserves=%d/%d ratio=%d\n",
			r.Name, r.Pool, r.Steps, r.Accepted, r.Rejected, r.Unexpected, r.ReserveA, r.ReserveB, r.State.Ratio)
	}
	for _, r := range reports {
		if r.Unexpected > 0 {
			return fmt.Errorf("scenario %s: %d unexpected outcomes", r.Name, r.Unexpected)
		}
	}
	return nil
}
