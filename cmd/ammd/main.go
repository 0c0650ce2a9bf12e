package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "ammd",
		Short:        "Constant-product liquidity pool tooling",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay pool scenarios against an in-memory ledger",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().StringSlice("scenario", nil, "scenario JSON files (comma-separated)")
	simulateCmd.Flags().String("journal", "./data/actions.jsonl", "output action journal JSONL")
	simulateCmd.Flags().String("snapshot-dir", "", "directory for per-scenario pool state snapshots")
	simulateCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for journal and pool states")
	simulateCmd.Flags().Bool("fail-fast", false, "stop at the first step with an unexpected outcome")
	simulateCmd.Flags().Int("parallel", 4, "scenarios run at once")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap against on-chain or given reserves",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("rpc", "", "EVM RPC URL")
	quoteCmd.Flags().String("pool", "", "pool address holding both tokens")
	quoteCmd.Flags().String("token-in", "", "input token address")
	quoteCmd.Flags().String("token-out", "", "output token address")
	quoteCmd.Flags().Uint64("amount", 0, "input amount in raw units")
	quoteCmd.Flags().Uint64("reserve-in", 0, "input reserve, skips RPC when set")
	quoteCmd.Flags().Uint64("reserve-out", 0, "output reserve, skips RPC when set")
	quoteCmd.Flags().Uint64("block", 0, "block to read reserves at, 0 means latest")
	quoteCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	quoteCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	quoteCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate the action journal into window metrics",
		RunE:  runAggregate,
	}

	aggregateCmd.Flags().String("in", "", "input action journal JSONL")
	aggregateCmd.Flags().String("window", "5m", "aggregation window (e.g. 1m, 5m, 1h)")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	aggregateCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	aggregateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	aggregateCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	aggregateCmd.Flags().String("decimals", "", "asset decimals for formatting (comma-separated asset=decimals)")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(aggregateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
