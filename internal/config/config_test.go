package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func simulateFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("simulate", pflag.ContinueOnError)
	flags.StringSlice("scenario", nil, "")
	flags.String("journal", "./data/actions.jsonl", "")
	flags.String("snapshot-dir", "", "")
	flags.String("pg-dsn", "", "")
	flags.Bool("fail-fast", false, "")
	flags.Int("parallel", 4, "")
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestLoadSimulateDefaults(t *testing.T) {
	cfg, err := LoadSimulate("", simulateFlags(t))
	require.NoError(t, err)
	require.Nil(t, cfg.Scenarios)
	require.Equal(t, "./data/actions.jsonl", cfg.Journal)
	require.Equal(t, 4, cfg.Parallel)
	require.False(t, cfg.FailFast)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadSimulateFlagsAndEnv(t *testing.T) {
	t.Setenv("AMMD_SNAPSHOT_DIR", "/tmp/snapshots")
	t.Setenv("AMMD_LOG_LEVEL", "debug")

	flags := simulateFlags(t, "--scenario", "a.json, b.json", "--scenario", "c.json", "--fail-fast", "--log-level", "warn")
	cfg, err := LoadSimulate("", flags)
	require.NoError(t, err)
	require.Equal(t, []string{"a.json", "b.json", "c.json"}, cfg.Scenarios)
	require.True(t, cfg.FailFast)
	require.Equal(t, "/tmp/snapshots", cfg.SnapshotDir)
	// Flags win over the environment.
	require.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadQuoteFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ammd.yaml")
	data := "pool: \"0x00000000000000000000000000000000000000aa\"\namount: 500\nreserve-in: 10000\nreserve-out: 3000\nretry-backoff: 2s\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadQuote(path, nil)
	require.NoError(t, err)
	require.Equal(t, "0x00000000000000000000000000000000000000aa", cfg.Pool)
	require.Equal(t, uint64(500), cfg.Amount)
	require.Equal(t, uint64(10_000), cfg.ReserveIn)
	require.Equal(t, uint64(3_000), cfg.ReserveOut)
	require.Equal(t, 2*time.Second, cfg.RetryBackoff)
	require.Equal(t, 5, cfg.MaxRetries)
	require.True(t, cfg.Offline())
}

func TestLoadQuoteMissingFile(t *testing.T) {
	_, err := LoadQuote(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}

func TestLoadAggregate(t *testing.T) {
	flags := pflag.NewFlagSet("aggregate", pflag.ContinueOnError)
	flags.String("in", "", "")
	flags.String("decimals", "", "")
	require.NoError(t, flags.Parse([]string{"--in", "actions.jsonl", "--decimals", "1=6, 2=18,bad"}))

	cfg, err := LoadAggregate("", flags)
	require.NoError(t, err)
	require.Equal(t, "actions.jsonl", cfg.Input)
	require.Equal(t, "5m", cfg.Window)
	require.Equal(t, 1000, cfg.BatchSize)
	require.Equal(t, map[string]string{"1": "6", "2": "18"}, cfg.Decimals)

	decimals, err := ParseDecimals(cfg.Decimals)
	require.NoError(t, err)
	require.Equal(t, map[uint64]uint8{1: 6, 2: 18}, decimals)

	_, err = ParseDecimals(map[string]string{"1": "300"})
	require.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("")
	require.NoError(t, err)
	require.Zero(t, ts)

	ts, err = ParseTimestamp("1700000000")
	require.NoError(t, err)
	require.Equal(t, uint64(1_700_000_000), ts)

	ts, err = ParseTimestamp("2023-11-14T22:13:20Z")
	require.NoError(t, err)
	require.Equal(t, uint64(1_700_000_000), ts)

	_, err = ParseTimestamp("yesterday")
	require.Error(t, err)
}
