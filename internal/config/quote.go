package config

import (
	"time"

	"github.com/spf13/pflag"
)

// QuoteConfig holds configuration for the quote command.
type QuoteConfig struct {
	RPCURL       string
	Pool         string
	TokenIn      string
	TokenOut     string
	Amount       uint64
	ReserveIn    uint64
	ReserveOut   uint64
	Block        uint64
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// Offline reports whether reserves were supplied directly.
func (c QuoteConfig) Offline() bool {
	return c.ReserveIn > 0 || c.ReserveOut > 0
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
		"log-level":     "info",
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	cfg := QuoteConfig{
		RPCURL:       v.GetString("rpc"),
		Pool:         v.GetString("pool"),
		TokenIn:      v.GetString("token-in"),
		TokenOut:     v.GetString("token-out"),
		Amount:       v.GetUint64("amount"),
		ReserveIn:    v.GetUint64("reserve-in"),
		ReserveOut:   v.GetUint64("reserve-out"),
		Block:        v.GetUint64("block"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}
