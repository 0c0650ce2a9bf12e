package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cpamm/internal/amm"
	"cpamm/internal/chain"
	"cpamm/internal/config"
	"cpamm/internal/fixedpoint"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Amount == 0 {
		return fmt.Errorf("amount must be > 0")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reserveIn, reserveOut := cfg.ReserveIn, cfg.ReserveOut
	if !cfg.Offline() {
		reserveIn, reserveOut, err = fetchReserves(ctx, cfg, logger)
		if err != nil {
			return err
		}
	}

	out, ratio, err := quoteWithRatio(cfg.Amount, reserveIn, reserveOut)
	if err != nil {
		return err
	}

	logger.Debug("quote",
		zap.Uint64("amount_in", cfg.Amount),
		zap.Uint64("reserve_in", reserveIn),
		zap.Uint64("reserve_out", reserveOut),
		zap.Uint64("amount_out", out),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "amount_out=%d reserve_in=%d reserve_out=%d ratio_after=%d\n", out, reserveIn, reserveOut, ratio)
	return nil
}

// quoteWithRatio returns the swap output and the price after the swap, as the
// pool would cache it with the input side as asset A.
func quoteWithRatio(amount, reserveIn, reserveOut uint64) (uint64, uint64, error) {
	out, err := amm.QuoteSwap(amount, reserveIn, reserveOut)
	if err != nil {
		return 0, 0, fmt.Errorf("quote: %w", err)
	}
	inAfter, err := fixedpoint.CheckedAdd(reserveIn, amount)
	if err != nil {
		return 0, 0, fmt.Errorf("quote: reserve in after swap: %w", err)
	}
	ratio, err := amm.PriceRatio(inAfter, reserveOut-out)
	if err != nil {
		return 0, 0, fmt.Errorf("quote ratio: %w", err)
	}
	return out, ratio, nil
}

func fetchReserves(ctx context.Context, cfg config.QuoteConfig, logger *zap.Logger) (uint64, uint64, error) {
	if cfg.RPCURL == "" {
		return 0, 0, fmt.Errorf("rpc url is required without reserve-in/reserve-out")
	}
	for name, addr := range map[string]string{"pool": cfg.Pool, "token-in": cfg.TokenIn, "token-out": cfg.TokenOut} {
		if !common.IsHexAddress(addr) {
			return 0, 0, fmt.Errorf("invalid %s address: %q", name, addr)
		}
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL, cfg.MaxRetries, cfg.RetryBackoff)
	if err != nil {
		return 0, 0, fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	var block *big.Int
	if cfg.Block > 0 {
		block = new(big.Int).SetUint64(cfg.Block)
	} else {
		latest, err := client.LatestBlockNumber(ctx)
		if err != nil {
			return 0, 0, fmt.Errorf("latest block: %w", err)
		}
		block = new(big.Int).SetUint64(latest)
	}

	tokenIn, tokenOut := common.HexToAddress(cfg.TokenIn), common.HexToAddress(cfg.TokenOut)
	cache := chain.NewTokenMetaCache()
	for _, token := range []common.Address{tokenIn, tokenOut} {
		meta, err := chain.FetchTokenMeta(ctx, client, token, cache)
		if err != nil {
			logger.Warn("token meta", zap.Stringer("token", token), zap.Error(err))
			continue
		}
		logger.Info("token", zap.Stringer("token", token), zap.String("symbol", meta.Symbol), zap.Uint8("decimals", meta.Decimals))
	}

	reserveIn, reserveOut, err := chain.Reserves(ctx, client, common.HexToAddress(cfg.Pool), tokenIn, tokenOut, block)
	if err != nil {
		return 0, 0, err
	}
	logger.Info("reserves",
		zap.Uint64("block", block.Uint64()),
		zap.Uint64("reserve_in", reserveIn),
		zap.Uint64("reserve_out", reserveOut),
	)
	return reserveIn, reserveOut, nil
}
