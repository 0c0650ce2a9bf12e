package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cpamm/internal/fixedpoint"
	"cpamm/internal/model"
)

type SwapResult struct {
	AssetOut  model.AssetID
	AmountOut uint64
	Ratio     uint64
}

// Swap pays out the other pooled asset for a deposit of one of them.
func (e *Engine) Swap(ctx context.Context, caller common.Address, inDeposit model.TransferEvidence) (SwapResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.state
	if err := Validate(
		RequireBootstrapped(s),
		RequireDeposit(inDeposit, caller, s.Address, s.AssetA, s.AssetB),
		RequireLanded(e.ledger.Deposits(ctx), inDeposit),
	); err != nil {
		return SwapResult{}, fmt.Errorf("swap: %w", err)
	}

	assetOut := s.AssetA
	if inDeposit.Asset == s.AssetA {
		assetOut = s.AssetB
	}

	bals, err := readBalances(ctx, e.ledger, s.Address, inDeposit.Asset, assetOut)
	if err != nil {
		return SwapResult{}, fmt.Errorf("swap: %w", err)
	}
	inBalance, outSupply := bals[0], bals[1]

	inSupply, err := fixedpoint.CheckedSub(inBalance, inDeposit.Amount)
	if err != nil {
		return SwapResult{}, fmt.Errorf("swap: deposit %d exceeds pool balance %d: %w", inDeposit.Amount, inBalance, err)
	}
	out, err := QuoteSwap(inDeposit.Amount, inSupply, outSupply)
	if err != nil {
		return SwapResult{}, fmt.Errorf("swap: %w", err)
	}
	if out == 0 {
		return SwapResult{}, fmt.Errorf("swap: %w", ErrInsufficientOutput)
	}
	if err := e.pay(ctx, assetOut, caller, out, outSupply); err != nil {
		return SwapResult{}, fmt.Errorf("swap: %w", err)
	}

	ratio, err := e.currentRatio(ctx)
	if err != nil {
		return SwapResult{}, fmt.Errorf("swap: %w", err)
	}
	e.state.Ratio = ratio

	e.logger.Debug("swapped",
		zap.Stringer("caller", caller),
		zap.Uint64("asset_in", uint64(inDeposit.Asset)),
		zap.Uint64("amount_in", inDeposit.Amount),
		zap.Uint64("asset_out", uint64(assetOut)),
		zap.Uint64("amount_out", out),
		zap.Uint64("ratio", ratio),
	)
	return SwapResult{AssetOut: assetOut, AmountOut: out, Ratio: ratio}, nil
}
