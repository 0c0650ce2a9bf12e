package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cpamm/internal/fixedpoint"
	"cpamm/internal/model"
)

type MintResult struct {
	Shares uint64
	Ratio  uint64
}

// Mint pays pool shares for a deposit of both assets. The deposits must have
// landed in the pool within the current atomic unit.
func (e *Engine) Mint(ctx context.Context, caller common.Address, aDeposit, bDeposit model.TransferEvidence) (MintResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.state
	if err := Validate(
		RequireBootstrapped(s),
		RequireDeposit(aDeposit, caller, s.Address, s.AssetA),
		RequireDeposit(bDeposit, caller, s.Address, s.AssetB),
		RequireLanded(e.ledger.Deposits(ctx), aDeposit, bDeposit),
	); err != nil {
		return MintResult{}, fmt.Errorf("mint: %w", err)
	}

	bals, err := readBalances(ctx, e.ledger, s.Address, s.PoolShare, s.AssetA, s.AssetB)
	if err != nil {
		return MintResult{}, fmt.Errorf("mint: %w", err)
	}
	poolShares := bals[0]

	shares, err := sharesToMint(poolShares, bals[1], bals[2], aDeposit.Amount, bDeposit.Amount)
	if err != nil {
		return MintResult{}, fmt.Errorf("mint: %w", err)
	}
	if err := e.pay(ctx, s.PoolShare, caller, shares, poolShares); err != nil {
		return MintResult{}, fmt.Errorf("mint: %w", err)
	}

	ratio, err := e.currentRatio(ctx)
	if err != nil {
		return MintResult{}, fmt.Errorf("mint: %w", err)
	}
	e.state.Ratio = ratio

	e.logger.Debug("minted",
		zap.Stringer("caller", caller),
		zap.Uint64("a_amount", aDeposit.Amount),
		zap.Uint64("b_amount", bDeposit.Amount),
		zap.Uint64("shares", shares),
		zap.Uint64("ratio", ratio),
	)
	return MintResult{Shares: shares, Ratio: ratio}, nil
}

// sharesToMint works on balances observed after the deposits landed.
func sharesToMint(poolShares, aBalance, bBalance, aAmount, bAmount uint64) (uint64, error) {
	issued, err := fixedpoint.CheckedSub(TotalShareSupply, poolShares)
	if err != nil {
		return 0, fmt.Errorf("pool holds %d shares, above total supply: %w", poolShares, err)
	}
	aReserve, err := fixedpoint.CheckedSub(aBalance, aAmount)
	if err != nil {
		return 0, fmt.Errorf("a deposit %d exceeds pool balance %d: %w", aAmount, aBalance, err)
	}
	bReserve, err := fixedpoint.CheckedSub(bBalance, bAmount)
	if err != nil {
		return 0, fmt.Errorf("b deposit %d exceeds pool balance %d: %w", bAmount, bBalance, err)
	}

	var shares uint64
	if issued == 0 {
		shares, err = QuoteInitialMint(aAmount, bAmount)
	} else {
		shares, err = QuoteMint(issued, aReserve, bReserve, aAmount, bAmount)
	}
	if err != nil {
		return 0, err
	}
	if shares == 0 {
		return 0, ErrInsufficientOutput
	}
	return shares, nil
}
