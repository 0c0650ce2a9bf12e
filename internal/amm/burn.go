package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cpamm/internal/model"
)

type BurnResult struct {
	AmountA uint64
	AmountB uint64
	Ratio   uint64
}

// Burn redeems returned pool shares for a proportional amount of both assets.
func (e *Engine) Burn(ctx context.Context, caller common.Address, shareDeposit model.TransferEvidence) (BurnResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.state
	if err := Validate(
		RequireBootstrapped(s),
		RequireDeposit(shareDeposit, caller, s.Address, s.PoolShare),
		RequireLanded(e.ledger.Deposits(ctx), shareDeposit),
	); err != nil {
		return BurnResult{}, fmt.Errorf("burn: %w", err)
	}

	bals, err := readBalances(ctx, e.ledger, s.Address, s.PoolShare, s.AssetA, s.AssetB)
	if err != nil {
		return BurnResult{}, fmt.Errorf("burn: %w", err)
	}
	poolShares, aBalance, bBalance := bals[0], bals[1], bals[2]

	issued, err := circulationBeforeReturn(poolShares, shareDeposit.Amount)
	if err != nil {
		return BurnResult{}, fmt.Errorf("burn: %w", err)
	}
	aOut, bOut, err := QuoteBurn(issued, aBalance, bBalance, shareDeposit.Amount)
	if err != nil {
		return BurnResult{}, fmt.Errorf("burn: %w", err)
	}
	if aOut == 0 && bOut == 0 {
		return BurnResult{}, fmt.Errorf("burn: %w", ErrInsufficientOutput)
	}

	if err := e.pay(ctx, s.AssetA, caller, aOut, aBalance); err != nil {
		return BurnResult{}, fmt.Errorf("burn: %w", err)
	}
	if err := e.pay(ctx, s.AssetB, caller, bOut, bBalance); err != nil {
		return BurnResult{}, fmt.Errorf("burn: %w", err)
	}

	// Floor rounding on both legs may move the ratio slightly.
	ratio, err := e.currentRatio(ctx)
	if err != nil {
		return BurnResult{}, fmt.Errorf("burn: %w", err)
	}
	e.state.Ratio = ratio

	e.logger.Debug("burned",
		zap.Stringer("caller", caller),
		zap.Uint64("shares", shareDeposit.Amount),
		zap.Uint64("a_out", aOut),
		zap.Uint64("b_out", bOut),
		zap.Uint64("ratio", ratio),
	)
	return BurnResult{AmountA: aOut, AmountB: bOut, Ratio: ratio}, nil
}

// circulationBeforeReturn recovers the shares in circulation before the
// returned shares landed back in the pool. It requires poolShares to be at
// most the total supply and returned to be at most poolShares; the result is
// then never below returned.
func circulationBeforeReturn(poolShares, returned uint64) (uint64, error) {
	if poolShares > TotalShareSupply {
		return 0, fmt.Errorf("pool holds %d shares, above total supply: %w", poolShares, ErrArithmeticOverflow)
	}
	if returned > poolShares {
		return 0, fmt.Errorf("%w: returned %d, pool holds %d", ErrRedemptionExceedsCirculation, returned, poolShares)
	}
	return TotalShareSupply - (poolShares - returned), nil
}
