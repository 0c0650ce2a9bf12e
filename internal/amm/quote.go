package amm

import (
	"fmt"

	"cpamm/internal/fixedpoint"
)

// QuoteInitialMint returns the shares minted by the first liquidity event:
// isqrt(a*b) - Scale.
func QuoteInitialMint(aAmount, bAmount uint64) (uint64, error) {
	root := fixedpoint.MulSqrt(aAmount, bAmount)
	if root <= Scale {
		return 0, fmt.Errorf("%w: initial liquidity root %d <= %d", ErrInsufficientOutput, root, Scale)
	}
	return root - Scale, nil
}

// QuoteMint returns the shares minted for a steady-state deposit against the
// reserves held before the deposit. The smaller of the two proportional rates
// is used so an imbalanced deposit cannot mint against its larger side.
func QuoteMint(issued, aReserve, bReserve, aAmount, bAmount uint64) (uint64, error) {
	aRate, err := fixedpoint.WideRatio([]uint64{aAmount, Scale}, []uint64{aReserve})
	if err != nil {
		return 0, fmt.Errorf("a rate: %w", err)
	}
	bRate, err := fixedpoint.WideRatio([]uint64{bAmount, Scale}, []uint64{bReserve})
	if err != nil {
		return 0, fmt.Errorf("b rate: %w", err)
	}
	shares, err := fixedpoint.WideRatio([]uint64{fixedpoint.Min(aRate, bRate), issued}, []uint64{Scale})
	if err != nil {
		return 0, fmt.Errorf("shares: %w", err)
	}
	return shares, nil
}

// QuoteBurn returns the amounts of A and B paid for returning amount shares
// when issued shares (including the returned ones) are in circulation.
func QuoteBurn(issued, aReserve, bReserve, amount uint64) (uint64, uint64, error) {
	if amount > issued {
		return 0, 0, fmt.Errorf("%w: %d > %d", ErrRedemptionExceedsCirculation, amount, issued)
	}
	aOut, err := fixedpoint.WideRatio([]uint64{aReserve, amount}, []uint64{issued})
	if err != nil {
		return 0, 0, fmt.Errorf("a out: %w", err)
	}
	bOut, err := fixedpoint.WideRatio([]uint64{bReserve, amount}, []uint64{issued})
	if err != nil {
		return 0, 0, fmt.Errorf("b out: %w", err)
	}
	return aOut, bOut, nil
}

// QuoteSwap returns the output of the fee-bearing constant-product swap:
//
//	out = in*(Scale-FeeNum)*outSupply / (inSupply*Scale + in*(Scale-FeeNum))
//
// inSupply is the input-side reserve before the deposit.
func QuoteSwap(amountIn, inSupply, outSupply uint64) (uint64, error) {
	if inSupply == 0 || outSupply == 0 {
		return 0, ErrEmptyReserves
	}
	factor := Scale - FeeNum

	scaledSupply, err := fixedpoint.CheckedMul(inSupply, Scale)
	if err != nil {
		return 0, fmt.Errorf("scaled supply: %w", err)
	}
	scaledIn, err := fixedpoint.CheckedMul(amountIn, factor)
	if err != nil {
		return 0, fmt.Errorf("scaled input: %w", err)
	}
	den, err := fixedpoint.CheckedAdd(scaledSupply, scaledIn)
	if err != nil {
		return 0, fmt.Errorf("denominator: %w", err)
	}

	out, err := fixedpoint.WideRatio([]uint64{amountIn, factor, outSupply}, []uint64{den})
	if err != nil {
		return 0, fmt.Errorf("swap output: %w", err)
	}
	return out, nil
}

// PriceRatio returns a*Scale/b, or 0 while b is empty.
func PriceRatio(aBalance, bBalance uint64) (uint64, error) {
	if bBalance == 0 {
		return 0, nil
	}
	return fixedpoint.WideRatio([]uint64{aBalance, Scale}, []uint64{bBalance})
}
