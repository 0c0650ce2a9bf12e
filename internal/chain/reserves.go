package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrReserveTooLarge is returned when a balance does not fit the pool's
// 64-bit amounts.
var ErrReserveTooLarge = errors.New("reserve exceeds 64 bits")

// Reserves reads the pool's balances of tokenIn and tokenOut at block.
func Reserves(ctx context.Context, caller Caller, pool, tokenIn, tokenOut common.Address, block *big.Int) (uint64, uint64, error) {
	in, err := BalanceOf(ctx, caller, tokenIn, pool, block)
	if err != nil {
		return 0, 0, fmt.Errorf("reserve in: %w", err)
	}
	out, err := BalanceOf(ctx, caller, tokenOut, pool, block)
	if err != nil {
		return 0, 0, fmt.Errorf("reserve out: %w", err)
	}
	if !in.IsUint64() {
		return 0, 0, fmt.Errorf("token %s: %w", tokenIn.Hex(), ErrReserveTooLarge)
	}
	if !out.IsUint64() {
		return 0, 0, fmt.Errorf("token %s: %w", tokenOut.Hex(), ErrReserveTooLarge)
	}
	return in.Uint64(), out.Uint64(), nil
}
