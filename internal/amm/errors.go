package amm

import (
	"errors"
	"fmt"

	"cpamm/internal/fixedpoint"
)

var (
	ErrNotAuthorized                = errors.New("caller is not the administrator")
	ErrInvalidState                 = errors.New("invalid pool state")
	ErrAssetMismatch                = errors.New("asset does not match pool configuration")
	ErrZeroAmountDeposit            = errors.New("deposit amount is zero")
	ErrSenderMismatch               = errors.New("deposit sender is not the caller")
	ErrReceiverMismatch             = errors.New("deposit receiver is not the pool")
	ErrDepositNotLanded             = errors.New("deposit evidence does not match a landed transfer")
	ErrBalanceUnavailable           = errors.New("pool balance unavailable")
	ErrAssetUnavailable             = errors.New("asset parameters unavailable")
	ErrRedemptionExceedsCirculation = errors.New("redemption exceeds shares in circulation")
	ErrInsufficientSeedFunding      = errors.New("seed funding below minimum")
	ErrInvalidAssetOrdering         = errors.New("asset a must be lower than asset b")
	ErrEmptyReserves                = errors.New("pool reserves are empty")
	ErrInsufficientOutput           = errors.New("action would pay out nothing")
	ErrInsufficientPoolBalance      = errors.New("payout exceeds pool balance")

	ErrArithmeticOverflow = fixedpoint.ErrArithmeticOverflow
	ErrDivisionByZero     = fixedpoint.ErrDivisionByZero

	ErrAlreadyBootstrapped = fmt.Errorf("%w: already bootstrapped", ErrInvalidState)
	ErrNotBootstrapped     = fmt.Errorf("%w: not bootstrapped", ErrInvalidState)
)
