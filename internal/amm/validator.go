package amm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/ledger"
	"cpamm/internal/model"
)

// Check is a single precondition over an action.
type Check func() error

// Validate runs checks in order and returns the first failure.
func Validate(checks ...Check) error {
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func RequireBootstrapped(state model.PoolState) Check {
	return func() error {
		if !state.Bootstrapped {
			return ErrNotBootstrapped
		}
		return nil
	}
}

func RequireUninitialized(state model.PoolState) Check {
	return func() error {
		if state.Bootstrapped {
			return ErrAlreadyBootstrapped
		}
		return nil
	}
}

func RequireAdministrator(state model.PoolState, caller common.Address) Check {
	return func() error {
		if caller != state.Administrator {
			return ErrNotAuthorized
		}
		return nil
	}
}

// RequireAsset passes when the evidence moves one of the allowed assets.
func RequireAsset(ev model.TransferEvidence, allowed ...model.AssetID) Check {
	return func() error {
		for _, id := range allowed {
			if ev.Asset == id {
				return nil
			}
		}
		return fmt.Errorf("%w: got %d", ErrAssetMismatch, ev.Asset)
	}
}

func RequirePositive(ev model.TransferEvidence) Check {
	return func() error {
		if ev.Amount == 0 {
			return ErrZeroAmountDeposit
		}
		return nil
	}
}

func RequireSender(ev model.TransferEvidence, caller common.Address) Check {
	return func() error {
		if ev.Sender != caller {
			return ErrSenderMismatch
		}
		return nil
	}
}

func RequireReceiver(ev model.TransferEvidence, pool common.Address) Check {
	return func() error {
		if ev.Receiver != pool {
			return ErrReceiverMismatch
		}
		return nil
	}
}

// RequireDeposit is the conjunction applied to every deposit into the pool.
func RequireDeposit(ev model.TransferEvidence, caller, pool common.Address, allowed ...model.AssetID) Check {
	return func() error {
		return Validate(
			RequireAsset(ev, allowed...),
			RequireReceiver(ev, pool),
			RequirePositive(ev),
			RequireSender(ev, caller),
		)
	}
}

// RequireLanded matches each evidence record against a distinct transfer
// applied in the current atomic unit. All fields must match exactly.
func RequireLanded(landed []model.TransferEvidence, evs ...model.TransferEvidence) Check {
	return func() error {
		used := make([]bool, len(landed))
	next:
		for _, ev := range evs {
			for i, dep := range landed {
				if !used[i] && dep == ev {
					used[i] = true
					continue next
				}
			}
			return fmt.Errorf("%w: %d of asset %d from %s", ErrDepositNotLanded, ev.Amount, ev.Asset, ev.Sender)
		}
		return nil
	}
}

func RequireSeedFunding(ev model.TransferEvidence, caller, pool common.Address) Check {
	return func() error {
		if err := Validate(
			RequireAsset(ev, model.NativeAsset),
			RequireReceiver(ev, pool),
			RequireSender(ev, caller),
		); err != nil {
			return err
		}
		if ev.Amount < MinSeedFunding {
			return fmt.Errorf("%w: %d < %d", ErrInsufficientSeedFunding, ev.Amount, MinSeedFunding)
		}
		return nil
	}
}

func RequireOrdering(assetA, assetB model.AssetID) Check {
	return func() error {
		if assetA == model.NativeAsset || assetB == model.NativeAsset {
			return fmt.Errorf("%w: native asset cannot be pooled", ErrAssetMismatch)
		}
		if assetA >= assetB {
			return ErrInvalidAssetOrdering
		}
		return nil
	}
}

// readBalances fetches the pool's balance of each asset. Any unobservable
// balance fails the whole read.
func readBalances(ctx context.Context, gw ledger.Gateway, holder common.Address, assets ...model.AssetID) ([]uint64, error) {
	out := make([]uint64, 0, len(assets))
	for _, asset := range assets {
		bal, err := gw.Balance(ctx, holder, asset)
		if err != nil {
			if errors.Is(err, ledger.ErrUnavailable) {
				return nil, fmt.Errorf("%w: asset %d", ErrBalanceUnavailable, asset)
			}
			return nil, fmt.Errorf("balance of asset %d: %w", asset, err)
		}
		out = append(out, bal)
	}
	return out, nil
}
