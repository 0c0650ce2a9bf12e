package amm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cpamm/internal/ledger"
	"cpamm/internal/model"
)

// Bootstrap creates the pool share asset, opts the pool into both assets and
// fixes the asset configuration. It runs at most once per pool.
func (e *Engine) Bootstrap(ctx context.Context, caller common.Address, seed model.TransferEvidence, assetA, assetB model.AssetID) (model.AssetID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool := e.state.Address
	if err := Validate(
		RequireAdministrator(e.state, caller),
		RequireUninitialized(e.state),
		RequireSeedFunding(seed, caller, pool),
		RequireLanded(e.ledger.Deposits(ctx), seed),
		RequireOrdering(assetA, assetB),
	); err != nil {
		return 0, fmt.Errorf("bootstrap: %w", err)
	}

	unitA, err := e.unitName(ctx, assetA)
	if err != nil {
		return 0, fmt.Errorf("bootstrap: %w", err)
	}
	unitB, err := e.unitName(ctx, assetB)
	if err != nil {
		return 0, fmt.Errorf("bootstrap: %w", err)
	}

	share, err := e.ledger.CreateAsset(ctx, model.AssetParams{
		Total:    TotalShareSupply,
		Decimals: ShareDecimals,
		Manager:  pool,
		Reserve:  pool,
		Name:     sharePrefix + unitA + "-" + unitB,
		UnitName: ShareUnitName,
	})
	if err != nil {
		return 0, fmt.Errorf("bootstrap: create share asset: %w", err)
	}
	for _, asset := range []model.AssetID{assetA, assetB} {
		if err := e.ledger.OptIn(ctx, pool, asset); err != nil {
			return 0, fmt.Errorf("bootstrap: opt in %d: %w", asset, err)
		}
	}

	e.state.AssetA = assetA
	e.state.AssetB = assetB
	e.state.PoolShare = share
	e.state.Bootstrapped = true

	e.logger.Info("pool bootstrapped",
		zap.Uint64("asset_a", uint64(assetA)),
		zap.Uint64("asset_b", uint64(assetB)),
		zap.Uint64("pool_share", uint64(share)),
	)
	return share, nil
}

func (e *Engine) unitName(ctx context.Context, asset model.AssetID) (string, error) {
	name, err := e.ledger.UnitName(ctx, asset)
	if err != nil {
		if errors.Is(err, ledger.ErrUnavailable) {
			return "", fmt.Errorf("%w: asset %d", ErrAssetUnavailable, asset)
		}
		return "", fmt.Errorf("unit name of %d: %w", asset, err)
	}
	return name, nil
}
