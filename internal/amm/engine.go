// Package amm implements a two-asset constant-product pool: bootstrap, mint,
// burn and swap over a host ledger.
package amm

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cpamm/internal/ledger"
	"cpamm/internal/model"
)

// Config identifies a pool instance and its initial administrator.
type Config struct {
	InstanceID    uint64
	Administrator common.Address
}

// Engine runs pool actions against a ledger. Each action must execute inside
// one atomic unit of the ledger; the engine only validates, computes and
// issues requests. Pool state is written after every request succeeded.
type Engine struct {
	mu     sync.RWMutex
	state  model.PoolState
	ledger ledger.Gateway
	logger *zap.Logger
}

// NewEngine builds an uninitialized pool.
func NewEngine(cfg Config, gateway ledger.Gateway, logger *zap.Logger) *Engine {
	return Restore(model.PoolState{
		InstanceID:    cfg.InstanceID,
		Address:       model.PoolAddress(cfg.InstanceID),
		Administrator: cfg.Administrator,
	}, gateway, logger)
}

// Restore rebuilds an engine from a persisted pool state.
func Restore(state model.PoolState, gateway ledger.Gateway, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		state:  state,
		ledger: gateway,
		logger: logger.With(zap.Stringer("pool", state.Address)),
	}
}

// State returns a copy of the pool state.
func (e *Engine) State() model.PoolState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Ratio returns the last computed a/b price scaled by Scale.
func (e *Engine) Ratio() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Ratio
}

func (e *Engine) Bootstrapped() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Bootstrapped
}

// Address is the pool's own ledger account.
func (e *Engine) Address() common.Address {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Address
}

// SetAdministrator hands the administrative key to newAdmin.
func (e *Engine) SetAdministrator(_ context.Context, caller, newAdmin common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := Validate(RequireAdministrator(e.state, caller)); err != nil {
		return fmt.Errorf("set administrator: %w", err)
	}
	e.state.Administrator = newAdmin

	e.logger.Info("administrator changed", zap.Stringer("from", caller), zap.Stringer("to", newAdmin))
	return nil
}

// pay issues a transfer from the pool after checking the pool holds enough.
func (e *Engine) pay(ctx context.Context, asset model.AssetID, to common.Address, amount, held uint64) error {
	if amount > held {
		return fmt.Errorf("%w: asset %d pays %d, holds %d", ErrInsufficientPoolBalance, asset, amount, held)
	}
	if amount == 0 {
		return nil
	}
	if err := e.ledger.Transfer(ctx, asset, e.state.Address, to, amount); err != nil {
		return fmt.Errorf("pay asset %d: %w", asset, err)
	}
	return nil
}

// currentRatio reads both pool balances after payouts and recomputes the
// cached price ratio.
func (e *Engine) currentRatio(ctx context.Context) (uint64, error) {
	bals, err := readBalances(ctx, e.ledger, e.state.Address, e.state.AssetA, e.state.AssetB)
	if err != nil {
		return 0, err
	}
	ratio, err := PriceRatio(bals[0], bals[1])
	if err != nil {
		return 0, fmt.Errorf("ratio: %w", err)
	}
	return ratio, nil
}
