package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cpamm/internal/model"
)

var _ Gateway = (*Memory)(nil)

type holding struct {
	holder common.Address
	asset  model.AssetID
}

// Memory is an in-process ledger. Native currency needs no opt-in; every
// other asset must be opted into before it can be received.
type Memory struct {
	// unitMu serialises atomic units.
	unitMu sync.Mutex

	mu       sync.RWMutex
	nextID   model.AssetID
	assets   map[model.AssetID]model.AssetParams
	balances map[holding]uint64
	landed   []model.TransferEvidence
	logger   *zap.Logger
}

func NewMemory(logger *zap.Logger) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memory{
		nextID:   1,
		assets:   make(map[model.AssetID]model.AssetParams),
		balances: make(map[holding]uint64),
		logger:   logger,
	}
}

// CreateAsset registers a new asset and credits the whole supply to its
// reserve account.
func (m *Memory) CreateAsset(_ context.Context, params model.AssetParams) (model.AssetID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.assets[id] = params
	m.balances[holding{holder: params.Reserve, asset: id}] = params.Total

	m.logger.Debug("asset created",
		zap.Uint64("asset", uint64(id)),
		zap.String("unit", params.UnitName),
		zap.Uint64("total", params.Total),
		zap.Stringer("reserve", params.Reserve),
	)
	return id, nil
}

func (m *Memory) OptIn(_ context.Context, holder common.Address, asset model.AssetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if asset == model.NativeAsset {
		return nil
	}
	if _, ok := m.assets[asset]; !ok {
		return fmt.Errorf("opt in %d: %w", asset, ErrUnknownAsset)
	}
	key := holding{holder: holder, asset: asset}
	if _, ok := m.balances[key]; !ok {
		m.balances[key] = 0
	}
	return nil
}

func (m *Memory) Balance(_ context.Context, holder common.Address, asset model.AssetID) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bal, ok := m.balances[holding{holder: holder, asset: asset}]
	if !ok {
		if asset == model.NativeAsset {
			return 0, nil
		}
		return 0, ErrUnavailable
	}
	return bal, nil
}

func (m *Memory) Transfer(_ context.Context, asset model.AssetID, from, to common.Address, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if asset != model.NativeAsset {
		if _, ok := m.assets[asset]; !ok {
			return fmt.Errorf("transfer %d: %w", asset, ErrUnknownAsset)
		}
	}

	src := holding{holder: from, asset: asset}
	dst := holding{holder: to, asset: asset}

	srcBal, ok := m.balances[src]
	if !ok && asset != model.NativeAsset {
		return fmt.Errorf("transfer from %s: %w", from, ErrNotOptedIn)
	}
	if _, ok := m.balances[dst]; !ok && asset != model.NativeAsset {
		return fmt.Errorf("transfer to %s: %w", to, ErrNotOptedIn)
	}
	if srcBal < amount {
		return fmt.Errorf("transfer %d of asset %d from %s: %w", amount, asset, from, ErrInsufficientBalance)
	}
	if from == to {
		return nil
	}

	m.balances[src] = srcBal - amount
	m.balances[dst] += amount
	return nil
}

func (m *Memory) UnitName(_ context.Context, asset model.AssetID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	params, ok := m.assets[asset]
	if !ok {
		return "", ErrUnavailable
	}
	return params.UnitName, nil
}

func (m *Memory) Deposits(_ context.Context) []model.TransferEvidence {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.landed) == 0 {
		return nil
	}
	out := make([]model.TransferEvidence, len(m.landed))
	copy(out, m.landed)
	return out
}

// Asset returns the parameters an asset was created with.
func (m *Memory) Asset(asset model.AssetID) (model.AssetParams, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	params, ok := m.assets[asset]
	return params, ok
}

// Fund credits native currency to an account. It is the ledger's faucet and
// is not available to pools.
func (m *Memory) Fund(holder common.Address, amount uint64) {
	m.mu.Lock()
	m.balances[holding{holder: holder, asset: model.NativeAsset}] += amount
	m.mu.Unlock()
}

// Submit executes one atomic unit: the deposits are transferred first, then
// call runs with the applied deposits visible through Deposits. If any
// deposit or call fails, every balance change made inside the unit is
// reverted and the error is returned.
func (m *Memory) Submit(ctx context.Context, deposits []model.TransferEvidence, call func(ctx context.Context) error) error {
	m.unitMu.Lock()
	defer m.unitMu.Unlock()

	snap := m.snapshot()
	defer m.setLanded(nil)

	err := m.runUnit(ctx, deposits, call)
	if err != nil {
		m.restore(snap)
		m.logger.Debug("atomic unit rejected", zap.Error(err), zap.Int("deposits", len(deposits)))
		return err
	}
	return nil
}

func (m *Memory) runUnit(ctx context.Context, deposits []model.TransferEvidence, call func(ctx context.Context) error) error {
	for i, dep := range deposits {
		if err := m.Transfer(ctx, dep.Asset, dep.Sender, dep.Receiver, dep.Amount); err != nil {
			return fmt.Errorf("deposit %d: %w", i, err)
		}
	}
	m.setLanded(deposits)
	if call == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return call(ctx)
}

func (m *Memory) setLanded(deposits []model.TransferEvidence) {
	m.mu.Lock()
	m.landed = append(m.landed[:0:0], deposits...)
	m.mu.Unlock()
}

type memorySnapshot struct {
	nextID   model.AssetID
	assets   map[model.AssetID]model.AssetParams
	balances map[holding]uint64
}

func (m *Memory) snapshot() memorySnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := memorySnapshot{
		nextID:   m.nextID,
		assets:   make(map[model.AssetID]model.AssetParams, len(m.assets)),
		balances: make(map[holding]uint64, len(m.balances)),
	}
	for k, v := range m.assets {
		snap.assets[k] = v
	}
	for k, v := range m.balances {
		snap.balances[k] = v
	}
	return snap
}

func (m *Memory) restore(snap memorySnapshot) {
	m.mu.Lock()
	m.nextID = snap.nextID
	m.assets = snap.assets
	m.balances = snap.balances
	m.mu.Unlock()
}
