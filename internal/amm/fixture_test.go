package amm

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cpamm/internal/ledger"
	"cpamm/internal/model"
)

var (
	adminAddr = common.HexToAddress("0x1000000000000000000000000000000000000001")
	aliceAddr = common.HexToAddress("0x2000000000000000000000000000000000000002")
	bobAddr   = common.HexToAddress("0x3000000000000000000000000000000000000003")
)

const assetSupply = 1_000_000_000_000

type fixture struct {
	t      *testing.T
	ctx    context.Context
	ledger *ledger.Memory
	engine *Engine
	assetA model.AssetID
	assetB model.AssetID
	share  model.AssetID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	l := ledger.NewMemory(zap.NewNop())

	assetA, err := l.CreateAsset(ctx, model.AssetParams{Total: assetSupply, Manager: aliceAddr, Reserve: aliceAddr, Name: "Asset A", UnitName: "A"})
	require.NoError(t, err)
	assetB, err := l.CreateAsset(ctx, model.AssetParams{Total: assetSupply, Manager: aliceAddr, Reserve: aliceAddr, Name: "Asset B", UnitName: "B"})
	require.NoError(t, err)

	for _, asset := range []model.AssetID{assetA, assetB} {
		require.NoError(t, l.OptIn(ctx, bobAddr, asset))
		require.NoError(t, l.Transfer(ctx, asset, aliceAddr, bobAddr, assetSupply/2))
	}
	l.Fund(adminAddr, 10_000_000)

	return &fixture{
		t:      t,
		ctx:    ctx,
		ledger: l,
		engine: NewEngine(Config{InstanceID: 42, Administrator: adminAddr}, l, zap.NewNop()),
		assetA: assetA,
		assetB: assetB,
	}
}

func (f *fixture) pool() common.Address {
	return f.engine.Address()
}

func (f *fixture) seed(amount uint64) model.TransferEvidence {
	return model.TransferEvidence{Asset: model.NativeAsset, Amount: amount, Sender: adminAddr, Receiver: f.pool()}
}

func (f *fixture) tryBootstrap(caller common.Address, seed model.TransferEvidence, a, b model.AssetID) (model.AssetID, error) {
	return f.tryBootstrapWith(caller, []model.TransferEvidence{seed}, seed, a, b)
}

// tryBootstrapWith lands deposits and hands the engine seed as evidence.
func (f *fixture) tryBootstrapWith(caller common.Address, deposits []model.TransferEvidence, seed model.TransferEvidence, a, b model.AssetID) (model.AssetID, error) {
	var share model.AssetID
	err := f.ledger.Submit(f.ctx, deposits, func(ctx context.Context) error {
		var err error
		share, err = f.engine.Bootstrap(ctx, caller, seed, a, b)
		return err
	})
	return share, err
}

func (f *fixture) bootstrap() {
	f.t.Helper()
	share, err := f.tryBootstrap(adminAddr, f.seed(MinSeedFunding), f.assetA, f.assetB)
	require.NoError(f.t, err)
	f.share = share
	require.NoError(f.t, f.ledger.OptIn(f.ctx, aliceAddr, share))
	require.NoError(f.t, f.ledger.OptIn(f.ctx, bobAddr, share))
}

func (f *fixture) deposit(caller common.Address, asset model.AssetID, amount uint64) model.TransferEvidence {
	return model.TransferEvidence{Asset: asset, Amount: amount, Sender: caller, Receiver: f.pool()}
}

func (f *fixture) mint(caller common.Address, a, b uint64) (MintResult, error) {
	aDep := f.deposit(caller, f.assetA, a)
	bDep := f.deposit(caller, f.assetB, b)
	var res MintResult
	err := f.ledger.Submit(f.ctx, []model.TransferEvidence{aDep, bDep}, func(ctx context.Context) error {
		var err error
		res, err = f.engine.Mint(ctx, caller, aDep, bDep)
		return err
	})
	return res, err
}

func (f *fixture) burn(caller common.Address, shares uint64) (BurnResult, error) {
	dep := f.deposit(caller, f.share, shares)
	var res BurnResult
	err := f.ledger.Submit(f.ctx, []model.TransferEvidence{dep}, func(ctx context.Context) error {
		var err error
		res, err = f.engine.Burn(ctx, caller, dep)
		return err
	})
	return res, err
}

func (f *fixture) swap(caller common.Address, asset model.AssetID, amount uint64) (SwapResult, error) {
	dep := f.deposit(caller, asset, amount)
	var res SwapResult
	err := f.ledger.Submit(f.ctx, []model.TransferEvidence{dep}, func(ctx context.Context) error {
		var err error
		res, err = f.engine.Swap(ctx, caller, dep)
		return err
	})
	return res, err
}

func (f *fixture) balance(holder common.Address, asset model.AssetID) uint64 {
	f.t.Helper()
	bal, err := f.ledger.Balance(f.ctx, holder, asset)
	require.NoError(f.t, err)
	return bal
}

func (f *fixture) issued() uint64 {
	return TotalShareSupply - f.balance(f.pool(), f.share)
}
