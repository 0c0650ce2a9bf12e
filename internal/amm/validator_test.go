package amm

import (
	"context"
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cpamm/internal/ledger"
	"cpamm/internal/model"
)

func TestRequireDeposit(t *testing.T) {
	pool := model.PoolAddress(1)
	ok := model.TransferEvidence{Asset: 5, Amount: 10, Sender: aliceAddr, Receiver: pool}

	tests := []struct {
		name   string
		mutate func(ev *model.TransferEvidence)
		expErr error
	}{
		{name: "valid", mutate: func(*model.TransferEvidence) {}},
		{name: "asset", mutate: func(ev *model.TransferEvidence) { ev.Asset = 6 }, expErr: ErrAssetMismatch},
		{name: "receiver", mutate: func(ev *model.TransferEvidence) { ev.Receiver = bobAddr }, expErr: ErrReceiverMismatch},
		{name: "zero", mutate: func(ev *model.TransferEvidence) { ev.Amount = 0 }, expErr: ErrZeroAmountDeposit},
		{name: "sender", mutate: func(ev *model.TransferEvidence) { ev.Sender = bobAddr }, expErr: ErrSenderMismatch},
		{
			// The asset check runs first.
			name: "asset before sender",
			mutate: func(ev *model.TransferEvidence) {
				ev.Asset = 6
				ev.Sender = bobAddr
			},
			expErr: ErrAssetMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := ok
			tt.mutate(&ev)
			err := Validate(RequireDeposit(ev, aliceAddr, pool, 4, 5))
			if tt.expErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.expErr)
		})
	}
}

func TestRequireOrdering(t *testing.T) {
	require.NoError(t, Validate(RequireOrdering(1, 2)))
	require.ErrorIs(t, Validate(RequireOrdering(2, 1)), ErrInvalidAssetOrdering)
	require.ErrorIs(t, Validate(RequireOrdering(2, 2)), ErrInvalidAssetOrdering)
	require.ErrorIs(t, Validate(RequireOrdering(model.NativeAsset, 2)), ErrAssetMismatch)
}

func TestRequireLanded(t *testing.T) {
	pool := model.PoolAddress(1)
	a := model.TransferEvidence{Asset: 5, Amount: 10, Sender: aliceAddr, Receiver: pool}
	b := model.TransferEvidence{Asset: 6, Amount: 20, Sender: aliceAddr, Receiver: pool}

	require.NoError(t, Validate(RequireLanded([]model.TransferEvidence{b, a}, a, b)))
	require.NoError(t, Validate(RequireLanded([]model.TransferEvidence{a, a}, a, a)))
	require.ErrorIs(t, Validate(RequireLanded(nil, a)), ErrDepositNotLanded)

	// Each landed transfer backs one evidence record.
	require.ErrorIs(t, Validate(RequireLanded([]model.TransferEvidence{a}, a, a)), ErrDepositNotLanded)

	for _, mutate := range []func(ev *model.TransferEvidence){
		func(ev *model.TransferEvidence) { ev.Asset = 6 },
		func(ev *model.TransferEvidence) { ev.Amount = 11 },
		func(ev *model.TransferEvidence) { ev.Sender = bobAddr },
		func(ev *model.TransferEvidence) { ev.Receiver = bobAddr },
	} {
		claimed := a
		mutate(&claimed)
		require.ErrorIs(t, Validate(RequireLanded([]model.TransferEvidence{a}, claimed)), ErrDepositNotLanded)
	}
}

func TestValidateStopsAtFirstFailure(t *testing.T) {
	calls := 0
	count := func(err error) Check {
		return func() error {
			calls++
			return err
		}
	}
	err := Validate(count(nil), count(ErrNotAuthorized), count(ErrInvalidState))
	require.ErrorIs(t, err, ErrNotAuthorized)
	require.Equal(t, 2, calls)
}

func TestQuotes(t *testing.T) {
	shares, err := QuoteInitialMint(10_000, 3_000)
	require.NoError(t, err)
	require.Equal(t, uint64(4477), shares)

	out, err := QuoteSwap(500, 10_000, 3_000)
	require.NoError(t, err)
	require.Equal(t, uint64(142), out)

	_, err = QuoteSwap(500, 0, 3_000)
	require.ErrorIs(t, err, ErrEmptyReserves)

	_, err = QuoteSwap(math.MaxUint64, 1, 1)
	require.ErrorIs(t, err, ErrArithmeticOverflow)

	a, b, err := QuoteBurn(4477, 10_000, 3_000, 4477)
	require.NoError(t, err)
	require.Equal(t, uint64(10_000), a)
	require.Equal(t, uint64(3_000), b)

	_, _, err = QuoteBurn(10, 10_000, 3_000, 11)
	require.ErrorIs(t, err, ErrRedemptionExceedsCirculation)

	ratio, err := PriceRatio(10_000, 3_000)
	require.NoError(t, err)
	require.Equal(t, uint64(3333), ratio)

	ratio, err = PriceRatio(10_000, 0)
	require.NoError(t, err)
	require.Zero(t, ratio)
}

// stubGateway serves fixed balances so engine behavior can be checked against
// ledger states the in-memory ledger never produces.
type stubGateway struct {
	ledger.Gateway
	balances map[model.AssetID]uint64
	landed   []model.TransferEvidence
}

func (s *stubGateway) Deposits(context.Context) []model.TransferEvidence {
	return s.landed
}

func (s *stubGateway) Balance(_ context.Context, _ common.Address, asset model.AssetID) (uint64, error) {
	bal, ok := s.balances[asset]
	if !ok {
		return 0, ledger.ErrUnavailable
	}
	return bal, nil
}

func (s *stubGateway) Transfer(context.Context, model.AssetID, common.Address, common.Address, uint64) error {
	return nil
}

func bootstrappedState() model.PoolState {
	return model.PoolState{
		InstanceID:    7,
		Address:       model.PoolAddress(7),
		Administrator: adminAddr,
		AssetA:        1,
		AssetB:        2,
		PoolShare:     3,
		Bootstrapped:  true,
	}
}

func TestEngineRejectsSupplyAboveTotal(t *testing.T) {
	pool := model.PoolAddress(7)
	aDep := model.TransferEvidence{Asset: 1, Amount: 10, Sender: aliceAddr, Receiver: pool}
	bDep := model.TransferEvidence{Asset: 2, Amount: 10, Sender: aliceAddr, Receiver: pool}
	shareDep := model.TransferEvidence{Asset: 3, Amount: 10, Sender: aliceAddr, Receiver: pool}
	gw := &stubGateway{
		balances: map[model.AssetID]uint64{1: 1000, 2: 1000, 3: TotalShareSupply + 1},
		landed:   []model.TransferEvidence{aDep, bDep, shareDep},
	}
	e := Restore(bootstrappedState(), gw, zap.NewNop())

	_, err := e.Mint(context.Background(), aliceAddr, aDep, bDep)
	require.ErrorIs(t, err, ErrArithmeticOverflow)

	_, err = e.Burn(context.Background(), aliceAddr, shareDep)
	require.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestEngineRedemptionAbovePoolShares(t *testing.T) {
	shareDep := model.TransferEvidence{Asset: 3, Amount: 10, Sender: aliceAddr, Receiver: model.PoolAddress(7)}
	gw := &stubGateway{
		balances: map[model.AssetID]uint64{1: 1000, 2: 1000, 3: 5},
		landed:   []model.TransferEvidence{shareDep},
	}
	e := Restore(bootstrappedState(), gw, zap.NewNop())

	_, err := e.Burn(context.Background(), aliceAddr, shareDep)
	require.ErrorIs(t, err, ErrRedemptionExceedsCirculation)
}

func TestEngineBalanceUnavailable(t *testing.T) {
	dep := model.TransferEvidence{Asset: 1, Amount: 10, Sender: aliceAddr, Receiver: model.PoolAddress(7)}
	gw := &stubGateway{
		balances: map[model.AssetID]uint64{1: 1000, 3: TotalShareSupply},
		landed:   []model.TransferEvidence{dep},
	}
	e := Restore(bootstrappedState(), gw, zap.NewNop())

	_, err := e.Swap(context.Background(), aliceAddr, dep)
	require.ErrorIs(t, err, ErrBalanceUnavailable)
	require.Zero(t, e.Ratio())
}
