package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	poolAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenIn  = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	tokenOut = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

// fakeCaller answers ERC20 reads from fixed per-token values.
type fakeCaller struct {
	balances map[common.Address]*big.Int
	symbols  map[common.Address]string
	calls    int
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	tokenABI, err := erc20ABIInstance()
	if err != nil {
		return nil, err
	}
	method, err := tokenABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	token := *msg.To
	switch method.Name {
	case "balanceOf":
		bal, ok := f.balances[token]
		if !ok {
			return nil, errors.New("execution reverted")
		}
		return method.Outputs.Pack(bal)
	case "decimals":
		return method.Outputs.Pack(uint8(18))
	case "symbol":
		return method.Outputs.Pack(f.symbols[token])
	}
	return nil, errors.New("unexpected method")
}

func TestReserves(t *testing.T) {
	caller := &fakeCaller{balances: map[common.Address]*big.Int{
		tokenIn:  big.NewInt(10_000),
		tokenOut: big.NewInt(3_000),
	}}

	in, out, err := Reserves(context.Background(), caller, poolAddr, tokenIn, tokenOut, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(10_000), in)
	require.Equal(t, uint64(3_000), out)
}

func TestReservesTooLarge(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 64)
	caller := &fakeCaller{balances: map[common.Address]*big.Int{tokenIn: huge, tokenOut: big.NewInt(1)}}

	_, _, err := Reserves(context.Background(), caller, poolAddr, tokenIn, tokenOut, nil)
	require.ErrorIs(t, err, ErrReserveTooLarge)
}

func TestReservesCallFails(t *testing.T) {
	caller := &fakeCaller{balances: map[common.Address]*big.Int{tokenIn: big.NewInt(1)}}

	_, _, err := Reserves(context.Background(), caller, poolAddr, tokenIn, tokenOut, nil)
	require.ErrorContains(t, err, "reserve out")
}

func TestFetchTokenMetaUsesCache(t *testing.T) {
	caller := &fakeCaller{symbols: map[common.Address]string{tokenIn: "USDT"}}
	cache := NewTokenMetaCache()

	meta, err := FetchTokenMeta(context.Background(), caller, tokenIn, cache)
	require.NoError(t, err)
	require.Equal(t, TokenMeta{Symbol: "USDT", Decimals: 18}, meta)
	require.Equal(t, 2, caller.calls)

	_, err = FetchTokenMeta(context.Background(), caller, tokenIn, cache)
	require.NoError(t, err)
	require.Equal(t, 2, caller.calls)
}

func TestWithRetry(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)

	attempts = 0
	errPermanent := errors.New("permanent")
	err = WithRetry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		attempts++
		return errPermanent
	})
	require.ErrorIs(t, err, errPermanent)
	require.Equal(t, 3, attempts)
}

func TestWithRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, 5, time.Hour, func(context.Context) error {
		return errors.New("transient")
	})
	require.ErrorIs(t, err, context.Canceled)
}
