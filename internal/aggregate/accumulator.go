package aggregate

import (
	"fmt"
	"math/big"

	"cpamm/internal/amm"
	"cpamm/internal/model"
)

// Accumulator holds aggregate values for a pool window.
type Accumulator struct {
	PoolAddress string
	AssetA      model.AssetID
	AssetB      model.AssetID
	WindowStart uint64
	WindowEnd   uint64
	SwapCount   uint64
	VolumeA     *big.Int
	VolumeB     *big.Int
	FeeA        *big.Int
	FeeB        *big.Int
	ReserveA    uint64
	ReserveB    uint64
	LastRatio   uint64
	LastTS      uint64
	LastSeq     uint64
}

func NewAccumulator(record model.ActionRecord, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		PoolAddress: record.Pool,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		VolumeA:     big.NewInt(0),
		VolumeB:     big.NewInt(0),
		FeeA:        big.NewInt(0),
		FeeB:        big.NewInt(0),
	}
}

// AddAction folds one journal record into the window. Only successful
// swaps move volume and fees; every successful action updates the
// closing reserves.
func (a *Accumulator) AddAction(record model.ActionRecord) error {
	if !record.OK {
		return nil
	}
	if record.Timestamp > a.LastTS || (record.Timestamp == a.LastTS && record.Sequence >= a.LastSeq) {
		a.LastTS = record.Timestamp
		a.LastSeq = record.Sequence
		a.ReserveA = record.ReserveA
		a.ReserveB = record.ReserveB
		a.LastRatio = record.Ratio
	}

	if record.Action != model.ActionSwap {
		return nil
	}
	return a.applySwap(record)
}

func (a *Accumulator) applySwap(record model.ActionRecord) error {
	if len(record.Deposits) != 1 || len(record.AssetOut) != 1 || len(record.AmountOut) != 1 {
		return fmt.Errorf("swap %d: malformed record", record.Sequence)
	}
	in := record.Deposits[0]
	assetOut, amountOut := record.AssetOut[0], record.AmountOut[0]
	if in.Asset == assetOut {
		return fmt.Errorf("swap %d: input and output asset %d", record.Sequence, in.Asset)
	}

	// The lower id is always asset A.
	assetA, assetB := in.Asset, assetOut
	if assetA > assetB {
		assetA, assetB = assetB, assetA
	}
	if a.AssetA == 0 && a.AssetB == 0 {
		a.AssetA, a.AssetB = assetA, assetB
	} else if a.AssetA != assetA || a.AssetB != assetB {
		return fmt.Errorf("swap %d: assets %d/%d, pool trades %d/%d", record.Sequence, assetA, assetB, a.AssetA, a.AssetB)
	}

	amountIn := new(big.Int).SetUint64(in.Amount)
	fee := feeFromAmount(amountIn)
	if in.Asset == a.AssetA {
		a.VolumeA.Add(a.VolumeA, amountIn)
		a.VolumeB.Add(a.VolumeB, new(big.Int).SetUint64(amountOut))
		a.FeeA.Add(a.FeeA, fee)
	} else {
		a.VolumeB.Add(a.VolumeB, amountIn)
		a.VolumeA.Add(a.VolumeA, new(big.Int).SetUint64(amountOut))
		a.FeeB.Add(a.FeeB, fee)
	}

	a.SwapCount++
	return nil
}

// feeFromAmount approximates the fee kept by the pool on an input amount.
func feeFromAmount(amountIn *big.Int) *big.Int {
	fee := new(big.Int).Mul(amountIn, new(big.Int).SetUint64(amm.FeeNum))
	return fee.Div(fee, new(big.Int).SetUint64(amm.Scale))
}
