// Package aggregate rolls the action journal up into per-pool window
// metrics.
package aggregate

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"go.uber.org/zap"

	"cpamm/internal/model"
	"cpamm/internal/storage"
)

const feeMethodFixed = "fee_num_over_scale"

// MetricsStore receives finished windows.
type MetricsStore interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
	// Decimals formats amounts of the listed assets; others are raw units.
	Decimals map[model.AssetID]uint8
}

// Aggregator aggregates journal records into pool window metrics.
type Aggregator struct {
	cfg          Config
	store        MetricsStore
	logger       *zap.Logger
	accumulators map[string]*Accumulator
}

func NewAggregator(cfg Config, store MetricsStore, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aggregator{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}
}

// Run executes aggregation over an action journal JSONL file.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	if a.store == nil {
		return fmt.Errorf("store is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	maxTs := startTs
	var total, windows, skipped, failed int

	err = storage.ScanActions(inputPath, func(record model.ActionRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		total++

		if record.Timestamp <= startTs {
			skipped++
			return nil
		}

		windowStart := windowStart(record.Timestamp, a.cfg.WindowSeconds)
		windowEnd := windowStart + a.cfg.WindowSeconds

		acc := a.accumulators[record.Pool]
		if acc == nil {
			acc = NewAccumulator(record, windowStart, windowEnd)
			a.accumulators[record.Pool] = acc
		} else if acc.WindowStart != windowStart {
			if metrics := a.flushAccumulator(acc); metrics != nil {
				batch = append(batch, *metrics)
				windows++
			}
			acc = NewAccumulator(record, windowStart, windowEnd)
			a.accumulators[record.Pool] = acc
		}

		if err := acc.AddAction(record); err != nil {
			failed++
			a.logger.Warn("aggregate action", zap.Error(err), zap.String("pool", record.Pool), zap.String("action", record.Action))
			return nil
		}

		if record.Timestamp > maxTs {
			maxTs = record.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.store.UpsertWindowMetrics(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]

			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
		return nil
	}, func(line int, err error) {
		failed++
		a.logger.Warn("decode action record", zap.Int("line", line), zap.Error(err))
	})
	if err != nil {
		return err
	}

	for _, key := range sortedKeys(a.accumulators) {
		if metrics := a.flushAccumulator(a.accumulators[key]); metrics != nil {
			batch = append(batch, *metrics)
			windows++
		}
	}
	a.accumulators = make(map[string]*Accumulator)

	if len(batch) > 0 {
		if err := a.store.UpsertWindowMetrics(ctx, batch); err != nil {
			return err
		}
	}

	a.cfg.RecomputeFrom = maxTs
	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", windows),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

// saveState records progress up to just before the oldest window that is
// still open, so a resumed run rebuilds it in full.
func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}

	if len(a.accumulators) == 0 {
		return a.cfg.StateStore.Save(ctx, a.cfg.RecomputeFrom)
	}

	safeTs := minOpenWindowStart(a.accumulators)
	if safeTs > 0 {
		safeTs = safeTs - 1
	}
	if safeTs == 0 {
		safeTs = a.cfg.RecomputeFrom
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

// flushAccumulator turns a closed window into metrics. Windows without a
// swap carry no asset pair and are dropped.
func (a *Aggregator) flushAccumulator(acc *Accumulator) *model.PoolWindowMetrics {
	if acc == nil {
		return nil
	}
	if acc.SwapCount == 0 {
		a.logger.Debug("window without swaps", zap.String("pool", acc.PoolAddress), zap.Uint64("window_start", acc.WindowStart))
		return nil
	}

	decimalsA := a.cfg.Decimals[acc.AssetA]
	decimalsB := a.cfg.Decimals[acc.AssetB]

	reserveA := new(big.Int).SetUint64(acc.ReserveA)
	reserveB := new(big.Int).SetUint64(acc.ReserveB)
	reserveAStr := formatTokenAmount(reserveA, decimalsA)
	reserveBStr := formatTokenAmount(reserveB, decimalsB)

	feeRateA, feeRateB := computeFeeRates(acc.FeeA, acc.FeeB, reserveA, reserveB)
	apr := computeAPR(feeRateA, feeRateB, a.cfg.WindowSeconds)

	return &model.PoolWindowMetrics{
		PoolAddress:    acc.PoolAddress,
		WindowSizeSecs: int64(a.cfg.WindowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		AssetA:         acc.AssetA,
		AssetB:         acc.AssetB,
		SwapCount:      acc.SwapCount,
		VolumeA:        formatTokenAmount(acc.VolumeA, decimalsA),
		VolumeB:        formatTokenAmount(acc.VolumeB, decimalsB),
		FeeA:           formatTokenAmount(acc.FeeA, decimalsA),
		FeeB:           formatTokenAmount(acc.FeeB, decimalsB),
		FeeRateA:       feeRateA,
		FeeRateB:       feeRateB,
		ReserveA:       &reserveAStr,
		ReserveB:       &reserveBStr,
		APR:            apr,
		LastRatio:      acc.LastRatio,
		FeeMethod:      feeMethodFixed,
	}
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func minOpenWindowStart(acc map[string]*Accumulator) uint64 {
	var min uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if min == 0 || entry.WindowStart < min {
			min = entry.WindowStart
		}
	}
	return min
}

func sortedKeys(acc map[string]*Accumulator) []string {
	keys := make([]string, 0, len(acc))
	for key := range acc {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
