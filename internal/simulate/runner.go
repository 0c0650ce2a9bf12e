// Package simulate replays scenarios of pool actions against an in-memory
// ledger and journals every submitted action.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cpamm/internal/amm"
	"cpamm/internal/ledger"
	"cpamm/internal/model"
	"cpamm/internal/storage"
)

var (
	errUnknownAction = errors.New("unknown action")
	// ErrUnexpectedOutcome is returned under FailFast when a step does not
	// end the way the scenario expects.
	ErrUnexpectedOutcome = errors.New("unexpected step outcome")
)

// StateSink receives the pool state after every accepted action.
type StateSink interface {
	UpsertPoolState(ctx context.Context, state model.PoolState, sequence uint64) error
}

// Config controls a simulation run.
type Config struct {
	SnapshotDir string
	FailFast    bool
	Parallel    int
}

// Report summarises one scenario run.
type Report struct {
	Name       string
	Pool       string
	Steps      int
	Accepted   int
	Rejected   int
	Unexpected int
	State      model.PoolState
	ReserveA   uint64
	ReserveB   uint64
}

// Runner executes scenarios. It is safe to run several scenarios at once;
// each gets its own ledger and engine.
type Runner struct {
	cfg     Config
	journal storage.Journal
	states  StateSink
	logger  *zap.Logger
	now     func() time.Time
}

func NewRunner(cfg Config, journal storage.Journal, states StateSink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:     cfg,
		journal: journal,
		states:  states,
		logger:  logger,
		now:     time.Now,
	}
}

// RunAll executes scenarios concurrently, at most cfg.Parallel at a time.
// Reports are returned in scenario order.
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario) ([]Report, error) {
	reports := make([]Report, len(scenarios))
	g, ctx := errgroup.WithContext(ctx)
	if r.cfg.Parallel > 0 {
		g.SetLimit(r.cfg.Parallel)
	}
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			report, err := r.Run(ctx, sc)
			reports[i] = report
			if err != nil {
				return fmt.Errorf("scenario %s: %w", sc.Name, err)
			}
			return nil
		})
	}
	return reports, g.Wait()
}

// Run executes a single scenario.
func (r *Runner) Run(ctx context.Context, sc Scenario) (Report, error) {
	logger := r.logger.With(zap.String("scenario", sc.Name))
	book := ledger.NewMemory(logger)

	if err := setup(ctx, book, sc); err != nil {
		return Report{Name: sc.Name}, err
	}

	engine := amm.NewEngine(amm.Config{InstanceID: sc.InstanceID, Administrator: sc.Administrator}, book, logger)
	report := Report{Name: sc.Name, Pool: engine.Address().Hex()}

	var snapshots *storage.SnapshotStore
	if r.cfg.SnapshotDir != "" {
		snapshots = storage.NewSnapshotStore(filepath.Join(r.cfg.SnapshotDir, sc.Name+".json"))
	}

	start := sc.StartTime
	if start == 0 {
		start = uint64(r.now().Unix())
	}
	interval := sc.StepSeconds
	if interval == 0 {
		interval = 1
	}

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		seq := uint64(i + 1)

		record, err := r.execute(ctx, book, engine, step)
		record.Pool = report.Pool
		record.Sequence = seq
		record.Timestamp = start + uint64(i)*interval
		record.RecordedAt = r.now().UTC().Format(time.RFC3339Nano)
		record.Ratio = engine.Ratio()
		record.ReserveA, record.ReserveB = reserves(ctx, book, engine.State())

		report.Steps++
		if err != nil {
			report.Rejected++
			record.Error = err.Error()
		} else {
			report.Accepted++
			record.OK = true
		}

		if r.journal != nil {
			if jerr := r.journal.PutActions(ctx, []model.ActionRecord{record}); jerr != nil {
				return report, fmt.Errorf("journal step %d: %w", seq, jerr)
			}
		}

		kind := ErrorKind(err)
		expect := step.Expect
		if expect == "" {
			expect = kindOK
		}
		fields := []zap.Field{
			zap.Uint64("seq", seq),
			zap.String("action", step.Action),
			zap.String("outcome", kind),
		}
		if kind != expect {
			report.Unexpected++
			logger.Warn("unexpected step outcome", append(fields, zap.String("expect", expect), zap.Error(err))...)
			if r.cfg.FailFast {
				return report, fmt.Errorf("step %d %s: got %s, want %s: %w", seq, step.Action, kind, expect, ErrUnexpectedOutcome)
			}
		} else {
			logger.Debug("step", fields...)
		}

		if err == nil {
			if err := r.persist(ctx, snapshots, engine.State(), seq); err != nil {
				return report, err
			}
		}
	}

	report.State = engine.State()
	report.ReserveA, report.ReserveB = reserves(ctx, book, report.State)

	logger.Info("scenario complete",
		zap.String("pool", report.Pool),
		zap.Int("steps", report.Steps),
		zap.Int("accepted", report.Accepted),
		zap.Int("rejected", report.Rejected),
		zap.Int("unexpected", report.Unexpected),
		zap.Uint64("ratio", report.State.Ratio),
	)
	return report, nil
}

func (r *Runner) persist(ctx context.Context, snapshots *storage.SnapshotStore, state model.PoolState, seq uint64) error {
	if snapshots != nil {
		if err := snapshots.Save(state, seq); err != nil {
			return err
		}
	}
	if r.states != nil {
		if err := r.states.UpsertPoolState(ctx, state, seq); err != nil {
			return fmt.Errorf("upsert pool state: %w", err)
		}
	}
	return nil
}

// execute submits one step as an atomic unit and describes it as a journal
// record.
func (r *Runner) execute(ctx context.Context, book *ledger.Memory, engine *amm.Engine, step Step) (model.ActionRecord, error) {
	record := model.ActionRecord{Action: step.Action, Caller: step.Caller.Hex()}
	state := engine.State()
	pool := state.Address

	deposit := func(asset model.AssetID, amount uint64) model.TransferEvidence {
		return model.TransferEvidence{Asset: asset, Amount: amount, Sender: step.Caller, Receiver: pool}
	}

	switch step.Action {
	case model.ActionBootstrap:
		seed := deposit(model.NativeAsset, step.Seed)
		record.Deposits = []model.TransferEvidence{seed}
		var share model.AssetID
		err := book.Submit(ctx, record.Deposits, func(ctx context.Context) error {
			var err error
			share, err = engine.Bootstrap(ctx, step.Caller, seed, step.AssetA, step.AssetB)
			return err
		})
		if err == nil {
			record.AssetOut = []model.AssetID{share}
			record.AmountOut = []uint64{0}
		}
		return record, err

	case model.ActionMint:
		optIn(ctx, book, step.Caller, state)
		aDep, bDep := deposit(state.AssetA, step.AmountA), deposit(state.AssetB, step.AmountB)
		record.Deposits = []model.TransferEvidence{aDep, bDep}
		var res amm.MintResult
		err := book.Submit(ctx, record.Deposits, func(ctx context.Context) error {
			var err error
			res, err = engine.Mint(ctx, step.Caller, aDep, bDep)
			return err
		})
		if err == nil {
			record.AssetOut = []model.AssetID{state.PoolShare}
			record.AmountOut = []uint64{res.Shares}
		}
		return record, err

	case model.ActionBurn:
		optIn(ctx, book, step.Caller, state)
		dep := deposit(state.PoolShare, step.Amount)
		record.Deposits = []model.TransferEvidence{dep}
		var res amm.BurnResult
		err := book.Submit(ctx, record.Deposits, func(ctx context.Context) error {
			var err error
			res, err = engine.Burn(ctx, step.Caller, dep)
			return err
		})
		if err == nil {
			record.AssetOut = []model.AssetID{state.AssetA, state.AssetB}
			record.AmountOut = []uint64{res.AmountA, res.AmountB}
		}
		return record, err

	case model.ActionSwap:
		optIn(ctx, book, step.Caller, state)
		dep := deposit(step.Asset, step.Amount)
		record.Deposits = []model.TransferEvidence{dep}
		var res amm.SwapResult
		err := book.Submit(ctx, record.Deposits, func(ctx context.Context) error {
			var err error
			res, err = engine.Swap(ctx, step.Caller, dep)
			return err
		})
		if err == nil {
			record.AssetOut = []model.AssetID{res.AssetOut}
			record.AmountOut = []uint64{res.AmountOut}
		}
		return record, err

	case model.ActionSetAdministrator:
		err := book.Submit(ctx, nil, func(ctx context.Context) error {
			return engine.SetAdministrator(ctx, step.Caller, step.NewAdministrator)
		})
		return record, err

	default:
		return record, fmt.Errorf("%w: %q", errUnknownAction, step.Action)
	}
}

// optIn makes sure the caller can receive every asset the pool pays out.
// Opting in is the caller's own ledger request and happens outside the
// action's atomic unit.
func optIn(ctx context.Context, book *ledger.Memory, caller common.Address, state model.PoolState) {
	if !state.Bootstrapped {
		return
	}
	for _, asset := range []model.AssetID{state.AssetA, state.AssetB, state.PoolShare} {
		_ = book.OptIn(ctx, caller, asset)
	}
}

func reserves(ctx context.Context, book *ledger.Memory, state model.PoolState) (uint64, uint64) {
	if !state.Bootstrapped {
		return 0, 0
	}
	a, errA := book.Balance(ctx, state.Address, state.AssetA)
	b, errB := book.Balance(ctx, state.Address, state.AssetB)
	if errA != nil || errB != nil {
		return 0, 0
	}
	return a, b
}

// setup creates the scenario's assets and opening balances.
func setup(ctx context.Context, book *ledger.Memory, sc Scenario) error {
	for _, asset := range sc.Assets {
		_, err := book.CreateAsset(ctx, model.AssetParams{
			Total:    asset.Total,
			Decimals: asset.Decimals,
			Manager:  asset.Reserve,
			Reserve:  asset.Reserve,
			Name:     asset.Name,
			UnitName: asset.UnitName,
		})
		if err != nil {
			return fmt.Errorf("create asset %s: %w", asset.UnitName, err)
		}
	}

	for _, bal := range sc.Balances {
		if bal.Asset == model.NativeAsset {
			book.Fund(bal.Holder, bal.Amount)
			continue
		}
		params, ok := book.Asset(bal.Asset)
		if !ok {
			return fmt.Errorf("balance for asset %d: %w", bal.Asset, ledger.ErrUnknownAsset)
		}
		if err := book.OptIn(ctx, bal.Holder, bal.Asset); err != nil {
			return err
		}
		if err := book.Transfer(ctx, bal.Asset, params.Reserve, bal.Holder, bal.Amount); err != nil {
			return fmt.Errorf("fund %s with asset %d: %w", bal.Holder.Hex(), bal.Asset, err)
		}
	}
	return nil
}
