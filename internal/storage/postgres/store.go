package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cpamm/internal/model"
	"cpamm/internal/storage"
)

var _ storage.Journal = (*Store)(nil)

// Store provides Postgres persistence for the action journal, pool
// snapshots and window metrics.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

//go:embed schema.sql
var schema string

// EnsureSchema creates the tables the store writes to when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

type output struct {
	Asset  model.AssetID `json:"asset"`
	Amount uint64        `json:"amount"`
}

// PutActions inserts journal records. Records already present for the same
// pool and sequence are left untouched.
func (s *Store) PutActions(ctx context.Context, records []model.ActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		deposits, err := json.Marshal(r.Deposits)
		if err != nil {
			return fmt.Errorf("marshal deposits: %w", err)
		}
		outs := make([]output, 0, len(r.AssetOut))
		for i, asset := range r.AssetOut {
			if i < len(r.AmountOut) {
				outs = append(outs, output{Asset: asset, Amount: r.AmountOut[i]})
			}
		}
		outputs, err := json.Marshal(outs)
		if err != nil {
			return fmt.Errorf("marshal outputs: %w", err)
		}

		batch.Queue(`
			INSERT INTO pool_actions (
				pool_address, sequence, action, caller, deposits, outputs, ratio,
				reserve_a, reserve_b, ok, error, ts, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now())
			ON CONFLICT (pool_address, sequence) DO NOTHING
		`,
			r.Pool,
			strconv.FormatUint(r.Sequence, 10),
			r.Action,
			r.Caller,
			deposits,
			outputs,
			strconv.FormatUint(r.Ratio, 10),
			strconv.FormatUint(r.ReserveA, 10),
			strconv.FormatUint(r.ReserveB, 10),
			r.OK,
			r.Error,
			strconv.FormatUint(r.Timestamp, 10),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertPoolState inserts or updates the latest snapshot of a pool.
func (s *Store) UpsertPoolState(ctx context.Context, state model.PoolState, sequence uint64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pool_states (
			pool_address, instance_id, administrator, asset_a, asset_b, pool_share,
			ratio, bootstrapped, sequence, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())
		ON CONFLICT (pool_address)
		DO UPDATE SET
			administrator = EXCLUDED.administrator,
			asset_a = EXCLUDED.asset_a,
			asset_b = EXCLUDED.asset_b,
			pool_share = EXCLUDED.pool_share,
			ratio = EXCLUDED.ratio,
			bootstrapped = EXCLUDED.bootstrapped,
			sequence = GREATEST(pool_states.sequence, EXCLUDED.sequence),
			updated_at = now()
	`,
		state.Address.Hex(),
		strconv.FormatUint(state.InstanceID, 10),
		state.Administrator.Hex(),
		strconv.FormatUint(uint64(state.AssetA), 10),
		strconv.FormatUint(uint64(state.AssetB), 10),
		strconv.FormatUint(uint64(state.PoolShare), 10),
		strconv.FormatUint(state.Ratio, 10),
		state.Bootstrapped,
		strconv.FormatUint(sequence, 10),
	)
	return err
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				pool_address, window_size_seconds, window_start_ts, window_end_ts,
				asset_a, asset_b, swap_count, volume_a, volume_b, fee_a, fee_b,
				fee_rate_a, fee_rate_b, reserve_a, reserve_b, apr, last_ratio, fee_method,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,now(),now())
			ON CONFLICT (pool_address, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				volume_a = EXCLUDED.volume_a,
				volume_b = EXCLUDED.volume_b,
				fee_a = EXCLUDED.fee_a,
				fee_b = EXCLUDED.fee_b,
				fee_rate_a = EXCLUDED.fee_rate_a,
				fee_rate_b = EXCLUDED.fee_rate_b,
				reserve_a = EXCLUDED.reserve_a,
				reserve_b = EXCLUDED.reserve_b,
				apr = EXCLUDED.apr,
				last_ratio = EXCLUDED.last_ratio,
				fee_method = EXCLUDED.fee_method,
				updated_at = now()
		`,
			m.PoolAddress,
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			strconv.FormatUint(uint64(m.AssetA), 10),
			strconv.FormatUint(uint64(m.AssetB), 10),
			int64(m.SwapCount),
			m.VolumeA,
			m.VolumeB,
			m.FeeA,
			m.FeeB,
			m.FeeRateA,
			m.FeeRateB,
			m.ReserveA,
			m.ReserveB,
			m.APR,
			strconv.FormatUint(m.LastRatio, 10),
			m.FeeMethod,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM ammd_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(ts), true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ammd_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, int64(ts))
	return err
}
