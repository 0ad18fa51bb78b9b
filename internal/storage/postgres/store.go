package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolwatch/internal/model"
)

// Store provides Postgres persistence for decoded pool events and per-pool
// scan progress.
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

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the event and progress tables if absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, ddl := range schemaDDL {
		if _, err := s.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Progress returns the last indexed block for a pool.
func (s *Store) Progress(ctx context.Context, pool string) (uint64, bool, error) {
	var height int64
	row := s.pool.QueryRow(ctx,
		`SELECT last_indexed_block FROM pool_progress WHERE pool_address = $1`,
		model.NormalizeAddress(pool))
	if err := row.Scan(&height); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(height), true, nil
}

// AdvanceProgress moves a pool's progress forward. Heights at or below the
// stored one are ignored, so retried or concurrent writers cannot rewind.
func (s *Store) AdvanceProgress(ctx context.Context, pool string, height uint64) error {
	_, err := s.pool.Exec(ctx, advanceProgressSQL, model.NormalizeAddress(pool), int64(height))
	return err
}

const advanceProgressSQL = `
	INSERT INTO pool_progress (pool_address, last_indexed_block, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (pool_address) DO UPDATE
	SET last_indexed_block = EXCLUDED.last_indexed_block, updated_at = now()
	WHERE pool_progress.last_indexed_block < EXCLUDED.last_indexed_block
`

func (s *Store) AllProgress(ctx context.Context) (map[string]uint64, error) {
	rows, err := s.pool.Query(ctx, `SELECT pool_address, last_indexed_block FROM pool_progress`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]uint64)
	for rows.Next() {
		var pool string
		var height int64
		if err := rows.Scan(&pool, &height); err != nil {
			return nil, err
		}
		out[pool] = uint64(height)
	}
	return out, rows.Err()
}

// InsertEvents writes a batch with insert-if-absent semantics keyed by
// (pool, txHash, logIndex). Safe to call repeatedly with overlapping batches.
func (s *Store) InsertEvents(ctx context.Context, events []model.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	batch, err := buildInsertBatch(events)
	if err != nil {
		return 0, err
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range events {
		tag, err := br.Exec()
		if err != nil {
			return inserted, err
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// CommitChunk inserts a chunk's events and advances the pool's progress in a
// single transaction. A crash can lose the whole pair but never half of it;
// the rescan on restart is absorbed by the idempotent insert key.
func (s *Store) CommitChunk(ctx context.Context, pool string, events []model.Event, toBlock uint64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if len(events) > 0 {
		batch, err := buildInsertBatch(events)
		if err != nil {
			return err
		}
		br := tx.SendBatch(ctx, batch)
		for range events {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return err
			}
		}
		if err := br.Close(); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, advanceProgressSQL, model.NormalizeAddress(pool), int64(toBlock)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func buildInsertBatch(events []model.Event) (*pgx.Batch, error) {
	batch := &pgx.Batch{}
	for _, event := range events {
		switch e := event.(type) {
		case model.LiquidityEvent:
			batch.Queue(`
				INSERT INTO pool_liquidity_events (
					pool_address, event_type, token0_amount, token1_amount,
					token0_decimals, token1_decimals, provider_address,
					tx_hash, log_index, block_number, block_time
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
				ON CONFLICT (pool_address, tx_hash, log_index) DO NOTHING
			`,
				e.Pool, string(e.Kind), e.Amount0, e.Amount1,
				int16(e.Decimals0), int16(e.Decimals1), e.Provider,
				e.TxHash, int64(e.LogIndex), int64(e.BlockNumber), int64(e.BlockTime),
			)
		case model.SwapEvent:
			batch.Queue(`
				INSERT INTO pool_swaps (
					pool_address, sender, recipient,
					amount0_in, amount1_in, amount0_out, amount1_out,
					token0_decimals, token1_decimals,
					tx_hash, log_index, block_number, block_time
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
				ON CONFLICT (pool_address, tx_hash, log_index) DO NOTHING
			`,
				e.Pool, e.Sender, e.Recipient,
				e.Amount0In, e.Amount1In, e.Amount0Out, e.Amount1Out,
				int16(e.Decimals0), int16(e.Decimals1),
				e.TxHash, int64(e.LogIndex), int64(e.BlockNumber), int64(e.BlockTime),
			)
		case model.FeeClaimEvent:
			batch.Queue(`
				INSERT INTO pool_fee_claims (
					pool_address, sender, recipient, token0_fee, token1_fee,
					token0_decimals, token1_decimals,
					tx_hash, log_index, block_number, block_time
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
				ON CONFLICT (pool_address, tx_hash, log_index) DO NOTHING
			`,
				e.Pool, e.Sender, e.Recipient, e.Amount0, e.Amount1,
				int16(e.Decimals0), int16(e.Decimals1),
				e.TxHash, int64(e.LogIndex), int64(e.BlockNumber), int64(e.BlockTime),
			)
		default:
			return nil, fmt.Errorf("unsupported event type %T", event)
		}
	}
	return batch, nil
}

// LiquidityEvents returns a pool's liquidity events within the block-time
// window, in block order. Zero bounds mean unbounded.
func (s *Store) LiquidityEvents(ctx context.Context, pool string, fromTime, toTime uint64) ([]model.LiquidityEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pool_address, event_type, token0_amount, token1_amount,
		       token0_decimals, token1_decimals, provider_address,
		       tx_hash, log_index, block_number, block_time
		FROM pool_liquidity_events
		WHERE pool_address = $1
		  AND ($2 = 0 OR block_time >= $2)
		  AND ($3 = 0 OR block_time <= $3)
		ORDER BY block_number, log_index
	`, model.NormalizeAddress(pool), int64(fromTime), int64(toTime))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.LiquidityEvent, 0)
	for rows.Next() {
		var e model.LiquidityEvent
		var kind string
		var dec0, dec1 int16
		var logIndex, blockNumber, blockTime int64
		if err := rows.Scan(&e.Pool, &kind, &e.Amount0, &e.Amount1,
			&dec0, &dec1, &e.Provider, &e.TxHash, &logIndex, &blockNumber, &blockTime); err != nil {
			return nil, err
		}
		e.Kind = model.LiquidityKind(kind)
		e.Decimals0 = uint8(dec0)
		e.Decimals1 = uint8(dec1)
		e.LogIndex = uint64(logIndex)
		e.BlockNumber = uint64(blockNumber)
		e.BlockTime = uint64(blockTime)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Swaps returns a pool's swaps within the block-time window, in block order.
func (s *Store) Swaps(ctx context.Context, pool string, fromTime, toTime uint64) ([]model.SwapEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pool_address, sender, recipient,
		       amount0_in, amount1_in, amount0_out, amount1_out,
		       token0_decimals, token1_decimals,
		       tx_hash, log_index, block_number, block_time
		FROM pool_swaps
		WHERE pool_address = $1
		  AND ($2 = 0 OR block_time >= $2)
		  AND ($3 = 0 OR block_time <= $3)
		ORDER BY block_number, log_index
	`, model.NormalizeAddress(pool), int64(fromTime), int64(toTime))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.SwapEvent, 0)
	for rows.Next() {
		var e model.SwapEvent
		var dec0, dec1 int16
		var logIndex, blockNumber, blockTime int64
		if err := rows.Scan(&e.Pool, &e.Sender, &e.Recipient,
			&e.Amount0In, &e.Amount1In, &e.Amount0Out, &e.Amount1Out,
			&dec0, &dec1, &e.TxHash, &logIndex, &blockNumber, &blockTime); err != nil {
			return nil, err
		}
		e.Decimals0 = uint8(dec0)
		e.Decimals1 = uint8(dec1)
		e.LogIndex = uint64(logIndex)
		e.BlockNumber = uint64(blockNumber)
		e.BlockTime = uint64(blockTime)
		out = append(out, e)
	}
	return out, rows.Err()
}

// FeeClaims returns a pool's fee claims within the block-time window.
func (s *Store) FeeClaims(ctx context.Context, pool string, fromTime, toTime uint64) ([]model.FeeClaimEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pool_address, sender, recipient, token0_fee, token1_fee,
		       token0_decimals, token1_decimals,
		       tx_hash, log_index, block_number, block_time
		FROM pool_fee_claims
		WHERE pool_address = $1
		  AND ($2 = 0 OR block_time >= $2)
		  AND ($3 = 0 OR block_time <= $3)
		ORDER BY block_number, log_index
	`, model.NormalizeAddress(pool), int64(fromTime), int64(toTime))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.FeeClaimEvent, 0)
	for rows.Next() {
		var e model.FeeClaimEvent
		var dec0, dec1 int16
		var logIndex, blockNumber, blockTime int64
		if err := rows.Scan(&e.Pool, &e.Sender, &e.Recipient, &e.Amount0, &e.Amount1,
			&dec0, &dec1, &e.TxHash, &logIndex, &blockNumber, &blockTime); err != nil {
			return nil, err
		}
		e.Decimals0 = uint8(dec0)
		e.Decimals1 = uint8(dec1)
		e.LogIndex = uint64(logIndex)
		e.BlockNumber = uint64(blockNumber)
		e.BlockTime = uint64(blockTime)
		out = append(out, e)
	}
	return out, rows.Err()
}
