package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityProfile/internal/model"
)

// Schema creates the tables the store writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS pools (
	chain_id BIGINT NOT NULL,
	pool_address TEXT NOT NULL,
	token0 TEXT NOT NULL,
	token1 TEXT NOT NULL,
	fee INTEGER NOT NULL,
	tick_spacing INTEGER NOT NULL,
	first_seen_block BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, pool_address)
);

CREATE TABLE IF NOT EXISTS liquidity_snapshots (
	id BIGSERIAL PRIMARY KEY,
	chain_id BIGINT NOT NULL,
	pool_address TEXT NOT NULL,
	block_number BIGINT NOT NULL,
	source TEXT NOT NULL,
	current_tick INTEGER NOT NULL,
	current_price DOUBLE PRECISION NOT NULL,
	reserve0 NUMERIC,
	reserve1 NUMERIC,
	reliable BOOLEAN NOT NULL,
	integrity TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS liquidity_segments (
	snapshot_id BIGINT NOT NULL REFERENCES liquidity_snapshots(id) ON DELETE CASCADE,
	tick_lower INTEGER NOT NULL,
	tick_upper INTEGER NOT NULL,
	liquidity NUMERIC(78, 0) NOT NULL,
	price_lower DOUBLE PRECISION NOT NULL,
	price_upper DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (snapshot_id, tick_lower)
);
`

// Store provides Postgres persistence for pools and liquidity snapshots.
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

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// UpsertPools inserts or updates pool metadata.
func (s *Store) UpsertPools(ctx context.Context, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (
				chain_id, pool_address, token0, token1, fee, tick_spacing, first_seen_block, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			ON CONFLICT (chain_id, pool_address)
			DO UPDATE SET
				token0 = EXCLUDED.token0,
				token1 = EXCLUDED.token1,
				fee = EXCLUDED.fee,
				tick_spacing = EXCLUDED.tick_spacing,
				first_seen_block = LEAST(pools.first_seen_block, EXCLUDED.first_seen_block),
				updated_at = now()
		`,
			int64(pool.ChainID),
			pool.Address,
			pool.Token0,
			pool.Token1,
			pool.Fee,
			pool.TickSpacing,
			int64(pool.FirstSeenBlock),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertLiquiditySnapshot stores the snapshot header and its segments in one
// transaction and returns the snapshot id.
func (s *Store) InsertLiquiditySnapshot(ctx context.Context, snapshot model.LiquiditySnapshot) (int64, error) {
	var id int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO liquidity_snapshots (
				chain_id, pool_address, block_number, source, current_tick, current_price,
				reserve0, reserve1, reliable, integrity, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,'')::numeric,NULLIF($8,'')::numeric,$9,$10,now())
			RETURNING id
		`,
			int64(snapshot.ChainID),
			snapshot.PoolAddress,
			int64(snapshot.BlockNumber),
			snapshot.Source,
			snapshot.CurrentTick,
			snapshot.CurrentPrice,
			snapshot.Reserve0,
			snapshot.Reserve1,
			snapshot.Reliable,
			snapshot.Integrity,
		)
		if err := row.Scan(&id); err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		if len(snapshot.Segments) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, seg := range snapshot.Segments {
			batch.Queue(`
				INSERT INTO liquidity_segments (
					snapshot_id, tick_lower, tick_upper, liquidity, price_lower, price_upper
				) VALUES ($1,$2,$3,$4::numeric,$5,$6)
			`, id, seg.TickLower, seg.TickUpper, seg.Liquidity, seg.PriceLower, seg.PriceUpper)
		}

		br := tx.SendBatch(ctx, batch)
		for i := range snapshot.Segments {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert segment %d: %w", i, err)
			}
		}
		return br.Close()
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}
