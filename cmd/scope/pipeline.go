package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityProfile/internal/chain"
	"liquidityProfile/internal/config"
	"liquidityProfile/internal/dex"
	"liquidityProfile/internal/export"
	"liquidityProfile/internal/liquidity"
	"liquidityProfile/internal/model"
	"liquidityProfile/internal/storage/postgres"
)

// curveRun is one reconstructed curve plus the pool state it was read at.
type curveRun struct {
	chainID  uint64
	source   string
	state    model.PoolState
	curve    liquidity.Curve
	buildErr error
	reserves *model.PoolReserves
}

func (r curveRun) currentPrice() float64 {
	sqrt, ok := new(big.Int).SetString(r.state.SqrtPriceX96, 10)
	if !ok {
		return 0
	}
	return liquidity.SqrtPriceX96ToPrice(sqrt, r.state.Token0.Decimals, r.state.Token1.Decimals)
}

func (r curveRun) record() model.LiquiditySnapshot {
	snapshot := export.Snapshot(r.chainID, r.state, r.curve, r.source, r.buildErr)
	if r.reserves != nil {
		snapshot.Reserve0 = r.reserves.Amount0
		snapshot.Reserve1 = r.reserves.Amount1
	}
	return snapshot
}

// snapshotter reads bitmap curves for one pool from one RPC endpoint.
type snapshotter struct {
	cfg     config.SnapshotConfig
	client  *chain.Client
	pool    common.Address
	chainID uint64
	tokens  *dex.TokenMetaCache
	logger  *zap.Logger
}

func newSnapshotter(ctx context.Context, cfg config.SnapshotConfig, logger *zap.Logger) (*snapshotter, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.Pool) {
		return nil, fmt.Errorf("invalid pool address: %q", cfg.Pool)
	}
	pool := common.HexToAddress(cfg.Pool)

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	chainID, err := client.GetChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}

	isContract, err := client.IsContract(ctx, pool, nil)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("get code: %w", err)
	}
	if !isContract {
		client.Close()
		return nil, fmt.Errorf("no contract code at %s", pool.Hex())
	}

	return &snapshotter{
		cfg:     cfg,
		client:  client,
		pool:    pool,
		chainID: chainID.Uint64(),
		tokens:  dex.NewTokenMetaCache(),
		logger:  logger,
	}, nil
}

func (s *snapshotter) Close() {
	s.client.Close()
}

// take reads the curve at block, resolving 0 to the current head so that
// slot0, the bitmap and the ticks all come from the same block. Provider
// failures are returned as errors; integrity violations land in buildErr.
func (s *snapshotter) take(ctx context.Context, block uint64) (curveRun, error) {
	if block == 0 {
		latest, err := s.client.LatestBlockNumber(ctx)
		if err != nil {
			return curveRun{}, fmt.Errorf("latest block: %w", err)
		}
		block = latest
	}

	state, err := dex.FetchPoolState(ctx, s.client, s.pool, block, s.tokens, s.logger)
	if err != nil {
		return curveRun{}, err
	}

	reader, err := dex.NewTickReader(s.client, dex.TickReaderConfig{
		Pool:              s.pool,
		BlockNumber:       block,
		MaxRetries:        s.cfg.MaxRetries,
		RetryBackoff:      s.cfg.RetryBackoff,
		RequestsPerSecond: s.cfg.RequestsPerSecond,
		Burst:             s.cfg.Burst,
	}, s.logger)
	if err != nil {
		return curveRun{}, err
	}

	s.logger.Info("scan bitmap",
		zap.String("pool", state.Address),
		zap.Uint64("block", block),
		zap.Int32("tick_spacing", state.TickSpacing),
		zap.Int32("min_tick", s.cfg.MinTick),
		zap.Int32("max_tick", s.cfg.MaxTick),
	)

	delta, err := liquidity.DecodeBitmapRange(ctx, reader, s.cfg.MinTick, s.cfg.MaxTick, state.TickSpacing,
		liquidity.WithConcurrency(s.cfg.Concurrency),
		liquidity.WithLogger(s.logger),
	)
	if err != nil {
		return curveRun{}, fmt.Errorf("decode bitmap: %w", err)
	}

	curve, buildErr := liquidity.BuildCurve(delta)
	run := curveRun{
		chainID:  s.chainID,
		source:   model.SnapshotSourceBitmap,
		state:    state,
		curve:    curve.WithPrices(nil, state.Token0.Decimals, state.Token1.Decimals),
		buildErr: buildErr,
	}

	if !s.cfg.SkipReserves {
		reserves, err := dex.FetchReserves(ctx, s.client, state)
		if err != nil {
			s.logger.Warn("reserves unavailable", zap.String("pool", state.Address), zap.Error(err))
		} else {
			run.reserves = &reserves
		}
	}
	return run, nil
}

// reportIntegrity logs a curve integrity violation and decides whether the
// command should fail on it.
func reportIntegrity(logger *zap.Logger, err error, allowUnreliable bool) error {
	if err == nil {
		return nil
	}
	var integrity *liquidity.IntegrityError
	if errors.As(err, &integrity) {
		logger.Warn("curve integrity violation",
			zap.String("kind", string(integrity.Kind)),
			zap.Int32("tick", integrity.Tick),
			zap.String("value", integrity.Value.String()),
		)
	} else {
		logger.Warn("curve build failed", zap.Error(err))
	}
	if allowUnreliable {
		return nil
	}
	return err
}

// pgSink persists curves to Postgres; a nil sink drops them.
type pgSink struct {
	store  *postgres.Store
	logger *zap.Logger
}

func openPGSink(ctx context.Context, dsn string, logger *zap.Logger) (*pgSink, error) {
	if dsn == "" {
		return nil, nil
	}
	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return &pgSink{store: store, logger: logger}, nil
}

func (p *pgSink) Close() {
	if p != nil {
		p.store.Close()
	}
}

func (p *pgSink) save(ctx context.Context, run curveRun) error {
	if p == nil {
		return nil
	}
	if err := p.store.UpsertPools(ctx, []model.Pool{run.state.Pool(run.chainID)}); err != nil {
		return fmt.Errorf("upsert pool: %w", err)
	}

	id, err := p.store.InsertLiquiditySnapshot(ctx, run.record())
	if err != nil {
		return err
	}
	p.logger.Info("snapshot stored",
		zap.Int64("id", id),
		zap.String("pool", run.state.Address),
		zap.Uint64("block", run.state.BlockNumber),
		zap.String("source", run.source),
	)
	return nil
}
