package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityProfile/internal/chain"
	"liquidityProfile/internal/config"
	"liquidityProfile/internal/dex"
	"liquidityProfile/internal/export"
	"liquidityProfile/internal/liquidity"
	"liquidityProfile/internal/model"
	"liquidityProfile/internal/replay"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Pool != "" && !common.IsHexAddress(cfg.Pool) {
		return fmt.Errorf("invalid pool address: %q", cfg.Pool)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := replay.NewFileSource(cfg.In, replay.Filter{
		Pool:      cfg.Pool,
		FromBlock: cfg.FromBlock,
		ToBlock:   cfg.ToBlock,
	}, logger)

	events, err := source.Events(ctx)
	if err != nil {
		return err
	}
	result := source.Last()
	if len(events) == 0 {
		logger.Warn("no mint or burn events matched", zap.String("in", cfg.In), zap.String("pool", cfg.Pool))
	}

	delta, err := liquidity.AccumulateEvents(events)
	if err != nil {
		return err
	}
	curve, buildErr := liquidity.BuildCurve(delta)

	state, err := replayState(ctx, cfg, result, logger)
	if err != nil {
		return err
	}
	curve = curve.WithPrices(nil, state.Token0.Decimals, state.Token1.Decimals)

	if cfg.TicksOut != "" {
		if err := export.WriteFile(cfg.TicksOut, func(w io.Writer) error {
			return export.WriteTicksCSV(w, curve.Ticks)
		}); err != nil {
			return err
		}
	}
	if cfg.TopOut != "" {
		if err := export.WriteFile(cfg.TopOut, func(w io.Writer) error {
			return export.WriteTopRangesCSV(w, curve.Segments)
		}); err != nil {
			return err
		}
	}

	logger.Info("replay complete",
		zap.String("pool", state.Address),
		zap.Int("events", result.Stats.Total),
		zap.Int("mints", result.Stats.Mints),
		zap.Int("burns", result.Stats.Burns),
		zap.Int("skipped", result.Stats.Skipped),
		zap.Int("duplicates", result.Stats.Duplicates),
		zap.Uint64("first_block", result.Stats.FirstBlock),
		zap.Uint64("last_block", result.Stats.LastBlock),
		zap.Int("ticks", len(curve.Ticks)),
		zap.Bool("reliable", curve.Reliable),
		zap.String("ticks_out", cfg.TicksOut),
		zap.String("top_out", cfg.TopOut),
	)

	sink, err := openPGSink(ctx, cfg.PGDSN, logger)
	if err != nil {
		return err
	}
	defer sink.Close()

	if err := sink.save(ctx, curveRun{
		chainID:  result.ChainID,
		source:   model.SnapshotSourceEvents,
		state:    state,
		curve:    curve,
		buildErr: buildErr,
	}); err != nil {
		return err
	}
	return reportIntegrity(logger, buildErr, cfg.AllowUnreliable)
}

// replayState assembles the pool state carried by the typed events. Token
// decimals come from the chain when an RPC URL is configured and from the
// decimals flags otherwise.
func replayState(ctx context.Context, cfg config.ReplayConfig, result replay.Result, logger *zap.Logger) (model.PoolState, error) {
	meta := result.PoolMeta
	state := model.PoolState{
		Address:     result.Pool,
		BlockNumber: result.Stats.LastBlock,
		Token0:      model.TokenMeta{Address: meta.Token0, Decimals: cfg.Decimals0},
		Token1:      model.TokenMeta{Address: meta.Token1, Decimals: cfg.Decimals1},
		Fee:         meta.Fee,
		TickSpacing: meta.TickSpacing,
		Liquidity:   meta.Liquidity,
	}
	if state.Address == "" {
		state.Address = cfg.Pool
	}
	if meta.Slot0 != nil {
		state.SqrtPriceX96 = meta.Slot0.SqrtPriceX96
		state.Tick = meta.Slot0.Tick
	}

	if cfg.RPCURL == "" || meta.Token0 == "" || meta.Token1 == "" {
		return state, nil
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return state, fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	token0, err := dex.FetchTokenMeta(ctx, client, common.HexToAddress(meta.Token0), logger)
	if err != nil {
		return state, fmt.Errorf("token0 meta: %w", err)
	}
	token1, err := dex.FetchTokenMeta(ctx, client, common.HexToAddress(meta.Token1), logger)
	if err != nil {
		return state, fmt.Errorf("token1 meta: %w", err)
	}
	state.Token0 = token0
	state.Token1 = token1
	return state, nil
}
