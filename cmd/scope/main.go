package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"liquidityProfile/internal/chain"
	"liquidityProfile/internal/config"
	"liquidityProfile/internal/dex"
	"liquidityProfile/internal/indexer"
	"liquidityProfile/internal/storage"
)

var (
	_ indexer.LogSource = (*chain.Client)(nil)
	_ dex.Caller        = (*chain.Client)(nil)
)

func main() {
	root := &cobra.Command{
		Use:          "scope",
		Short:        "Uniswap V3 liquidity curve reconstruction",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Index pool Mint/Burn logs into JSONL",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", "", "RPC URL")
	runCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	runCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	runCmd.Flags().String("from-time", "", "start time (unix seconds or RFC3339), overrides --from")
	runCmd.Flags().String("to-time", "", "end time (unix seconds or RFC3339), overrides --to")
	runCmd.Flags().StringSlice("address", nil, "pool addresses (comma-separated)")
	runCmd.Flags().StringSlice("topic0", nil, "topic0 filter (comma-separated), defaults to Mint and Burn")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	runCmd.Flags().String("out", "./data/logs.jsonl", "output JSONL path")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	addRetryFlags(runCmd)
	addLogLevelFlag(runCmd)

	root.AddCommand(runCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw logs into typed Mint/Burn events",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("rpc", "", "RPC URL")
	decodeCmd.Flags().String("in", "", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/typed_events.jsonl", "output typed events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("topic0-map", "", "extra topic0->event mappings (comma-separated key=value)")
	decodeCmd.Flags().Bool("include-live-meta", false, "include optional slot0/liquidity (requires archive RPC for historical accuracy)")
	addLogLevelFlag(decodeCmd)

	root.AddCommand(decodeCmd)

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Rebuild the liquidity curve from the on-chain tick bitmap",
		RunE:  runSnapshot,
	}
	addSnapshotFlags(snapshotCmd)
	snapshotCmd.Flags().String("out", "./data/segments.csv", "output segments CSV")

	root.AddCommand(snapshotCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild the liquidity curve by replaying decoded Mint/Burn events",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("in", "./data/typed_events.jsonl", "input typed events JSONL")
	replayCmd.Flags().String("pool", "", "pool address, required when the input holds several pools")
	replayCmd.Flags().Uint64("from-block", 0, "first block to replay (inclusive)")
	replayCmd.Flags().Uint64("to-block", 0, "last block to replay (inclusive), 0 means no bound")
	replayCmd.Flags().String("ticks-out", "./data/liquidity_by_tick.csv", "per-tick liquidity CSV")
	replayCmd.Flags().String("top-out", "./data/liquidity_ranges_top.csv", "ranges by liquidity CSV")
	replayCmd.Flags().String("rpc", "", "optional RPC URL used to read token decimals")
	replayCmd.Flags().Uint8("decimals0", 18, "token0 decimals when no RPC is given")
	replayCmd.Flags().Uint8("decimals1", 18, "token1 decimals when no RPC is given")
	replayCmd.Flags().String("pg-dsn", "", "optional Postgres DSN")
	replayCmd.Flags().Bool("allow-unreliable", false, "exit zero even when the curve fails its integrity checks")
	addLogLevelFlag(replayCmd)

	root.AddCommand(replayCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Take repeated snapshots as numbered CSV frames",
		RunE:  runWatch,
	}
	addSnapshotFlags(watchCmd)
	watchCmd.Flags().Duration("interval", time.Minute, "time between frames")
	watchCmd.Flags().Int("count", 10, "number of frames, 0 runs until interrupted")
	watchCmd.Flags().String("frames-dir", "./data/frames", "directory for frame CSVs")

	root.AddCommand(watchCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRetryFlags(cmd *cobra.Command) {
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
}

func addLogLevelFlag(cmd *cobra.Command) {
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func addSnapshotFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "RPC URL")
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().Uint64("block", 0, "block to read, 0 means latest")
	cmd.Flags().Int32("min-tick", -887272, "lowest tick to scan")
	cmd.Flags().Int32("max-tick", 887272, "highest tick to scan")
	cmd.Flags().Int("concurrency", 8, "concurrent bitmap word reads")
	cmd.Flags().Float64("rps", 20, "RPC requests per second, 0 disables the limit")
	cmd.Flags().Int("burst", 5, "RPC request burst")
	cmd.Flags().Float64("zoom", 0.3, "keep segments within price*(1±zoom), 0 keeps all")
	cmd.Flags().String("pg-dsn", "", "optional Postgres DSN")
	cmd.Flags().Bool("skip-reserves", false, "skip the token balance query")
	cmd.Flags().Bool("allow-unreliable", false, "exit zero even when the curve fails its integrity checks")
	addRetryFlags(cmd)
	addLogLevelFlag(cmd)
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	addresses, err := indexer.ParseAddresses(cfg.Addresses)
	if err != nil {
		return err
	}
	if len(addresses) == 0 {
		return fmt.Errorf("address list is required")
	}

	topic0, err := indexer.ParseTopic0(cfg.Topic0)
	if err != nil {
		return err
	}

	fromTime, err := parseOptionalTime(cfg.FromTime)
	if err != nil {
		return fmt.Errorf("from-time: %w", err)
	}
	toTime, err := parseOptionalTime(cfg.ToTime)
	if err != nil {
		return fmt.Errorf("to-time: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		FromTime:          fromTime,
		ToTime:            toTime,
		Addresses:         addresses,
		Topic0:            topic0,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, chainClient, storage.NewJsonlStorage(cfg.Out), logger)

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("from_time", fromTime),
		zap.Uint64("to_time", toTime),
		zap.Int("addresses", len(addresses)),
		zap.Int("topic0", len(topic0)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	stats, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("indexer complete",
		zap.Uint64("from", stats.FromBlock),
		zap.Uint64("to", stats.ToBlock),
		zap.Int("batches", stats.Batches),
		zap.Int("logs", stats.Logs),
		zap.Int("removed", stats.Removed),
	)
	return nil
}

func parseOptionalTime(input string) (uint64, error) {
	if input == "" {
		return 0, nil
	}
	return config.ParseTimestamp(input)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
