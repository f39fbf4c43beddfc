package indexer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"liquidityProfile/internal/dex"
	"liquidityProfile/internal/retry"
	"liquidityProfile/internal/storage"
)

// LogSource is the chain surface the runner reads from.
type LogSource interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	BlockForTime(ctx context.Context, ts uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	FromBlock uint64
	ToBlock   uint64
	// FromTime and ToTime are unix seconds; when set they override the
	// corresponding block bound.
	FromTime          uint64
	ToTime            uint64
	Addresses         []common.Address
	Topic0            []common.Hash
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Stats summarises a completed run.
type Stats struct {
	FromBlock uint64
	ToBlock   uint64
	Batches   int
	Logs      int
	Removed   int
}

// Runner streams pool logs from the chain and writes them to storage.
type Runner struct {
	cfg        RunConfig
	chain      LogSource
	storage    storage.LogSink
	logger     *zap.Logger
	seen       map[string]struct{}
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, source LogSource, storageSink storage.LogSink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		chain:      source,
		storage:    storageSink,
		logger:     logger,
		seen:       make(map[string]struct{}),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled, checkpointScope(cfg.Addresses)),
	}
}

// DefaultTopics returns the Mint and Burn topic0 hashes, the only events
// that move a pool's liquidity curve.
func DefaultTopics() ([]common.Hash, error) {
	poolABI, err := dex.V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	return ParseTopic0(dex.LiquidityTopics(poolABI))
}

// Run executes the indexing loop.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	if r.chain == nil {
		return Stats{}, fmt.Errorf("chain client is nil")
	}
	if r.storage == nil {
		return Stats{}, fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize == 0 {
		return Stats{}, fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.cfg.Addresses) == 0 {
		return Stats{}, fmt.Errorf("at least one address is required")
	}

	topics := r.cfg.Topic0
	if len(topics) == 0 {
		var err error
		if topics, err = DefaultTopics(); err != nil {
			return Stats{}, err
		}
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return Stats{}, fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	chainIDValue := chainID.Uint64()

	from, to, err := r.resolveRange(ctx)
	if err != nil {
		return Stats{}, err
	}

	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return Stats{}, err
	}
	if ok && cp.LastProcessedBlock >= from {
		from = cp.LastProcessedBlock + 1
		r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
	}

	stats := Stats{FromBlock: from, ToBlock: to}
	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return stats, nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return stats, err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To), zap.Uint64("blocks", blockRange.Len()))

		logs, err := r.filterLogs(ctx, blockRange, topics)
		if err != nil {
			return stats, fmt.Errorf("filter logs: %w", err)
		}

		records, removed, err := r.toRecords(ctx, chainIDValue, logs, time.Now().UTC())
		if err != nil {
			return stats, err
		}
		stats.Removed += removed

		if err := r.storage.PutLogBatch(records); err != nil {
			return stats, fmt.Errorf("store logs: %w", err)
		}
		if err := r.checkpoint.Save(blockRange.To); err != nil {
			return stats, err
		}

		stats.Batches++
		stats.Logs += len(records)
		r.logger.Info("batch complete", zap.Int("logs", len(records)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}

	return stats, nil
}

// resolveRange maps time bounds to blocks and defaults the upper bound to
// the latest block.
func (r *Runner) resolveRange(ctx context.Context) (uint64, uint64, error) {
	from := r.cfg.FromBlock
	to := r.cfg.ToBlock

	if r.cfg.FromTime > 0 {
		block, err := r.chain.BlockForTime(ctx, r.cfg.FromTime)
		if err != nil {
			return 0, 0, fmt.Errorf("resolve from time: %w", err)
		}
		from = block
		r.logger.Info("resolved from time", zap.Uint64("ts", r.cfg.FromTime), zap.Uint64("block", block))
	}
	if r.cfg.ToTime > 0 {
		block, err := r.chain.BlockForTime(ctx, r.cfg.ToTime)
		if err != nil {
			return 0, 0, fmt.Errorf("resolve to time: %w", err)
		}
		to = block
		r.logger.Info("resolved to time", zap.Uint64("ts", r.cfg.ToTime), zap.Uint64("block", block))
	}
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return 0, 0, fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}
	return from, to, nil
}

func (r *Runner) filterLogs(ctx context.Context, blockRange BlockRange, topics []common.Hash) ([]types.Log, error) {
	var logs []types.Log
	err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, blockRange.From, blockRange.To, r.cfg.Addresses, topics)
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
		}
		return err
	})
	return logs, err
}

func (r *Runner) blockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = r.chain.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			r.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}
