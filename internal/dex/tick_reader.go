package dex

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"liquidityProfile/internal/liquidity"
	"liquidityProfile/internal/retry"
)

// TickReaderConfig pins a TickReader to one pool at one block.
type TickReaderConfig struct {
	Pool        common.Address
	BlockNumber uint64 // 0 reads latest

	MaxRetries   int
	RetryBackoff time.Duration

	// RequestsPerSecond <= 0 disables throttling.
	RequestsPerSecond float64
	Burst             int
}

// TickReader serves tickBitmap and ticks reads over eth_call. It satisfies
// liquidity.BitmapProvider and is safe for concurrent use.
type TickReader struct {
	caller  Caller
	poolABI abi.ABI
	cfg     TickReaderConfig
	block   *big.Int
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ liquidity.BitmapProvider = (*TickReader)(nil)

// NewTickReader creates a reader for the configured pool and block.
func NewTickReader(caller Caller, cfg TickReaderConfig, logger *zap.Logger) (*TickReader, error) {
	if caller == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}

	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}

	return &TickReader{
		caller:  caller,
		poolABI: poolABI,
		cfg:     cfg,
		block:   blockArg(cfg.BlockNumber),
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}, nil
}

// TickBitmap returns the bitmap word at the given word position.
func (r *TickReader) TickBitmap(ctx context.Context, word int16) (*uint256.Int, error) {
	values, err := r.call(ctx, "tickBitmap", word)
	if err != nil {
		return nil, err
	}
	raw, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("tickBitmap: %w", err)
	}
	bitmap, overflow := uint256.FromBig(raw)
	if overflow {
		return nil, fmt.Errorf("tickBitmap: value overflows 256 bits")
	}
	return bitmap, nil
}

// TickRecord returns liquidityNet and the initialized flag of a tick.
func (r *TickReader) TickRecord(ctx context.Context, tick int32) (liquidity.TickRecord, error) {
	values, err := r.call(ctx, "ticks", big.NewInt(int64(tick)))
	if err != nil {
		return liquidity.TickRecord{}, err
	}
	if len(values) < 8 {
		return liquidity.TickRecord{}, fmt.Errorf("ticks: expected 8 outputs, got %d", len(values))
	}
	net, err := asBigInt(values[1])
	if err != nil {
		return liquidity.TickRecord{}, fmt.Errorf("ticks liquidityNet: %w", err)
	}
	initialized, ok := values[7].(bool)
	if !ok {
		return liquidity.TickRecord{}, fmt.Errorf("ticks initialized: unsupported type %T", values[7])
	}
	return liquidity.TickRecord{LiquidityNet: net, Initialized: initialized}, nil
}

func (r *TickReader) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	var values []interface{}
	attempt := 0
	err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		attempt++
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		out, err := callPoolMethod(ctx, r.caller, r.cfg.Pool, r.poolABI, method, r.block, args...)
		if err != nil {
			r.logger.Warn("pool call failed",
				zap.String("method", method),
				zap.Any("args", args),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		values = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: empty response", method)
	}
	return values, nil
}
