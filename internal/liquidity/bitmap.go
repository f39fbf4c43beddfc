package liquidity

import (
	"context"
	"fmt"
	"math/big"
	"math/bits"
	"sync"

	"github.com/holiman/uint256"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const wordBits = 256

// TickRecord is the subset of pool tick state the decoder needs.
type TickRecord struct {
	LiquidityNet *big.Int
	Initialized  bool
}

// BitmapProvider answers tick bitmap and tick state queries for one pool at
// one block. Implementations own retries; a returned error is final.
type BitmapProvider interface {
	TickBitmap(ctx context.Context, word int16) (*uint256.Int, error)
	TickRecord(ctx context.Context, tick int32) (TickRecord, error)
}

type decodeOptions struct {
	concurrency int
	logger      *zap.Logger
}

// DecodeOption tunes DecodeBitmapRange.
type DecodeOption func(*decodeOptions)

// WithConcurrency sets how many words are fetched in parallel.
func WithConcurrency(n int) DecodeOption {
	return func(o *decodeOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithLogger sets the decoder logger.
func WithLogger(logger *zap.Logger) DecodeOption {
	return func(o *decodeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WordRange returns the inclusive bitmap word range covering
// [minTick, maxTick] for the given spacing.
func WordRange(minTick, maxTick, tickSpacing int32) (int16, int16, error) {
	if tickSpacing <= 0 {
		return 0, 0, fmt.Errorf("tick spacing must be positive, got %d", tickSpacing)
	}
	if minTick > maxTick {
		return 0, 0, fmt.Errorf("min tick %d above max tick %d", minTick, maxTick)
	}
	minTick = clampTick(minTick)
	maxTick = clampTick(maxTick)
	return wordOf(minTick, tickSpacing), wordOf(maxTick, tickSpacing), nil
}

func wordOf(tick, tickSpacing int32) int16 {
	return int16(floorDiv(tick, tickSpacing) >> 8)
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func clampTick(tick int32) int32 {
	if tick < MinTick {
		return MinTick
	}
	if tick > MaxTick {
		return MaxTick
	}
	return tick
}

// SetBits returns the positions of the set bits in word, lowest first.
func SetBits(word *uint256.Int) []int {
	if word == nil || word.IsZero() {
		return nil
	}
	limbs := [4]uint64(*word)
	out := make([]int, 0, 8)
	for limb, w := range limbs {
		for w != 0 {
			out = append(out, limb*64+bits.TrailingZeros64(w))
			w &= w - 1
		}
	}
	return out
}

// DecodeBitmapRange enumerates every initialized tick in [minTick, maxTick]
// and returns its liquidityNet as a Delta. Words are fetched concurrently; any
// provider failure aborts the scan with a *ProviderError and no result.
func DecodeBitmapRange(ctx context.Context, provider BitmapProvider, minTick, maxTick, tickSpacing int32, opts ...DecodeOption) (Delta, error) {
	if provider == nil {
		return nil, fmt.Errorf("bitmap provider is nil")
	}
	options := decodeOptions{concurrency: 8, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&options)
	}

	minWord, maxWord, err := WordRange(minTick, maxTick, tickSpacing)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	delta := NewDelta()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(options.concurrency)
	for w := int32(minWord); w <= int32(maxWord); w++ {
		word := int16(w)
		g.Go(func() error {
			found, err := decodeWord(gctx, provider, word, tickSpacing)
			if err != nil {
				return err
			}
			if len(found) == 0 {
				return nil
			}
			options.logger.Debug("word decoded", zap.Int16("word", word), zap.Int("initialized", len(found)))
			mu.Lock()
			delta.Merge(found)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	options.logger.Info("bitmap scan complete",
		zap.Int16("min_word", minWord),
		zap.Int16("max_word", maxWord),
		zap.Int("initialized_ticks", len(delta)),
	)
	return delta, nil
}

func decodeWord(ctx context.Context, provider BitmapProvider, word int16, tickSpacing int32) (Delta, error) {
	bitmap, err := provider.TickBitmap(ctx, word)
	if err != nil {
		return nil, &ProviderError{Op: OpTickBitmap, Word: word, Err: err}
	}
	positions := SetBits(bitmap)
	if len(positions) == 0 {
		return nil, nil
	}

	found := NewDelta()
	for _, bit := range positions {
		tick := (int32(word)*wordBits + int32(bit)) * tickSpacing
		rec, err := provider.TickRecord(ctx, tick)
		if err != nil {
			return nil, &ProviderError{Op: OpTickRecord, Word: word, Tick: tick, Err: err}
		}
		if !rec.Initialized || rec.LiquidityNet == nil {
			continue
		}
		found.Add(tick, rec.LiquidityNet)
	}
	return found, nil
}
