package dex

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"go.uber.org/zap"

	"liquidityProfile/internal/model"
)

// Caller performs read-only contract calls at a block (nil for latest).
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Decoder turns raw pool logs into typed events.
type Decoder interface {
	CanDecode(topic0 string) bool
	Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error)
}

// DecodeContext carries the chain access and caches shared across one decode
// run. Chain may be nil when every pool is already in PoolMetaCache.
type DecodeContext struct {
	Context         context.Context
	Chain           Caller
	PoolMetaCache   *PoolMetaCache
	TokenMetaCache  *TokenMetaCache
	Logger          *zap.Logger
	IncludeLiveMeta bool
}
