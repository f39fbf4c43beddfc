package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityProfile/internal/model"
)

const (
	ReservesMethodBlock  = "block"
	ReservesMethodLatest = "latest"
)

// FetchPoolState loads pool metadata, token decimals and slot0 at blockNumber
// (0 for latest). Token decimals are required, so a failed decimals call is
// an error here rather than a warning.
func FetchPoolState(ctx context.Context, caller Caller, pool common.Address, blockNumber uint64, tokenCache *TokenMetaCache, logger *zap.Logger) (model.PoolState, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	meta, err := FetchPoolMeta(ctx, caller, pool, nil, logger)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("pool meta: %w", err)
	}

	token0, err := cachedTokenMeta(ctx, caller, common.HexToAddress(meta.Token0), tokenCache, logger)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("token0 meta: %w", err)
	}
	token1, err := cachedTokenMeta(ctx, caller, common.HexToAddress(meta.Token1), tokenCache, logger)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("token1 meta: %w", err)
	}

	poolABI, err := V3PoolABI()
	if err != nil {
		return model.PoolState{}, fmt.Errorf("parse pool abi: %w", err)
	}
	blockPtr := blockArg(blockNumber)
	slot0, err := fetchSlot0(ctx, caller, pool, poolABI, blockPtr)
	if err != nil {
		return model.PoolState{}, err
	}

	state := model.PoolState{
		Address:      pool.Hex(),
		BlockNumber:  blockNumber,
		Token0:       token0,
		Token1:       token1,
		Fee:          meta.Fee,
		TickSpacing:  meta.TickSpacing,
		SqrtPriceX96: slot0.SqrtPriceX96,
		Tick:         slot0.Tick,
	}
	if values, err := callPoolMethod(ctx, caller, pool, poolABI, "liquidity", blockPtr); err == nil {
		if liq, err := asBigInt(values[0]); err == nil {
			state.Liquidity = liq.String()
		}
	} else {
		logger.Debug("liquidity call failed", zap.String("pool", pool.Hex()), zap.Error(err))
	}
	return state, nil
}

func cachedTokenMeta(ctx context.Context, caller Caller, token common.Address, cache *TokenMetaCache, logger *zap.Logger) (model.TokenMeta, error) {
	if cache != nil {
		if meta, ok := cache.Get(token); ok && meta.Decimals > 0 {
			return meta, nil
		}
	}
	meta, err := FetchTokenMeta(ctx, caller, token, logger)
	if err != nil {
		return meta, err
	}
	if cache != nil {
		cache.Set(token, meta)
	}
	return meta, nil
}

// FetchReserves reads both token balances held by the pool, first at the
// given block and then at latest if the node has pruned that state.
func FetchReserves(ctx context.Context, caller Caller, state model.PoolState) (model.PoolReserves, error) {
	token0 := common.HexToAddress(state.Token0.Address)
	token1 := common.HexToAddress(state.Token1.Address)
	pool := common.HexToAddress(state.Address)

	method := ReservesMethodBlock
	bal0, err0 := balanceOf(ctx, caller, token0, pool, blockArg(state.BlockNumber))
	bal1, err1 := balanceOf(ctx, caller, token1, pool, blockArg(state.BlockNumber))
	if err0 != nil || err1 != nil {
		method = ReservesMethodLatest
		bal0, err0 = balanceOf(ctx, caller, token0, pool, nil)
		bal1, err1 = balanceOf(ctx, caller, token1, pool, nil)
	}
	if err0 != nil {
		return model.PoolReserves{}, fmt.Errorf("token0 balance: %w", err0)
	}
	if err1 != nil {
		return model.PoolReserves{}, fmt.Errorf("token1 balance: %w", err1)
	}

	return model.PoolReserves{
		Raw0:    bal0.String(),
		Raw1:    bal1.String(),
		Amount0: toUnits(bal0, state.Token0.Decimals),
		Amount1: toUnits(bal1, state.Token1.Decimals),
		Method:  method,
	}, nil
}

func balanceOf(ctx context.Context, caller Caller, token, owner common.Address, block *big.Int) (*big.Int, error) {
	if caller == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	erc20ABI, err := erc20ABIStringInstance()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	data, err := erc20ABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	resp, err := caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, block)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}
	values, err := erc20ABI.Unpack("balanceOf", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("balanceOf: empty response")
	}
	return asBigInt(values[0])
}

// toUnits scales a raw token amount by its decimals without rounding.
func toUnits(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}
