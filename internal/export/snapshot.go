package export

import (
	"errors"
	"math/big"

	"liquidityProfile/internal/liquidity"
	"liquidityProfile/internal/model"
)

// Snapshot converts a priced curve into a storage record. buildErr is the
// error BuildCurve returned, if any; integrity violations are kept on the
// record instead of being dropped.
func Snapshot(chainID uint64, state model.PoolState, curve liquidity.Curve, source string, buildErr error) model.LiquiditySnapshot {
	snapshot := model.LiquiditySnapshot{
		ChainID:     chainID,
		PoolAddress: state.Address,
		BlockNumber: state.BlockNumber,
		Source:      source,
		CurrentTick: state.Tick,
		Reliable:    curve.Reliable && buildErr == nil,
		Segments:    make([]model.LiquiditySegment, 0, len(curve.Segments)),
	}

	if sqrt, ok := new(big.Int).SetString(state.SqrtPriceX96, 10); ok {
		snapshot.CurrentPrice = liquidity.SqrtPriceX96ToPrice(sqrt, state.Token0.Decimals, state.Token1.Decimals)
	}

	var integrity *liquidity.IntegrityError
	if errors.As(buildErr, &integrity) {
		snapshot.Integrity = string(integrity.Kind)
	} else if buildErr != nil {
		snapshot.Integrity = buildErr.Error()
	}

	for _, seg := range curve.Segments {
		snapshot.Segments = append(snapshot.Segments, model.LiquiditySegment{
			TickLower:  seg.TickLower,
			TickUpper:  seg.TickUpper,
			Liquidity:  seg.Liquidity.String(),
			PriceLower: seg.PriceLower,
			PriceUpper: seg.PriceUpper,
		})
	}
	return snapshot
}

// ZoomWindow returns the price band [price*(1-zoom), price*(1+zoom)].
// A non-positive zoom disables the band and reports ok=false.
func ZoomWindow(price, zoom float64) (low, high float64, ok bool) {
	if zoom <= 0 || price <= 0 {
		return 0, 0, false
	}
	low = price * (1 - zoom)
	if low < 0 {
		low = 0
	}
	return low, price * (1 + zoom), true
}
