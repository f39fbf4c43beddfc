package liquidity

import (
	"math"
	"math/big"
)

// BaseRate is the fixed per-tick price ratio.
const BaseRate = 1.0001

// PriceConverter maps a tick to a token1-per-token0 price.
type PriceConverter interface {
	TickToPrice(tick int32, dec0, dec1 uint8) float64
}

// PriceFunc adapts a function to PriceConverter.
type PriceFunc func(tick int32, dec0, dec1 uint8) float64

func (f PriceFunc) TickToPrice(tick int32, dec0, dec1 uint8) float64 {
	return f(tick, dec0, dec1)
}

// DefaultPriceConverter uses TickToPrice.
var DefaultPriceConverter PriceConverter = PriceFunc(TickToPrice)

// TickToPrice returns BaseRate^tick * 10^(dec0-dec1).
func TickToPrice(tick int32, dec0, dec1 uint8) float64 {
	return math.Pow(BaseRate, float64(tick)) * math.Pow10(int(dec0)-int(dec1))
}

var q96 = new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 96))

// SqrtPriceX96ToPrice converts a slot0 sqrtPriceX96 to token1 per token0.
func SqrtPriceX96ToPrice(sqrtPriceX96 *big.Int, dec0, dec1 uint8) float64 {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return 0
	}
	ratio := new(big.Float).SetInt(sqrtPriceX96)
	ratio.Quo(ratio, q96)
	ratio.Mul(ratio, ratio)
	price, _ := ratio.Float64()
	return price * math.Pow10(int(dec0)-int(dec1))
}
