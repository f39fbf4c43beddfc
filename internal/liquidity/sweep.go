package liquidity

import (
	"math/big"
	"sort"
)

// Segment is the half-open tick interval [TickLower, TickUpper) with the
// liquidity active inside it.
type Segment struct {
	TickLower  int32
	TickUpper  int32
	Liquidity  *big.Int
	PriceLower float64
	PriceUpper float64
}

// TickLiquidity is the running liquidity right after crossing Tick upward.
type TickLiquidity struct {
	Tick   int32
	Active *big.Int
	Price  float64
}

// Curve is the ordered step function produced by BuildCurve. Reliable is
// false when the deltas failed an integrity check; the segments are still
// populated for diagnostics.
type Curve struct {
	Segments []Segment
	Ticks    []TickLiquidity
	Reliable bool
}

// BuildCurve sweeps the deltas in ascending tick order. Each tick except the
// last opens a segment ending at the next tick. A negative running total or a
// non-zero delta sum yields an *IntegrityError alongside the curve.
func BuildCurve(delta Delta) (Curve, error) {
	ticks := delta.Ticks()
	curve := Curve{
		Segments: make([]Segment, 0, max(len(ticks)-1, 0)),
		Ticks:    make([]TickLiquidity, 0, len(ticks)),
		Reliable: true,
	}

	var violation *IntegrityError
	active := new(big.Int)
	for i, tick := range ticks {
		active.Add(active, delta[tick])
		if active.Sign() < 0 && violation == nil {
			violation = &IntegrityError{Kind: NegativeLiquidity, Tick: tick, Value: new(big.Int).Set(active)}
		}
		curve.Ticks = append(curve.Ticks, TickLiquidity{Tick: tick, Active: new(big.Int).Set(active)})
		if i+1 < len(ticks) {
			curve.Segments = append(curve.Segments, Segment{
				TickLower: tick,
				TickUpper: ticks[i+1],
				Liquidity: new(big.Int).Set(active),
			})
		}
	}

	if violation == nil && active.Sign() != 0 {
		violation = &IntegrityError{Kind: NonZeroSum, Tick: lastTick(ticks), Value: new(big.Int).Set(active)}
	}
	if violation != nil {
		curve.Reliable = false
		return curve, violation
	}
	return curve, nil
}

// WithPrices fills price bounds for every segment and tick.
func (c Curve) WithPrices(conv PriceConverter, dec0, dec1 uint8) Curve {
	if conv == nil {
		conv = DefaultPriceConverter
	}
	for i := range c.Segments {
		c.Segments[i].PriceLower = conv.TickToPrice(c.Segments[i].TickLower, dec0, dec1)
		c.Segments[i].PriceUpper = conv.TickToPrice(c.Segments[i].TickUpper, dec0, dec1)
	}
	for i := range c.Ticks {
		c.Ticks[i].Price = conv.TickToPrice(c.Ticks[i].Tick, dec0, dec1)
	}
	return c
}

// ActiveAt returns the liquidity of the segment containing tick, or zero
// outside the curve.
func (c Curve) ActiveAt(tick int32) *big.Int {
	idx := sort.Search(len(c.Segments), func(i int) bool {
		return c.Segments[i].TickUpper > tick
	})
	if idx < len(c.Segments) && c.Segments[idx].TickLower <= tick {
		return new(big.Int).Set(c.Segments[idx].Liquidity)
	}
	return new(big.Int)
}

// TopRanges returns a copy of segments ordered by liquidity descending.
// Ties keep ascending tick order.
func TopRanges(segments []Segment) []Segment {
	out := make([]Segment, len(segments))
	copy(out, segments)
	sort.SliceStable(out, func(i, j int) bool {
		cmp := out[i].Liquidity.Cmp(out[j].Liquidity)
		if cmp != 0 {
			return cmp > 0
		}
		return out[i].TickLower < out[j].TickLower
	})
	return out
}

// FilterPriceWindow keeps segments overlapping [low, high].
func FilterPriceWindow(segments []Segment, low, high float64) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		if seg.PriceUpper < low || seg.PriceLower > high {
			continue
		}
		out = append(out, seg)
	}
	return out
}

func lastTick(ticks []int32) int32 {
	if len(ticks) == 0 {
		return 0
	}
	return ticks[len(ticks)-1]
}
