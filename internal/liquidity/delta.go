// Package liquidity rebuilds the active-liquidity step function of a
// concentrated-liquidity pool from per-tick net liquidity deltas.
package liquidity

import (
	"math/big"
	"sort"
)

const (
	// MinTick and MaxTick bound every valid pool tick.
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

// Delta maps a tick to the net liquidity change applied when price crosses
// it upward. Contributions to the same tick accumulate.
type Delta map[int32]*big.Int

// TickDelta is one entry of a Delta.
type TickDelta struct {
	Tick  int32
	Delta *big.Int
}

func NewDelta() Delta {
	return make(Delta)
}

// Add accumulates amount into tick. The amount is copied.
func (d Delta) Add(tick int32, amount *big.Int) {
	if amount == nil {
		return
	}
	cur, ok := d[tick]
	if !ok {
		d[tick] = new(big.Int).Set(amount)
		return
	}
	cur.Add(cur, amount)
}

// Merge adds every entry of other into d.
func (d Delta) Merge(other Delta) {
	for tick, amount := range other {
		d.Add(tick, amount)
	}
}

// Sum returns the total of all deltas; a complete mapping sums to zero.
func (d Delta) Sum() *big.Int {
	total := new(big.Int)
	for _, amount := range d {
		total.Add(total, amount)
	}
	return total
}

// Ticks returns the mapping keys in ascending order.
func (d Delta) Ticks() []int32 {
	ticks := make([]int32, 0, len(d))
	for tick := range d {
		ticks = append(ticks, tick)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	return ticks
}

// Entries returns the mapping as pairs sorted by tick.
func (d Delta) Entries() []TickDelta {
	ticks := d.Ticks()
	out := make([]TickDelta, 0, len(ticks))
	for _, tick := range ticks {
		out = append(out, TickDelta{Tick: tick, Delta: new(big.Int).Set(d[tick])})
	}
	return out
}

// Equal reports whether both mappings hold the same values, treating
// zero-valued entries as absent.
func (d Delta) Equal(other Delta) bool {
	for tick, amount := range d {
		if amount.Sign() == 0 {
			continue
		}
		v, ok := other[tick]
		if !ok || v.Cmp(amount) != 0 {
			return false
		}
	}
	for tick, amount := range other {
		if amount.Sign() == 0 {
			continue
		}
		v, ok := d[tick]
		if !ok || v.Cmp(amount) != 0 {
			return false
		}
	}
	return true
}
