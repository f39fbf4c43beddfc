package liquidity

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeltaAddAccumulates(t *testing.T) {
	d := NewDelta()
	d.Add(10, big.NewInt(5))
	d.Add(10, big.NewInt(-2))
	d.Add(-10, big.NewInt(7))
	d.Add(3, nil)

	assert.Equal(t, "3", d[10].String())
	assert.Equal(t, []int32{-10, 10}, d.Ticks())
	assert.Equal(t, "10", d.Sum().String())
}

func TestDeltaEntriesSortedCopies(t *testing.T) {
	d := deltaOf(map[int32]int64{5: 1, -5: 2, 0: 3})
	entries := d.Entries()
	assert.Equal(t, []int32{-5, 0, 5}, []int32{entries[0].Tick, entries[1].Tick, entries[2].Tick})

	entries[0].Delta.SetInt64(100)
	assert.Equal(t, "2", d[-5].String())
}

func TestDeltaMerge(t *testing.T) {
	a := deltaOf(map[int32]int64{0: 1, 10: -1})
	b := deltaOf(map[int32]int64{10: 4, 20: -4})
	a.Merge(b)
	assert.True(t, deltaOf(map[int32]int64{0: 1, 10: 3, 20: -4}).Equal(a))
}

func TestDeltaEqualIgnoresZeroEntries(t *testing.T) {
	a := deltaOf(map[int32]int64{0: 1, 5: 0})
	b := deltaOf(map[int32]int64{0: 1})
	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))
	assert.False(t, a.Equal(deltaOf(map[int32]int64{0: 2})))
}
