package liquidity

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mint(lower, upper int32, amount int64) Event {
	return Event{Kind: Mint, TickLower: lower, TickUpper: upper, Amount: big.NewInt(amount)}
}

func burn(lower, upper int32, amount int64) Event {
	return Event{Kind: Burn, TickLower: lower, TickUpper: upper, Amount: big.NewInt(amount)}
}

func TestAccumulateEventsMintBurn(t *testing.T) {
	delta, err := AccumulateEvents([]Event{
		mint(-120, 120, 5000),
		mint(-60, 60, 1000),
		burn(-60, 60, 400),
	})
	require.NoError(t, err)

	want := deltaOf(map[int32]int64{-120: 5000, 120: -5000, -60: 600, 60: -600})
	assert.True(t, want.Equal(delta), "got %v", delta.Entries())
	assert.Equal(t, 0, delta.Sum().Sign())
}

func TestAccumulateEventsPermutationInvariance(t *testing.T) {
	events := []Event{
		mint(-887220, 887220, 12),
		mint(-600, 600, 700),
		mint(-60, 0, 33),
		burn(-600, 600, 200),
		mint(0, 60, 1),
		burn(-60, 0, 33),
		mint(-600, 600, 5),
	}
	baseline, err := AccumulateEvents(events)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		shuffled := make([]Event, len(events))
		copy(shuffled, events)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := AccumulateEvents(shuffled)
		require.NoError(t, err)
		assert.True(t, baseline.Equal(got), "permutation %d: %v != %v", i, got.Entries(), baseline.Entries())
	}
}

func TestAccumulateEventsBurnCancelsMint(t *testing.T) {
	before, err := AccumulateEvents([]Event{mint(-10, 10, 9)})
	require.NoError(t, err)

	after, err := AccumulateEvents([]Event{mint(-10, 10, 9), mint(-200, 200, 77), burn(-200, 200, 77)})
	require.NoError(t, err)
	assert.True(t, before.Equal(after))

	curve, err := BuildCurve(after)
	require.NoError(t, err)
	assertSegments(t, []wantSegment{{-200, -10, 0}, {-10, 10, 9}, {10, 200, 0}}, curve.Segments)
}

func TestAccumulateEventsDoesNotAliasAmounts(t *testing.T) {
	amount := big.NewInt(10)
	delta, err := AccumulateEvents([]Event{{Kind: Mint, TickLower: 0, TickUpper: 10, Amount: amount}})
	require.NoError(t, err)

	amount.SetInt64(999)
	assert.Equal(t, "10", delta[0].String())
}

func TestAccumulateEventsRejectsInvalid(t *testing.T) {
	testCases := []struct {
		name  string
		event Event
	}{
		{"unknown kind", Event{Kind: 0, TickLower: 0, TickUpper: 1, Amount: big.NewInt(1)}},
		{"nil amount", Event{Kind: Mint, TickLower: 0, TickUpper: 1}},
		{"negative amount", mint(0, 1, -1)},
		{"empty range", mint(5, 5, 1)},
		{"inverted range", burn(10, -10, 1)},
		{"below min tick", mint(MinTick-1, 0, 1)},
		{"above max tick", mint(0, MaxTick+1, 1)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := AccumulateEvents([]Event{tc.event})
			assert.Error(t, err)
		})
	}
}

func TestAccumulateEventsEmpty(t *testing.T) {
	delta, err := AccumulateEvents(nil)
	require.NoError(t, err)
	assert.Empty(t, delta)

	curve, err := BuildCurve(delta)
	require.NoError(t, err)
	assert.Empty(t, curve.Segments)
}

func TestParseEventKind(t *testing.T) {
	kind, ok := ParseEventKind(" MINT ")
	assert.True(t, ok)
	assert.Equal(t, Mint, kind)

	kind, ok = ParseEventKind("burn")
	assert.True(t, ok)
	assert.Equal(t, Burn, kind)

	_, ok = ParseEventKind("Swap")
	assert.False(t, ok)
}
