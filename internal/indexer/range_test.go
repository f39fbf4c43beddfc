package indexer

import (
	"math"
	"reflect"
	"testing"
)

func TestSplitRange(t *testing.T) {
	testCases := []struct {
		name      string
		from, to  uint64
		batchSize uint64
		want      []BlockRange
	}{
		{"even split", 100, 105, 2, []BlockRange{{100, 101}, {102, 103}, {104, 105}}},
		{"short tail", 0, 25, 10, []BlockRange{{0, 9}, {10, 19}, {20, 25}}},
		{"single block", 5, 5, 10, []BlockRange{{5, 5}}},
		{"exact batch", 1, 10, 10, []BlockRange{{1, 10}}},
		{"top of range", math.MaxUint64 - 2, math.MaxUint64, 2, []BlockRange{{math.MaxUint64 - 2, math.MaxUint64 - 1}, {math.MaxUint64, math.MaxUint64}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SplitRange(tc.from, tc.to, tc.batchSize)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ranges mismatch: %+v != %+v", got, tc.want)
			}
		})
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for inverted range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

func TestBlockRangeLen(t *testing.T) {
	if got := (BlockRange{From: 20, To: 25}).Len(); got != 6 {
		t.Fatalf("expected 6 blocks, got %d", got)
	}
}
