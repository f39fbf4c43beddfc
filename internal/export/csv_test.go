package export

import (
	"bytes"
	"errors"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityProfile/internal/liquidity"
	"liquidityProfile/internal/model"
)

func testCurve(t *testing.T) liquidity.Curve {
	t.Helper()
	delta := liquidity.NewDelta()
	delta.Add(-100, big.NewInt(10))
	delta.Add(0, big.NewInt(30))
	delta.Add(100, big.NewInt(-30))
	delta.Add(200, big.NewInt(-10))
	curve, err := liquidity.BuildCurve(delta)
	require.NoError(t, err)
	return curve.WithPrices(liquidity.PriceFunc(func(tick int32, _, _ uint8) float64 {
		return float64(tick+1000) / 1000
	}), 18, 18)
}

func TestWriteSegmentsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSegmentsCSV(&buf, testCurve(t).Segments))

	want := strings.Join([]string{
		"tick_lower,tick_upper,price_lower,price_upper,liquidity",
		"-100,0,0.9,1,10",
		"0,100,1,1.1,40",
		"100,200,1.1,1.2,10",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestWriteTicksCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTicksCSV(&buf, testCurve(t).Ticks))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "tick,active_liquidity,price1_per_0", lines[0])
	assert.Equal(t, "0,40,1", lines[2])
	assert.Equal(t, "200,0,1.2", lines[4])
}

func TestWriteTopRangesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTopRangesCSV(&buf, testCurve(t).Segments))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "tick_lower,tick_upper,active_liquidity,price_low_1_per_0,price_high_1_per_0", lines[0])
	assert.Equal(t, "0,100,40,1,1.1", lines[1])
	assert.Equal(t, "-100,0,10,0.9,1", lines[2])
	assert.Equal(t, "100,200,10,1.1,1.2", lines[3])
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "segments.csv")
	require.NoError(t, WriteFile(path, func(w io.Writer) error {
		return WriteSegmentsCSV(w, nil)
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tick_lower,tick_upper,price_lower,price_upper,liquidity\n", string(data))

	err = WriteFile(filepath.Join(t.TempDir(), "broken.csv"), func(io.Writer) error {
		return errors.New("boom")
	})
	assert.Error(t, err)
}

func TestFramePath(t *testing.T) {
	assert.Equal(t, filepath.Join("frames", "liquidity_0007.csv"), FramePath("frames", 7))
}

func TestSnapshot(t *testing.T) {
	state := model.PoolState{
		Address:      "0x1111111111111111111111111111111111111111",
		BlockNumber:  100,
		Token0:       model.TokenMeta{Decimals: 18},
		Token1:       model.TokenMeta{Decimals: 18},
		SqrtPriceX96: "79228162514264337593543950336",
		Tick:         5,
	}
	snapshot := Snapshot(1, state, testCurve(t), model.SnapshotSourceBitmap, nil)
	assert.True(t, snapshot.Reliable)
	assert.Empty(t, snapshot.Integrity)
	assert.InDelta(t, 1.0, snapshot.CurrentPrice, 1e-12)
	require.Len(t, snapshot.Segments, 3)
	assert.Equal(t, "40", snapshot.Segments[1].Liquidity)

	delta := liquidity.NewDelta()
	delta.Add(0, big.NewInt(-10))
	broken, err := liquidity.BuildCurve(delta)
	require.Error(t, err)
	snapshot = Snapshot(1, state, broken, model.SnapshotSourceEvents, err)
	assert.False(t, snapshot.Reliable)
	assert.Equal(t, string(liquidity.NegativeLiquidity), snapshot.Integrity)
}

func TestZoomWindow(t *testing.T) {
	low, high, ok := ZoomWindow(2000, 0.3)
	require.True(t, ok)
	assert.InDelta(t, 1400, low, 1e-9)
	assert.InDelta(t, 2600, high, 1e-9)

	_, _, ok = ZoomWindow(2000, 0)
	assert.False(t, ok)

	low, _, ok = ZoomWindow(10, 1.5)
	require.True(t, ok)
	assert.Equal(t, 0.0, low)
}
