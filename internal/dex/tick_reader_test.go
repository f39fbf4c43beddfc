package dex

import (
	"context"
	"math/big"
	"testing"
	"time"

	"liquidityProfile/internal/liquidity"
)

func newTestTickReader(t *testing.T, fake *fakeChain, cfg TickReaderConfig) *TickReader {
	t.Helper()
	cfg.Pool = fake.pool
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = time.Millisecond
	}
	reader, err := NewTickReader(fake, cfg, nil)
	if err != nil {
		t.Fatalf("new tick reader: %v", err)
	}
	return reader
}

func TestTickReaderTickBitmap(t *testing.T) {
	fake := newFakeChain()
	fake.setTick(-60, 100)
	fake.setTick(15360, -100)

	reader := newTestTickReader(t, fake, TickReaderConfig{BlockNumber: 19_000_000})

	word, err := reader.TickBitmap(context.Background(), -1)
	if err != nil {
		t.Fatalf("tickBitmap: %v", err)
	}
	bits := liquidity.SetBits(word)
	if len(bits) != 1 || bits[0] != 255 {
		t.Fatalf("word -1 bits mismatch: %v", bits)
	}

	word, err = reader.TickBitmap(context.Background(), 1)
	if err != nil {
		t.Fatalf("tickBitmap: %v", err)
	}
	bits = liquidity.SetBits(word)
	if len(bits) != 1 || bits[0] != 0 {
		t.Fatalf("word 1 bits mismatch: %v", bits)
	}

	for _, block := range fake.blocks {
		if block == nil || block.Uint64() != 19_000_000 {
			t.Fatalf("expected calls pinned to block 19000000, got %v", block)
		}
	}
}

func TestTickReaderTickRecord(t *testing.T) {
	fake := newFakeChain()
	fake.setTick(-120, -4242)

	reader := newTestTickReader(t, fake, TickReaderConfig{})

	rec, err := reader.TickRecord(context.Background(), -120)
	if err != nil {
		t.Fatalf("ticks: %v", err)
	}
	if !rec.Initialized || rec.LiquidityNet.Cmp(big.NewInt(-4242)) != 0 {
		t.Fatalf("record mismatch: %+v", rec)
	}

	rec, err = reader.TickRecord(context.Background(), 600)
	if err != nil {
		t.Fatalf("ticks: %v", err)
	}
	if rec.Initialized || rec.LiquidityNet.Sign() != 0 {
		t.Fatalf("expected empty record, got %+v", rec)
	}
}

func TestTickReaderRetries(t *testing.T) {
	fake := newFakeChain()
	fake.failures["tickBitmap"] = 2

	reader := newTestTickReader(t, fake, TickReaderConfig{MaxRetries: 3})
	if _, err := reader.TickBitmap(context.Background(), 0); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if fake.calls["tickBitmap"] != 3 {
		t.Fatalf("expected 3 calls, got %d", fake.calls["tickBitmap"])
	}

	fake.failures["ticks"] = 5
	if _, err := reader.TickRecord(context.Background(), 0); err == nil {
		t.Fatalf("expected error once retries are exhausted")
	}
}

func TestTickReaderFeedsBitmapDecoder(t *testing.T) {
	fake := newFakeChain()
	fake.setTick(-887220, 500)
	fake.setTick(-60, 20)
	fake.setTick(60, -20)
	fake.setTick(887220, -500)

	reader := newTestTickReader(t, fake, TickReaderConfig{RequestsPerSecond: 10_000, Burst: 50})
	delta, err := liquidity.DecodeBitmapRange(context.Background(), reader, liquidity.MinTick, liquidity.MaxTick, fake.tickSpacing, liquidity.WithConcurrency(4))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	curve, err := liquidity.BuildCurve(delta)
	if err != nil {
		t.Fatalf("build curve: %v", err)
	}
	want := []struct {
		lower, upper int32
		liquidity    int64
	}{
		{-887220, -60, 500},
		{-60, 60, 520},
		{60, 887220, 500},
	}
	if len(curve.Segments) != len(want) {
		t.Fatalf("expected %d segments, got %d", len(want), len(curve.Segments))
	}
	for i, w := range want {
		seg := curve.Segments[i]
		if seg.TickLower != w.lower || seg.TickUpper != w.upper || seg.Liquidity.Cmp(big.NewInt(w.liquidity)) != 0 {
			t.Fatalf("segment %d mismatch: %+v", i, seg)
		}
	}
}
