package indexer

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"liquidityProfile/internal/model"
)

type fakeSource struct {
	latest      uint64
	logs        []types.Log
	filterFails int
	queries     []BlockRange
	topics      [][]common.Hash
}

func (f *fakeSource) GetChainID(context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (f *fakeSource) LatestBlockNumber(context.Context) (uint64, error) { return f.latest, nil }

// one block every 12 seconds from genesis at t=1000
func (f *fakeSource) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	return 1000 + number*12, nil
}

func (f *fakeSource) BlockForTime(ctx context.Context, ts uint64) (uint64, error) {
	if ts <= 1000 {
		return 1, nil
	}
	block := (ts - 1000 + 11) / 12
	if block > f.latest {
		block = f.latest
	}
	return block, nil
}

func (f *fakeSource) FilterLogs(_ context.Context, from, to uint64, _ []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	if f.filterFails > 0 {
		f.filterFails--
		return nil, errors.New("429 too many requests")
	}
	f.queries = append(f.queries, BlockRange{From: from, To: to})
	f.topics = append(f.topics, topic0)
	var out []types.Log
	for _, log := range f.logs {
		if log.BlockNumber >= from && log.BlockNumber <= to {
			out = append(out, log)
		}
	}
	return out, nil
}

type memoryStorage struct {
	records []model.LogRecord
}

func (m *memoryStorage) PutLogBatch(logs []model.LogRecord) error {
	m.records = append(m.records, logs...)
	return nil
}

func testLog(block uint64, index uint) types.Log {
	return types.Log{
		Address:     common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Topics:      []common.Hash{common.HexToHash(mintTopic)},
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(int64(block))),
		Index:       index,
	}
}

func testConfig() RunConfig {
	return RunConfig{
		Addresses:    []common.Address{common.HexToAddress("0x1111111111111111111111111111111111111111")},
		BatchSize:    10,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	}
}

func TestRunnerDefaultsToLiquidityTopics(t *testing.T) {
	source := &fakeSource{latest: 25, logs: []types.Log{testLog(3, 0), testLog(3, 0), testLog(21, 1)}}
	sink := &memoryStorage{}

	stats, err := NewRunner(testConfig(), source, sink, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	wantRanges := []BlockRange{{From: 0, To: 9}, {From: 10, To: 19}, {From: 20, To: 25}}
	if !reflect.DeepEqual(source.queries, wantRanges) {
		t.Fatalf("ranges mismatch: %+v", source.queries)
	}

	want, err := DefaultTopics()
	if err != nil {
		t.Fatalf("default topics: %v", err)
	}
	if len(want) != 2 || !reflect.DeepEqual(source.topics[0], want) {
		t.Fatalf("topics mismatch: %v", source.topics[0])
	}

	if stats.Logs != 2 || len(sink.records) != 2 {
		t.Fatalf("expected duplicate dropped, got %d records", len(sink.records))
	}
	if sink.records[0].Timestamp != 1036 {
		t.Fatalf("timestamp mismatch: %d", sink.records[0].Timestamp)
	}
}

func TestRunnerDropsRemovedLogs(t *testing.T) {
	reorged := testLog(4, 2)
	reorged.Removed = true
	source := &fakeSource{latest: 9, logs: []types.Log{testLog(4, 1), reorged}}
	sink := &memoryStorage{}

	stats, err := NewRunner(testConfig(), source, sink, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Removed != 1 || stats.Logs != 1 || len(sink.records) != 1 {
		t.Fatalf("unexpected stats %+v with %d records", stats, len(sink.records))
	}
	if sink.records[0].LogIndex != 1 || sink.records[0].Removed {
		t.Fatalf("unexpected record kept: %+v", sink.records[0])
	}
}

func TestRunnerResolvesTimeWindow(t *testing.T) {
	source := &fakeSource{latest: 1000}
	cfg := testConfig()
	cfg.FromTime = 1000 + 100*12
	cfg.ToTime = 1000 + 104*12
	cfg.BatchSize = 100

	stats, err := NewRunner(cfg, source, &memoryStorage{}, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.FromBlock != 100 || stats.ToBlock != 104 {
		t.Fatalf("window mismatch: %+v", stats)
	}
}

func TestRunnerRetriesFilterLogs(t *testing.T) {
	source := &fakeSource{latest: 5, filterFails: 2}
	if _, err := NewRunner(testConfig(), source, &memoryStorage{}, nil).Run(context.Background()); err != nil {
		t.Fatalf("expected retries to recover: %v", err)
	}

	source = &fakeSource{latest: 5, filterFails: 10}
	if _, err := NewRunner(testConfig(), source, &memoryStorage{}, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected error once retries are exhausted")
	}
}

func TestRunnerResumesFromCheckpoint(t *testing.T) {
	cfg := testConfig()
	cfg.CheckpointEnabled = true
	cfg.CheckpointPath = filepath.Join(t.TempDir(), "checkpoint.json")

	source := &fakeSource{latest: 15}
	if _, err := NewRunner(cfg, source, &memoryStorage{}, nil).Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	source = &fakeSource{latest: 30}
	stats, err := NewRunner(cfg, source, &memoryStorage{}, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if stats.FromBlock != 16 {
		t.Fatalf("expected resume at 16, got %d", stats.FromBlock)
	}
}

func TestRunnerValidatesConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Addresses = nil
	if _, err := NewRunner(cfg, &fakeSource{}, &memoryStorage{}, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected error without addresses")
	}

	cfg = testConfig()
	cfg.BatchSize = 0
	if _, err := NewRunner(cfg, &fakeSource{}, &memoryStorage{}, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}
