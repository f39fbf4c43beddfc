// Package replay rebuilds liquidity deltas from decoded Mint and Burn events
// stored as typed-event JSONL.
package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"liquidityProfile/internal/liquidity"
	"liquidityProfile/internal/model"
	"liquidityProfile/internal/storage"
)

// Filter restricts which events are replayed. ToBlock 0 means no upper bound.
type Filter struct {
	Pool      string
	FromBlock uint64
	ToBlock   uint64
}

func (f Filter) match(record model.TypedEventRecord) bool {
	if f.Pool != "" && !strings.EqualFold(record.Address, f.Pool) {
		return false
	}
	if record.BlockNumber < f.FromBlock {
		return false
	}
	if f.ToBlock > 0 && record.BlockNumber > f.ToBlock {
		return false
	}
	return true
}

// Stats counts what a replay read.
type Stats struct {
	Total      int
	Mints      int
	Burns      int
	Skipped    int
	Duplicates int
	FirstBlock uint64
	LastBlock  uint64
}

// Result is the output of reading a typed-event stream.
type Result struct {
	Events   []liquidity.Event
	ChainID  uint64
	Pool     string
	PoolMeta model.PoolMeta
	Stats    Stats
}

type orderedEvent struct {
	block    uint64
	logIndex uint64
	event    liquidity.Event
}

// Read parses typed events from r, keeping the Mint and Burn events that
// match filter in (block, log index) order. Any malformed line aborts the
// read since a dropped event would corrupt the curve.
func Read(ctx context.Context, r io.Reader, filter Filter, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var result Result
	var ordered []orderedEvent
	seen := make(map[string]struct{})

	err := storage.ScanJSONL(r, func(lineNo int, line []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		result.Stats.Total++

		var record model.TypedEventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return fmt.Errorf("line %d: decode typed event: %w", lineNo, err)
		}

		kind, ok := liquidity.ParseEventKind(record.EventName)
		if !ok || !filter.match(record) {
			result.Stats.Skipped++
			return nil
		}

		if filter.Pool == "" && len(ordered) > 0 && !strings.EqualFold(record.Address, result.Pool) {
			return fmt.Errorf("line %d: events for %s and %s in one input, set a pool filter", lineNo, result.Pool, record.Address)
		}

		id := record.ID()
		if _, dup := seen[id]; dup {
			result.Stats.Duplicates++
			return nil
		}
		seen[id] = struct{}{}

		event, err := toEvent(kind, record.Decoded)
		if err != nil {
			return fmt.Errorf("line %d: %s in tx %s: %w", lineNo, record.EventName, record.TxHash, err)
		}

		if len(ordered) == 0 {
			result.ChainID = record.ChainID
			result.Pool = record.Address
			result.PoolMeta = record.PoolMeta
		}
		ordered = append(ordered, orderedEvent{block: record.BlockNumber, logIndex: record.LogIndex, event: event})
		if kind == liquidity.Mint {
			result.Stats.Mints++
		} else {
			result.Stats.Burns++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].block != ordered[j].block {
			return ordered[i].block < ordered[j].block
		}
		return ordered[i].logIndex < ordered[j].logIndex
	})

	result.Events = make([]liquidity.Event, len(ordered))
	for i, item := range ordered {
		result.Events[i] = item.event
	}
	if len(ordered) > 0 {
		result.Stats.FirstBlock = ordered[0].block
		result.Stats.LastBlock = ordered[len(ordered)-1].block
	}

	logger.Info("replay read complete",
		zap.String("pool", filter.Pool),
		zap.Int("total", result.Stats.Total),
		zap.Int("mints", result.Stats.Mints),
		zap.Int("burns", result.Stats.Burns),
		zap.Int("skipped", result.Stats.Skipped),
		zap.Int("duplicates", result.Stats.Duplicates),
	)
	return result, nil
}

func toEvent(kind liquidity.EventKind, raw json.RawMessage) (liquidity.Event, error) {
	var payload model.PositionEventData
	if err := json.Unmarshal(raw, &payload); err != nil {
		return liquidity.Event{}, fmt.Errorf("decode payload: %w", err)
	}
	amount, ok := new(big.Int).SetString(payload.Amount, 10)
	if !ok {
		return liquidity.Event{}, fmt.Errorf("invalid amount %q", payload.Amount)
	}
	return liquidity.Event{
		Kind:      kind,
		TickLower: payload.TickLower,
		TickUpper: payload.TickUpper,
		Amount:    amount,
	}, nil
}

// FileSource replays a typed-event JSONL file. It satisfies
// liquidity.EventSource.
type FileSource struct {
	path   string
	filter Filter
	logger *zap.Logger

	last Result
}

var _ liquidity.EventSource = (*FileSource)(nil)

func NewFileSource(path string, filter Filter, logger *zap.Logger) *FileSource {
	return &FileSource{path: path, filter: filter, logger: logger}
}

// Events reads the file and returns the filtered events.
func (s *FileSource) Events(ctx context.Context) ([]liquidity.Event, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	result, err := Read(ctx, file, s.filter, s.logger)
	if err != nil {
		return nil, err
	}
	s.last = result
	return result.Events, nil
}

// Last returns the full result of the most recent Events call.
func (s *FileSource) Last() Result {
	return s.last
}
