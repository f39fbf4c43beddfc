package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"liquidityProfile/internal/model"
)

// toRecords converts one batch of logs, dropping logs the node marked as
// removed by a reorg and logs already seen in this run. A removed Mint or
// Burn that was kept would be replayed as if it still held liquidity.
func (r *Runner) toRecords(ctx context.Context, chainID uint64, logs []types.Log, ingestedAt time.Time) ([]model.LogRecord, int, error) {
	records := make([]model.LogRecord, 0, len(logs))
	removed := 0
	for _, log := range logs {
		if log.Removed {
			removed++
			r.logger.Debug("skip removed log", zap.String("tx", log.TxHash.Hex()), zap.Uint("log_index", log.Index))
			continue
		}
		if r.isDuplicate(log) {
			continue
		}

		ts, err := r.blockTimestamp(ctx, log.BlockNumber)
		if err != nil {
			return nil, removed, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
		}
		records = append(records, buildLogRecord(chainID, log, ts, ingestedAt))
	}
	return records, removed, nil
}

func (r *Runner) isDuplicate(log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}

func buildLogRecord(chainID uint64, log types.Log, timestamp uint64, ingestedAt time.Time) model.LogRecord {
	topics := make([]string, len(log.Topics))
	for i, topic := range log.Topics {
		topics[i] = topic.Hex()
	}

	return model.LogRecord{
		ChainID:     chainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash.Hex(),
		TxHash:      log.TxHash.Hex(),
		TxIndex:     uint64(log.TxIndex),
		LogIndex:    uint64(log.Index),
		Address:     log.Address.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(log.Data),
		Timestamp:   timestamp,
		IngestedAt:  ingestedAt.Format(time.RFC3339Nano),
	}
}
