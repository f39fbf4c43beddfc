package storage

import "liquidityProfile/internal/model"

// LogSink receives batches of raw pool logs from the indexer.
type LogSink interface {
	PutLogBatch(logs []model.LogRecord) error
}
