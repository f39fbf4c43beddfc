package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestLogRecordDecodeErrorFor(t *testing.T) {
	line := `{"chain_id":56,"block_number":36000000,"tx_hash":"0xdef456","log_index":12,` +
		`"address":"0x1111111111111111111111111111111111111111","topics":["0xaaa","0xbbb"],"data":"0x"}`

	var record LogRecord
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if record.Topic0() != "0xaaa" {
		t.Fatalf("topic0 mismatch: %s", record.Topic0())
	}

	got := record.DecodeErrorFor(errors.New("unpack failed"))
	want := DecodeError{
		ChainID:     56,
		BlockNumber: 36000000,
		TxHash:      "0xdef456",
		LogIndex:    12,
		Address:     "0x1111111111111111111111111111111111111111",
		Topic0:      "0xaaa",
		Error:       "unpack failed",
	}
	if got != want {
		t.Fatalf("decode error mismatch: %+v != %+v", got, want)
	}
}

func TestLogRecordTopic0Anonymous(t *testing.T) {
	if got := (LogRecord{}).Topic0(); got != "" {
		t.Fatalf("expected empty topic0, got %q", got)
	}
}
