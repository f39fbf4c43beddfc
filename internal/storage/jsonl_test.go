package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"liquidityProfile/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "logs.jsonl")
	store := NewJsonlStorage(path)

	first := []model.LogRecord{{BlockNumber: 1, TxHash: "0x01"}, {BlockNumber: 2, TxHash: "0x02"}}
	second := []model.LogRecord{{BlockNumber: 3, TxHash: "0x03"}}
	if err := store.PutLogBatch(first); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if err := store.PutLogBatch(nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if err := store.PutLogBatch(second); err != nil {
		t.Fatalf("second batch: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var blocks []uint64
	err = ScanJSONL(file, func(_ int, line []byte) error {
		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return err
		}
		blocks = append(blocks, record.BlockNumber)
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !reflect.DeepEqual(blocks, []uint64{1, 2, 3}) {
		t.Fatalf("blocks mismatch: %v", blocks)
	}
}

func TestScanJSONLSkipsBlankLines(t *testing.T) {
	input := "{\"a\":1}\n\n   \n{\"a\":2}\n"
	var lines []int
	err := ScanJSONL(strings.NewReader(input), func(lineNo int, _ []byte) error {
		lines = append(lines, lineNo)
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !reflect.DeepEqual(lines, []int{1, 4}) {
		t.Fatalf("line numbers mismatch: %v", lines)
	}
}

func TestJSONLWriterTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	for i := 0; i < 2; i++ {
		writer, err := OpenJSONL(path, false)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := writer.Write(map[string]int{"run": i}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := writer.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "{\"run\":1}\n" {
		t.Fatalf("unexpected content: %q", data)
	}
}
