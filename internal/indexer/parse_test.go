package indexer

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

const (
	mintTopic = "0x7a53080ba414158be7ec69b987b5fb7d07dee101fe85488f0853ae16239d0bde"
	burnTopic = "0x0c396cd989a39f4459b5fa1aed6a9a8dcdbc45908acfd67e028cd568da98982c"
)

func TestParseAddresses(t *testing.T) {
	got, err := ParseAddresses([]string{
		" 0x1111111111111111111111111111111111111111 ",
		"",
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 addresses, got %d", len(got))
	}
	if _, err := ParseAddresses([]string{"0x1234"}); err == nil {
		t.Fatalf("expected error for short address")
	}
}

func TestParseTopic0(t *testing.T) {
	got, err := ParseTopic0([]string{burnTopic, " burn ", "Mint"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 topics after dedupe, got %d", len(got))
	}
	if got[0] != common.HexToHash(burnTopic) || got[1] != common.HexToHash(mintTopic) {
		t.Fatalf("topics mismatch: %v", got)
	}

	for _, input := range []string{"0xdeadbeef", "0xnot-hex", "Swap"} {
		if _, err := ParseTopic0([]string{input}); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}
