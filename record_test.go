package costbasis

import (
	"strings"
	"testing"
)

func TestDecodeRecords(t *testing.T) {
	input := `{"id":"a","type":"buy","amount":{"amount":0.1000000000000000055511,"currency":"BTC"}}

{"id":"b","type":"sell","amount":{"amount":"-2","currency":"ETH"}}
`
	records, err := DecodeRecords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeRecords() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("DecodeRecords() = %d records, want 2", len(records))
	}
	if got := records[1].ID(); got != "b" {
		t.Errorf("ID() = %q, want b", got)
	}
	d, err := records[0].Decimal("$.amount.amount")
	if err != nil {
		t.Fatalf("Decimal() error = %v", err)
	}
	if got := d.String(); got != "0.1000000000000000055511" {
		t.Errorf("Decimal() = %s, the number was rounded", got)
	}
}

func TestDecodeRecords_Malformed(t *testing.T) {
	_, err := DecodeRecords(strings.NewReader("{\"id\":\"a\"}\n{oops\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("DecodeRecords() error = %v, want an error on line 2", err)
	}
}

func TestRecord_String(t *testing.T) {
	r := Record{"id": "x", "amount": map[string]any{"currency": "BTC"}, "nothing": nil}
	if got, err := r.String("$.amount.currency"); err != nil || got != "BTC" {
		t.Errorf("String() = %q, %v, want BTC", got, err)
	}
	if _, err := r.String("$.nothing"); err == nil {
		t.Error("String() of a null succeeded")
	}
	if _, err := r.String("$.missing"); err == nil {
		t.Error("String() of a missing key succeeded")
	}
}
