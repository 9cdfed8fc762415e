package costbasis

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestEncodeTransactions(t *testing.T) {
	l := New(NewMemStore())
	mustSync(t, l,
		buyRecord("b1", "2025-01-01T10:00:00Z", "BTC", "1", "100"),
		sellRecord("s1", "2025-01-02T10:00:00Z", "BTC", "0.25", "40"),
	)
	txs, err := l.Transactions(context.Background(), "acct")
	if err != nil {
		t.Fatal(err)
	}

	var b bytes.Buffer
	if err := EncodeTransactions(&b, txs); err != nil {
		t.Fatal(err)
	}
	want := `{"tx_id":"b1","account_id":"acct","asset":"BTC","quantity":"1","cost_usd":"100","tx_type":"buy","tx_time":"2025-01-01T10:00:00Z","broker":"coinbase"}
{"tx_id":"s1","account_id":"acct","asset":"BTC","quantity":"0.25","cost_usd":"40","tx_type":"sell","tx_time":"2025-01-02T10:00:00Z","broker":"coinbase"}
`
	if got := b.String(); got != want {
		t.Errorf("EncodeTransactions() =\n%s\nwant\n%s", got, want)
	}

	other, err := l.Transactions(context.Background(), "other")
	if err != nil || len(other) != 0 {
		t.Errorf("Transactions(other) = %v, %v; want none", other, err)
	}
	if strings.Count(b.String(), "\n") != len(txs) {
		t.Errorf("want one line per transaction")
	}
}
