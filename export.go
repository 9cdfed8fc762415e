package costbasis

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Transactions returns the recorded transactions of an account, or of every
// account when accountID is empty, in recording order.
func (l *Ledger) Transactions(ctx context.Context, accountID string) ([]Transaction, error) {
	var txs []Transaction
	err := l.store.View(ctx, func(r Reader) error {
		var err error
		txs, err = r.Transactions(ctx, accountID)
		return err
	})
	return txs, err
}

// EncodeTransactions writes txs as JSONL, one canonical transaction per line.
func EncodeTransactions(w io.Writer, txs []Transaction) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, tx := range txs {
		if err := enc.Encode(tx); err != nil {
			return fmt.Errorf("failed to encode transaction %s: %w", tx.TxID, err)
		}
	}
	return bw.Flush()
}
