package costbasis

import (
	"context"
	"testing"
	"time"
)

// at parses an RFC 3339 time, for test constants.
func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// buyRecord is a raw Coinbase buy of amount asset for a subtotal in USD.
func buyRecord(id, created, asset, amount, subtotal string) Record {
	return Record{
		"id":         id,
		"type":       "buy",
		"created_at": created,
		"amount":     map[string]any{"amount": amount, "currency": asset},
		"buy": map[string]any{
			"subtotal": map[string]any{"amount": subtotal, "currency": "USD"},
			"fee":      map[string]any{"amount": "1.99", "currency": "USD"},
		},
	}
}

// sellRecord is a raw Coinbase sell of amount asset for a total in USD.
func sellRecord(id, created, asset, amount, total string) Record {
	return Record{
		"id":         id,
		"type":       "sell",
		"created_at": created,
		"amount":     map[string]any{"amount": "-" + amount, "currency": asset},
		"sell": map[string]any{
			"total": map[string]any{"amount": total, "currency": "USD"},
		},
	}
}

// buy is a canonical buy transaction in account "acct".
func buy(id, created, asset, quantity, cost string) Transaction {
	return Transaction{TxID: id, AccountID: "acct", Asset: asset, Quantity: Q(quantity),
		CostBasisUSD: USD(cost), Type: Buy, Timestamp: at(created), Broker: Coinbase}
}

// sell is a canonical sell transaction in account "acct".
func sell(id, created, asset, quantity, proceeds string) Transaction {
	tx := buy(id, created, asset, quantity, proceeds)
	tx.Type = Sell
	return tx
}

// fixedPrices is an oracle over a static table; unknown assets fail.
func fixedPrices(prices map[string]string) PriceOracle {
	return PriceFunc(func(_ context.Context, asset string) (Money, error) {
		p, ok := prices[asset]
		if !ok {
			return Money{}, &PriceUnavailableError{Asset: asset, Err: context.DeadlineExceeded}
		}
		return USD(p), nil
	})
}

// mustSync syncs page into account "acct" and fails the test on error.
func mustSync(t *testing.T, l *Ledger, page ...Record) SyncReport {
	t.Helper()
	r, err := l.Sync(context.Background(), "acct", Coinbase, page)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	return r
}

// openLots returns every open lot of the ledger.
func openLots(t *testing.T, l *Ledger) []Lot {
	t.Helper()
	lots, err := l.Lots(context.Background(), Scope{})
	if err != nil {
		t.Fatalf("Lots() error = %v", err)
	}
	return lots
}
