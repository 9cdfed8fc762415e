package costbasis

import (
	"context"
	"errors"
	"testing"
)

func TestMemStore_Rollback(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Update(ctx, func(w Writer) error {
		if err := w.InsertTransaction(ctx, buy("b1", "2025-01-01T00:00:00Z", "BTC", "1", "1")); err != nil {
			return err
		}
		if _, err := w.InsertLot(ctx, OpenLot(buy("b1", "2025-01-01T00:00:00Z", "BTC", "1", "1"))); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update() error = %v, want boom", err)
	}

	_ = s.View(ctx, func(r Reader) error {
		txs, _ := r.Transactions(ctx, "")
		lots, _ := r.Lots(ctx, LotQuery{})
		if len(txs) != 0 || len(lots) != 0 {
			t.Errorf("failed Update left %d transactions and %d lots", len(txs), len(lots))
		}
		return nil
	})
}

func TestMemStore_Duplicate(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	tx := buy("b1", "2025-01-01T00:00:00Z", "BTC", "1", "1")

	err := s.Update(ctx, func(w Writer) error {
		if err := w.InsertTransaction(ctx, tx); err != nil {
			return err
		}
		if err := w.InsertTransaction(ctx, tx); !errors.Is(err, ErrDuplicateTransaction) {
			t.Errorf("second InsertTransaction() error = %v, want ErrDuplicateTransaction", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
}

func TestMemStore_CursorForwardOnly(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	put := func(ts string) error {
		return s.Update(ctx, func(w Writer) error {
			return w.PutCursor(ctx, SyncCursor{AccountID: "acct", LastSyncedTime: at(ts)})
		})
	}
	if err := put("2025-02-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}
	if err := put("2025-01-01T00:00:00Z"); err == nil {
		t.Error("PutCursor() moved the cursor back")
	}
}

func TestMemStore_ViewIsReadOnly(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	err := s.View(ctx, func(r Reader) error {
		return r.(Writer).PutCursor(ctx, SyncCursor{AccountID: "acct"})
	})
	if err == nil {
		t.Error("write through View succeeded")
	}
}
