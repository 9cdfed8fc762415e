package costbasis

import (
	"context"
)

// LotQuery selects lots. Empty fields match everything.
type LotQuery struct {
	AccountID string
	Asset     string
	OpenOnly  bool
}

// GainQuery selects gains. Empty fields match everything.
type GainQuery struct {
	AccountID string
	Asset     string
}

// Reader is the read side of a store transaction. All reads made through one
// Reader observe the same snapshot.
type Reader interface {
	// Cursor returns the sync cursor of an account, found is false when the
	// account was never synced.
	Cursor(ctx context.Context, accountID string) (c SyncCursor, found bool, err error)
	Cursors(ctx context.Context) ([]SyncCursor, error)
	Transactions(ctx context.Context, accountID string) ([]Transaction, error)
	Lots(ctx context.Context, q LotQuery) ([]Lot, error)
	Gains(ctx context.Context, q GainQuery) ([]Gain, error)
}

// Writer is a store transaction able to mutate the ledger. Nothing it does is
// visible to others until the enclosing Update returns without error.
type Writer interface {
	Reader

	// LockAccount serializes writers of one account at the storage level. It
	// returns ErrSyncConflict when another writer holds the account.
	LockAccount(ctx context.Context, accountID string) error

	// InsertTransaction records tx, or returns ErrDuplicateTransaction if its
	// id is already recorded. A duplicate must not abort the transaction.
	InsertTransaction(ctx context.Context, tx Transaction) error
	InsertLot(ctx context.Context, lot Lot) (Lot, error)
	UpdateLot(ctx context.Context, lot Lot) error
	InsertGain(ctx context.Context, g Gain) (Gain, error)
	PutCursor(ctx context.Context, c SyncCursor) error
}

// Store persists the ledger. Update runs fn in a write transaction that is
// committed only if fn returns nil; View runs fn against a consistent
// snapshot.
type Store interface {
	Update(ctx context.Context, fn func(w Writer) error) error
	View(ctx context.Context, fn func(r Reader) error) error
}
