package costbasis

import (
	"context"
	"sync"
)

// AccountLocker grants exclusive sync access to one account.
//
// TryLock never waits: when the account is already held it returns
// ErrSyncConflict. On success the returned release func must be called once
// the batch is committed or rolled back.
type AccountLocker interface {
	TryLock(ctx context.Context, accountID string) (release func() error, err error)
}

// LocalLocker is an in-process AccountLocker.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocalLocker creates an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]bool)}
}

// TryLock implements AccountLocker.
func (l *LocalLocker) TryLock(_ context.Context, accountID string) (func() error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[accountID] {
		return nil, ErrSyncConflict
	}
	l.held[accountID] = true

	var once sync.Once
	return func() error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, accountID)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
