package costbasis

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
)

// MemStore is an in-memory Store.
//
// Writers are serialized and work on a copy of the state that replaces the
// published one on success, so a failed Update leaves no trace and readers
// always see a committed snapshot.
type MemStore struct {
	writer sync.Mutex   // serializes Update
	mu     sync.RWMutex // guards state
	state  *memState
}

type memState struct {
	cursors      map[string]SyncCursor
	transactions map[string]Transaction
	order        []string // transaction ids in insertion order
	lots         []Lot
	gains        []Gain
	nextLot      int64
	nextGain     int64
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{state: &memState{
		cursors:      make(map[string]SyncCursor),
		transactions: make(map[string]Transaction),
	}}
}

func (s *memState) clone() *memState {
	return &memState{
		cursors:      maps.Clone(s.cursors),
		transactions: maps.Clone(s.transactions),
		order:        slices.Clone(s.order),
		lots:         slices.Clone(s.lots),
		gains:        slices.Clone(s.gains),
		nextLot:      s.nextLot,
		nextGain:     s.nextGain,
	}
}

func (m *MemStore) snapshot() *memState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Update implements Store.
func (m *MemStore) Update(ctx context.Context, fn func(w Writer) error) error {
	m.writer.Lock()
	defer m.writer.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	draft := m.snapshot().clone()
	if err := fn(&memTx{state: draft}); err != nil {
		return err
	}

	m.mu.Lock()
	m.state = draft
	m.mu.Unlock()
	return nil
}

// View implements Store.
func (m *MemStore) View(ctx context.Context, fn func(r Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&memTx{state: m.snapshot(), readOnly: true})
}

type memTx struct {
	state    *memState
	readOnly bool
}

func (t *memTx) writable() error {
	if t.readOnly {
		return fmt.Errorf("write in a read-only transaction")
	}
	return nil
}

func (t *memTx) Cursor(_ context.Context, accountID string) (SyncCursor, bool, error) {
	c, ok := t.state.cursors[accountID]
	return c, ok, nil
}

func (t *memTx) Cursors(context.Context) ([]SyncCursor, error) {
	cursors := slices.Collect(maps.Values(t.state.cursors))
	sort.Slice(cursors, func(i, j int) bool { return cursors[i].AccountID < cursors[j].AccountID })
	return cursors, nil
}

func (t *memTx) Transactions(_ context.Context, accountID string) ([]Transaction, error) {
	var txs []Transaction
	for _, id := range t.state.order {
		tx := t.state.transactions[id]
		if accountID == "" || tx.AccountID == accountID {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

func (t *memTx) Lots(_ context.Context, q LotQuery) ([]Lot, error) {
	var lots []Lot
	for _, l := range t.state.lots {
		if q.AccountID != "" && l.AccountID != q.AccountID {
			continue
		}
		if q.Asset != "" && l.Asset != q.Asset {
			continue
		}
		if q.OpenOnly && l.Closed() {
			continue
		}
		lots = append(lots, l)
	}
	SortLots(lots)
	return lots, nil
}

func (t *memTx) Gains(_ context.Context, q GainQuery) ([]Gain, error) {
	var gains []Gain
	for _, g := range t.state.gains {
		if q.AccountID != "" && g.AccountID != q.AccountID {
			continue
		}
		if q.Asset != "" && g.Asset != q.Asset {
			continue
		}
		gains = append(gains, g)
	}
	return gains, nil
}

func (t *memTx) LockAccount(context.Context, string) error {
	// Update already serializes every writer.
	return t.writable()
}

func (t *memTx) InsertTransaction(_ context.Context, tx Transaction) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, exists := t.state.transactions[tx.TxID]; exists {
		return fmt.Errorf("transaction %s: %w", tx.TxID, ErrDuplicateTransaction)
	}
	t.state.transactions[tx.TxID] = tx
	t.state.order = append(t.state.order, tx.TxID)
	return nil
}

func (t *memTx) InsertLot(_ context.Context, lot Lot) (Lot, error) {
	if err := t.writable(); err != nil {
		return Lot{}, err
	}
	t.state.nextLot++
	lot.ID = t.state.nextLot
	t.state.lots = append(t.state.lots, lot)
	return lot, nil
}

func (t *memTx) UpdateLot(_ context.Context, lot Lot) error {
	if err := t.writable(); err != nil {
		return err
	}
	for i, l := range t.state.lots {
		if l.ID == lot.ID {
			t.state.lots[i] = lot
			return nil
		}
	}
	return fmt.Errorf("lot %d not found", lot.ID)
}

func (t *memTx) InsertGain(_ context.Context, g Gain) (Gain, error) {
	if err := t.writable(); err != nil {
		return Gain{}, err
	}
	for _, existing := range t.state.gains {
		if existing.TxID == g.TxID {
			return Gain{}, fmt.Errorf("gain for %s: %w", g.TxID, ErrDuplicateTransaction)
		}
	}
	t.state.nextGain++
	g.ID = t.state.nextGain
	t.state.gains = append(t.state.gains, g)
	return g, nil
}

func (t *memTx) PutCursor(_ context.Context, c SyncCursor) error {
	if err := t.writable(); err != nil {
		return err
	}
	if prev, ok := t.state.cursors[c.AccountID]; ok && c.LastSyncedTime.Before(prev.LastSyncedTime) {
		return fmt.Errorf("cursor of account %s cannot move back from %s to %s",
			c.AccountID, prev.LastSyncedTime, c.LastSyncedTime)
	}
	t.state.cursors[c.AccountID] = c
	return nil
}
