package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/etnz/costbasis"
	"github.com/jmoiron/sqlx"
)

// sqlTx implements costbasis.Writer over one database transaction. Queries
// are written with ? placeholders and rebound to the driver's syntax.
type sqlTx struct {
	tx       *sqlx.Tx
	postgres bool
}

var _ costbasis.Writer = (*sqlTx)(nil)

func (t *sqlTx) Cursor(ctx context.Context, accountID string) (costbasis.SyncCursor, bool, error) {
	var row cursorRow
	err := t.tx.GetContext(ctx, &row, t.tx.Rebind(
		`SELECT account_id, last_tx_time FROM account_sync WHERE account_id = ?`), accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return costbasis.SyncCursor{}, false, nil
	}
	if err != nil {
		return costbasis.SyncCursor{}, false, fmt.Errorf("failed to query cursor: %w", err)
	}
	return row.cursor(), true, nil
}

func (t *sqlTx) Cursors(ctx context.Context) ([]costbasis.SyncCursor, error) {
	var rows []cursorRow
	if err := t.tx.SelectContext(ctx, &rows,
		`SELECT account_id, last_tx_time FROM account_sync ORDER BY account_id`); err != nil {
		return nil, fmt.Errorf("failed to query cursors: %w", err)
	}
	cursors := make([]costbasis.SyncCursor, len(rows))
	for i, r := range rows {
		cursors[i] = r.cursor()
	}
	return cursors, nil
}

// where builds a WHERE clause from the non empty filters.
func where(filters ...[2]string) (string, []any) {
	var conds []string
	var args []any
	for _, f := range filters {
		if f[1] == "" {
			continue
		}
		conds = append(conds, f[0]+" = ?")
		args = append(args, f[1])
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (t *sqlTx) Transactions(ctx context.Context, accountID string) ([]costbasis.Transaction, error) {
	cond, args := where([2]string{"account_id", accountID})
	var rows []transactionRow
	if err := t.tx.SelectContext(ctx, &rows, t.tx.Rebind(
		`SELECT tx_id, asset, quantity, cost_usd, tx_type, tx_time, account_id, broker FROM transactions`+
			cond+` ORDER BY tx_time, tx_id`), args...); err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	txs := make([]costbasis.Transaction, len(rows))
	for i, r := range rows {
		txs[i] = r.transaction()
	}
	return txs, nil
}

func (t *sqlTx) Lots(ctx context.Context, q costbasis.LotQuery) ([]costbasis.Lot, error) {
	cond, args := where([2]string{"account_id", q.AccountID}, [2]string{"asset", q.Asset})
	if q.OpenOnly {
		if cond == "" {
			cond = " WHERE closed = ?"
		} else {
			cond += " AND closed = ?"
		}
		args = append(args, false)
	}
	var rows []lotRow
	if err := t.tx.SelectContext(ctx, &rows, t.tx.Rebind(
		`SELECT id, account_id, tx_id, asset, quantity, cost, remaining, closed, broker, buy_time FROM lots`+
			cond+` ORDER BY buy_time, tx_id, id`), args...); err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	lots := make([]costbasis.Lot, len(rows))
	for i, r := range rows {
		lots[i] = r.lot()
	}
	// SQL collation may differ from Go string order.
	costbasis.SortLots(lots)
	return lots, nil
}

func (t *sqlTx) Gains(ctx context.Context, q costbasis.GainQuery) ([]costbasis.Gain, error) {
	cond, args := where([2]string{"account_id", q.AccountID}, [2]string{"asset", q.Asset})
	var rows []gainRow
	if err := t.tx.SelectContext(ctx, &rows, t.tx.Rebind(
		`SELECT id, tx_id, account_id, asset, quantity, proceeds, cost_basis, profit, broker, matched_at FROM gains`+
			cond+` ORDER BY matched_at, tx_id`), args...); err != nil {
		return nil, fmt.Errorf("failed to query gains: %w", err)
	}
	gains := make([]costbasis.Gain, len(rows))
	for i, r := range rows {
		gains[i] = r.gain()
	}
	return gains, nil
}

// LockAccount takes a transaction scoped advisory lock on PostgreSQL. SQLite
// serializes writers on its own.
func (t *sqlTx) LockAccount(ctx context.Context, accountID string) error {
	if !t.postgres {
		return nil
	}
	var locked bool
	if err := t.tx.GetContext(ctx, &locked, t.tx.Rebind(
		`SELECT pg_try_advisory_xact_lock(hashtext(?))`), accountID); err != nil {
		return fmt.Errorf("failed to lock account: %w", err)
	}
	if !locked {
		return costbasis.ErrSyncConflict
	}
	return nil
}

func (t *sqlTx) InsertTransaction(ctx context.Context, tx costbasis.Transaction) error {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(
		`INSERT INTO transactions (tx_id, asset, quantity, cost_usd, tx_type, tx_time, account_id, broker)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tx_id) DO NOTHING`),
		tx.TxID, tx.Asset, tx.Quantity, tx.CostBasisUSD, tx.Type, dbTime(tx.Timestamp), tx.AccountID, tx.Broker)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", tx.TxID, costbasis.ErrDuplicateTransaction)
	}
	return nil
}

func (t *sqlTx) InsertLot(ctx context.Context, lot costbasis.Lot) (costbasis.Lot, error) {
	err := t.tx.QueryRowxContext(ctx, t.tx.Rebind(
		`INSERT INTO lots (account_id, tx_id, asset, quantity, cost, remaining, closed, broker, buy_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		lot.AccountID, lot.OriginTxID, lot.Asset, lot.OriginalQuantity, lot.OriginalCost,
		lot.Remaining, lot.Closed(), lot.Broker, dbTime(lot.OpenedAt)).Scan(&lot.ID)
	if err != nil {
		return costbasis.Lot{}, fmt.Errorf("failed to insert lot: %w", err)
	}
	return lot, nil
}

func (t *sqlTx) UpdateLot(ctx context.Context, lot costbasis.Lot) error {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(
		`UPDATE lots SET remaining = ?, closed = ? WHERE id = ?`),
		lot.Remaining, lot.Closed(), lot.ID)
	if err != nil {
		return fmt.Errorf("failed to update lot %d: %w", lot.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return fmt.Errorf("lot %d not found", lot.ID)
	}
	return nil
}

func (t *sqlTx) InsertGain(ctx context.Context, g costbasis.Gain) (costbasis.Gain, error) {
	err := t.tx.QueryRowxContext(ctx, t.tx.Rebind(
		`INSERT INTO gains (tx_id, account_id, asset, quantity, proceeds, cost_basis, profit, broker, matched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tx_id) DO NOTHING
		RETURNING id`),
		g.TxID, g.AccountID, g.Asset, g.Quantity, g.Proceeds, g.CostBasisConsumed, g.Profit,
		g.Broker, dbTime(g.MatchedAt)).Scan(&g.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return costbasis.Gain{}, fmt.Errorf("gain for %s: %w", g.TxID, costbasis.ErrDuplicateTransaction)
	}
	if err != nil {
		return costbasis.Gain{}, fmt.Errorf("failed to insert gain: %w", err)
	}
	return g, nil
}

// PutCursor upserts the cursor, refusing to move it back.
func (t *sqlTx) PutCursor(ctx context.Context, c costbasis.SyncCursor) error {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(
		`INSERT INTO account_sync (account_id, last_tx_time) VALUES (?, ?)
		ON CONFLICT (account_id) DO UPDATE SET last_tx_time = excluded.last_tx_time
		WHERE account_sync.last_tx_time <= excluded.last_tx_time`),
		c.AccountID, dbTime(c.LastSyncedTime))
	if err != nil {
		return fmt.Errorf("failed to store cursor: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("cursor of account %s cannot move back to %s", c.AccountID, c.LastSyncedTime)
	}
	return nil
}
