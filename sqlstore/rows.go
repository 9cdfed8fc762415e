package sqlstore

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/etnz/costbasis"
)

// timeLayout is fixed width so that SQLite text columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// dbTime persists a time as a UTC string both dialects understand.
type dbTime time.Time

func (t dbTime) Value() (driver.Value, error) {
	return time.Time(t).UTC().Format(timeLayout), nil
}

func (t *dbTime) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case time.Time:
		*t = dbTime(v.UTC())
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into a time", src)
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	*t = dbTime(parsed.UTC())
	return nil
}

type cursorRow struct {
	AccountID  string `db:"account_id"`
	LastTxTime dbTime `db:"last_tx_time"`
}

func (r cursorRow) cursor() costbasis.SyncCursor {
	return costbasis.SyncCursor{AccountID: r.AccountID, LastSyncedTime: time.Time(r.LastTxTime)}
}

type transactionRow struct {
	TxID      string             `db:"tx_id"`
	Asset     string             `db:"asset"`
	Quantity  costbasis.Quantity `db:"quantity"`
	CostUSD   costbasis.Money    `db:"cost_usd"`
	TxType    costbasis.TxType   `db:"tx_type"`
	TxTime    dbTime             `db:"tx_time"`
	AccountID string             `db:"account_id"`
	Broker    costbasis.Broker   `db:"broker"`
}

func (r transactionRow) transaction() costbasis.Transaction {
	return costbasis.Transaction{
		TxID:         r.TxID,
		AccountID:    r.AccountID,
		Asset:        r.Asset,
		Quantity:     r.Quantity,
		CostBasisUSD: r.CostUSD,
		Type:         r.TxType,
		Timestamp:    time.Time(r.TxTime),
		Broker:       r.Broker,
	}
}

type lotRow struct {
	ID        int64              `db:"id"`
	AccountID string             `db:"account_id"`
	TxID      string             `db:"tx_id"`
	Asset     string             `db:"asset"`
	Quantity  costbasis.Quantity `db:"quantity"`
	Cost      costbasis.Money    `db:"cost"`
	Remaining costbasis.Quantity `db:"remaining"`
	Closed    bool               `db:"closed"`
	Broker    costbasis.Broker   `db:"broker"`
	BuyTime   dbTime             `db:"buy_time"`
}

func (r lotRow) lot() costbasis.Lot {
	return costbasis.Lot{
		ID:               r.ID,
		AccountID:        r.AccountID,
		Asset:            r.Asset,
		OriginTxID:       r.TxID,
		OriginalQuantity: r.Quantity,
		OriginalCost:     r.Cost,
		Remaining:        r.Remaining,
		Broker:           r.Broker,
		OpenedAt:         time.Time(r.BuyTime),
	}
}

type gainRow struct {
	ID        int64              `db:"id"`
	TxID      string             `db:"tx_id"`
	AccountID string             `db:"account_id"`
	Asset     string             `db:"asset"`
	Quantity  costbasis.Quantity `db:"quantity"`
	Proceeds  costbasis.Money    `db:"proceeds"`
	CostBasis costbasis.Money    `db:"cost_basis"`
	Profit    costbasis.Money    `db:"profit"`
	Broker    costbasis.Broker   `db:"broker"`
	MatchedAt dbTime             `db:"matched_at"`
}

func (r gainRow) gain() costbasis.Gain {
	return costbasis.Gain{
		ID:                r.ID,
		TxID:              r.TxID,
		AccountID:         r.AccountID,
		Asset:             r.Asset,
		Quantity:          r.Quantity,
		Proceeds:          r.Proceeds,
		CostBasisConsumed: r.CostBasis,
		Profit:            r.Profit,
		Broker:            r.Broker,
		MatchedAt:         time.Time(r.MatchedAt),
	}
}
