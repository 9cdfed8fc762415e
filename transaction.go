package costbasis

import (
	"errors"
	"fmt"
	"time"
)

// Transaction is the canonical, strongly typed form of a brokerage record.
//
// Transactions are immutable once recorded; TxID is the upstream identifier
// and the deduplication key.
type Transaction struct {
	TxID         string    `json:"tx_id"`
	AccountID    string    `json:"account_id"`
	Asset        string    `json:"asset"`
	Quantity     Quantity  `json:"quantity"`
	CostBasisUSD Money     `json:"cost_usd"` // net consideration after fees
	Type         TxType    `json:"tx_type"`
	Timestamp    time.Time `json:"tx_time"`
	Broker       Broker    `json:"broker"`
}

// Validate checks the invariants every recorded transaction must hold and
// returns all failures at once.
func (t Transaction) Validate() error {
	var errs error
	if t.TxID == "" {
		errs = errors.Join(errs, errors.New("transaction id is missing"))
	}
	if t.AccountID == "" {
		errs = errors.Join(errs, errors.New("account id is missing"))
	}
	if t.Asset == "" {
		errs = errors.Join(errs, errors.New("asset is missing"))
	}
	if !t.Quantity.IsPositive() {
		errs = errors.Join(errs, fmt.Errorf("quantity must be positive, got %s", t.Quantity))
	}
	if t.CostBasisUSD.IsNegative() {
		errs = errors.Join(errs, fmt.Errorf("cost basis must not be negative, got %s", t.CostBasisUSD.StringFixed(2)))
	}
	if t.Type != Buy && t.Type != Sell {
		errs = errors.Join(errs, fmt.Errorf("unsupported transaction type %s", t.Type))
	}
	if t.Timestamp.IsZero() {
		errs = errors.Join(errs, errors.New("timestamp is missing"))
	}
	if t.Broker == NoBroker {
		errs = errors.Join(errs, errors.New("broker is missing"))
	}
	return errs
}

// SyncCursor is the ingestion watermark of one account: every record up to
// LastSyncedTime has been durably recorded.
type SyncCursor struct {
	AccountID      string    `json:"account_id"`
	LastSyncedTime time.Time `json:"last_tx_time"`
}
