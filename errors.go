package costbasis

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateTransaction is returned by stores when a transaction id is
	// already recorded. Sync treats it as an idempotent skip.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrSyncConflict means another sync holds the account. Callers retry.
	ErrSyncConflict = errors.New("sync already in progress for account")
)

// ValidationError reports a malformed raw record. The record is rejected and
// the rest of the batch continues.
type ValidationError struct {
	TxID   string // may be empty when the id itself is missing
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid record %q: field %q: %s", e.TxID, e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// InsufficientLotsError is a data integrity violation: a sell asks for more
// than the open lots hold. Nothing from the batch is committed.
type InsufficientLotsError struct {
	TxID      string
	AccountID string
	Asset     string
	Requested Quantity
	Available Quantity
}

// Shortfall is the quantity the open lots could not cover.
func (e *InsufficientLotsError) Shortfall() Quantity { return e.Requested.Sub(e.Available) }

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("not enough %s in account %s to sell %s in %s: %s units short",
		e.Asset, e.AccountID, e.Requested, e.TxID, e.Shortfall())
}

// PriceUnavailableError reports that the oracle could not price an asset.
// Aggregations exclude the asset and flag the result as partial.
type PriceUnavailableError struct {
	Asset string
	Err   error
}

func (e *PriceUnavailableError) Error() string {
	return fmt.Sprintf("price unavailable for %s: %v", e.Asset, e.Err)
}

func (e *PriceUnavailableError) Unwrap() error { return e.Err }
