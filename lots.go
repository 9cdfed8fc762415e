package costbasis

import (
	"fmt"
	"sort"
	"time"
)

// Lot represents a single purchase of an asset, tracked until fully sold.
type Lot struct {
	ID               int64     `json:"id"`
	AccountID        string    `json:"account_id"`
	Asset            string    `json:"asset"`
	OriginTxID       string    `json:"tx_id"`
	OriginalQuantity Quantity  `json:"quantity"`
	OriginalCost     Money     `json:"cost"` // Total cost of the lot, fees excluded.
	Remaining        Quantity  `json:"remaining"`
	Broker           Broker    `json:"broker"`
	OpenedAt         time.Time `json:"buy_time"`
}

// UnitCost is the cost of one unit of this lot, truncated to Precision.
func (l Lot) UnitCost() Money {
	if l.OriginalQuantity.IsZero() {
		return M(0, l.OriginalCost.Currency())
	}
	return l.OriginalCost.DivTrunc(l.OriginalQuantity)
}

// RemainingCost is the cost basis still attached to the open quantity.
func (l Lot) RemainingCost() Money {
	return l.UnitCost().Mul(l.Remaining).Truncate(Precision)
}

// Closed reports whether the lot has been fully consumed.
func (l Lot) Closed() bool { return !l.Remaining.IsPositive() }

// Status derives the lifecycle state from the remaining quantity.
func (l Lot) Status() LotStatus {
	switch {
	case l.Closed():
		return Closed
	case l.Remaining.LessThan(l.OriginalQuantity):
		return PartiallyConsumed
	default:
		return Open
	}
}

// OpenLot creates the lot a buy transaction opens.
func OpenLot(tx Transaction) Lot {
	return Lot{
		AccountID:        tx.AccountID,
		Asset:            tx.Asset,
		OriginTxID:       tx.TxID,
		OriginalQuantity: tx.Quantity,
		OriginalCost:     tx.CostBasisUSD,
		Remaining:        tx.Quantity,
		Broker:           tx.Broker,
		OpenedAt:         tx.Timestamp,
	}
}

// SortLots orders lots oldest first. Ties on OpenedAt are broken by the
// origin transaction id, then by lot id, so the order never depends on
// storage.
func SortLots(lots []Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		if !a.OpenedAt.Equal(b.OpenedAt) {
			return a.OpenedAt.Before(b.OpenedAt)
		}
		if a.OriginTxID != b.OriginTxID {
			return a.OriginTxID < b.OriginTxID
		}
		return a.ID < b.ID
	})
}

// Match is the outcome of matching one sell against open lots.
type Match struct {
	Lots     []Lot    // updated copies of every lot the sell touched
	Quantity Quantity // always equal to the sell quantity
	Consumed Money    // cost basis consumed across all touched lots
}

// MatchSell consumes the open lots of the sell's account and asset using FIFO.
//
// It works on copies: the input slice is left untouched, and on error nothing
// in the returned Match is meaningful. A shortfall is reported as an
// *InsufficientLotsError, never clamped.
func MatchSell(open []Lot, tx Transaction) (Match, error) {
	if tx.Type != Sell {
		return Match{}, fmt.Errorf("cannot match %s transaction %s as a sell", tx.Type, tx.TxID)
	}

	lots := make([]Lot, 0, len(open))
	var available Quantity
	for _, l := range open {
		if l.AccountID != tx.AccountID || l.Asset != tx.Asset || l.Closed() {
			continue
		}
		lots = append(lots, l)
		available = available.Add(l.Remaining)
	}
	SortLots(lots)

	if available.LessThan(tx.Quantity) {
		return Match{}, &InsufficientLotsError{
			TxID:      tx.TxID,
			AccountID: tx.AccountID,
			Asset:     tx.Asset,
			Requested: tx.Quantity,
			Available: available,
		}
	}

	m := Match{Quantity: tx.Quantity, Consumed: M(0, tx.CostBasisUSD.Currency())}
	left := tx.Quantity
	for _, l := range lots {
		if left.IsZero() {
			break
		}
		matched := l.Remaining.Min(left)
		m.Consumed = m.Consumed.Add(l.UnitCost().Mul(matched).Truncate(Precision))
		l.Remaining = l.Remaining.Sub(matched)
		left = left.Sub(matched)
		m.Lots = append(m.Lots, l)
	}
	return m, nil
}
