package costbasis

import (
	"context"
	"sort"
	"time"
)

// Unrealized is the mark-to-market of the open lots in a scope.
//
// Assets the oracle could not price are left out of both Cost and Value,
// listed in Missing, and the result is flagged Partial.
type Unrealized struct {
	Cost    Money    `json:"total_cost"`
	Value   Money    `json:"market_value"`
	Gain    Money    `json:"unrealized_gain"`
	Partial bool     `json:"partial"`
	Missing []string `json:"missing,omitempty"`
}

// AverageEntry is the weighted average purchase price of the open lots in a
// scope. NoPosition is set, and every amount is zero, when nothing is held.
type AverageEntry struct {
	Price      Money    `json:"weighted_avg_price"`
	Quantity   Quantity `json:"quantity"`
	Cost       Money    `json:"cost"`
	NoPosition bool     `json:"no_position"`
}

// Position is one open lot, valued at the current price.
type Position struct {
	LotID              int64     `json:"lot_id"`
	TxID               string    `json:"tx_id"`
	AccountID          string    `json:"account_id"`
	Asset              string    `json:"asset"`
	Quantity           Quantity  `json:"quantity"`
	EffectiveCostBasis Money     `json:"effective_cost_basis"`
	Broker             Broker    `json:"broker"`
	OpenedAt           time.Time `json:"opened_at"`
	UnrealizedGain     Money     `json:"unrealized_gain"`
	Priced             bool      `json:"priced"`
}

// Positions lists open positions. Unpriced positions are listed with a zero
// UnrealizedGain and Priced=false.
type Positions struct {
	Items   []Position `json:"positions"`
	Partial bool       `json:"partial"`
	Missing []string   `json:"missing,omitempty"`
}

// Lots returns the open lots in scope, oldest first.
func (l *Ledger) Lots(ctx context.Context, scope Scope) ([]Lot, error) {
	var lots []Lot
	err := l.store.View(ctx, func(r Reader) error {
		all, err := r.Lots(ctx, scope.lotQuery())
		if err != nil {
			return err
		}
		for _, lot := range all {
			if scope.MatchLot(lot) && !lot.Closed() {
				lots = append(lots, lot)
			}
		}
		return nil
	})
	SortLots(lots)
	return lots, err
}

// Gains returns the gains in scope, by match time.
func (l *Ledger) Gains(ctx context.Context, scope Scope) ([]Gain, error) {
	var gains []Gain
	err := l.store.View(ctx, func(r Reader) error {
		all, err := r.Gains(ctx, scope.gainQuery())
		if err != nil {
			return err
		}
		for _, g := range all {
			if scope.MatchGain(g) {
				gains = append(gains, g)
			}
		}
		return nil
	})
	sort.SliceStable(gains, func(i, j int) bool {
		if !gains[i].MatchedAt.Equal(gains[j].MatchedAt) {
			return gains[i].MatchedAt.Before(gains[j].MatchedAt)
		}
		return gains[i].TxID < gains[j].TxID
	})
	return gains, err
}

func (l *Ledger) priceBook() *PriceBook {
	b := NewPriceBook(l.oracle)
	b.metrics = l.metrics
	return b
}

func missing(b *PriceBook) []string {
	m := b.Missing()
	if len(m) == 0 {
		return nil
	}
	sort.Strings(m)
	return m
}

// Unrealized values the open lots in scope at current prices.
func (l *Ledger) Unrealized(ctx context.Context, scope Scope) (Unrealized, error) {
	lots, err := l.Lots(ctx, scope)
	if err != nil {
		return Unrealized{}, err
	}
	book := l.priceBook()
	u := Unrealized{Cost: USD(0), Value: USD(0)}
	for _, lot := range lots {
		price, err := book.Price(ctx, lot.Asset)
		if err != nil {
			l.log.Warn().Err(err).Str("asset", lot.Asset).Msg("asset left out of unrealized gain")
			continue
		}
		u.Cost = u.Cost.Add(lot.RemainingCost())
		u.Value = u.Value.Add(price.Mul(lot.Remaining).Truncate(Precision))
	}
	if err := ctx.Err(); err != nil {
		return Unrealized{}, err
	}
	u.Gain = u.Value.Sub(u.Cost)
	u.Missing = missing(book)
	u.Partial = len(u.Missing) > 0
	return u, nil
}

// Realized sums the profit of the gains in scope.
func (l *Ledger) Realized(ctx context.Context, scope Scope) (Money, error) {
	gains, err := l.Gains(ctx, scope)
	if err != nil {
		return Money{}, err
	}
	total := USD(0)
	for _, g := range gains {
		total = total.Add(g.Profit)
	}
	return total, nil
}

// AverageEntry computes Σ cost / Σ quantity over the original purchase of
// every open lot in scope.
func (l *Ledger) AverageEntry(ctx context.Context, scope Scope) (AverageEntry, error) {
	lots, err := l.Lots(ctx, scope)
	if err != nil {
		return AverageEntry{}, err
	}
	a := AverageEntry{Price: USD(0), Cost: USD(0)}
	for _, lot := range lots {
		a.Cost = a.Cost.Add(lot.OriginalCost)
		a.Quantity = a.Quantity.Add(lot.OriginalQuantity)
	}
	if a.Quantity.IsZero() {
		return AverageEntry{Price: USD(0), Cost: USD(0), NoPosition: true}, nil
	}
	a.Price = a.Cost.DivTrunc(a.Quantity)
	return a, nil
}

// ActivePositions lists the open lots in scope with their unrealized gain.
func (l *Ledger) ActivePositions(ctx context.Context, scope Scope) (Positions, error) {
	lots, err := l.Lots(ctx, scope)
	if err != nil {
		return Positions{}, err
	}
	book := l.priceBook()
	var ps Positions
	for _, lot := range lots {
		p := Position{
			LotID:              lot.ID,
			TxID:               lot.OriginTxID,
			AccountID:          lot.AccountID,
			Asset:              lot.Asset,
			Quantity:           lot.Remaining,
			EffectiveCostBasis: lot.RemainingCost(),
			Broker:             lot.Broker,
			OpenedAt:           lot.OpenedAt,
			UnrealizedGain:     USD(0),
		}
		if price, err := book.Price(ctx, lot.Asset); err == nil {
			p.UnrealizedGain = price.Mul(lot.Remaining).Truncate(Precision).Sub(p.EffectiveCostBasis)
			p.Priced = true
		}
		ps.Items = append(ps.Items, p)
	}
	if err := ctx.Err(); err != nil {
		return Positions{}, err
	}
	ps.Missing = missing(book)
	ps.Partial = len(ps.Missing) > 0
	return ps, nil
}

// ClosedPositions lists the realized gains in scope.
func (l *Ledger) ClosedPositions(ctx context.Context, scope Scope) ([]Gain, error) {
	return l.Gains(ctx, scope)
}
