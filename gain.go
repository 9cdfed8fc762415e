package costbasis

import "time"

// Gain is the realization record of one sell transaction. Append only.
type Gain struct {
	ID                int64     `json:"id"`
	TxID              string    `json:"tx_id"`
	AccountID         string    `json:"account_id"`
	Asset             string    `json:"asset"`
	Quantity          Quantity  `json:"quantity"`
	Proceeds          Money     `json:"proceeds"`
	CostBasisConsumed Money     `json:"cost_basis"`
	Profit            Money     `json:"profit"`
	Broker            Broker    `json:"broker"`
	MatchedAt         time.Time `json:"matched_at"`
}

// RecordGain builds the single Gain of a matched sell, however many lots the
// match touched. MatchedAt is the sell's own timestamp so that replaying the
// same history yields the same records.
func RecordGain(tx Transaction, m Match) Gain {
	return Gain{
		TxID:              tx.TxID,
		AccountID:         tx.AccountID,
		Asset:             tx.Asset,
		Quantity:          m.Quantity,
		Proceeds:          tx.CostBasisUSD,
		CostBasisConsumed: m.Consumed,
		Profit:            tx.CostBasisUSD.Sub(m.Consumed),
		Broker:            tx.Broker,
		MatchedAt:         tx.Timestamp,
	}
}
