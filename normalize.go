package costbasis

import (
	"strings"

	"github.com/shopspring/decimal"
)

// fiatCurrencies are the currencies whose records carry no asset movement
// for the ledger: fiat balances are not modeled.
var fiatCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "CAD": true, "AUD": true,
	"CHF": true, "JPY": true, "SGD": true,
}

// IsFiat reports whether code is a fiat currency.
func IsFiat(code string) bool { return fiatCurrencies[strings.ToUpper(code)] }

// Normalize parses one raw record into a canonical Transaction.
//
// It returns ok=false, without error, for records that carry no net
// single-asset movement: conversions between assets ("trade"), fiat
// denominated entries, and any type that is neither a buy nor a sell
// (transfers, staking rewards...). Malformed records fail with a
// *ValidationError.
//
// The cost basis is the net consideration after fees: the subtotal of a buy
// (fee excluded) and the total of a sell (fee deducted).
func Normalize(rec Record, broker Broker) (tx Transaction, ok bool, err error) {
	id := rec.ID()
	invalid := func(field, reason string, cause error) (Transaction, bool, error) {
		return Transaction{}, false, &ValidationError{TxID: id, Field: field, Reason: reason, Err: cause}
	}
	if id == "" {
		return invalid("id", "missing", nil)
	}

	kind, err := rec.String("$.type")
	if err != nil {
		return invalid("type", "missing", err)
	}
	var typ TxType
	switch kind {
	case "buy":
		typ = Buy
	case "sell":
		typ = Sell
	default:
		return Transaction{}, false, nil
	}

	asset, err := rec.String("$.amount.currency")
	if err != nil {
		return invalid("amount.currency", "missing", err)
	}
	asset = strings.ToUpper(strings.TrimSpace(asset))
	if asset == "" {
		return invalid("amount.currency", "empty", nil)
	}
	if IsFiat(asset) {
		return Transaction{}, false, nil
	}

	at, err := rec.CreatedAt()
	if err != nil {
		return invalid("created_at", "not an RFC 3339 time", err)
	}

	amount, err := rec.Decimal("$.amount.amount")
	if err != nil {
		return invalid("amount.amount", "not an exact decimal", err)
	}
	quantity := Q(amount).Abs()
	if quantity.IsZero() {
		return invalid("amount.amount", "zero quantity", nil)
	}
	if !fits(amount) {
		return invalid("amount.amount", "more than 18 fractional digits", nil)
	}

	costPath := "$.buy.subtotal"
	if typ == Sell {
		costPath = "$.sell.total"
	}
	cost, err := rec.Decimal(costPath + ".amount")
	if err != nil {
		return invalid(costPath[2:]+".amount", "not an exact decimal", err)
	}
	if costCur, err := rec.String(costPath + ".currency"); err == nil && !strings.EqualFold(costCur, "USD") {
		return invalid(costPath[2:]+".currency", "cost basis must be in USD, got "+costCur, nil)
	}
	if cost.IsNegative() {
		return invalid(costPath[2:]+".amount", "negative consideration", nil)
	}
	if !fits(cost) {
		return invalid(costPath[2:]+".amount", "more than 18 fractional digits", nil)
	}

	// account_id is injected by the feed; Sync fills it when absent.
	account, _ := rec.String("$.account_id")

	tx = Transaction{
		TxID:         id,
		AccountID:    account,
		Asset:        asset,
		Quantity:     quantity,
		CostBasisUSD: USD(cost),
		Type:         typ,
		Timestamp:    at,
		Broker:       broker,
	}
	return tx, true, nil
}

// fits reports whether d is stored exactly with Precision fractional digits.
func fits(d decimal.Decimal) bool { return d.Equal(d.Truncate(Precision)) }
