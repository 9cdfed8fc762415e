package costbasis

import (
	"database/sql/driver"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money represents a monetary value.
//
// The ledger only ever deals in USD, but the currency is kept so that
// formatting and mismatches stay explicit.
type Money struct {
	value decimal.Decimal // as major unit value
	cur   string
}

// M creates a Money value. Strings must be valid decimals, otherwise M panics.
func M[T int | int32 | int64 | uint64 | decimal.Decimal | string](value T, currency string) Money {
	return Money{value: newDecimal(value), cur: currency}
}

// USD creates a Money value in US dollars.
func USD[T int | int32 | int64 | uint64 | decimal.Decimal | string](value T) Money {
	return M(value, "USD")
}

// ParseMoney parses an exact decimal string in the given currency.
func ParseMoney(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{value: d, cur: currency}, nil
}

// currency returns the go-money description of the currency, never nil.
func (m Money) currency() money.Currency {
	// to get a never nil currency I need to call the Money constructor
	return *money.New(0, m.cur).Currency()
}

// String returns the string representation of the money value, rounded to
// the currency's minor unit.
func (m Money) String() string {
	cur := m.currency()
	dec := m.value.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(dec.IntPart())
}

func (m Money) Currency() string { return m.cur }
func (m Money) Decimal() decimal.Decimal { return m.value }
func (m Money) Equal(n Money) bool { return m.value.Equal(n.value) && m.cur == n.cur }
func (m Money) IsZero() bool { return m.value.IsZero() }
func (m Money) IsPositive() bool { return m.value.IsPositive() }
func (m Money) IsNegative() bool { return m.value.IsNegative() }
func (m Money) LessThan(n Money) bool { return m.value.LessThan(n.value) }
func (m Money) GreaterThan(n Money) bool { return m.value.GreaterThan(n.value) }
func (m Money) Neg() Money { return Money{value: m.value.Neg(), cur: m.cur} }
func (m Money) Mul(n Quantity) Money { return Money{value: m.value.Mul(n.value), cur: m.cur} }
func (m Money) Truncate(places int32) Money { return Money{value: m.value.Truncate(places), cur: m.cur} }
func (m Money) StringFixed(places int32) string { return m.value.StringFixed(places) }

// DivTrunc divides m by q and truncates the quotient to Precision fractional
// digits (rounding toward zero). It is the single division used on the
// ledger path so that repeated runs produce identical totals.
func (m Money) DivTrunc(q Quantity) Money {
	quo, _ := m.value.QuoRem(q.value, Precision)
	return Money{value: quo, cur: m.cur}
}

// binary operators.
func (m Money) Add(n Money) Money { return Money{value: m.value.Add(n.value), cur: cur(m, n)} }
func (m Money) Sub(n Money) Money { return Money{value: m.value.Sub(n.value), cur: cur(m, n)} }

// makes the "" currency totally weak.
func cur(a, b Money) string {
	if a.cur == "" {
		return b.cur
	}
	if b.cur == "" {
		return a.cur
	}
	if a.cur != b.cur {
		panic("currency mismatch " + a.cur + "!=" + b.cur)
	}
	return a.cur
}

// SignedString returns the string representation of the money value with a sign.
// 0 is represented as a "-".
func (m Money) SignedString() string {
	if m.value.IsZero() {
		return "-"
	}
	if m.value.IsPositive() {
		return "+" + m.String()
	}
	return m.String()
}

// MarshalJSON writes the exact amount as a decimal string, the currency is
// implied by the surrounding document.
func (m Money) MarshalJSON() ([]byte, error) { return m.value.MarshalJSON() }

// UnmarshalJSON reads a decimal string and assumes USD.
func (m *Money) UnmarshalJSON(data []byte) error {
	m.cur = "USD"
	return m.value.UnmarshalJSON(data)
}

// Value implements driver.Valuer, amounts are persisted as decimal strings.
func (m Money) Value() (driver.Value, error) { return m.value.String(), nil }

// Scan implements sql.Scanner. Persisted amounts are always USD.
func (m *Money) Scan(src any) error {
	m.cur = "USD"
	return m.value.Scan(src)
}
