package costbasis

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits kept for unit costs and
// consumed cost basis. Stored columns carry the same scale.
const Precision int32 = 18

// newDecimal is a convenient factory for decimal.Decimal.
//
// Only exact sources are accepted: there is no float variant on purpose.
func newDecimal[T int | int32 | int64 | uint64 | decimal.Decimal | string](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint64:
		return decimal.NewFromUint64(v)
	case string:
		return decimal.RequireFromString(v)
	default:
		panic("unsupported type")
	}
}

// Quantity is an amount of an asset, in the asset's own unit.
type Quantity struct {
	value decimal.Decimal
}

// Q creates a Quantity. Strings must be valid decimals, otherwise Q panics:
// it is meant for constants and tests, use ParseQuantity for input.
func Q[T int | int32 | int64 | uint64 | decimal.Decimal | string](value T) Quantity {
	return Quantity{value: newDecimal(value)}
}

// ParseQuantity parses an exact decimal string.
func ParseQuantity(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return Quantity{value: d}, nil
}

func (t Quantity) Decimal() decimal.Decimal { return t.value }
func (t Quantity) Equal(p Quantity) bool { return t.value.Equal(p.value) }
func (t Quantity) LessThan(p Quantity) bool { return t.value.LessThan(p.value) }
func (t Quantity) GreaterThan(p Quantity) bool { return t.value.GreaterThan(p.value) }
func (t Quantity) Add(p Quantity) Quantity { return Quantity{value: t.value.Add(p.value)} }
func (t Quantity) Sub(p Quantity) Quantity { return Quantity{value: t.value.Sub(p.value)} }
func (t Quantity) Abs() Quantity { return Quantity{value: t.value.Abs()} }
func (t Quantity) IsNegative() bool { return t.value.IsNegative() }
func (t Quantity) IsPositive() bool { return t.value.IsPositive() }
func (t Quantity) IsZero() bool { return t.value.IsZero() }
func (t Quantity) String() string { return t.value.String() }
func (t Quantity) StringFixed(places int32) string { return t.value.StringFixed(places) }
func (t Quantity) MarshalJSON() ([]byte, error) { return t.value.MarshalJSON() }
func (t *Quantity) UnmarshalJSON(decimalBytes []byte) error { return t.value.UnmarshalJSON(decimalBytes) }

// Min returns the smaller of t and p.
func (t Quantity) Min(p Quantity) Quantity {
	if p.LessThan(t) {
		return p
	}
	return t
}

// Value implements driver.Valuer, quantities are persisted as decimal strings.
func (t Quantity) Value() (driver.Value, error) { return t.value.String(), nil }

// Scan implements sql.Scanner.
func (t *Quantity) Scan(src any) error { return t.value.Scan(src) }
