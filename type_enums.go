package costbasis

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Broker identifies the brokerage a transaction, lot or gain comes from.
type Broker int

const (
	// NoBroker is the zero value; in a Scope it means "any broker".
	NoBroker Broker = iota
	Coinbase
	Schwab
)

func (b Broker) String() string {
	switch b {
	case Coinbase:
		return "coinbase"
	case Schwab:
		return "schwab"
	default:
		return ""
	}
}

// Label returns the display name of the broker.
func (b Broker) Label() string {
	switch b {
	case Coinbase:
		return "Coinbase"
	case Schwab:
		return "Charles Schwab"
	default:
		return "unknown"
	}
}

// ParseBroker parses a broker name, case insensitive.
func ParseBroker(s string) (Broker, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "coinbase":
		return Coinbase, nil
	case "schwab":
		return Schwab, nil
	default:
		return NoBroker, fmt.Errorf("unknown broker: %q", s)
	}
}

func (b Broker) MarshalJSON() ([]byte, error) { return json.Marshal(b.String()) }

func (b *Broker) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseBroker(s)
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Value implements driver.Valuer.
func (b Broker) Value() (driver.Value, error) {
	if b == NoBroker {
		return nil, fmt.Errorf("cannot persist an unset broker")
	}
	return b.String(), nil
}

// Scan implements sql.Scanner.
func (b *Broker) Scan(src any) error {
	s, err := scanString(src)
	if err != nil {
		return fmt.Errorf("broker: %w", err)
	}
	v, err := ParseBroker(s)
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// TxType classifies a canonical transaction.
type TxType int

const (
	Buy TxType = iota + 1
	Sell
)

func (t TxType) String() string {
	switch t {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// ParseTxType parses "buy" or "sell".
func ParseTxType(s string) (TxType, error) {
	switch s {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return 0, fmt.Errorf("unknown transaction type: %q", s)
	}
}

func (t TxType) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

// Value implements driver.Valuer.
func (t TxType) Value() (driver.Value, error) {
	if t != Buy && t != Sell {
		return nil, fmt.Errorf("cannot persist transaction type %d", t)
	}
	return t.String(), nil
}

// Scan implements sql.Scanner.
func (t *TxType) Scan(src any) error {
	s, err := scanString(src)
	if err != nil {
		return fmt.Errorf("transaction type: %w", err)
	}
	v, err := ParseTxType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// LotStatus is derived from a lot's remaining quantity.
type LotStatus int

const (
	Open LotStatus = iota
	PartiallyConsumed
	Closed
)

func (s LotStatus) String() string {
	switch s {
	case Open:
		return "open"
	case PartiallyConsumed:
		return "partially_consumed"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

func scanString(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unsupported source type %T", src)
	}
}
