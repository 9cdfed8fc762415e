package costbasis

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

// Record is one raw transaction as decoded from the brokerage feed.
//
// Records are loosely typed and never cross into the lot ledger: Normalize
// turns them into Transactions.
type Record map[string]any

// ID returns the upstream transaction id, or "" when absent.
func (r Record) ID() string {
	s, _ := r.String("$.id")
	return s
}

// CreatedAt parses the record's creation time.
func (r Record) CreatedAt() (time.Time, error) {
	s, err := r.String("$.created_at")
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid created_at %q: %w", s, err)
	}
	return t, nil
}

// get evaluates a jsonpath expression against the record.
func (r Record) get(path string) (any, error) {
	jval, err := jsonpath.Get(path, map[string]any(r))
	if err != nil {
		return nil, err
	}
	// jsonpath may answer with a value or with a list of one value.
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return nil, fmt.Errorf("no value at %s", path)
		}
		jval = jlist[0]
	}
	if jval == nil {
		return nil, fmt.Errorf("null value at %s", path)
	}
	return jval, nil
}

// String returns the string at path.
func (r Record) String(path string) (string, error) {
	jval, err := r.get(path)
	if err != nil {
		return "", err
	}
	s, ok := jval.(string)
	if !ok {
		return "", fmt.Errorf("value at %s is a %T, not a string", path, jval)
	}
	return s, nil
}

// Decimal returns the exact decimal at path. Amounts must be encoded as
// strings (or json.Number when decoded with UseNumber); binary floats are
// refused.
func (r Record) Decimal(path string) (decimal.Decimal, error) {
	jval, err := r.get(path)
	if err != nil {
		return decimal.Decimal{}, err
	}
	var s string
	switch v := jval.(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	default:
		return decimal.Decimal{}, fmt.Errorf("value at %s is a %T, want a decimal string", path, jval)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("value at %s: %w", path, err)
	}
	return d, nil
}

// DecodeRecords reads raw records from a JSON lines stream. Numbers are kept
// as json.Number so that nothing is rounded through float64.
func DecodeRecords(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
