package date

import (
	"fmt"
	"strings"
	"time"
)

// Range represents a range of dates, both boundaries included.
//
// The zero Range means "no window": it contains every time.
type Range struct{ From, To Date }

// NewRange returns the standard period containing d.
func NewRange(d Date, period Period) Range {
	return Range{From: d.StartOf(period), To: d.EndOf(period)}
}

// IsZero reports whether r is the unbounded zero Range.
func (r Range) IsZero() bool { return r == Range{} }

// Contains return true if date is included in the range (boundaries included).
func (r Range) Contains(date Date) bool {
	if r.IsZero() {
		return true
	}
	return !date.Before(r.From) && !date.After(r.To)
}

// ContainsTime reports whether the UTC day of t is within r.
func (r Range) ContainsTime(t time.Time) bool { return r.Contains(Of(t)) }

// Period returns the period of this range if it's a standard one.
func (r Range) Period() (p Period, ok bool) {
	switch {
	case r.From == r.To:
		return Daily, true
	case r.From.Weekday() == time.Monday && r.From.EndOf(Weekly) == r.To:
		return Weekly, true
	case r.From.Day() == 1 && r.From.EndOf(Monthly) == r.To:
		return Monthly, true
	case r.From.StartOf(Quarterly) == r.From && r.From.EndOf(Quarterly) == r.To:
		return Quarterly, true
	case r.From.StartOf(Yearly) == r.From && r.From.EndOf(Yearly) == r.To:
		return Yearly, true
	default:
		return Daily, false
	}
}

// Identifier computes a short unique name for the Range, like "2025-Q3".
func (r Range) Identifier() string {
	if r.IsZero() {
		return ""
	}
	p, ok := r.Period()
	if !ok {
		return fmt.Sprintf("%s..%s", r.From, r.To)
	}
	switch p {
	case Daily:
		return r.From.String()
	case Weekly:
		_, week := r.From.ISOWeek()
		return fmt.Sprintf("%d-W%02d", r.From.Year(), week)
	case Monthly:
		return r.From.Format("2006-01")
	case Quarterly:
		return fmt.Sprintf("%d-Q%d", r.From.Year(), (r.From.Month()-1)/3+1)
	default:
		return r.From.Format("2006")
	}
}

// String returns the Identifier.
func (r Range) String() string { return r.Identifier() }

// ParseRange parses "2025", "2025-Q2", "2025-06", "2025-06-01" or an explicit
// "2025-01-10..2025-02-20". The empty string is the zero Range.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, nil
	}
	if from, to, ok := strings.Cut(s, ".."); ok {
		f, err := Parse(from)
		if err != nil {
			return Range{}, err
		}
		t, err := Parse(to)
		if err != nil {
			return Range{}, err
		}
		if t.Before(f) {
			return Range{}, fmt.Errorf("invalid range %q: ends before it starts", s)
		}
		return Range{From: f, To: t}, nil
	}
	var year, n int
	if _, err := fmt.Sscanf(s, "%d-Q%d", &year, &n); err == nil && strings.Contains(s, "Q") {
		if n < 1 || n > 4 {
			return Range{}, fmt.Errorf("invalid quarter in %q", s)
		}
		return NewRange(New(year, time.Month(3*n-2), 1), Quarterly), nil
	}
	if t, err := time.Parse("2006", s); err == nil {
		return NewRange(Of(t), Yearly), nil
	}
	if t, err := time.Parse("2006-01", s); err == nil {
		return NewRange(Of(t), Monthly), nil
	}
	d, err := Parse(s)
	if err != nil {
		return Range{}, fmt.Errorf("invalid range %q", s)
	}
	return NewRange(d, Daily), nil
}
