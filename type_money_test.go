package costbasis

import (
	"encoding/json"
	"testing"
)

func TestMoney_String(t *testing.T) {
	testCases := []struct {
		in   Money
		want string
	}{
		{USD("1234.5"), "$1,234.50"},
		{USD("0.004"), "$0.00"},
		{USD("-12.345"), "-$12.35"},
	}
	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			if got := tc.in.String(); got != tc.want {
				t.Errorf("String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMoney_DivTrunc(t *testing.T) {
	testCases := []struct {
		m    Money
		q    Quantity
		want string
	}{
		{USD(100), Q(4), "25"},
		{USD(2), Q(3), "0.666666666666666666"},
		{USD(-2), Q(3), "-0.666666666666666666"},
	}
	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			got := tc.m.DivTrunc(tc.q)
			if !got.Decimal().Equal(USD(tc.want).Decimal()) {
				t.Errorf("DivTrunc() = %s, want %s", got.StringFixed(Precision), tc.want)
			}
		})
	}
}

func TestMoney_JSON(t *testing.T) {
	data, err := json.Marshal(USD("106.666666666666666666"))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != `"106.666666666666666666"` {
		t.Errorf("Marshal() = %s, want an exact decimal string", got)
	}
	var m Money
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m.Currency() != "USD" || !m.Equal(USD("106.666666666666666666")) {
		t.Errorf("Unmarshal() = %v", m)
	}
}

func TestMoney_CurrencyMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("adding USD to EUR did not panic")
		}
	}()
	USD(1).Add(M(1, "EUR"))
}
