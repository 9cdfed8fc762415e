package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/metrics"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feed struct {
	records map[string][]costbasis.Record
	err     error
}

func (f *feed) Broker() costbasis.Broker { return costbasis.Coinbase }

func (f *feed) Accounts(context.Context) ([]costbasis.Account, error) {
	var accounts []costbasis.Account
	for id := range f.records {
		accounts = append(accounts, costbasis.Account{ID: id, Currency: "BTC"})
	}
	return accounts, nil
}

func (f *feed) Records(_ context.Context, accountID string, _ time.Time) ([]costbasis.Record, error) {
	return f.records[accountID], f.err
}

func record(id, typ, created, amount, usd string) costbasis.Record {
	field := map[string]any{"buy": "subtotal", "sell": "total"}[typ].(string)
	if typ == "sell" {
		amount = "-" + amount
	}
	return costbasis.Record{
		"id":         id,
		"type":       typ,
		"created_at": created,
		"amount":     map[string]any{"amount": amount, "currency": "BTC"},
		typ:          map[string]any{field: map[string]any{"amount": usd, "currency": "USD"}},
	}
}

// newServer returns a test server over a ledger fed with buys of 1 BTC at
// 100 and 200 and a sell of 1.5 BTC for 450, BTC priced at 1000.
func newServer(t *testing.T, records ...costbasis.Record) *httptest.Server {
	t.Helper()
	if records == nil {
		records = []costbasis.Record{
			record("b1", "buy", "2025-01-01T10:00:00Z", "1", "100"),
			record("b2", "buy", "2025-02-01T10:00:00Z", "1", "200"),
			record("s1", "sell", "2025-03-01T10:00:00Z", "1.5", "450"),
		}
	}
	oracle := costbasis.PriceFunc(func(_ context.Context, asset string) (costbasis.Money, error) {
		if asset == "BTC" {
			return costbasis.USD(1000), nil
		}
		return costbasis.Money{}, &costbasis.PriceUnavailableError{Asset: asset}
	})
	reg := metrics.New()
	ledger := costbasis.New(costbasis.NewMemStore(), costbasis.WithOracle(oracle), costbasis.WithMetrics(reg))
	srv := httptest.NewServer(NewServer(ledger, &feed{records: map[string][]costbasis.Record{"acct": records}}, reg, zerolog.Nop()).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func assertDecimal(t *testing.T, want string, got any) {
	t.Helper()
	s, ok := got.(string)
	require.Truef(t, ok, "want a decimal string, got %v", got)
	assert.Truef(t, decimal.RequireFromString(want).Equal(decimal.RequireFromString(s)), "got %s, want %s", s, want)
}

func sync(t *testing.T, srv *httptest.Server) {
	t.Helper()
	status, body := do(t, http.MethodPost, srv.URL+"/transactions/update")
	require.Equal(t, http.StatusOK, status, body)
}

func TestSync(t *testing.T) {
	srv := newServer(t)
	status, body := do(t, http.MethodPost, srv.URL+"/transactions/update")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["new_transactions"])

	// nothing new the second time
	_, body = do(t, http.MethodPost, srv.URL+"/transactions/update")
	assert.EqualValues(t, 0, body["new_transactions"])
}

func TestSync_Insufficient(t *testing.T) {
	srv := newServer(t,
		record("b1", "buy", "2025-01-01T10:00:00Z", "1", "100"),
		record("s1", "sell", "2025-03-01T10:00:00Z", "2", "450"),
	)
	status, body := do(t, http.MethodPost, srv.URL+"/transactions/update")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body["error"], "units short")

	// the batch was rolled back
	_, body = do(t, http.MethodGet, srv.URL+"/average_entry/acct")
	assert.Equal(t, true, body["no_position"])
}

func TestQueries(t *testing.T) {
	srv := newServer(t)
	sync(t, srv)

	t.Run("unrealized", func(t *testing.T) {
		status, body := do(t, http.MethodGet, srv.URL+"/unrealized?account=acct")
		require.Equal(t, http.StatusOK, status)
		assertDecimal(t, "100", body["total_cost"])
		assertDecimal(t, "500", body["market_value"])
		assertDecimal(t, "400", body["unrealized_gain"])
		assert.Equal(t, false, body["partial"])
	})

	tests := []struct {
		name string
		path string
		want string
	}{
		{"global", "/realized", "250"},
		{"broker", "/realized/broker/coinbase", "250"},
		{"other broker", "/realized/broker/schwab", "0"},
		{"account", "/realized/account/acct", "250"},
		{"other account", "/realized/account/nope", "0"},
		{"window", "/realized?window=2025-03", "250"},
		{"empty window", "/realized?window=2025-04", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, http.MethodGet, srv.URL+tt.path)
			require.Equal(t, http.StatusOK, status, body)
			assertDecimal(t, tt.want, body["realized_gain"])
		})
	}

	t.Run("average entry", func(t *testing.T) {
		_, body := do(t, http.MethodGet, srv.URL+"/average_entry/acct")
		assertDecimal(t, "200", body["weighted_avg_price"])
		assert.Equal(t, false, body["no_position"])
	})

	t.Run("active positions", func(t *testing.T) {
		_, body := do(t, http.MethodGet, srv.URL+"/positions/active")
		items := body["positions"].([]any)
		require.Len(t, items, 1)
		pos := items[0].(map[string]any)
		assert.Equal(t, "BTC", pos["asset"])
		assertDecimal(t, "0.5", pos["quantity"])
		assertDecimal(t, "100", pos["effective_cost_basis"])
		assertDecimal(t, "400", pos["unrealized_gain"])
		assert.Equal(t, "coinbase", pos["broker"])
	})

	t.Run("closed positions", func(t *testing.T) {
		_, body := do(t, http.MethodGet, srv.URL+"/positions/closed?asset=btc")
		items := body["positions"].([]any)
		require.Len(t, items, 1)
		g := items[0].(map[string]any)
		assertDecimal(t, "1.5", g["quantity"])
		assertDecimal(t, "250", g["profit"])
		assert.Equal(t, "2025-03-01T10:00:00Z", g["matched_at"])
	})
}

func TestBadRequests(t *testing.T) {
	srv := newServer(t)
	for _, path := range []string{"/realized/broker/kraken", "/unrealized?window=someday", "/positions/active?broker=x"} {
		status, body := do(t, http.MethodGet, srv.URL+path)
		assert.Equal(t, http.StatusBadRequest, status, path)
		assert.NotEmpty(t, body["error"], path)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{costbasis.ErrSyncConflict, http.StatusConflict},
		{&costbasis.InsufficientLotsError{}, http.StatusUnprocessableEntity},
		{&costbasis.ValidationError{Field: "id"}, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusOf(tt.err), tt.err.Error())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newServer(t)
	sync(t, srv)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var b strings.Builder
	_, err = io.Copy(&b, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, b.String(), "costbasis_")
}
