package coinbase

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/etnz/costbasis"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) (*ecdsa.PrivateKey, []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	return key, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
}

func TestSigner_Token(t *testing.T) {
	key, pemKey := newKey(t)
	s, err := NewSigner("organizations/o/apiKeys/k", pemKey)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Now().Add(-time.Second) }

	raw, err := s.Token("GET", "api.coinbase.com", "/v2/accounts")
	require.NoError(t, err)

	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return &key.PublicKey, nil },
		jwt.WithValidMethods([]string{"ES256"}))
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "organizations/o/apiKeys/k", claims["sub"])
	assert.Equal(t, "cdp", claims["iss"])
	assert.Equal(t, "GET api.coinbase.com/v2/accounts", claims["uri"])
	assert.Equal(t, "organizations/o/apiKeys/k", token.Header["kid"])
	assert.Len(t, token.Header["nonce"], 32)
}

func TestNewSigner_BadKey(t *testing.T) {
	_, err := NewSigner("k", []byte("not a pem"))
	assert.Error(t, err)
}

func tx(id, typ, created, amount, currency string) string {
	return fmt.Sprintf(`{"id":%q,"type":%q,"created_at":%q,"amount":{"amount":%q,"currency":%q},
		"buy":{"subtotal":{"amount":"10.00","currency":"USD"}}}`, id, typ, created, amount, currency)
}

// newServer serves two accounts and two pages of BTC transactions, newest first.
func newServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/accounts", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"pagination":{"next_uri":null},"data":[
			{"id":"btc-acct","name":"BTC Wallet","balance":{"amount":"1.5","currency":"BTC"}},
			{"id":"usd-acct","name":"Cash","balance":{"amount":"100","currency":"USD"}},
			{"id":"dust-acct","name":"Dust","balance":{"amount":"0.00001","currency":"SHIB"}}]}`)
	})
	mux.HandleFunc("/v2/accounts/btc-acct/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("starting_after") == "" {
			fmt.Fprintf(w, `{"pagination":{"next_uri":"/v2/accounts/btc-acct/transactions?limit=100&order=desc&starting_after=t3"},"data":[%s,%s,%s]}`,
				tx("t5", "buy", "2025-03-05T00:00:00Z", "0.5", "BTC"),
				tx("t4", "staking_reward", "2025-03-04T00:00:00Z", "0.01", "BTC"),
				tx("t3", "buy", "2025-03-03T00:00:00Z", "0.5", "BTC"))
			return
		}
		fmt.Fprintf(w, `{"pagination":{"next_uri":null},"data":[%s,%s]}`,
			tx("t2", "buy", "2025-02-02T00:00:00Z", "0.5", "BTC"),
			tx("t1", "buy", "2024-01-01T00:00:00Z", "0.5", "BTC"))
	})
	mux.HandleFunc("/v2/prices/BTC-USD/spot", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"amount":"65000.12","base":"BTC","currency":"USD"}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	_, pemKey := newKey(t)
	s, err := NewSigner("k", pemKey)
	require.NoError(t, err)
	opts = append([]Option{WithSigner(s), WithRateLimit(1000, 10), WithHTTPClient(srv.Client())}, opts...)
	c, err := New(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func TestClient_Accounts(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv, WithMinBalance(costbasis.Q("0.0001")))

	accounts, err := c.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "btc-acct", accounts[0].ID)
	assert.Equal(t, "BTC", accounts[0].Currency)
	assert.True(t, accounts[0].Balance.Equal(costbasis.Q("1.5")))
}

func TestClient_Records(t *testing.T) {
	srv := newServer(t)
	testCases := []struct {
		name   string
		since  time.Time
		cutoff time.Time
		want   []string
	}{
		{"whole history", time.Time{}, time.Time{}, []string{"t5", "t3", "t2", "t1"}},
		{"stops at the cursor", time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), time.Time{}, []string{"t5"}},
		{"cutoff", time.Time{}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), []string{"t5", "t3", "t2"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newClient(t, srv, WithCutoff(tc.cutoff))
			records, err := c.Records(context.Background(), "btc-acct", tc.since)
			require.NoError(t, err)
			var ids []string
			for _, r := range records {
				ids = append(ids, r.ID())
				assert.Equal(t, "btc-acct", r["account_id"])
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func TestClient_RecordsStopsAtCutoff(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/accounts/btc-acct/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("starting_after") != "" {
			t.Error("page older than the cutoff was requested")
			http.Error(w, "gone", http.StatusGone)
			return
		}
		fmt.Fprintf(w, `{"pagination":{"next_uri":"/v2/accounts/btc-acct/transactions?limit=100&order=desc&starting_after=t2"},"data":[%s,%s]}`,
			tx("t3", "buy", "2025-03-03T00:00:00Z", "0.5", "BTC"),
			tx("t2", "buy", "2025-02-02T00:00:00Z", "0.5", "BTC"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := newClient(t, srv, WithCutoff(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
	records, err := c.Records(context.Background(), "btc-acct", time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "t3", records[0].ID())
}

func TestClient_Price(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv)

	p, err := c.Price(context.Background(), "btc")
	require.NoError(t, err)
	assert.True(t, p.Equal(costbasis.USD("65000.12")))

	_, err = c.Price(context.Background(), "NOPE")
	var unavailable *costbasis.PriceUnavailableError
	assert.True(t, errors.As(err, &unavailable), "error = %v", err)
}

func TestClient_Unauthorized(t *testing.T) {
	srv := newServer(t)
	c, err := New(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = c.Accounts(context.Background())
	assert.ErrorContains(t, err, "401")
}

// TestClient_SyncAll runs a full ledger sync against the fake API.
func TestClient_SyncAll(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv, WithMinBalance(costbasis.Q("0.0001")))
	l := costbasis.New(costbasis.NewMemStore(), costbasis.WithOracle(c))

	reports, err := l.SyncAll(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 4, reports[0].Ingested)

	u, err := l.Unrealized(context.Background(), costbasis.Scope{})
	require.NoError(t, err)
	assert.False(t, u.Partial)
	assert.True(t, u.Cost.Equal(costbasis.USD(40)), "cost = %s", u.Cost)
	assert.True(t, u.Value.Equal(costbasis.USD("130000.24")), "value = %s", u.Value)
}
