// Package coinbase is a client of the Coinbase v2 REST API. It lists
// accounts, pages through their raw transactions and looks up spot prices,
// feeding a costbasis.Ledger.
package coinbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/costbasis"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the production API.
const DefaultBaseURL = "https://api.coinbase.com"

// pageSize is the largest page the API serves.
const pageSize = 100

// Client talks to the Coinbase v2 API.
type Client struct {
	base       *url.URL
	http       *http.Client
	signer     *Signer
	limiter    *rate.Limiter
	cutoff     time.Time
	minBalance costbasis.Quantity
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithSigner authenticates every request. Without it only public endpoints
// (spot prices) work.
func WithSigner(s *Signer) Option { return func(c *Client) { c.signer = s } }

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithCutoff ignores every record created before t.
func WithCutoff(t time.Time) Option { return func(c *Client) { c.cutoff = t } }

// WithMinBalance lists only accounts holding more than q.
func WithMinBalance(q costbasis.Quantity) Option { return func(c *Client) { c.minBalance = q } }

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option { return func(c *Client) { c.log = log } }

// New creates a Client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Coinbase base URL: %w", err)
	}
	c := &Client{
		base:       base,
		http:       &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(3), 3),
		minBalance: costbasis.Q(-1),
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Broker implements costbasis.Feed.
func (c *Client) Broker() costbasis.Broker { return costbasis.Coinbase }

// errNotFound is returned by get on a 404.
var errNotFound = errors.New("not found")

// get performs an authenticated GET of a path (with its query) and decodes
// the JSON response into data. Numbers are kept as json.Number.
func (c *Client) get(ctx context.Context, pathAndQuery string, data any) error {
	ref, err := url.Parse(pathAndQuery)
	if err != nil {
		return err
	}
	addr := c.base.ResolveReference(ref)
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.signer != nil {
		token, err := c.signer.Token(http.MethodGet, addr.Host, addr.Path)
		if err != nil {
			return fmt.Errorf("cannot sign request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.log.Debug().Str("method", req.Method).Str("path", addr.Path).Int("status", resp.StatusCode).Msg("coinbase")

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("cannot http GET %v: %w", addr.Path, errNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v: %v", addr.Path, resp.Status)
	}
	dec := json.NewDecoder(&buf)
	dec.UseNumber()
	return dec.Decode(data)
}

type pagination struct {
	NextURI string `json:"next_uri"`
}

// Accounts implements costbasis.Feed. Fiat wallets are skipped: they hold no
// asset lots.
func (c *Client) Accounts(ctx context.Context) ([]costbasis.Account, error) {
	var accounts []costbasis.Account
	next := fmt.Sprintf("/v2/accounts?limit=%d", pageSize)
	for next != "" {
		var page struct {
			Pagination pagination `json:"pagination"`
			Data       []struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Balance struct {
					Amount   string `json:"amount"`
					Currency string `json:"currency"`
				} `json:"balance"`
			} `json:"data"`
		}
		if err := c.get(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("cannot list accounts: %w", err)
		}
		for _, a := range page.Data {
			if costbasis.IsFiat(a.Balance.Currency) {
				continue
			}
			balance, err := costbasis.ParseQuantity(a.Balance.Amount)
			if err != nil {
				return nil, fmt.Errorf("account %s: %w", a.ID, err)
			}
			if !balance.GreaterThan(c.minBalance) {
				continue
			}
			accounts = append(accounts, costbasis.Account{
				ID:       a.ID,
				Name:     a.Name,
				Currency: strings.ToUpper(a.Balance.Currency),
				Balance:  balance,
			})
		}
		next = page.Pagination.NextURI
	}
	return accounts, nil
}

// Records implements costbasis.Feed. Pages are requested newest first and
// paging stops at the first record not newer than since or older than the
// cutoff. Staking entries are filtered out and every record is tagged with its
// account id.
func (c *Client) Records(ctx context.Context, accountID string, since time.Time) ([]costbasis.Record, error) {
	var records []costbasis.Record
	next := fmt.Sprintf("/v2/accounts/%s/transactions?limit=%d&order=desc", url.PathEscape(accountID), pageSize)
	for next != "" {
		var page struct {
			Pagination pagination         `json:"pagination"`
			Data       []costbasis.Record `json:"data"`
		}
		if err := c.get(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("cannot list transactions of %s: %w", accountID, err)
		}
		next = page.Pagination.NextURI
		for _, rec := range page.Data {
			created, err := rec.CreatedAt()
			if err == nil && ((!since.IsZero() && !created.After(since)) || created.Before(c.cutoff)) {
				// pages are newest first, the rest is older still
				next = ""
				break
			}
			if typ, _ := rec.String("$.type"); strings.Contains(typ, "staking") {
				continue
			}
			// records without a valid time are kept for Sync to reject
			rec["account_id"] = accountID
			records = append(records, rec)
		}
	}
	c.log.Debug().Str("account_id", accountID).Int("records", len(records)).Msg("coinbase transactions fetched")
	return records, nil
}

// Price implements costbasis.PriceOracle with the public spot price.
func (c *Client) Price(ctx context.Context, asset string) (costbasis.Money, error) {
	pair := strings.ToUpper(strings.TrimSpace(asset))
	if !strings.HasSuffix(pair, "-USD") {
		pair += "-USD"
	}
	var resp map[string]any
	err := c.get(ctx, "/v2/prices/"+url.PathEscape(pair)+"/spot", &resp)
	if errors.Is(err, errNotFound) {
		return costbasis.Money{}, &costbasis.PriceUnavailableError{Asset: asset, Err: err}
	}
	if err != nil {
		return costbasis.Money{}, err
	}
	jval, err := jsonpath.Get("$.data.amount", resp)
	if err != nil {
		return costbasis.Money{}, &costbasis.PriceUnavailableError{Asset: asset, Err: err}
	}
	amount, ok := jval.(string)
	if !ok {
		return costbasis.Money{}, &costbasis.PriceUnavailableError{Asset: asset, Err: fmt.Errorf("spot amount is a %T", jval)}
	}
	return costbasis.ParseMoney(amount, "USD")
}

var (
	_ costbasis.Feed        = (*Client)(nil)
	_ costbasis.PriceOracle = (*Client)(nil)
)
