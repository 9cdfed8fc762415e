// Package oracle provides PriceOracle decorators: a short lived cache shared
// across queries and a circuit breaker around a remote price source.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/costbasis"
	"github.com/patrickmn/go-cache"
	"github.com/sony/gobreaker"
)

// Static is a fixed price table, handy for offline runs.
type Static map[string]costbasis.Money

// ParseStatic reads "BTC=65000.12,ETH=3100" pairs.
func ParseStatic(s string) (Static, error) {
	st := Static{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		asset, price, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid price %q, want ASSET=PRICE", pair)
		}
		p, err := costbasis.ParseMoney(strings.TrimSpace(price), "USD")
		if err != nil {
			return nil, err
		}
		st[strings.ToUpper(strings.TrimSpace(asset))] = p
	}
	return st, nil
}

// Price implements costbasis.PriceOracle.
func (s Static) Price(_ context.Context, asset string) (costbasis.Money, error) {
	p, ok := s[strings.ToUpper(asset)]
	if !ok {
		return costbasis.Money{}, &costbasis.PriceUnavailableError{Asset: asset, Err: errors.New("no static price")}
	}
	return p, nil
}

// Cached remembers prices for a TTL. Failures are not cached.
// A non-positive TTL disables caching.
type Cached struct {
	next  costbasis.PriceOracle
	cache *cache.Cache
}

// NewCached wraps next with a cache of the given TTL.
func NewCached(next costbasis.PriceOracle, ttl time.Duration) *Cached {
	c := &Cached{next: next}
	if ttl > 0 {
		c.cache = cache.New(ttl, 2*ttl)
	}
	return c
}

// Price implements costbasis.PriceOracle.
func (c *Cached) Price(ctx context.Context, asset string) (costbasis.Money, error) {
	if c.cache == nil {
		return c.next.Price(ctx, asset)
	}
	if p, ok := c.cache.Get(asset); ok {
		return p.(costbasis.Money), nil
	}
	p, err := c.next.Price(ctx, asset)
	if err != nil {
		return costbasis.Money{}, err
	}
	c.cache.Set(asset, p, cache.DefaultExpiration)
	return p, nil
}

// BreakerSettings tunes the circuit breaker.
type BreakerSettings struct {
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	OpenTimeout         time.Duration `yaml:"open_timeout"`
}

// Breaker stops calling a failing price source for a while, so that a
// down upstream costs one timeout rather than one per asset.
type Breaker struct {
	next costbasis.PriceOracle
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next with a circuit breaker named name.
func NewBreaker(name string, next costbasis.PriceOracle, s BreakerSettings) *Breaker {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 3
	}
	if s.OpenTimeout == 0 {
		s.OpenTimeout = 60 * time.Second
	}
	st := gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		// an unknown asset says nothing about the health of the source
		IsSuccessful: func(err error) bool {
			var unavailable *costbasis.PriceUnavailableError
			return err == nil || errors.As(err, &unavailable)
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

// State reports the breaker state, for health checks.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

// Price implements costbasis.PriceOracle.
func (b *Breaker) Price(ctx context.Context, asset string) (costbasis.Money, error) {
	v, err := b.cb.Execute(func() (any, error) { return b.next.Price(ctx, asset) })
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return costbasis.Money{}, &costbasis.PriceUnavailableError{Asset: asset, Err: err}
		}
		return costbasis.Money{}, err
	}
	return v.(costbasis.Money), nil
}
