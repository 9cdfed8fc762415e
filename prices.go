package costbasis

import (
	"context"
	"errors"

	"github.com/etnz/costbasis/metrics"
)

// PriceOracle gives the current USD price of one unit of an asset.
type PriceOracle interface {
	Price(ctx context.Context, asset string) (Money, error)
}

// PriceFunc adapts a function to the PriceOracle interface.
type PriceFunc func(ctx context.Context, asset string) (Money, error)

func (f PriceFunc) Price(ctx context.Context, asset string) (Money, error) { return f(ctx, asset) }

var errNoOracle = errors.New("no price oracle configured")

type noOracle struct{}

func (noOracle) Price(context.Context, string) (Money, error) { return Money{}, errNoOracle }

// PriceBook prices each distinct asset at most once, for the lifetime of one
// aggregation.
type PriceBook struct {
	oracle  PriceOracle
	metrics *metrics.Registry
	prices  map[string]Money
	errs    map[string]error
}

// NewPriceBook creates an empty PriceBook over oracle.
func NewPriceBook(oracle PriceOracle) *PriceBook {
	return &PriceBook{oracle: oracle, prices: make(map[string]Money), errs: make(map[string]error)}
}

// Price returns the cached price of asset, asking the oracle on first use.
// Failures are cached too and reported as *PriceUnavailableError.
func (b *PriceBook) Price(ctx context.Context, asset string) (Money, error) {
	if p, ok := b.prices[asset]; ok {
		return p, nil
	}
	if err, ok := b.errs[asset]; ok {
		return Money{}, err
	}
	p, err := b.oracle.Price(ctx, asset)
	b.metrics.CountPrice(err)
	if err != nil {
		var unavailable *PriceUnavailableError
		if !errors.As(err, &unavailable) {
			err = &PriceUnavailableError{Asset: asset, Err: err}
		}
		b.errs[asset] = err
		return Money{}, err
	}
	b.prices[asset] = p
	return p, nil
}

// Missing lists the assets that could not be priced, in no particular order.
func (b *PriceBook) Missing() []string {
	missing := make([]string, 0, len(b.errs))
	for asset := range b.errs {
		missing = append(missing, asset)
	}
	return missing
}
