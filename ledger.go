package costbasis

import (
	"github.com/etnz/costbasis/metrics"
	"github.com/rs/zerolog"
)

// Ledger is the cost basis engine: it ingests brokerage records into FIFO
// lots and answers gain queries over them.
//
// A Ledger holds no state of its own besides its collaborators; everything
// durable lives in its Store.
type Ledger struct {
	store   Store
	oracle  PriceOracle
	locker  AccountLocker
	log     zerolog.Logger
	metrics *metrics.Registry
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithOracle sets the price oracle used for unrealized gains.
func WithOracle(o PriceOracle) Option { return func(l *Ledger) { l.oracle = o } }

// WithLocker replaces the default in-process account locker.
func WithLocker(k AccountLocker) Option { return func(l *Ledger) { l.locker = k } }

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option { return func(l *Ledger) { l.log = log } }

// WithMetrics records sync and query metrics in r.
func WithMetrics(r *metrics.Registry) Option { return func(l *Ledger) { l.metrics = r } }

// New creates a Ledger over store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		locker: NewLocalLocker(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.oracle == nil {
		l.oracle = noOracle{}
	}
	return l
}

// Store returns the ledger's store.
func (l *Ledger) Store() Store { return l.store }
