// Package cmd implements the cbs command line application.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/coinbase"
	"github.com/etnz/costbasis/config"
	"github.com/etnz/costbasis/logging"
	"github.com/etnz/costbasis/metrics"
	"github.com/etnz/costbasis/oracle"
	"github.com/etnz/costbasis/redislock"
	"github.com/etnz/costbasis/sqlstore"
	"github.com/go-redis/redis/v8"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Commands lists every cbs subcommand.
var Commands = []subcommands.Command{
	&syncCmd{},
	&importCmd{},
	&gainsCmd{},
	&positionsCmd{},
	&averageCmd{},
	&serveCmd{},
	&migrateCmd{},
	&exportCmd{},
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile = flag.String("config", "cbs.yaml", "Path to the YAML configuration file. Missing is fine, environment variables apply on top.")
	rawOutput  = flag.Bool("raw", false, "Print reports as plain markdown instead of rendering them for the terminal")

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// app is everything a command may need, wired from the configuration.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	store   *sqlstore.Store
	metrics *metrics.Registry
	ledger  *costbasis.Ledger
	client  *coinbase.Client
	redis   *redis.Client
}

// openApp loads the configuration and opens the database. The schema is
// brought up to date unless migrations are left to the migrate command.
func openApp(ctx context.Context, migrate bool) (*app, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	a.store, err = sqlstore.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := a.store.Migrate(); err != nil {
			a.store.Close()
			return nil, err
		}
	}

	if a.client, err = a.coinbase(); err != nil {
		a.store.Close()
		return nil, err
	}

	opts := []costbasis.Option{costbasis.WithLogger(log), costbasis.WithMetrics(a.metrics)}
	prices, err := a.oracle()
	if err != nil {
		a.store.Close()
		return nil, err
	}
	opts = append(opts, costbasis.WithOracle(prices))

	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		opts = append(opts, costbasis.WithLocker(redislock.New(a.redis, cfg.Redis.KeyPrefix, cfg.Redis.LockTTL)))
	}

	a.ledger = costbasis.New(a.store, opts...)
	return a, nil
}

func (a *app) coinbase() (*coinbase.Client, error) {
	cb := a.cfg.Coinbase
	cutoff, err := cb.CutoffTime()
	if err != nil {
		return nil, err
	}
	opts := []coinbase.Option{
		coinbase.WithLogger(a.log),
		coinbase.WithCutoff(cutoff),
		coinbase.WithRateLimit(cb.RequestsPerSecond, max(1, int(cb.RequestsPerSecond))),
	}
	if cb.MinBalance != "" {
		q, err := costbasis.ParseQuantity(cb.MinBalance)
		if err != nil {
			return nil, fmt.Errorf("invalid coinbase min_balance: %w", err)
		}
		opts = append(opts, coinbase.WithMinBalance(q))
	}
	// without a key only public endpoints, like spot prices, are usable
	if cb.KeyName != "" {
		signer, err := coinbase.LoadSigner(cb.KeyName, cb.KeyFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, coinbase.WithSigner(signer))
	}
	return coinbase.New(cb.BaseURL, opts...)
}

func (a *app) oracle() (costbasis.PriceOracle, error) {
	if a.cfg.Prices.Static != "" {
		return oracle.ParseStatic(a.cfg.Prices.Static)
	}
	guarded := oracle.NewBreaker("coinbase", a.client, a.cfg.Prices.Breaker)
	return oracle.NewCached(guarded, a.cfg.Prices.CacheTTL), nil
}

// feed returns the brokerage feed, which requires an API key.
func (a *app) feed() (costbasis.Feed, error) {
	if a.cfg.Coinbase.KeyName == "" {
		return nil, errors.New("no Coinbase API key configured: set COINBASE_KEY_NAME and COINBASE_KEY_FILE")
	}
	return a.client, nil
}

// Close releases the database and Redis connections.
func (a *app) Close() error {
	var errs error
	if a.redis != nil {
		errs = errors.Join(errs, a.redis.Close())
	}
	return errors.Join(errs, a.store.Close())
}

// printMarkdown prints md rendered for the terminal, or as is with -raw.
func printMarkdown(md string) {
	if *rawOutput {
		fmt.Fprint(stdout, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Fprint(stdout, out)
			return
		}
	}
	fmt.Fprint(stdout, md)
}

// failure reports err and returns the matching exit status.
func failure(what string, err error) subcommands.ExitStatus {
	var insufficient *costbasis.InsufficientLotsError
	switch {
	case errors.Is(err, costbasis.ErrSyncConflict):
		fmt.Fprintf(stderr, "%s: %v, retry later\n", what, err)
	case errors.As(err, &insufficient):
		fmt.Fprintf(stderr, "%s: %v\nnothing was recorded from this batch\n", what, err)
	default:
		fmt.Fprintf(stderr, "%s: %v\n", what, err)
	}
	return subcommands.ExitFailure
}
