package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/api"
	"github.com/google/subcommands"
)

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the ledger over HTTP" }
func (*serveCmd) Usage() string {
	return `cbs serve [-addr <host:port>]

  Serves the gain queries, the sync trigger (POST /transactions/update) and
  the Prometheus metrics until interrupted.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Listen address, overrides the configuration")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, true)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening the ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	var feed costbasis.Feed
	if f, err := a.feed(); err == nil {
		feed = f
	} else {
		a.log.Warn().Err(err).Msg("sync endpoint disabled")
	}

	addr := a.cfg.HTTP.Addr
	if c.addr != "" {
		addr = c.addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(a.ledger, feed, a.metrics, a.log).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return failure("Error serving", err)
		}
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			return failure("Error shutting down", err)
		}
		a.log.Info().Msg("stopped")
	}
	return subcommands.ExitSuccess
}
