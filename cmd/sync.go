package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/renderer"
	"github.com/google/subcommands"
)

type syncCmd struct {
	account string
}

func (*syncCmd) Name() string { return "sync" }
func (*syncCmd) Synopsis() string { return "ingest new Coinbase transactions into the ledger" }
func (*syncCmd) Usage() string {
	return `cbs sync [-account <id>]

  Fetches the transactions created since the last sync of every Coinbase
  account (or only the given one) and records them, opening lots on buys and
  matching sells against the oldest lots first.
`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Sync only this account")
}

func (c *syncCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx, true)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening the ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	feed, err := a.feed()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitUsageError
	}

	var reports []costbasis.SyncReport
	if c.account == "" {
		reports, err = a.ledger.SyncAll(ctx, feed)
	} else {
		var report costbasis.SyncReport
		report, err = syncAccount(ctx, a.ledger, feed, c.account)
		if err == nil {
			reports = append(reports, report)
		}
	}
	if len(reports) > 0 {
		printMarkdown(renderer.SyncMarkdown(reports))
	}
	if err != nil {
		return failure("Error syncing", err)
	}
	return subcommands.ExitSuccess
}

func syncAccount(ctx context.Context, l *costbasis.Ledger, feed costbasis.Feed, accountID string) (costbasis.SyncReport, error) {
	cursor, _, err := l.Cursor(ctx, accountID)
	if err != nil {
		return costbasis.SyncReport{}, err
	}
	records, err := feed.Records(ctx, accountID, cursor.LastSyncedTime)
	if err != nil {
		return costbasis.SyncReport{}, fmt.Errorf("cannot fetch records of %s: %w", accountID, err)
	}
	return l.Sync(ctx, accountID, feed.Broker(), records)
}
