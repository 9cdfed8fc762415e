package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/renderer"
	"github.com/google/subcommands"
)

type averageCmd struct {
	asset string
}

func (*averageCmd) Name() string { return "average" }
func (*averageCmd) Synopsis() string { return "weighted average entry price of an account" }
func (*averageCmd) Usage() string {
	return `cbs average [-asset <asset>] <account>

  Computes the weighted average purchase price of the lots still held in
  the account.
`
}

func (c *averageCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.asset, "asset", "", "Restrict to one asset")
}

func (c *averageCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	account := f.Arg(0)

	a, err := openApp(ctx, true)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening the ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	entry, err := a.ledger.AverageEntry(ctx, costbasis.Scope{AccountID: account, Asset: c.asset})
	if err != nil {
		return failure("Error calculating average entry", err)
	}
	printMarkdown(renderer.AverageEntryMarkdown(account, c.asset, entry))
	return subcommands.ExitSuccess
}
