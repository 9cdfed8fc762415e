package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/costbasis/renderer"
	"github.com/google/subcommands"
)

type positionsCmd struct {
	scopeFlags
	closed bool
	window string
}

func (*positionsCmd) Name() string { return "positions" }
func (*positionsCmd) Synopsis() string { return "display open lots and their unrealized gain" }
func (*positionsCmd) Usage() string {
	return `cbs positions [-closed [-w <window>]] [-account <id>] [-broker <broker>] [-asset <asset>]

  Displays the open lots valued at the current spot price, and the total
  unrealized gain. Assets without a price are listed but left out of the
  totals. With -closed, lists the realized sells instead.
`
}

func (c *positionsCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.BoolVar(&c.closed, "closed", false, "List closed positions instead")
	f.StringVar(&c.window, "w", "", "Window of the closed positions")
}

func (c *positionsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	scope, err := c.scope(c.window)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx, true)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening the ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if c.closed {
		gains, err := a.ledger.ClosedPositions(ctx, scope)
		if err != nil {
			return failure("Error listing closed positions", err)
		}
		printMarkdown(renderer.ClosedPositionsMarkdown(gains))
		return subcommands.ExitSuccess
	}

	positions, err := a.ledger.ActivePositions(ctx, scope)
	if err != nil {
		return failure("Error listing positions", err)
	}
	unrealized, err := a.ledger.Unrealized(ctx, scope)
	if err != nil {
		return failure("Error calculating unrealized gain", err)
	}
	printMarkdown(renderer.PositionsMarkdown(positions, unrealized))
	return subcommands.ExitSuccess
}
