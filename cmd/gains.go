package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/costbasis/renderer"
	"github.com/google/subcommands"
)

// gainsCmd holds the flags for the 'gains' subcommand.
type gainsCmd struct {
	scopeFlags
	window string
}

func (*gainsCmd) Name() string { return "gains" }
func (*gainsCmd) Synopsis() string { return "realized gain analysis" }
func (*gainsCmd) Usage() string {
	return `cbs gains [-w <window>] [-account <id>] [-broker <broker>] [-asset <asset>]

  Lists the realized gain of every sell, matched first in first out, and the
  total for the window. A window is a year (2025), a quarter (2025-Q2), a
  month (2025-06), a day (2025-06-03) or an explicit range
  (2025-01-10..2025-02-20). Without a window every sell is listed.
`
}

func (c *gainsCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.StringVar(&c.window, "w", "", "Reporting window")
}

func (c *gainsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	gains, err := a.ledger.Gains(ctx, scope)
	if err != nil {
		return failure("Error calculating gains", err)
	}
	printMarkdown(renderer.GainsMarkdown(gains, scope.Window))
	return subcommands.ExitSuccess
}
