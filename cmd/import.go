package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/renderer"
	"github.com/google/subcommands"
)

type importCmd struct {
	account string
	broker  string
}

func (*importCmd) Name() string { return "import" }
func (*importCmd) Synopsis() string { return "ingest raw brokerage records from a JSONL file" }
func (*importCmd) Usage() string {
	return `cbs import -account <id> [-broker <broker>] <file.jsonl>

  Reads one raw brokerage record per line, in the Coinbase v2 transaction
  format, and ingests them as a single batch for the account. Records already
  covered by the account cursor are ignored.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Account the records belong to (required)")
	f.StringVar(&c.broker, "broker", costbasis.Coinbase.String(), "Broker of the records")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || f.NArg() != 1 {
		fmt.Fprint(stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	broker, err := costbasis.ParseBroker(c.broker)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitUsageError
	}

	file, err := os.Open(f.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error opening %q: %v\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}
	defer file.Close()
	records, err := costbasis.DecodeRecords(file)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading %q: %v\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}

	a, err := openApp(ctx, true)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening the ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	report, err := a.ledger.Sync(ctx, c.account, broker, records)
	if err != nil {
		return failure("Error importing", err)
	}
	printMarkdown(renderer.SyncMarkdown([]costbasis.SyncReport{report}))
	return subcommands.ExitSuccess
}
