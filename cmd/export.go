package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/costbasis"
	"github.com/google/subcommands"
)

type exportCmd struct {
	account string
	output  string
}

func (*exportCmd) Name() string { return "export" }
func (*exportCmd) Synopsis() string { return "write the recorded transactions as JSONL" }
func (*exportCmd) Usage() string {
	return `cbs export [-account <id>] [-o <file.jsonl>]

  Writes every recorded transaction, in its canonical form, one JSON object
  per line, to the standard output or to a file.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Export only this account")
	f.StringVar(&c.output, "o", "", "Output file, standard output if empty")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx, true)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening the ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	txs, err := a.ledger.Transactions(ctx, c.account)
	if err != nil {
		return failure("Error reading transactions", err)
	}

	w := stdout
	if c.output != "" {
		f, err := os.Create(c.output)
		if err != nil {
			fmt.Fprintf(stderr, "Error creating %q: %v\n", c.output, err)
			return subcommands.ExitFailure
		}
		defer f.Close()
		w = f
	}
	if err := costbasis.EncodeTransactions(w, txs); err != nil {
		return failure("Error exporting", err)
	}
	return subcommands.ExitSuccess
}
