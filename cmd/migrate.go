package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type migrateCmd struct{}

func (*migrateCmd) Name() string { return "migrate" }
func (*migrateCmd) Synopsis() string { return "bring the database schema up to date" }
func (*migrateCmd) Usage() string {
	return `cbs migrate

  Applies the pending schema migrations of the configured database and
  prints the resulting schema version.
`
}

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx, false)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening the ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := a.store.Migrate(); err != nil {
		return failure("Error migrating", err)
	}
	version, dirty, err := a.store.Version()
	if err != nil {
		return failure("Error reading schema version", err)
	}
	fmt.Fprintf(stdout, "schema version %d (%s)\n", version, map[bool]string{true: "dirty", false: "clean"}[dirty])
	return subcommands.ExitSuccess
}
