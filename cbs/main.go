// Command cbs tracks the cost basis of brokerage holdings.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/costbasis/cmd"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	name := path.Base(os.Args[0])
	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	for _, c := range cmd.Commands {
		commander.Register(c, "")
	}

	// exits when invoked by the shell for completion
	completion(commander).Complete(name)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// completion describes the command line to posener/complete.
func completion(commander *subcommands.Commander) *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: flags(flag.CommandLine),
	}
	for _, c := range cmd.Commands {
		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(fs)
		sub := &complete.Command{Flags: flags(fs)}
		if c.Name() == "import" {
			sub.Args = predict.Files("*.jsonl")
		}
		root.Sub[c.Name()] = sub
	}
	commander.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
		if _, ok := root.Sub[c.Name()]; !ok {
			root.Sub[c.Name()] = &complete.Command{}
		}
	})
	return root
}

func flags(fs *flag.FlagSet) map[string]complete.Predictor {
	m := make(map[string]complete.Predictor)
	fs.VisitAll(func(f *flag.Flag) {
		if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			m[f.Name] = predict.Nothing
			return
		}
		switch f.Name {
		case "config":
			m[f.Name] = predict.Files("*.yaml")
		case "broker":
			m[f.Name] = predict.Set{"coinbase", "schwab"}
		default:
			m[f.Name] = predict.Something
		}
	})
	return m
}
