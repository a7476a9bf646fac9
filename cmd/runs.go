package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/backtester/renderer"
	"github.com/google/subcommands"
)

type runsCmd struct {
	id string
}

func (*runsCmd) Name() string     { return "runs" }
func (*runsCmd) Synopsis() string { return "list the saved runs, or show the trade history of one" }
func (*runsCmd) Usage() string {
	return `bt [-db <file>] runs [-id <run id>]

  Lists the runs saved with 'bt run -save'. With -id, prints the trade
  history of that run.
`
}

func (c *runsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Id of the run to show.")
}

func (c *runsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	env, err := setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	db, err := openStore(env)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	if c.id == "" {
		runs, err := db.Runs(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		printMarkdown(renderer.RunsMarkdown(runs))
		return subcommands.ExitSuccess
	}

	run, err := db.Run(ctx, c.id)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	lots, err := db.Lots(ctx, c.id)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.LotsMarkdown(run.Name, lots))
	return subcommands.ExitSuccess
}
