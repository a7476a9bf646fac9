package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/backtester/renderer"
	"github.com/etnz/backtester/universe"
	"github.com/google/subcommands"
)

type indexesCmd struct {
	components string
}

func (*indexesCmd) Name() string     { return "indexes" }
func (*indexesCmd) Synopsis() string { return "list the known indexes and their benchmark ETF" }
func (*indexesCmd) Usage() string {
	return `bt indexes [-c <index>]

  Lists the indexes a backtest can run on. With -c, lists the components
  of one index, read from $BT_META_DIR.
`
}

func (c *indexesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.components, "c", "", "Index to list the components of.")
}

func (c *indexesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.components == "" {
		printMarkdown(renderer.IndexesMarkdown())
		return subcommands.ExitSuccess
	}
	env, err := setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	tickers, err := universe.Components(env.MetaDir, c.components)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	for _, t := range tickers {
		fmt.Println(t)
	}
	return subcommands.ExitSuccess
}
