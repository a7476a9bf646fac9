package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/backtester"
	"github.com/etnz/backtester/renderer"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type replayCmd struct {
	prices    string
	signal    string
	action    string
	shares    string
	name      string
	capital   string
	rfr       float64
	timeframe string
	out       string
	save      bool
	lots      bool
}

func (*replayCmd) Name() string { return "replay" }
func (*replayCmd) Synopsis() string {
	return "backtest the trade matrices produced by an external strategy"
}
func (*replayCmd) Usage() string {
	return `bt replay -p <prices.csv> -signal <tsignal.csv> -action <taction.csv> -shares <shares.csv> [-n <name>]

  Runs the engine on matrices written by another tool: one row per date, one
  column per instrument, all with the same shape as the price matrix. Writes
  the evolution and the trade history and prints a summary.
`
}

func (c *replayCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.prices, "p", "", "Price matrix (CSV).")
	f.StringVar(&c.signal, "signal", "", "Trade signal matrix (CSV): -1, 0 or 1.")
	f.StringVar(&c.action, "action", "", "Trade action matrix (CSV): BUY, SELL, SELL_TO_CLOSE_ALL...")
	f.StringVar(&c.shares, "shares", "", "Shares matrix (CSV). An empty cell on a closing action closes the open exposure.")
	f.StringVar(&c.name, "n", "Replay", "Name of the run.")
	f.StringVar(&c.capital, "capital", "", "Initial capital. Defaults to $BT_INITIAL_CAPITAL.")
	f.Float64Var(&c.rfr, "rfr", -1, "Annual risk free rate. Defaults to $BT_RISK_FREE_RATE.")
	f.StringVar(&c.timeframe, "timeframe", "daily", "Period of the matrices: daily, weekly or monthly.")
	f.StringVar(&c.out, "out", "", "Output directory. Defaults to $BT_OUTPUT_DIR.")
	f.BoolVar(&c.save, "save", false, "Save the run in the database.")
	f.BoolVar(&c.lots, "lots", false, "Print the trade history.")
}

func (c *replayCmd) priceTable() (*backtester.PriceTable, error) {
	f, err := os.Open(c.prices)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	prices, err := backtester.DecodePriceTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.prices, err)
	}
	return prices, nil
}

func (c *replayCmd) intents() (*backtester.Intents, error) {
	var files []*os.File
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	for _, path := range []string{c.signal, c.action, c.shares} {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return backtester.DecodeIntents(files[0], files[1], files[2])
}

func (c *replayCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.prices == "" || c.signal == "" || c.action == "" || c.shares == "" {
		fmt.Fprintln(os.Stderr, "-p, -signal, -action and -shares are required")
		return subcommands.ExitUsageError
	}
	env, err := setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	timeframe, err := backtester.ParseTimeframe(c.timeframe)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	s := &session{
		capital:   env.InitialCapital,
		rfr:       env.RiskFreeRate,
		timeframe: timeframe,
		outputDir: env.OutputDir,
	}
	if c.capital != "" {
		if s.capital, err = decimal.NewFromString(c.capital); err != nil {
			fmt.Fprintf(os.Stderr, "invalid capital %q: %v\n", c.capital, err)
			return subcommands.ExitUsageError
		}
	}
	if c.rfr >= 0 {
		s.rfr = c.rfr
	}
	if c.out != "" {
		s.outputDir = c.out
	}

	prices, err := c.priceTable()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	intents, err := c.intents()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	run, err := s.backtest(ctx, c.name, prices, intents)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.SummaryMarkdown(run))
	if c.lots {
		printMarkdown(renderer.LotsMarkdown(run.Name(), run.Ledger.All()))
	}

	if c.save {
		db, err := openStore(env)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		defer db.Close()
		ids, err := s.save(ctx, db)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		fmt.Printf("Saved run %s\n", ids[0])
	}
	return subcommands.ExitSuccess
}
