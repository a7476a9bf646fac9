package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/backtester"
	"github.com/etnz/backtester/config"
	"github.com/etnz/backtester/date"
	"github.com/etnz/backtester/renderer"
	"github.com/etnz/backtester/strategy"
	"github.com/etnz/backtester/universe"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type runCmd struct {
	universe    string
	tickers     string
	start       string
	end         string
	capital     string
	rfr         float64
	strategies  string
	seed        int64
	noBenchmark bool
	out         string
	save        bool
	chart       string
	lots        bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "backtest strategies on a universe against its benchmark ETF" }
func (*runCmd) Usage() string {
	return `bt [-config <run.yaml>] run [-u <universe>] [-s <start>] [-e <end>] [-strategies rsi,random] [-save] [-chart <file.html>]

  Loads the daily prices of the universe components, runs the benchmark
  (buy and hold the index ETF) and every strategy, writes their CSV outputs
  and prints a summary.

  Settings come from the BT_* environment, then from the run file, then
  from the flags below.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.universe, "u", "", "Universe to run on. See 'bt indexes'.")
	f.StringVar(&c.tickers, "tickers", "", "Comma separated tickers to run on, instead of the universe components.")
	f.StringVar(&c.start, "s", "", "Start date of the backtest.")
	f.StringVar(&c.end, "e", "", "End date of the backtest.")
	f.StringVar(&c.capital, "capital", "", "Initial capital.")
	f.Float64Var(&c.rfr, "rfr", -1, "Annual risk free rate, 0.05 for 5%.")
	f.StringVar(&c.strategies, "strategies", "", fmt.Sprintf("Comma separated strategies to run with default parameters, among %v.", strategy.Kinds()))
	f.Int64Var(&c.seed, "seed", 0, "Random seed for strategies that use one.")
	f.BoolVar(&c.noBenchmark, "no-benchmark", false, "Do not run the benchmark.")
	f.StringVar(&c.out, "out", "", "Output directory for the CSV files.")
	f.BoolVar(&c.save, "save", false, "Save the runs in the database.")
	f.StringVar(&c.chart, "chart", "", "Write an HTML chart of the portfolio values to this file.")
	f.BoolVar(&c.lots, "lots", false, "Print the trade history of each strategy.")
}

// apply overrides b with the flags that were set.
func (c *runCmd) apply(b *config.Backtest) error {
	if c.universe != "" {
		b.Universe = c.universe
		b.Name = c.universe
	}
	if c.tickers != "" {
		b.Tickers = strings.Split(c.tickers, ",")
	}
	if c.start != "" {
		on, err := date.Parse(c.start)
		if err != nil {
			return err
		}
		b.Window.From = on
	}
	if c.end != "" {
		on, err := date.Parse(c.end)
		if err != nil {
			return err
		}
		b.Window.To = on
	}
	if c.capital != "" {
		capital, err := decimal.NewFromString(c.capital)
		if err != nil {
			return fmt.Errorf("invalid capital %q: %w", c.capital, err)
		}
		b.InitialCapital = capital
	}
	if c.rfr >= 0 {
		b.RiskFreeRate = c.rfr
	}
	if c.strategies != "" {
		b.Strategies = nil
		for _, kind := range strings.Split(c.strategies, ",") {
			b.Strategies = append(b.Strategies, strategy.Params{Kind: strings.TrimSpace(kind)})
		}
	}
	if c.seed != 0 {
		for i := range b.Strategies {
			b.Strategies[i].Seed = c.seed
		}
	}
	if c.noBenchmark {
		b.Benchmark = false
	}
	if c.out != "" {
		b.OutputDir = c.out
	}
	return nil
}

func (c *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	env, err := setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	b, err := loadBacktest(env)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	if err := c.apply(&b); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	if err := dailyOnly(b.Timeframe); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	s := &session{
		capital:   b.InitialCapital,
		rfr:       b.RiskFreeRate,
		timeframe: b.Timeframe,
		outputDir: b.OutputDir,
		universe:  b.Universe,
	}

	if b.Benchmark {
		bench, err := c.benchmark(ctx, s, b)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running the benchmark: %v\n", err)
			return subcommands.ExitFailure
		}
		printMarkdown(renderer.BenchmarkMarkdown(bench))
	}

	tickers := b.Tickers
	if len(tickers) == 0 {
		if tickers, err = universe.Components(b.MetaDir, b.Universe); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
	}
	prices, err := backtester.LoadPriceDir(b.DataDir, tickers, b.Window)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading prices: %v\n", err)
		return subcommands.ExitFailure
	}
	log.WithFields(log.Fields{"universe": b.Universe, "tickers": len(tickers), "periods": len(prices.Dates)}).Info("prices loaded")

	for _, p := range b.Strategies {
		strat, err := strategy.New(p, b.InitialCapital)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
		intents, err := strat.Run(prices)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running %s: %v\n", strat.Name(), err)
			return subcommands.ExitFailure
		}
		run, err := s.backtest(ctx, strat.Name(), prices, intents)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error backtesting %s: %v\n", strat.Name(), err)
			return subcommands.ExitFailure
		}
		printMarkdown(renderer.SummaryMarkdown(run))
		if c.lots {
			printMarkdown(renderer.LotsMarkdown(run.Name(), run.Ledger.All()))
		}
	}
	if len(s.runs) > 1 {
		printMarkdown(renderer.ComparisonMarkdown(s.runs...))
	}

	if c.chart != "" && len(s.runs) > 0 {
		if err := writeChart(c.chart, s.runs); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing chart %q: %v\n", c.chart, err)
			return subcommands.ExitFailure
		}
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
		fmt.Printf("Saved %d runs: %s\n", len(ids), strings.Join(ids, ", "))
	}
	return subcommands.ExitSuccess
}

// dailyOnly rejects any timeframe but daily: price directories hold daily rows, and nothing
// resamples them.
func dailyOnly(tf backtester.Timeframe) error {
	if tf != backtester.Daily {
		return fmt.Errorf("%w: price files are daily, cannot run a %v backtest on them (use 'bt replay' with %v matrices)", backtester.ErrUnsupportedTimeframe, tf, tf)
	}
	return nil
}

// benchmark buys and holds the ETF of the universe.
func (c *runCmd) benchmark(ctx context.Context, s *session, b config.Backtest) (renderer.Benchmark, error) {
	etf, err := universe.BenchmarkETF(b.Universe)
	if err != nil {
		return renderer.Benchmark{}, err
	}
	prices, err := backtester.LoadPriceDir(b.DataDir, []string{etf}, b.Window)
	if err != nil {
		return renderer.Benchmark{}, err
	}
	strat := &strategy.LongIndex{Ticker: etf, Capital: b.InitialCapital}
	intents, err := strat.Run(prices)
	if err != nil {
		return renderer.Benchmark{}, err
	}
	run, err := s.backtest(ctx, strat.Name(), prices, intents)
	if err != nil {
		return renderer.Benchmark{}, err
	}
	return renderer.Benchmark{Run: run, Strategy: "LongIndex", ETF: etf, OutputDir: b.OutputDir}, nil
}

func writeChart(path string, runs []renderer.Run) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := renderer.EquityChart(f, runs...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
