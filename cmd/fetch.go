package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/backtester/date"
	"github.com/etnz/backtester/eodhd"
	"github.com/etnz/backtester/universe"
	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"
)

const eodhdAPIKey = "EODHD_API_KEY"

// fetchCmd implements the "fetch" command.
type fetchCmd struct {
	apiKey   string
	universe string
	tickers  string
	start    string
	end      string
	exchange string
	baseURL  string
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "download daily prices from eodhd.com into the data directory" }
func (*fetchCmd) Usage() string {
	return `bt fetch [-u <universe>] [-tickers A,B] [-s <start>] [-e <end>]

  Downloads the daily prices of the universe components and of its benchmark
  ETF, or of the given tickers, into $BT_DATA_DIR/<TICKER>.json.

  Requires an EODHD API key: -eodhd-api-key, $BT_EODHD_API_KEY or $EODHD_API_KEY.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.apiKey, "eodhd-api-key", "", "EODHD API key. This flag takes precedence over the environment. You can get one at https://eodhd.com/")
	f.StringVar(&c.universe, "u", "", "Universe to download, with its benchmark ETF.")
	f.StringVar(&c.tickers, "tickers", "", "Comma separated tickers to download.")
	f.StringVar(&c.start, "s", "", "First date to download.")
	f.StringVar(&c.end, "e", "", "Last date to download.")
	f.StringVar(&c.exchange, "exchange", "US", "EODHD exchange code of tickers without one.")
	f.StringVar(&c.baseURL, "eodhd-url", eodhd.BaseURL, "Address of the EODHD API.")
}

// window parses the -s and -e flags.
func (c *fetchCmd) window() (date.Range, error) {
	var r date.Range
	var err error
	if c.start != "" {
		if r.From, err = date.Parse(c.start); err != nil {
			return r, err
		}
	}
	if c.end != "" {
		if r.To, err = date.Parse(c.end); err != nil {
			return r, err
		}
	}
	return r, nil
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	env, err := setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	key := c.apiKey
	if key == "" {
		key = env.EODHDKey
	}
	if key == "" {
		key = os.Getenv(eodhdAPIKey)
	}
	if key == "" {
		fmt.Fprintf(os.Stderr, "Error: EODHD API key is not set. Use -eodhd-api-key flag or %s environment variable\n", eodhdAPIKey)
		return subcommands.ExitUsageError
	}
	window, err := c.window()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	var tickers []string
	if c.tickers != "" {
		tickers = strings.Split(c.tickers, ",")
	}
	if c.universe != "" {
		etf, err := universe.BenchmarkETF(c.universe)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
		components, err := universe.Components(env.MetaDir, c.universe)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		tickers = append(append(tickers, etf), components...)
	}
	if len(tickers) == 0 {
		fmt.Fprintln(os.Stderr, "nothing to fetch: use -u or -tickers")
		return subcommands.ExitUsageError
	}

	client := eodhd.NewClient(key, env.CacheDir)
	client.Exchange = c.exchange
	client.BaseURL = c.baseURL

	counts := make([]int, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, ticker := range tickers {
		ticker := strings.TrimSpace(ticker)
		g.Go(func() error {
			n, err := client.Download(gctx, env.DataDir, ticker, window)
			counts[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not fetch from eodhd.com: %v\n", err)
		return subcommands.ExitFailure
	}
	for i, ticker := range tickers {
		fmt.Printf("%s: %d prices\n", strings.TrimSpace(ticker), counts[i])
	}
	return subcommands.ExitSuccess
}
