// Package cmd implements the bt command line application to run backtests.
package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/backtester/config"
	"github.com/etnz/backtester/store"
	"github.com/google/subcommands"
	log "github.com/sirupsen/logrus"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, cmd := range Commands() {
		c.Register(cmd.Command, cmd.Group)
	}
}

// Command is a subcommand and the group it is listed in.
type Command struct {
	subcommands.Command
	Group string
}

// Commands returns the bt subcommands.
func Commands() []Command {
	return []Command{
		{&runCmd{}, "backtest"},
		{&replayCmd{}, "backtest"},
		{&runsCmd{}, "store"},
		{&indexesCmd{}, "universe"},
		{&fetchCmd{}, "universe"},
	}
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	Verbose    = flag.Bool("v", false, "Verbose logging. Defaults to $BT_VERBOSE.")
	configFile = flag.String("config", "", "Run file (yaml) with the universe, window and strategies to run.")
	dbFile     = flag.String("db", "", "Sqlite database of saved runs. Defaults to $BT_DATABASE.")
)

// setup reads the environment and configures logging.
func setup() (config.Env, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return env, err
	}
	log.SetOutput(os.Stderr)
	if *Verbose || env.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	return env, nil
}

// loadBacktest resolves the run file, if any, against the environment.
func loadBacktest(env config.Env) (config.Backtest, error) {
	var run config.Run
	if *configFile != "" {
		var err error
		if run, err = config.LoadRun(*configFile); err != nil {
			return config.Backtest{}, err
		}
	}
	return run.Resolve(env)
}

// openStore opens the run database.
func openStore(env config.Env) (*store.Store, error) {
	dsn := *dbFile
	if dsn == "" {
		dsn = env.Database
	}
	return store.Open(dsn)
}

// printMarkdown renders markdown for the terminal, or prints it raw if it cannot.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	log.WithError(err).Debug("markdown rendering failed")
	fmt.Print(md)
}
