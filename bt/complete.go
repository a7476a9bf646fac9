package main

import (
	"flag"
	"io"

	"github.com/etnz/backtester/cmd"
	"github.com/etnz/backtester/strategy"
	"github.com/etnz/backtester/universe"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// flagPredictors are the completions of flags that take a known set of values.
var flagPredictors = map[string]complete.Predictor{
	"config":     predict.Files("*.yaml"),
	"db":         predict.Files("*.db"),
	"u":          predict.Set(universe.Indexes()),
	"c":          predict.Set(universe.Indexes()),
	"strategies": predict.Set(strategy.Kinds()),
	"timeframe":  predict.Set{"daily", "weekly", "monthly"},
	"p":          predict.Files("*.csv"),
	"signal":     predict.Files("*.csv"),
	"action":     predict.Files("*.csv"),
	"shares":     predict.Files("*.csv"),
	"chart":      predict.Files("*.html"),
	"out":        predict.Dirs("*"),
}

// completion describes the bt command line for shell completion: 'COMP_INSTALL=1 bt' installs it.
func completion() *complete.Command {
	root := &complete.Command{
		Sub:   map[string]*complete.Command{},
		Flags: map[string]complete.Predictor{},
	}
	flag.CommandLine.VisitAll(func(f *flag.Flag) { root.Flags[f.Name] = predictor(f) })

	for _, c := range cmd.Commands() {
		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		c.SetFlags(fs)
		sub := &complete.Command{Flags: map[string]complete.Predictor{}}
		fs.VisitAll(func(f *flag.Flag) { sub.Flags[f.Name] = predictor(f) })
		root.Sub[c.Name()] = sub
	}
	for _, name := range []string{"help", "flags", "commands"} {
		root.Sub[name] = &complete.Command{}
	}
	return root
}

func predictor(f *flag.Flag) complete.Predictor {
	if p, ok := flagPredictors[f.Name]; ok {
		return p
	}
	if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
		return predict.Nothing
	}
	return predict.Something
}
