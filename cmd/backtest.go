package cmd

import (
	"context"
	"fmt"

	"github.com/etnz/backtester"
	"github.com/etnz/backtester/renderer"
	"github.com/etnz/backtester/store"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// session runs backtests with the same capital, rate and timeframe, and keeps what they produced.
type session struct {
	capital   decimal.Decimal
	rfr       float64
	timeframe backtester.Timeframe
	outputDir string // no outputs when empty
	universe  string

	runs []renderer.Run
}

// backtest runs the engine on intents, replays them into a ledger and writes the outputs.
func (s *session) backtest(ctx context.Context, name string, prices *backtester.PriceTable, intents *backtester.Intents) (renderer.Run, error) {
	e, err := backtester.NewEngine(backtester.Config{
		Name:           name,
		InitialCapital: s.capital,
		RiskFreeRate:   s.rfr,
		Timeframe:      s.timeframe,
		Metrics:        s.timeframe == backtester.Daily,
	})
	if err != nil {
		return renderer.Run{}, err
	}
	res, err := e.Run(prices, intents)
	if err != nil {
		return renderer.Run{}, err
	}
	ledger, err := e.ReplayParallel(ctx, prices, res.Intents)
	if err != nil {
		return renderer.Run{}, err
	}
	if s.outputDir != "" {
		if err := backtester.WriteOutputs(s.outputDir, name, prices, res, ledger); err != nil {
			return renderer.Run{}, err
		}
		log.WithFields(log.Fields{"name": name, "dir": s.outputDir}).Info("outputs written")
	}
	run := renderer.Run{
		Result:         res,
		InitialCapital: backtester.M(s.capital, e.Config().Currency),
		Ledger:         ledger,
	}
	s.runs = append(s.runs, run)
	return run, nil
}

// save saves every run of the session and returns their ids.
func (s *session) save(ctx context.Context, db *store.Store) ([]string, error) {
	var ids []string
	for _, r := range s.runs {
		id, err := db.SaveRun(ctx, store.RunInput{
			Universe:       s.universe,
			InitialCapital: s.capital,
			Result:         r.Result,
			Ledger:         r.Ledger,
		})
		if err != nil {
			return ids, fmt.Errorf("saving %q: %w", r.Name(), err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
