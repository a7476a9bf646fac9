// Package config loads the settings of a backtest: the BT_* environment first, then an
// optional run file. Command line flags are applied last, by the caller.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/etnz/backtester"
	"github.com/etnz/backtester/date"
	"github.com/etnz/backtester/strategy"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Env is the configuration read from BT_* environment variables.
type Env struct {
	DataDir        string          `envconfig:"DATA_DIR" default:"data/train"`
	MetaDir        string          `envconfig:"META_DIR" default:"data/meta"`
	OutputDir      string          `envconfig:"OUTPUT_DIR" default:"output"`
	InitialCapital decimal.Decimal `envconfig:"INITIAL_CAPITAL" default:"1000000"`
	RiskFreeRate   float64         `envconfig:"RISK_FREE_RATE" default:"0"`
	Verbose        bool            `envconfig:"VERBOSE"`
	Database       string          `envconfig:"DATABASE" default:"backtester.db"`
	EODHDKey       string          `envconfig:"EODHD_API_KEY"`
	CacheDir       string          `envconfig:"CACHE_DIR"` // HTTP cache of 'bt fetch', the temp dir if empty
}

// LoadEnv reads the environment.
func LoadEnv() (Env, error) {
	var env Env
	if err := envconfig.Process("BT", &env); err != nil {
		return env, fmt.Errorf("error processing env config: %w", err)
	}
	return env, nil
}

// Run is a run file. Every field is optional.
type Run struct {
	Name           string            `yaml:"name"`
	Universe       string            `yaml:"universe"`
	Tickers        []string          `yaml:"tickers"` // replace the universe components
	Start          date.Date         `yaml:"start"`
	End            date.Date         `yaml:"end"`
	InitialCapital *decimal.Decimal  `yaml:"initial_capital"`
	RiskFreeRate   *float64          `yaml:"risk_free_rate"`
	Timeframe      string            `yaml:"timeframe"`
	Benchmark      *bool             `yaml:"benchmark"`
	Seed           *int64            `yaml:"seed"` // for strategies that do not set their own
	Output         string            `yaml:"output"`
	Strategies     []strategy.Params `yaml:"strategies"`
}

// DecodeRun decodes a run file. Unknown fields are errors.
func DecodeRun(r io.Reader) (Run, error) {
	var run Run
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&run); err != nil && err != io.EOF {
		return Run{}, fmt.Errorf("parse run file failed: %w", err)
	}
	return run, nil
}

// LoadRun reads the run file at path.
func LoadRun(path string) (Run, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Run{}, fmt.Errorf("read run file failed: %w", err)
	}
	return DecodeRun(bytes.NewReader(raw))
}

// DefaultUniverse is the universe of a run that names none.
const DefaultUniverse = "OwlHack 2024 Universe"

// Backtest is the resolved setting of a backtest.
type Backtest struct {
	Name           string
	Universe       string
	Tickers        []string
	Window         date.Range
	InitialCapital decimal.Decimal
	RiskFreeRate   float64
	Timeframe      backtester.Timeframe
	Benchmark      bool
	Strategies     []strategy.Params
	DataDir        string
	MetaDir        string
	OutputDir      string
}

// DefaultStrategies are run when a run file lists none.
func DefaultStrategies() []strategy.Params {
	return []strategy.Params{
		{Kind: "rsi"},
		{Kind: "random", Lower: 0.1, Upper: 0.9},
	}
}

// Resolve completes r with env and the defaults.
func (r Run) Resolve(env Env) (Backtest, error) {
	b := Backtest{
		Name:           r.Name,
		Universe:       r.Universe,
		Tickers:        r.Tickers,
		Window:         date.NewRange(r.Start, r.End),
		InitialCapital: env.InitialCapital,
		RiskFreeRate:   env.RiskFreeRate,
		Timeframe:      backtester.Daily,
		Benchmark:      true,
		Strategies:     r.Strategies,
		DataDir:        env.DataDir,
		MetaDir:        env.MetaDir,
		OutputDir:      env.OutputDir,
	}
	if b.Universe == "" {
		b.Universe = DefaultUniverse
	}
	if b.Name == "" {
		b.Name = b.Universe
	}
	if r.InitialCapital != nil {
		b.InitialCapital = *r.InitialCapital
	}
	if r.RiskFreeRate != nil {
		b.RiskFreeRate = *r.RiskFreeRate
	}
	if r.Timeframe != "" {
		tf, err := backtester.ParseTimeframe(r.Timeframe)
		if err != nil {
			return Backtest{}, err
		}
		b.Timeframe = tf
	}
	if r.Benchmark != nil {
		b.Benchmark = *r.Benchmark
	}
	if r.Output != "" {
		b.OutputDir = r.Output
	}
	if len(b.Strategies) == 0 {
		b.Strategies = DefaultStrategies()
	}
	if r.Seed != nil {
		b.Strategies = append([]strategy.Params(nil), b.Strategies...)
		for i := range b.Strategies {
			if b.Strategies[i].Seed == 0 {
				b.Strategies[i].Seed = *r.Seed
			}
		}
	}
	if !b.InitialCapital.IsPositive() {
		return Backtest{}, fmt.Errorf("initial capital must be positive, got %s", b.InitialCapital)
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return Backtest{}, fmt.Errorf("run ends on %s before it starts on %s", r.End, r.Start)
	}
	return b, nil
}
