package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etnz/backtester"
	"github.com/etnz/backtester/date"
	"github.com/etnz/backtester/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	t.Setenv("BT_DATA_DIR", "/prices")
	t.Setenv("BT_INITIAL_CAPITAL", "250000.5")
	t.Setenv("BT_RISK_FREE_RATE", "0.05")
	t.Setenv("BT_VERBOSE", "true")
	t.Setenv("BT_EODHD_API_KEY", "key")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "/prices", env.DataDir)
	assert.Equal(t, "data/meta", env.MetaDir)
	assert.Equal(t, "output", env.OutputDir)
	assert.Equal(t, "backtester.db", env.Database)
	assert.True(t, env.InitialCapital.Equal(decimal.RequireFromString("250000.5")))
	assert.InDelta(t, 0.05, env.RiskFreeRate, 1e-12)
	assert.True(t, env.Verbose)
	assert.Equal(t, "key", env.EODHDKey)
	assert.Empty(t, env.CacheDir)
}

func TestLoadEnv_Invalid(t *testing.T) {
	t.Setenv("BT_RISK_FREE_RATE", "five percent")
	_, err := LoadEnv()
	assert.Error(t, err)
}

const runFile = `
name: RSI on the small universe
universe: Small Universe
start: 2013-01-01
end: 2023-01-01
initial_capital: 500000
risk_free_rate: 0.02
benchmark: false
seed: 1001
strategies:
  - kind: rsi
    period: 20
    target_gain: 1.5
    max_loss: -0.5
  - kind: random
    lower: 0.1
    upper: 0.9
    seed: 7
`

func TestDecodeRun(t *testing.T) {
	run, err := DecodeRun(strings.NewReader(runFile))
	require.NoError(t, err)
	assert.Equal(t, "Small Universe", run.Universe)
	assert.Equal(t, date.New(2013, 1, 1), run.Start)
	assert.Equal(t, date.New(2023, 1, 1), run.End)
	require.NotNil(t, run.InitialCapital)
	assert.Equal(t, "500000", run.InitialCapital.String())
	require.Len(t, run.Strategies, 2)
	assert.Equal(t, strategy.Params{Kind: "rsi", Period: 20, TargetGain: 1.5, MaxLoss: -0.5}, run.Strategies[0])
}

func TestDecodeRun_Errors(t *testing.T) {
	_, err := DecodeRun(strings.NewReader("universe: DJIA\nticker: SPY\n"))
	assert.Error(t, err, "unknown fields are rejected")

	_, err = DecodeRun(strings.NewReader("start: yesterday\n"))
	assert.Error(t, err)

	run, err := DecodeRun(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Run{}, run)
}

func TestLoadRun(t *testing.T) {
	p := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(p, []byte(runFile), 0o644))
	run, err := LoadRun(p)
	require.NoError(t, err)
	assert.Equal(t, "RSI on the small universe", run.Name)

	_, err = LoadRun(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func testEnv() Env {
	return Env{DataDir: "data", MetaDir: "meta", OutputDir: "out", InitialCapital: decimal.NewFromInt(1_000_000), RiskFreeRate: 0.01}
}

func TestResolve(t *testing.T) {
	run, err := DecodeRun(strings.NewReader(runFile))
	require.NoError(t, err)
	b, err := run.Resolve(testEnv())
	require.NoError(t, err)

	assert.Equal(t, "RSI on the small universe", b.Name)
	assert.Equal(t, date.NewRange(date.New(2013, 1, 1), date.New(2023, 1, 1)), b.Window)
	assert.True(t, b.InitialCapital.Equal(decimal.NewFromInt(500_000)), "the file overrides the environment")
	assert.InDelta(t, 0.02, b.RiskFreeRate, 1e-12)
	assert.False(t, b.Benchmark)
	assert.Equal(t, backtester.Daily, b.Timeframe)
	assert.Equal(t, "out", b.OutputDir)
	assert.Equal(t, int64(1001), b.Strategies[0].Seed, "the run seed applies to strategies without one")
	assert.Equal(t, int64(7), b.Strategies[1].Seed)
}

func TestResolve_Defaults(t *testing.T) {
	b, err := Run{}.Resolve(testEnv())
	require.NoError(t, err)
	assert.Equal(t, DefaultUniverse, b.Universe)
	assert.Equal(t, DefaultUniverse, b.Name)
	assert.True(t, b.InitialCapital.Equal(decimal.NewFromInt(1_000_000)))
	assert.InDelta(t, 0.01, b.RiskFreeRate, 1e-12)
	assert.True(t, b.Benchmark)
	assert.Equal(t, DefaultStrategies(), b.Strategies)
	assert.Equal(t, date.Range{}, b.Window)
}

func TestResolve_Errors(t *testing.T) {
	_, err := Run{Timeframe: "hourly"}.Resolve(testEnv())
	assert.Error(t, err)

	_, err = Run{Start: date.New(2023, 1, 1), End: date.New(2013, 1, 1)}.Resolve(testEnv())
	assert.Error(t, err)

	zero := decimal.Zero
	_, err = Run{InitialCapital: &zero}.Resolve(testEnv())
	assert.Error(t, err)
}
