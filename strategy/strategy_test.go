package strategy

import (
	"math"
	"testing"

	"github.com/etnz/backtester"
	"github.com/etnz/backtester/date"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPrices builds a one column price table starting on 2020-01-01. NaN means missing.
func newPrices(t *testing.T, instrument string, closes ...float64) *backtester.PriceTable {
	t.Helper()
	start := date.New(2020, 1, 1)
	dates := make([]date.Date, len(closes))
	for i := range closes {
		dates[i] = start.Add(i)
	}
	f, err := backtester.NewFrame(dates, []string{instrument})
	require.NoError(t, err)
	p := backtester.NewPriceTable(f)
	for i, c := range closes {
		if !math.IsNaN(c) {
			p.Set(i, 0, decimal.NewFromFloat(c))
		}
	}
	return p
}

// runEngine checks that the intents are accepted by the engine and the ledger.
func runEngine(t *testing.T, prices *backtester.PriceTable, in *backtester.Intents) *backtester.Result {
	t.Helper()
	e, err := backtester.NewEngine(backtester.Config{Name: "test", InitialCapital: decimal.NewFromInt(1_000_000), Timeframe: backtester.Daily})
	require.NoError(t, err)
	res, err := e.Run(prices, in)
	require.NoError(t, err)
	_, err = e.Replay(prices, in)
	require.NoError(t, err)
	return res
}

func TestLongIndex(t *testing.T) {
	prices := newPrices(t, "SPY", 100, 105, 110)
	s := &LongIndex{Ticker: "SPY", Capital: decimal.NewFromInt(1050)}
	assert.Equal(t, "LongSPY", s.Name())

	in, err := s.Run(prices)
	require.NoError(t, err)
	assert.Equal(t, backtester.Buy, in.Action[0][0])
	assert.Equal(t, backtester.None, in.Action[1][0])
	assert.Equal(t, backtester.SellToCloseAll, in.Action[2][0])
	assert.True(t, in.Shares[0][0].Decimal.Equal(decimal.NewFromInt(10)))
	assert.True(t, in.Shares[2][0].Decimal.Equal(decimal.NewFromInt(10)))

	res := runEngine(t, prices, in)
	assert.Equal(t, "100", res.Evolution.Last().CumulativePnL.Decimal().String())
}

func TestLongIndex_Errors(t *testing.T) {
	prices := newPrices(t, "SPY", math.NaN(), 105)
	_, err := (&LongIndex{Ticker: "QQQ", Capital: decimal.NewFromInt(1000)}).Run(prices)
	assert.ErrorIs(t, err, backtester.ErrUnknownInstrument)

	_, err = (&LongIndex{Ticker: "SPY", Capital: decimal.NewFromInt(1000)}).Run(prices)
	assert.Error(t, err)
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name   string
		last   float64
		start  float64
		step   float64
		entry  backtester.TradeAction
		exit   backtester.TradeAction
		shares int64
	}{
		// a steady fall drives the RSI to 0, then a 2.3% bounce hits the target gain
		{name: "long", start: 100, step: -1, last: 88, entry: backtester.Buy, exit: backtester.Sell, shares: 1162},
		// a steady rise drives the RSI to 100, then a 1.75% drop is a gain for the short
		{name: "short", start: 100, step: 1, last: 112, entry: backtester.Sell, exit: backtester.Buy, shares: 877},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closes := make([]float64, 0, 16)
			for i := range 15 {
				closes = append(closes, tt.start+tt.step*float64(i))
			}
			closes = append(closes, tt.last)
			prices := newPrices(t, "A", closes...)

			in, err := (&RSI{Capital: decimal.NewFromInt(1_000_000)}).Run(prices)
			require.NoError(t, err)
			for row := range 14 {
				assert.Equal(t, backtester.None, in.Action[row][0], "row %d", row)
			}
			assert.Equal(t, tt.entry, in.Action[14][0])
			assert.Equal(t, tt.exit, in.Action[15][0])
			assert.True(t, in.Shares[14][0].Decimal.Equal(decimal.NewFromInt(tt.shares)), "got %v", in.Shares[14][0].Decimal)
			assert.True(t, in.Shares[15][0].Decimal.Equal(decimal.NewFromInt(tt.shares)))

			res := runEngine(t, prices, in)
			assert.True(t, res.Holdings[15][0].IsZero())
		})
	}
}

func TestRSI_HoldsUntilExit(t *testing.T) {
	closes := make([]float64, 0, 17)
	for i := range 15 {
		closes = append(closes, 100-float64(i))
	}
	// 86 then 86.2 is +0.23%: neither target nor stop, the position stays open
	closes = append(closes, 86.2, math.NaN())
	prices := newPrices(t, "A", closes...)

	in, err := (&RSI{Capital: decimal.NewFromInt(1_000_000)}).Run(prices)
	require.NoError(t, err)
	assert.Equal(t, backtester.Buy, in.Action[14][0])
	assert.Equal(t, backtester.None, in.Action[15][0])
	assert.Equal(t, backtester.None, in.Action[16][0])
}

func TestRandom(t *testing.T) {
	closes := make([]float64, 200)
	for i := range closes {
		closes[i] = 50 + 10*math.Sin(float64(i)/10)
	}
	prices := newPrices(t, "A", closes...)
	s := &Random{Capital: decimal.NewFromInt(1_000_000), Seed: 1001}

	first, err := s.Run(prices)
	require.NoError(t, err)
	second, err := s.Run(prices)
	require.NoError(t, err)
	assert.Equal(t, first.Action, second.Action, "a seeded strategy is deterministic")
	assert.Equal(t, backtester.None, first.Action[0][0], "no trade on the first period")

	// positions alternate between flat and open
	held := decimal.Zero
	trades := 0
	for row := range closes {
		if first.Action[row][0] == backtester.None {
			continue
		}
		trades++
		delta := first.Shares[row][0].Decimal.Mul(decimal.NewFromInt(int64(first.Signal[row][0])))
		if !held.IsZero() {
			assert.True(t, held.Add(delta).IsZero(), "row %d closes the open position", row)
		}
		held = held.Add(delta)
	}
	assert.Greater(t, trades, 0)
	runEngine(t, prices, first)
}

func TestNew(t *testing.T) {
	capital := decimal.NewFromInt(1000)
	s, err := New(Params{Kind: "RSI", Period: 7}, capital)
	require.NoError(t, err)
	require.IsType(t, &RSI{}, s)
	assert.Equal(t, 7, s.(*RSI).Period)

	s, err = New(Params{Kind: "longindex", Ticker: "QQQ"}, capital)
	require.NoError(t, err)
	assert.Equal(t, "LongQQQ", s.Name())

	s, err = New(Params{Kind: "random", Seed: 3}, capital)
	require.NoError(t, err)
	assert.Equal(t, "RandomStrategy", s.Name())

	_, err = New(Params{Kind: "longindex"}, capital)
	assert.Error(t, err)
	_, err = New(Params{Kind: "macd"}, capital)
	assert.Error(t, err)
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, math.NaN(), 4, 5}, 2)
	require.Len(t, got, 5)
	assert.InDelta(t, 1.5, got[1], 1e-9)
	assert.InDelta(t, 2, got[2], 1e-9)
	assert.InDelta(t, 3, got[3], 1e-9)
	assert.InDelta(t, 4.5, got[4], 1e-9)
}

func TestFillForward(t *testing.T) {
	nan := math.NaN()
	assert.Equal(t, []float64{1, 1, 1, 3}, fillForward([]float64{nan, 1, nan, 3}))
	assert.Equal(t, []float64{0, 0}, fillForward([]float64{nan, nan}))
}
