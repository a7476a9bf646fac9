package store

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/etnz/backtester"
	"github.com/etnz/backtester/date"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore opens an in memory store private to the test.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// partialClose buys 100 A, sells 40 of them, and keeps the rest open.
func partialClose(t *testing.T) RunInput {
	t.Helper()
	f, err := backtester.NewFrame([]date.Date{date.New(2020, 1, 1), date.New(2020, 1, 2), date.New(2020, 1, 3)}, []string{"A"})
	require.NoError(t, err)
	prices := backtester.NewPriceTable(f)
	for i, p := range []int64{100, 110, 105} {
		prices.Set(i, 0, decimal.NewFromInt(p))
	}
	intents := backtester.NewIntents(f)
	intents.Set(0, 0, backtester.Buy, backtester.Q(100))
	intents.Set(1, 0, backtester.Sell, backtester.Q(40))

	e, err := backtester.NewEngine(backtester.Config{Name: "partial", InitialCapital: decimal.NewFromInt(100_000), Timeframe: backtester.Daily, Metrics: true})
	require.NoError(t, err)
	res, err := e.Run(prices, intents)
	require.NoError(t, err)
	l, err := e.Replay(prices, intents)
	require.NoError(t, err)
	return RunInput{Universe: "Test Universe", InitialCapital: decimal.NewFromInt(100_000), Result: res, Ledger: l}
}

func TestSaveRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	in := partialClose(t)

	id, err := s.SaveRun(ctx, in)
	require.NoError(t, err)
	require.Len(t, id, 36)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, id, run.ID)
	assert.Equal(t, "partial", run.Name)
	assert.Equal(t, "Test Universe", run.Universe)
	assert.Equal(t, "2020-01-01", run.From)
	assert.Equal(t, "2020-01-03", run.To)
	assert.Equal(t, "USD", run.Currency)
	assert.Equal(t, 2, run.Trades)
	assert.True(t, run.FinalValue.Equal(in.Result.Evolution.Last().Total.Decimal()))
	require.NotNil(t, run.CumulativeReturn)
	assert.InDelta(t, float64(in.Result.Performance.CumulativeReturn), *run.CumulativeReturn, 1e-9)
}

func TestLots(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	in := partialClose(t)
	id, err := s.SaveRun(ctx, in)
	require.NoError(t, err)

	got, err := s.Lots(ctx, id)
	require.NoError(t, err)
	want := in.Ledger.All()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Instrument, got[i].Instrument)
		assert.Equal(t, want[i].Status, got[i].Status)
		assert.Equal(t, want[i].EntryDate, got[i].EntryDate)
		assert.Equal(t, want[i].ExitDate, got[i].ExitDate)
		assert.True(t, want[i].Shares.Equal(got[i].Shares), "lot %d shares", i)
		assert.True(t, want[i].EntryPrice.Equal(got[i].EntryPrice), "lot %d entry price", i)
		if want[i].Status == backtester.Closed {
			assert.True(t, want[i].ExitPrice.Equal(got[i].ExitPrice), "lot %d exit price", i)
		}
	}

	_, err = s.Lots(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnknownRun)
}

func TestEvolution(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	in := partialClose(t)
	id, err := s.SaveRun(ctx, in)
	require.NoError(t, err)

	got, err := s.Evolution(ctx, id)
	require.NoError(t, err)
	want := in.Result.Evolution
	require.Len(t, got, len(want))
	assert.True(t, math.IsNaN(got[0].Return))
	for i := range want {
		assert.Equal(t, want[i].Date, got[i].Date)
		assert.True(t, want[i].Total.Decimal().Equal(got[i].Total.Decimal()), "period %d", i)
		assert.True(t, want[i].Cash.Decimal().Equal(got[i].Cash.Decimal()), "period %d", i)
		if i > 0 {
			assert.InDelta(t, want[i].Return, got[i].Return, 1e-12)
		}
	}

	_, err = s.Evolution(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnknownRun)
}

func TestSaveRun_WithoutLedger(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	in := partialClose(t)
	in.Ledger = nil
	in.Result.Performance.SharpeRatio = math.Inf(1)

	id, err := s.SaveRun(ctx, in)
	require.NoError(t, err)
	run, err := s.Run(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, run.Trades)
	assert.Nil(t, run.SharpeRatio)

	lots, err := s.Lots(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, lots)

	_, err = s.SaveRun(ctx, RunInput{})
	assert.Error(t, err)
}
