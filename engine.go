package backtester

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Config is the configuration of an Engine.
type Config struct {
	Name           string
	InitialCapital decimal.Decimal
	RiskFreeRate   float64 // annual, 0.05 means 5%
	Timeframe      Timeframe
	Metrics        bool   // compute Performance, daily timeframe only
	Currency       string // defaults to DefaultCurrency
}

// Engine runs backtests: it turns a price table and trade intents into the evolution of a
// portfolio, and replays the same intents through a Ledger.
type Engine struct {
	cfg  Config
	days int // calendar days between two periods
}

// NewEngine returns an Engine for cfg.
func NewEngine(cfg Config) (*Engine, error) {
	days, ok := cfg.Timeframe.Days()
	if !ok {
		return nil, fmt.Errorf("%w: %v periods have no length in days", ErrUnsupportedTimeframe, cfg.Timeframe)
	}
	if cfg.Metrics && cfg.Timeframe != Daily {
		return nil, fmt.Errorf("%w: summary metrics require a daily timeframe, got %v", ErrUnsupportedTimeframe, cfg.Timeframe)
	}
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	return &Engine{cfg: cfg, days: days}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Result is the outcome of Engine.Run.
type Result struct {
	Name        string
	Frame       Frame
	Evolution   Evolution
	Holdings    [][]decimal.Decimal // cumulative signed holdings, [row][col]
	Performance *Performance        // nil unless requested
	Intents     *Intents            // with inferred share counts resolved
}

// check validates prices and intents before any computation.
func check(prices *PriceTable, intents *Intents) error {
	if prices == nil || intents == nil {
		return fmt.Errorf("%w: missing prices or intents", ErrShapeMismatch)
	}
	if err := prices.check(); err != nil {
		return err
	}
	if err := intents.check(); err != nil {
		return err
	}
	if err := prices.sameShape(intents.Frame, "intents"); err != nil {
		return err
	}
	return intents.validate()
}

// Run computes the evolution of the portfolio, period by period.
//
// Inferred share counts are first resolved from the running net holdings, so that the cash
// flow and the ledger replay trade the same magnitudes. Missing prices and share counts
// count as zero.
func (e *Engine) Run(prices *PriceTable, intents *Intents) (*Result, error) {
	if err := check(prices, intents); err != nil {
		return nil, fmt.Errorf("backtest %q: %w", e.cfg.Name, err)
	}
	rows, cols := prices.Shape()
	log.WithFields(log.Fields{"name": e.cfg.Name, "periods": rows, "instruments": cols, "trades": intents.Trades()}).Debug("running backtest")

	resolved := intents.resolved()

	// Signed trade size per cell.
	delta := func(i, j int) decimal.Decimal {
		s := resolved.Shares[i][j]
		if !s.Valid {
			return decimal.Zero
		}
		return s.Decimal.Mul(decimal.NewFromInt(int64(resolved.Signal[i][j])))
	}

	capital := M(e.cfg.InitialCapital, e.cfg.Currency)
	accrual := decimal.NewFromFloat(e.cfg.RiskFreeRate).
		Mul(decimal.NewFromInt(int64(e.days))).
		Div(decimal.NewFromInt(365)).
		Add(decimal.NewFromInt(1))

	holdings := make([][]decimal.Decimal, rows)
	running := make([]decimal.Decimal, cols)
	evolution := make(Evolution, rows)
	cash := capital
	for i := range rows {
		equity := M(0, e.cfg.Currency)
		flow := M(0, e.cfg.Currency)
		holdings[i] = make([]decimal.Decimal, cols)
		for j := range cols {
			d := delta(i, j)
			running[j] = running[j].Add(d)
			holdings[i][j] = running[j]

			price := M(prices.Price(i, j), e.cfg.Currency)
			equity = equity.Add(price.Mul(Quantity{value: running[j]}))
			flow = flow.Add(price.Mul(Quantity{value: d}))
		}
		cash = cash.Sub(flow).Scale(accrual)

		total := cash.Add(equity)
		pnl := total.Sub(capital)
		ret := nan
		if i > 0 {
			ret = pnl.Sub(evolution[i-1].CumulativePnL).AsFloat() / total.AsFloat()
		}
		evolution[i] = Point{
			Date:          prices.Dates[i],
			Cash:          cash,
			Equity:        equity,
			Total:         total,
			CumulativePnL: pnl,
			Return:        ret,
		}
	}

	res := &Result{
		Name:      e.cfg.Name,
		Frame:     prices.Frame,
		Evolution: evolution,
		Holdings:  holdings,
		Intents:   resolved,
	}
	if e.cfg.Metrics && rows > 0 {
		res.Performance = e.performance(evolution)
	}
	log.WithFields(log.Fields{"name": e.cfg.Name, "pnl": evolution.Last().CumulativePnL.Decimal().String()}).Debug("backtest done")
	return res, nil
}

func (e *Engine) performance(evolution Evolution) *Performance {
	last := evolution.Last()
	cumulative := nan
	if capital := e.cfg.InitialCapital.InexactFloat64(); capital != 0 {
		cumulative = 100 * last.CumulativePnL.AsFloat() / capital
	}
	return &Performance{
		CumulativeReturn: Percent(cumulative),
		MaxDrawdown:      Percent(MaxDrawdown(evolution.Totals())),
		SharpeRatio:      SharpeRatio(evolution.Returns(), e.cfg.RiskFreeRate),
	}
}

// apply applies the trade of one cell to l.
func (e *Engine) apply(l *Ledger, prices *PriceTable, intents *Intents, i, j int) error {
	action := intents.Action[i][j]
	if action == None {
		return nil
	}
	price := M(prices.Price(i, j), e.cfg.Currency)
	return l.ApplyTrade(prices.Instruments[j], action, prices.Dates[i], price, SharesFromCell(intents.Shares[i][j]))
}

// replayColumn applies the trades of one instrument column to l, in ascending date order.
func (e *Engine) replayColumn(l *Ledger, prices *PriceTable, intents *Intents, j int) error {
	for i := range prices.Dates {
		if err := e.apply(l, prices, intents, i, j); err != nil {
			return err
		}
	}
	return nil
}

// Replay applies every trade intent to a fresh Ledger, date by date then instrument by instrument.
func (e *Engine) Replay(prices *PriceTable, intents *Intents) (*Ledger, error) {
	if err := check(prices, intents); err != nil {
		return nil, fmt.Errorf("replay %q: %w", e.cfg.Name, err)
	}
	l, err := NewLedger(e.cfg.Name, FIFO)
	if err != nil {
		return nil, err
	}
	for i := range prices.Dates {
		for j := range prices.Instruments {
			if err := e.apply(l, prices, intents, i, j); err != nil {
				return nil, fmt.Errorf("replay %q: %w", e.cfg.Name, err)
			}
		}
	}
	log.WithFields(log.Fields{"name": e.cfg.Name, "lots": len(l.lots)}).Debug("replay done")
	return l, nil
}

// ReplayParallel is like Replay but replays each instrument in its own goroutine.
//
// Instruments share no lots, so the merged ledger is identical to the one Replay builds.
func (e *Engine) ReplayParallel(ctx context.Context, prices *PriceTable, intents *Intents) (*Ledger, error) {
	if err := check(prices, intents); err != nil {
		return nil, fmt.Errorf("replay %q: %w", e.cfg.Name, err)
	}
	_, cols := prices.Shape()
	ledgers := make([]*Ledger, cols)
	g, ctx := errgroup.WithContext(ctx)
	for j := range cols {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			l, err := NewLedger(e.cfg.Name, FIFO)
			if err != nil {
				return err
			}
			if err := e.replayColumn(l, prices, intents, j); err != nil {
				return err
			}
			ledgers[j] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("replay %q: %w", e.cfg.Name, err)
	}

	// Merge in order of first trade, the order Replay discovers instruments in.
	order := make([]int, cols)
	first := make([]int, cols)
	for j := range cols {
		order[j] = j
		first[j] = math.MaxInt
		for i := range prices.Dates {
			if intents.Action[i][j] != None {
				first[j] = i
				break
			}
		}
	}
	sort.SliceStable(order, func(a, b int) bool { return first[order[a]] < first[order[b]] })

	merged, err := NewLedger(e.cfg.Name, FIFO)
	if err != nil {
		return nil, err
	}
	for _, j := range order {
		merged.merge(ledgers[j])
	}
	log.WithFields(log.Fields{"name": e.cfg.Name, "lots": len(merged.lots), "workers": cols}).Debug("parallel replay done")
	return merged, nil
}
