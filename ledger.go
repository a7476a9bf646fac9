package backtester

import (
	"fmt"
	"slices"

	"github.com/etnz/backtester/date"
)

// Ledger represents the book of lots of a backtest.
//
// Lots live in an arena and are addressed by a stable index. Each instrument owns an
// ordered list of indices; that order is the insertion order, and the FIFO matching order.
type Ledger struct {
	name   string
	method DisposalMethod

	lots         []Lot
	byInstrument map[string][]int
	instruments  []string // in order of first trade
}

// NewLedger creates an empty ledger. Only FIFO disposal is supported.
func NewLedger(name string, method DisposalMethod) (*Ledger, error) {
	if method != FIFO {
		return nil, fmt.Errorf("ledger %q: %w: %v, only FIFO is supported", name, ErrUnsupportedDisposal, method)
	}
	return &Ledger{
		name:         name,
		method:       method,
		byInstrument: make(map[string][]int),
	}, nil
}

// Name returns the ledger name.
func (l *Ledger) Name() string { return l.name }

// Method returns the disposal method.
func (l *Ledger) Method() DisposalMethod { return l.method }

// openExposure returns the total magnitude of open lots on one side.
func (l *Ledger) openExposure(instrument string, long bool) Quantity {
	var total Quantity
	for _, i := range l.byInstrument[instrument] {
		lot := l.lots[i]
		if lot.Status == Open && lot.IsLong() == long {
			total = total.Add(lot.Shares.Abs())
		}
	}
	return total
}

// Position returns the net signed open shares of an instrument.
func (l *Ledger) Position(instrument string) Quantity {
	var total Quantity
	for _, i := range l.byInstrument[instrument] {
		if lot := l.lots[i]; lot.Status == Open {
			total = total.Add(lot.Shares)
		}
	}
	return total
}

// append adds a lot to the arena and to its instrument list.
func (l *Ledger) append(lot Lot) {
	if _, exists := l.byInstrument[lot.Instrument]; !exists {
		l.instruments = append(l.instruments, lot.Instrument)
	}
	l.byInstrument[lot.Instrument] = append(l.byInstrument[lot.Instrument], len(l.lots))
	l.lots = append(l.lots, lot)
}

// ApplyTrade applies a trade to the book.
//
// Buy class actions close open short lots, sell class actions close open long lots, oldest
// first. Whatever the opposite side could not absorb opens a new lot. Inferred shares are
// resolved against the open exposure before anything is changed.
func (l *Ledger) ApplyTrade(instrument string, action TradeAction, on date.Date, price Money, shares Shares) error {
	if action == None {
		return nil
	}
	if !action.IsBuy() && !action.IsSell() {
		return fmt.Errorf("%w: unknown action %d for %s on %s", ErrInconsistentIntent, int(action), instrument, on)
	}
	// A buy closes shorts, a sell closes longs.
	closingLong := action.IsSell()
	qty, err := shares.resolve(action, l.openExposure(instrument, closingLong))
	if err != nil {
		return fmt.Errorf("cannot apply %v %s on %s: %w", action, instrument, on, err)
	}
	if _, exists := l.byInstrument[instrument]; !exists {
		l.instruments = append(l.instruments, instrument)
		l.byInstrument[instrument] = nil
	}

	outstanding := qty
	candidates := func() []int {
		var open []int
		for _, i := range l.byInstrument[instrument] {
			if lot := l.lots[i]; lot.Status == Open && lot.IsLong() == closingLong {
				open = append(open, i)
			}
		}
		return open
	}

	// full lots
	for _, i := range candidates() {
		lot := &l.lots[i]
		if size := lot.Shares.Abs(); !size.GreaterThan(outstanding) {
			lot.close(on, price)
			outstanding = outstanding.Sub(size)
		}
	}

	// at most one partial lot
	if outstanding.IsPositive() {
		for _, i := range candidates() {
			lot := &l.lots[i]
			if !lot.Shares.Abs().GreaterThan(outstanding) {
				continue
			}
			closed := *lot
			if closingLong {
				closed.Shares = outstanding
				lot.Shares = lot.Shares.Sub(outstanding)
			} else {
				closed.Shares = outstanding.Neg()
				lot.Shares = lot.Shares.Add(outstanding)
			}
			closed.close(on, price)
			l.append(closed)
			outstanding = Quantity{}
			break
		}
	}

	// open the remainder
	if outstanding.IsPositive() {
		signed := outstanding
		if action.IsSell() {
			signed = signed.Neg()
		}
		l.append(Lot{
			Instrument: instrument,
			EntryDate:  on,
			Shares:     signed,
			EntryPrice: price,
			Status:     Open,
		})
	}
	return nil
}

// filter returns the lots of an instrument that satisfy keep, in insertion order.
func (l *Ledger) filter(instrument string, keep func(Lot) bool) []Lot {
	var res []Lot
	for _, i := range l.byInstrument[instrument] {
		if lot := l.lots[i]; keep(lot) {
			res = append(res, lot)
		}
	}
	return res
}

// OpenLong returns the open long lots of an instrument.
func (l *Ledger) OpenLong(instrument string) []Lot {
	return l.filter(instrument, func(lot Lot) bool { return lot.Status == Open && lot.IsLong() })
}

// OpenShort returns the open short lots of an instrument.
func (l *Ledger) OpenShort(instrument string) []Lot {
	return l.filter(instrument, func(lot Lot) bool { return lot.Status == Open && lot.IsShort() })
}

// Closed returns the closed lots of an instrument.
func (l *Ledger) Closed(instrument string) []Lot {
	return l.filter(instrument, func(lot Lot) bool { return lot.Status == Closed })
}

// Lots returns every lot of an instrument.
func (l *Ledger) Lots(instrument string) []Lot {
	return l.filter(instrument, func(Lot) bool { return true })
}

// All returns every lot of the ledger, grouped by instrument in order of first trade.
func (l *Ledger) All() []Lot {
	res := make([]Lot, 0, len(l.lots))
	for _, instrument := range l.instruments {
		res = append(res, l.Lots(instrument)...)
	}
	return res
}

// Instruments returns the traded instruments in order of first trade.
func (l *Ledger) Instruments() []string { return slices.Clone(l.instruments) }

// CloseAllOpen closes every open lot at the given date, each at its instrument price.
//
// It fails without modifying anything if an instrument with open lots has no price.
func (l *Ledger) CloseAllOpen(on date.Date, prices map[string]Money) error {
	for _, lot := range l.lots {
		if _, ok := prices[lot.Instrument]; lot.Status == Open && !ok {
			return fmt.Errorf("cannot close %s on %s: %w: no price", lot.Instrument, on, ErrUnknownInstrument)
		}
	}
	for i := range l.lots {
		lot := &l.lots[i]
		if lot.Status == Open {
			lot.close(on, prices[lot.Instrument])
		}
	}
	return nil
}

// merge appends the lots of o, instrument by instrument, to l.
func (l *Ledger) merge(o *Ledger) {
	for _, instrument := range o.instruments {
		if _, exists := l.byInstrument[instrument]; !exists {
			l.instruments = append(l.instruments, instrument)
			l.byInstrument[instrument] = nil
		}
		for _, lot := range o.Lots(instrument) {
			l.append(lot)
		}
	}
}

// LedgerSummary counts the lots of a ledger.
type LedgerSummary struct {
	Trades   int   // number of lots, open or closed
	Open     int   // open lots
	Closed   int   // closed lots
	Realized Money // sum of the realized P&L of closed lots
}

func (s LedgerSummary) String() string { return fmt.Sprintf("Trade count: %d", s.Trades) }

// Summary returns a short summary of the ledger.
func (l *Ledger) Summary() LedgerSummary {
	var s LedgerSummary
	for _, lot := range l.lots {
		s.Trades++
		if pnl, ok := lot.RealizedPnL(); ok {
			s.Closed++
			s.Realized = s.Realized.Add(pnl)
			continue
		}
		s.Open++
	}
	return s
}
