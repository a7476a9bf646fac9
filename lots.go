package backtester

import (
	"fmt"

	"github.com/etnz/backtester/date"
)

// LotStatus tells whether a Lot is still part of the open book.
type LotStatus int

const (
	Open LotStatus = iota
	Closed
)

func (s LotStatus) String() string {
	switch s {
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// ParseLotStatus parses "open" or "closed".
func ParseLotStatus(s string) (LotStatus, error) {
	switch s {
	case "open", "OPEN":
		return Open, nil
	case "closed", "CLOSED":
		return Closed, nil
	default:
		return Open, fmt.Errorf("unknown lot status: %q", s)
	}
}

// Lot is one directional position in one instrument.
//
// Shares is signed: positive for a long lot, negative for a short one. It is never zero and
// its sign never changes; a close only truncates its magnitude or marks it Closed.
type Lot struct {
	Instrument string
	EntryDate  date.Date
	Shares     Quantity
	EntryPrice Money
	ExitDate   date.Date // zero while open
	ExitPrice  Money     // meaningless while open
	Status     LotStatus
}

// IsLong returns true for a lot of positive shares.
func (l Lot) IsLong() bool { return l.Shares.IsPositive() }

// IsShort returns true for a lot of negative shares.
func (l Lot) IsShort() bool { return l.Shares.IsNegative() }

// RealizedPnL returns Shares × (ExitPrice − EntryPrice). It is only defined once the lot is closed.
func (l Lot) RealizedPnL() (Money, bool) {
	if l.Status != Closed {
		return Money{}, false
	}
	return l.ExitPrice.Sub(l.EntryPrice).Mul(l.Shares), true
}

// MarketValue returns the signed value of the lot at price.
func (l Lot) MarketValue(price Money) Money { return price.Mul(l.Shares) }

// close marks the lot closed at the given date and price.
func (l *Lot) close(on date.Date, price Money) {
	l.Status = Closed
	l.ExitDate = on
	l.ExitPrice = price
}

// String returns a one line description of the lot, with its exit once closed.
func (l Lot) String() string {
	s := fmt.Sprintf("%s: %s lot: entry %s @ %s, shares %s", l.Instrument, l.Status, l.EntryDate, l.EntryPrice.Decimal(), l.Shares)
	if pnl, ok := l.RealizedPnL(); ok {
		s += fmt.Sprintf(", exit %s @ %s, pnl %s", l.ExitDate, l.ExitPrice.Decimal(), pnl.Decimal())
	}
	return s
}
