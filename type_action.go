package backtester

import "fmt"

// TradeAction is the action requested for one instrument on one period.
//
// Every action except None, Buy and Sell is a closing shortcut: its share count can be
// inferred from the exposure open on the opposite side.
type TradeAction int

const (
	None TradeAction = iota
	Buy
	Sell
	BuyToCloseAll
	SellToCloseAll
	BuyToClose50
	BuyToClose25
	SellToClose50
	SellToClose25
)

func (a TradeAction) String() string {
	switch a {
	case None:
		return ""
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	case BuyToCloseAll:
		return "BUY_TO_CLOSE_ALL"
	case SellToCloseAll:
		return "SELL_TO_CLOSE_ALL"
	case BuyToClose50:
		return "BUY_TO_CLOSE_50"
	case BuyToClose25:
		return "BUY_TO_CLOSE_25"
	case SellToClose50:
		return "SELL_TO_CLOSE_50"
	case SellToClose25:
		return "SELL_TO_CLOSE_25"
	default:
		return "unknown"
	}
}

// ParseTradeAction parses the canonical token of a TradeAction. "" and "NONE" both mean None.
func ParseTradeAction(s string) (TradeAction, error) {
	switch s {
	case "", "NONE":
		return None, nil
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	case "BUY_TO_CLOSE_ALL":
		return BuyToCloseAll, nil
	case "SELL_TO_CLOSE_ALL":
		return SellToCloseAll, nil
	case "BUY_TO_CLOSE_50":
		return BuyToClose50, nil
	case "BUY_TO_CLOSE_25":
		return BuyToClose25, nil
	case "SELL_TO_CLOSE_50":
		return SellToClose50, nil
	case "SELL_TO_CLOSE_25":
		return SellToClose25, nil
	default:
		return None, fmt.Errorf("unknown trade action: %q", s)
	}
}

// IsBuy reports whether a belongs to the buy class. Buy class trades close short lots.
func (a TradeAction) IsBuy() bool {
	switch a {
	case Buy, BuyToCloseAll, BuyToClose50, BuyToClose25:
		return true
	}
	return false
}

// IsSell reports whether a belongs to the sell class. Sell class trades close long lots.
func (a TradeAction) IsSell() bool {
	switch a {
	case Sell, SellToCloseAll, SellToClose50, SellToClose25:
		return true
	}
	return false
}

// closingFraction returns the fraction of opposite open exposure a closing shortcut trades.
func (a TradeAction) closingFraction() (Fraction, bool) {
	switch a {
	case BuyToCloseAll, SellToCloseAll:
		return All, true
	case BuyToClose50, SellToClose50:
		return Half, true
	case BuyToClose25, SellToClose25:
		return Quarter, true
	}
	return 0, false
}

// Signal returns the direction a trades in: Long for buy class, Short for sell class, Hold for None.
func (a TradeAction) Signal() Signal {
	switch {
	case a.IsBuy():
		return Long
	case a.IsSell():
		return Short
	}
	return Hold
}
