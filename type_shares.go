package backtester

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Fraction is the part of the open exposure a closing shortcut trades.
type Fraction int

const (
	All Fraction = iota + 1
	Half
	Quarter
)

func (f Fraction) String() string {
	switch f {
	case All:
		return "100%"
	case Half:
		return "50%"
	case Quarter:
		return "25%"
	default:
		return "unknown"
	}
}

// of returns the fraction of q.
func (f Fraction) of(q Quantity) Quantity {
	switch f {
	case Half:
		return Quantity{value: q.value.Div(decimal.NewFromInt(2))}
	case Quarter:
		return Quantity{value: q.value.Div(decimal.NewFromInt(4))}
	default:
		return q
	}
}

// Shares is the share count of a trade intent: either an explicit magnitude or a fraction of
// the exposure open at the time the trade is applied.
//
// The zero Shares infers its fraction from the trade action.
type Shares struct {
	explicit bool
	qty      Quantity
	fraction Fraction
}

// Explicit returns an explicit share count.
func Explicit(q Quantity) Shares { return Shares{explicit: true, qty: q} }

// InferFromOpenExposure returns a share count resolved against the open exposure.
func InferFromOpenExposure(f Fraction) Shares { return Shares{fraction: f} }

// SharesFromCell returns the Shares of a matrix cell: explicit when set, inferred otherwise.
func SharesFromCell(cell decimal.NullDecimal) Shares {
	if cell.Valid {
		return Explicit(Quantity{value: cell.Decimal})
	}
	return Shares{}
}

// IsExplicit reports whether s carries its own magnitude.
func (s Shares) IsExplicit() bool { return s.explicit }

// resolve returns the magnitude to trade, given the pre-trade open exposure on the side
// the action closes.
func (s Shares) resolve(action TradeAction, exposure Quantity) (Quantity, error) {
	if s.explicit {
		if s.qty.IsNegative() {
			return Quantity{}, fmt.Errorf("%w: %v", ErrNegativeShares, s.qty)
		}
		return s.qty, nil
	}
	f := s.fraction
	if f == 0 {
		var ok bool
		if f, ok = action.closingFraction(); !ok {
			return Quantity{}, fmt.Errorf("%w: %v requires an explicit share count", ErrInconsistentIntent, action)
		}
	}
	return f.of(exposure), nil
}

func (s Shares) String() string {
	if s.explicit {
		return s.qty.String()
	}
	if s.fraction == 0 {
		return "inferred"
	}
	return "inferred " + s.fraction.String()
}
