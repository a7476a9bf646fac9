package strategy

import (
	"math/rand"

	"github.com/etnz/backtester"
	"github.com/shopspring/decimal"
)

// Random enters and exits positions at random. It is a baseline: a strategy that does not
// beat it has no edge.
//
// On each period a number in [0,1) is drawn per instrument. When flat, a draw above Upper
// opens a long position and a draw below Lower a short one. When a position is open, a
// draw outside [Lower, Upper] closes it.
type Random struct {
	Lower, Upper   float64 // default to 0.2 and 0.8
	RiskAllocation float64 // percent of Capital per position, defaults to 10
	Capital        decimal.Decimal
	Seed           int64
}

func (s *Random) Name() string { return "RandomStrategy" }

func (s *Random) Run(prices *backtester.PriceTable) (*backtester.Intents, error) {
	lower, upper, risk := s.Lower, s.Upper, s.RiskAllocation
	if lower == 0 {
		lower = 0.2
	}
	if upper == 0 {
		upper = 0.8
	}
	if risk == 0 {
		risk = 10
	}
	rnd := rand.New(rand.NewSource(s.Seed))

	in := backtester.NewIntents(prices.Frame)
	for col, instrument := range prices.Instruments {
		closes, err := prices.Closes(instrument)
		if err != nil {
			return nil, err
		}
		var pos position
		for row := 1; row < len(closes); row++ {
			price := closes[row]
			if !valid(price) {
				continue
			}
			x := rnd.Float64()
			if x <= upper && x >= lower {
				continue
			}
			if !pos.flat() {
				pos.close(in, row, col)
				continue
			}
			shares := allocation(s.Capital, risk, price)
			if shares.IsZero() {
				continue
			}
			pos.open(in, row, col, x > upper, shares, price)
		}
	}
	return in, nil
}
