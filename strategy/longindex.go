package strategy

import (
	"fmt"

	"github.com/etnz/backtester"
	"github.com/shopspring/decimal"
)

// LongIndex buys as many shares of Ticker as Capital affords on the first period, and sells
// them all on the last one. It is the benchmark every other strategy is compared to.
type LongIndex struct {
	Ticker  string
	Capital decimal.Decimal
}

func (s *LongIndex) Name() string { return "Long" + s.Ticker }

func (s *LongIndex) Run(prices *backtester.PriceTable) (*backtester.Intents, error) {
	col, err := prices.Column(s.Ticker)
	if err != nil {
		return nil, err
	}
	in := backtester.NewIntents(prices.Frame)
	rows, _ := prices.Shape()
	if rows == 0 {
		return in, nil
	}
	if !prices.Cells[0][col].Valid || prices.Price(0, col).IsZero() {
		return nil, fmt.Errorf("%s has no price on %s", s.Ticker, prices.Dates[0])
	}
	shares := s.Capital.Div(prices.Price(0, col)).Truncate(0)
	in.Set(0, col, backtester.Buy, backtester.Q(shares))
	if rows > 1 {
		in.Set(rows-1, col, backtester.SellToCloseAll, backtester.Q(shares))
	}
	return in, nil
}
