package strategy

import (
	"github.com/etnz/backtester"
	talib "github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// RSI trades mean reversion on the relative strength index.
//
// When flat it goes long below Lower and short above Upper, investing RiskAllocation percent of
// Capital. An open position is closed as soon as its return reaches TargetGain or falls under
// MaxLoss, both in percent.
type RSI struct {
	Period         int     // defaults to 14
	Lower, Upper   float64 // default to 20 and 80
	TargetGain     float64 // defaults to 1
	MaxLoss        float64 // defaults to -1
	RiskAllocation float64 // defaults to 10
	Capital        decimal.Decimal
}

func (s *RSI) Name() string { return "RSIStrategy" }

func (s *RSI) defaults() RSI {
	c := *s
	if c.Period <= 0 {
		c.Period = 14
	}
	if c.Lower == 0 {
		c.Lower = 20
	}
	if c.Upper == 0 {
		c.Upper = 80
	}
	if c.TargetGain == 0 {
		c.TargetGain = 1
	}
	if c.MaxLoss == 0 {
		c.MaxLoss = -1
	}
	if c.RiskAllocation == 0 {
		c.RiskAllocation = 10
	}
	return c
}

func (s *RSI) Run(prices *backtester.PriceTable) (*backtester.Intents, error) {
	c := s.defaults()
	in := backtester.NewIntents(prices.Frame)
	for col, instrument := range prices.Instruments {
		closes, err := prices.Closes(instrument)
		if err != nil {
			return nil, err
		}
		rsi := talib.Rsi(fillForward(closes), c.Period)

		var pos position
		// the first Period values have no RSI yet
		for row := max(1, c.Period); row < len(closes); row++ {
			price := closes[row]
			if !valid(price) {
				continue
			}
			if !pos.flat() {
				ret := 100 * (price - pos.entry) / pos.entry
				if pos.shares.IsNegative() {
					ret = -ret
				}
				if ret >= c.TargetGain || ret < c.MaxLoss {
					pos.close(in, row, col)
				}
				continue
			}
			var long bool
			switch {
			case rsi[row] < c.Lower:
				long = true
			case rsi[row] > c.Upper:
				long = false
			default:
				continue
			}
			shares := allocation(c.Capital, c.RiskAllocation, price)
			if shares.IsZero() {
				continue
			}
			pos.open(in, row, col, long, shares, price)
			log.WithFields(log.Fields{"instrument": instrument, "date": prices.Dates[row], "rsi": rsi[row], "long": long}).Debug("rsi entry")
		}
	}
	return in, nil
}
