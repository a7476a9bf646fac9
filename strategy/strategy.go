// Package strategy turns a price table into trade intents.
//
// A Strategy never touches cash or lots: it only fills the signal, action and shares
// matrices that the backtester.Engine later runs and replays.
package strategy

import (
	"fmt"
	"math"
	"strings"

	"github.com/etnz/backtester"
	talib "github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"
)

// Strategy produces trade intents for a price table.
type Strategy interface {
	Name() string
	Run(prices *backtester.PriceTable) (*backtester.Intents, error)
}

// Params are the parameters of any known strategy, as found in run files.
// Zero values select the strategy defaults.
type Params struct {
	Kind           string  `yaml:"kind"`
	Ticker         string  `yaml:"ticker,omitempty"`
	Period         int     `yaml:"period,omitempty"`
	Lower          float64 `yaml:"lower,omitempty"`
	Upper          float64 `yaml:"upper,omitempty"`
	TargetGain     float64 `yaml:"target_gain,omitempty"`
	MaxLoss        float64 `yaml:"max_loss,omitempty"`
	RiskAllocation float64 `yaml:"risk_allocation,omitempty"`
	Seed           int64   `yaml:"seed,omitempty"`
}

// Kinds lists the strategy kinds New accepts.
func Kinds() []string { return []string{"longindex", "rsi", "random"} }

// New returns the strategy of kind p.Kind, trading with capital.
func New(p Params, capital decimal.Decimal) (Strategy, error) {
	switch strings.ToLower(p.Kind) {
	case "longindex":
		if p.Ticker == "" {
			return nil, fmt.Errorf("longindex strategy needs a ticker")
		}
		return &LongIndex{Ticker: p.Ticker, Capital: capital}, nil
	case "rsi":
		return &RSI{
			Period:         p.Period,
			Lower:          p.Lower,
			Upper:          p.Upper,
			TargetGain:     p.TargetGain,
			MaxLoss:        p.MaxLoss,
			RiskAllocation: p.RiskAllocation,
			Capital:        capital,
		}, nil
	case "random":
		return &Random{
			Lower:          p.Lower,
			Upper:          p.Upper,
			RiskAllocation: p.RiskAllocation,
			Capital:        capital,
			Seed:           p.Seed,
		}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q, want one of %v", p.Kind, Kinds())
	}
}

// SMA returns the simple moving average of prices over period. The first period-1 values are zero.
func SMA(prices []float64, period int) []float64 {
	return talib.Sma(fillForward(prices), period)
}

// fillForward replaces NaN by the previous value, and leading NaN by the first value found.
func fillForward(prices []float64) []float64 {
	res := make([]float64, len(prices))
	last := math.NaN()
	for i, p := range prices {
		if !math.IsNaN(p) {
			last = p
		}
		res[i] = last
	}
	first := 0.0
	for _, p := range res {
		if !math.IsNaN(p) {
			first = p
			break
		}
	}
	for i := range res {
		if !math.IsNaN(res[i]) {
			break
		}
		res[i] = first
	}
	return res
}

// position tracks the open position of one instrument while a strategy scans its column.
type position struct {
	shares decimal.Decimal // signed
	entry  float64
}

func (p position) flat() bool { return p.shares.IsZero() }

// open records a new position and sets the matching intent.
func (p *position) open(in *backtester.Intents, row, col int, long bool, shares decimal.Decimal, price float64) {
	action := backtester.Sell
	p.shares = shares.Neg()
	if long {
		action = backtester.Buy
		p.shares = shares
	}
	p.entry = price
	in.Set(row, col, action, backtester.Q(shares))
}

// close sets the intent that brings the position back to flat.
func (p *position) close(in *backtester.Intents, row, col int) {
	action := backtester.Buy
	if p.shares.IsPositive() {
		action = backtester.Sell
	}
	in.Set(row, col, action, backtester.Q(p.shares.Abs()))
	p.shares = decimal.Zero
}

// allocation returns the number of whole shares capital×risk% buys at price.
func allocation(capital decimal.Decimal, risk, price float64) decimal.Decimal {
	exposure := capital.Mul(decimal.NewFromFloat(risk)).Div(decimal.NewFromInt(100))
	return exposure.Div(decimal.NewFromFloat(price)).Truncate(0)
}

// valid reports whether a price can be traded.
func valid(price float64) bool { return !math.IsNaN(price) && price != 0 }
