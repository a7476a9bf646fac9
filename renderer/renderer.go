// Package renderer renders backtest results as markdown reports and HTML charts.
package renderer

import (
	"fmt"
	"math"

	"github.com/etnz/backtester"
	"github.com/etnz/backtester/date"
)

// Run is one backtest to report on.
type Run struct {
	Result         *backtester.Result
	InitialCapital backtester.Money
	Ledger         *backtester.Ledger // optional, for the trading history
}

// Name returns the name of the run.
func (r Run) Name() string { return r.Result.Name }

// FinalValue returns the total value on the last period.
func (r Run) FinalValue() backtester.Money { return r.Result.Evolution.Last().Total }

// TotalReturn returns the cumulative P&L on the last period.
func (r Run) TotalReturn() backtester.Money { return r.Result.Evolution.Last().CumulativePnL }

// Window returns the first and last dates of the run.
func (r Run) Window() date.Range {
	dates := r.Result.Frame.Dates
	if len(dates) == 0 {
		return date.Range{}
	}
	return date.NewRange(dates[0], dates[len(dates)-1])
}

// ratio formats a float that may be undefined.
func ratio(f float64) string {
	switch {
	case math.IsNaN(f):
		return "n/a"
	case math.IsInf(f, 1):
		return "+inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return fmt.Sprintf("%.3f", f)
}

// percent formats a percentage that may be undefined.
func percent(p backtester.Percent) string {
	if math.IsNaN(float64(p)) {
		return "n/a"
	}
	return p.String()
}
