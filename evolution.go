package backtester

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/etnz/backtester/date"
)

// Point is the state of the portfolio at the end of one period.
type Point struct {
	Date          date.Date
	Cash          Money
	Equity        Money // mark to market of the cumulative holdings
	Total         Money // Cash + Equity
	CumulativePnL Money // Total - initial capital
	Return        float64
}

// Evolution is the period by period state of a backtest, in ascending date order.
type Evolution []Point

// Totals returns the total value series.
func (e Evolution) Totals() []float64 {
	res := make([]float64, len(e))
	for i, p := range e {
		res[i] = p.Total.AsFloat()
	}
	return res
}

// Returns returns the period return series. The first one is NaN.
func (e Evolution) Returns() []float64 {
	res := make([]float64, len(e))
	for i, p := range e {
		res[i] = p.Return
	}
	return res
}

// Last returns the last point, or the zero Point for an empty evolution.
func (e Evolution) Last() Point {
	if len(e) == 0 {
		return Point{}
	}
	return e[len(e)-1]
}

var evolutionHeader = []string{"date", "cash", "equity_exposure", "total_value", "cumulative_pnl", "period_return"}

// EncodeEvolution writes the evolution as CSV. An undefined return is written as an empty cell.
func EncodeEvolution(w io.Writer, e Evolution) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(evolutionHeader); err != nil {
		return err
	}
	for _, p := range e {
		ret := ""
		if !math.IsNaN(p.Return) {
			ret = strconv.FormatFloat(p.Return, 'g', -1, 64)
		}
		record := []string{
			p.Date.String(),
			p.Cash.Decimal().String(),
			p.Equity.Decimal().String(),
			p.Total.Decimal().String(),
			p.CumulativePnL.Decimal().String(),
			ret,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("could not write evolution on %s: %w", p.Date, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
