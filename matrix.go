package backtester

import (
	"errors"
	"fmt"
	"slices"

	"github.com/etnz/backtester/date"
	"github.com/shopspring/decimal"
)

// Frame is the shape of a trade matrix: ascending dates by ordered instruments.
type Frame struct {
	Dates       []date.Date
	Instruments []string
}

// NewFrame returns a Frame after checking that dates are strictly ascending and instruments unique.
func NewFrame(dates []date.Date, instruments []string) (Frame, error) {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return Frame{}, fmt.Errorf("dates are not strictly ascending at %s", dates[i])
		}
	}
	seen := make(map[string]struct{}, len(instruments))
	for _, instrument := range instruments {
		if _, dup := seen[instrument]; dup {
			return Frame{}, fmt.Errorf("duplicate instrument %q", instrument)
		}
		seen[instrument] = struct{}{}
	}
	return Frame{Dates: slices.Clone(dates), Instruments: slices.Clone(instruments)}, nil
}

// Shape returns the number of rows (dates) and columns (instruments).
func (f Frame) Shape() (rows, cols int) { return len(f.Dates), len(f.Instruments) }

// Column returns the column index of an instrument.
func (f Frame) Column(instrument string) (int, error) {
	if i := slices.Index(f.Instruments, instrument); i >= 0 {
		return i, nil
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownInstrument, instrument)
}

// sameShape checks that g has the same dimensions and labels as f.
func (f Frame) sameShape(g Frame, what string) error {
	fr, fc := f.Shape()
	gr, gc := g.Shape()
	if fr != gr || fc != gc {
		return fmt.Errorf("%w: prices are %dx%d, %s are %dx%d", ErrShapeMismatch, fr, fc, what, gr, gc)
	}
	if !slices.Equal(f.Dates, g.Dates) {
		return fmt.Errorf("%w: %s dates differ from price dates", ErrShapeMismatch, what)
	}
	if !slices.Equal(f.Instruments, g.Instruments) {
		return fmt.Errorf("%w: %s instruments %v differ from price instruments %v", ErrShapeMismatch, what, g.Instruments, f.Instruments)
	}
	return nil
}

// PriceTable holds one price per date and instrument. A missing cell means "no data yet".
type PriceTable struct {
	Frame
	Cells [][]decimal.NullDecimal // [row][col]
}

// NewPriceTable returns an empty PriceTable of shape f.
func NewPriceTable(f Frame) *PriceTable {
	rows, cols := f.Shape()
	p := &PriceTable{Frame: f, Cells: make([][]decimal.NullDecimal, rows)}
	for i := range p.Cells {
		p.Cells[i] = make([]decimal.NullDecimal, cols)
	}
	return p
}

// Set sets the price of a cell.
func (p *PriceTable) Set(row, col int, price decimal.Decimal) {
	p.Cells[row][col] = decimal.NullDecimal{Decimal: price, Valid: true}
}

// Price returns the price of a cell, zero when missing.
func (p *PriceTable) Price(row, col int) decimal.Decimal { return p.Cells[row][col].Decimal }

// Closes returns the column of an instrument as floats, NaN when missing. Indicators use it.
func (p *PriceTable) Closes(instrument string) ([]float64, error) {
	col, err := p.Column(instrument)
	if err != nil {
		return nil, err
	}
	res := make([]float64, len(p.Cells))
	for i, row := range p.Cells {
		if !row[col].Valid {
			res[i] = nan
			continue
		}
		res[i] = row[col].Decimal.InexactFloat64()
	}
	return res, nil
}

// check validates the internal dimensions of the table.
func (p *PriceTable) check() error {
	rows, cols := p.Shape()
	if len(p.Cells) != rows {
		return fmt.Errorf("%w: prices have %d rows for %d dates", ErrShapeMismatch, len(p.Cells), rows)
	}
	for i, row := range p.Cells {
		if len(row) != cols {
			return fmt.Errorf("%w: prices row %d has %d columns for %d instruments", ErrShapeMismatch, i, len(row), cols)
		}
	}
	return nil
}

// Intents holds the three trade matrices a strategy produces: signal, action and shares.
//
// A missing share cell on a closing shortcut means "infer from the open exposure".
type Intents struct {
	Frame
	Signal [][]Signal
	Action [][]TradeAction
	Shares [][]decimal.NullDecimal
}

// NewIntents returns Intents of shape f where every cell is Hold / None / missing.
func NewIntents(f Frame) *Intents {
	rows, cols := f.Shape()
	in := &Intents{
		Frame:  f,
		Signal: make([][]Signal, rows),
		Action: make([][]TradeAction, rows),
		Shares: make([][]decimal.NullDecimal, rows),
	}
	for i := range rows {
		in.Signal[i] = make([]Signal, cols)
		in.Action[i] = make([]TradeAction, cols)
		in.Shares[i] = make([]decimal.NullDecimal, cols)
	}
	return in
}

// Set sets the trade of a cell: the signal follows the action class.
func (in *Intents) Set(row, col int, action TradeAction, shares Quantity) {
	in.Signal[row][col] = action.Signal()
	in.Action[row][col] = action
	in.Shares[row][col] = decimal.NullDecimal{Decimal: shares.value, Valid: true}
}

// SetInferred sets a closing shortcut whose share count is inferred from the open exposure.
func (in *Intents) SetInferred(row, col int, action TradeAction) {
	in.Signal[row][col] = action.Signal()
	in.Action[row][col] = action
	in.Shares[row][col] = decimal.NullDecimal{}
}

// Clone returns a deep copy of in.
func (in *Intents) Clone() *Intents {
	out := &Intents{Frame: in.Frame}
	for i := range in.Signal {
		out.Signal = append(out.Signal, slices.Clone(in.Signal[i]))
		out.Action = append(out.Action, slices.Clone(in.Action[i]))
		out.Shares = append(out.Shares, slices.Clone(in.Shares[i]))
	}
	return out
}

// Trades returns the number of cells with an action.
func (in *Intents) Trades() int {
	n := 0
	for _, row := range in.Action {
		for _, a := range row {
			if a != None {
				n++
			}
		}
	}
	return n
}

// check validates the internal dimensions of the three matrices.
func (in *Intents) check() error {
	rows, cols := in.Shape()
	for name, n := range map[string]int{"signal": len(in.Signal), "action": len(in.Action), "shares": len(in.Shares)} {
		if n != rows {
			return fmt.Errorf("%w: %s has %d rows for %d dates", ErrShapeMismatch, name, n, rows)
		}
	}
	for i := range rows {
		if len(in.Signal[i]) != cols || len(in.Action[i]) != cols || len(in.Shares[i]) != cols {
			return fmt.Errorf("%w: row %d of signal/action/shares has %d/%d/%d columns for %d instruments",
				ErrShapeMismatch, i, len(in.Signal[i]), len(in.Action[i]), len(in.Shares[i]), cols)
		}
	}
	return nil
}

// validate checks every cell of the intents for consistency between signal, action and shares.
// All failures are reported at once.
func (in *Intents) validate() error {
	var errs []error
	for i, on := range in.Dates {
		for j, instrument := range in.Instruments {
			signal, action, shares := in.Signal[i][j], in.Action[i][j], in.Shares[i][j]
			if signal < Short || signal > Long {
				errs = append(errs, fmt.Errorf("%s %s: %w: signal %d", on, instrument, ErrInconsistentIntent, signal))
				continue
			}
			if shares.Valid && shares.Decimal.IsNegative() {
				errs = append(errs, fmt.Errorf("%s %s: %w: %s", on, instrument, ErrNegativeShares, shares.Decimal))
				continue
			}
			switch {
			case action == None:
				if signal != Hold && shares.Valid && !shares.Decimal.IsZero() {
					errs = append(errs, fmt.Errorf("%s %s: %w: signal %v with %s shares and no action", on, instrument, ErrInconsistentIntent, signal, shares.Decimal))
				}
			case signal != action.Signal():
				errs = append(errs, fmt.Errorf("%s %s: %w: signal %v for %v", on, instrument, ErrInconsistentIntent, signal, action))
			case !shares.Valid:
				if _, ok := action.closingFraction(); !ok {
					errs = append(errs, fmt.Errorf("%s %s: %w: %v requires an explicit share count", on, instrument, ErrInconsistentIntent, action))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// resolved returns a copy of in where every inferred share cell holds the magnitude it
// resolves to, given the net holdings accumulated by the previous rows.
func (in *Intents) resolved() *Intents {
	out := in.Clone()
	rows, cols := in.Shape()
	for j := range cols {
		var net decimal.Decimal
		for i := range rows {
			action, shares := out.Action[i][j], out.Shares[i][j]
			if action != None && !shares.Valid {
				if f, ok := action.closingFraction(); ok {
					exposure := decimal.Max(net, decimal.Zero) // open long
					if action.IsBuy() {
						exposure = decimal.Max(net.Neg(), decimal.Zero) // open short
					}
					out.Shares[i][j] = decimal.NullDecimal{Decimal: f.of(Quantity{value: exposure}).value, Valid: true}
				}
			}
			if s := out.Shares[i][j]; s.Valid {
				net = net.Add(s.Decimal.Mul(decimal.NewFromInt(int64(out.Signal[i][j]))))
			}
		}
	}
	return out
}
