package backtester

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/etnz/backtester/date"
	"github.com/shopspring/decimal"
)

// Matrices are exchanged as CSV: a "date" column followed by one column per instrument,
// one row per date. An empty cell is a missing value.

func writeMatrix(w io.Writer, f Frame, cell func(i, j int) string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"date"}, f.Instruments...)); err != nil {
		return err
	}
	record := make([]string, len(f.Instruments)+1)
	for i, on := range f.Dates {
		record[0] = on.String()
		for j := range f.Instruments {
			record[j+1] = cell(i, j)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readMatrix(r io.Reader) (Frame, [][]string, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return Frame{}, nil, fmt.Errorf("could not read matrix header: %w", err)
	}
	if len(header) == 0 || header[0] != "date" {
		return Frame{}, nil, fmt.Errorf("invalid matrix header %v: first column must be \"date\"", header)
	}
	var dates []date.Date
	var cells [][]string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Frame{}, nil, err
		}
		on, err := date.Parse(record[0])
		if err != nil {
			return Frame{}, nil, err
		}
		dates = append(dates, on)
		cells = append(cells, record[1:])
	}
	f, err := NewFrame(dates, header[1:])
	return f, cells, err
}

func decimalCell(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func parseDecimalCell(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

// EncodePriceTable writes p as CSV.
func EncodePriceTable(w io.Writer, p *PriceTable) error {
	return writeMatrix(w, p.Frame, func(i, j int) string { return decimalCell(p.Cells[i][j]) })
}

// DecodePriceTable reads a PriceTable written by EncodePriceTable.
func DecodePriceTable(r io.Reader) (*PriceTable, error) {
	f, cells, err := readMatrix(r)
	if err != nil {
		return nil, fmt.Errorf("invalid price table: %w", err)
	}
	p := NewPriceTable(f)
	for i, row := range cells {
		for j, s := range row {
			if p.Cells[i][j], err = parseDecimalCell(s); err != nil {
				return nil, fmt.Errorf("invalid price %q on %s for %s: %w", s, f.Dates[i], f.Instruments[j], err)
			}
		}
	}
	return p, nil
}

// EncodeHoldings writes the cumulative holdings of a Result as CSV.
func EncodeHoldings(w io.Writer, res *Result) error {
	return writeMatrix(w, res.Frame, func(i, j int) string { return res.Holdings[i][j].String() })
}

// EncodeIntents writes the signal, action and shares matrices of in to three writers.
func EncodeIntents(signal, action, shares io.Writer, in *Intents) error {
	if err := writeMatrix(signal, in.Frame, func(i, j int) string { return in.Signal[i][j].String() }); err != nil {
		return fmt.Errorf("could not write signal matrix: %w", err)
	}
	if err := writeMatrix(action, in.Frame, func(i, j int) string { return in.Action[i][j].String() }); err != nil {
		return fmt.Errorf("could not write action matrix: %w", err)
	}
	if err := writeMatrix(shares, in.Frame, func(i, j int) string { return decimalCell(in.Shares[i][j]) }); err != nil {
		return fmt.Errorf("could not write shares matrix: %w", err)
	}
	return nil
}

// DecodeIntents reads the three matrices written by EncodeIntents.
//
// The three matrices must share the same dates and instruments, in the same order.
func DecodeIntents(signal, action, shares io.Reader) (*Intents, error) {
	sf, scells, err := readMatrix(signal)
	if err != nil {
		return nil, fmt.Errorf("invalid signal matrix: %w", err)
	}
	af, acells, err := readMatrix(action)
	if err != nil {
		return nil, fmt.Errorf("invalid action matrix: %w", err)
	}
	qf, qcells, err := readMatrix(shares)
	if err != nil {
		return nil, fmt.Errorf("invalid shares matrix: %w", err)
	}
	for name, f := range map[string]Frame{"action": af, "shares": qf} {
		if len(f.Dates) != len(sf.Dates) || len(f.Instruments) != len(sf.Instruments) {
			return nil, fmt.Errorf("%w: signal is %dx%d, %s is %dx%d", ErrShapeMismatch, len(sf.Dates), len(sf.Instruments), name, len(f.Dates), len(f.Instruments))
		}
		if !slices.Equal(f.Dates, sf.Dates) || !slices.Equal(f.Instruments, sf.Instruments) {
			return nil, fmt.Errorf("%w: %s labels differ from signal labels", ErrShapeMismatch, name)
		}
	}

	in := NewIntents(sf)
	for i, on := range sf.Dates {
		for j, instrument := range sf.Instruments {
			if in.Signal[i][j], err = ParseSignal(scells[i][j]); err != nil {
				return nil, fmt.Errorf("%s %s: %w", on, instrument, err)
			}
			if in.Action[i][j], err = ParseTradeAction(acells[i][j]); err != nil {
				return nil, fmt.Errorf("%s %s: %w", on, instrument, err)
			}
			if in.Shares[i][j], err = parseDecimalCell(qcells[i][j]); err != nil {
				return nil, fmt.Errorf("%s %s: invalid shares %q: %w", on, instrument, qcells[i][j], err)
			}
		}
	}
	return in, nil
}
