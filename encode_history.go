package backtester

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/etnz/backtester/date"
	"github.com/shopspring/decimal"
)

// This file persists the trade history of a Ledger as CSV: one row per lot, open or closed.
// Undefined fields (exit of an open lot, its realized P&L) are written as empty cells.

var tradeHistoryHeader = []string{"instrument", "signed_shares", "entry_date", "entry_price", "exit_date", "exit_price", "status", "realized_pnl"}

// EncodeTradeHistory writes every lot of l as CSV.
func EncodeTradeHistory(w io.Writer, l *Ledger) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHistoryHeader); err != nil {
		return err
	}
	for _, lot := range l.All() {
		exitPrice, pnlCell := "", ""
		if pnl, ok := lot.RealizedPnL(); ok {
			exitPrice = lot.ExitPrice.Decimal().String()
			pnlCell = pnl.Decimal().String()
		}
		record := []string{
			lot.Instrument,
			lot.Shares.String(),
			lot.EntryDate.String(),
			lot.EntryPrice.Decimal().String(),
			lot.ExitDate.String(),
			exitPrice,
			lot.Status.String(),
			pnlCell,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("could not write lot %v: %w", lot, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// DecodeTradeHistory reads lots written by EncodeTradeHistory, in file order.
// The realized P&L column is recomputed, not read.
func DecodeTradeHistory(r io.Reader) ([]Lot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(tradeHistoryHeader)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("could not read trade history header: %w", err)
	}
	for i, h := range tradeHistoryHeader {
		if header[i] != h {
			return nil, fmt.Errorf("invalid trade history header column %d: got %q want %q", i, header[i], h)
		}
	}

	var lots []Lot
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return lots, nil
		}
		if err != nil {
			return nil, err
		}
		lot, err := decodeLot(record)
		if err != nil {
			return nil, fmt.Errorf("trade history line %d: %w", line, err)
		}
		lots = append(lots, lot)
	}
}

func decodeLot(record []string) (Lot, error) {
	var lot Lot
	var err error
	lot.Instrument = record[0]
	shares, err := decimal.NewFromString(record[1])
	if err != nil {
		return lot, fmt.Errorf("invalid signed_shares %q: %w", record[1], err)
	}
	if shares.IsZero() {
		return lot, fmt.Errorf("invalid signed_shares %q: a lot cannot be empty", record[1])
	}
	lot.Shares = Q(shares)
	if lot.EntryDate, err = date.Parse(record[2]); err != nil {
		return lot, err
	}
	entry, err := decimal.NewFromString(record[3])
	if err != nil {
		return lot, fmt.Errorf("invalid entry_price %q: %w", record[3], err)
	}
	lot.EntryPrice = M(entry, DefaultCurrency)
	if lot.Status, err = ParseLotStatus(record[6]); err != nil {
		return lot, err
	}
	if lot.Status == Open {
		return lot, nil
	}
	if lot.ExitDate, err = date.Parse(record[4]); err != nil {
		return lot, fmt.Errorf("closed lot: %w", err)
	}
	exit, err := decimal.NewFromString(record[5])
	if err != nil {
		return lot, fmt.Errorf("closed lot: invalid exit_price %q: %w", record[5], err)
	}
	lot.ExitPrice = M(exit, DefaultCurrency)
	return lot, nil
}
