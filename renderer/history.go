package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/backtester"
	md "github.com/nao1215/markdown"
)

// LotsMarkdown renders the lots of a run, typically Ledger.All or the lots of a saved run.
func LotsMarkdown(name string, lots []backtester.Lot) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Trade History for %s", name))
	doc.PlainText(fmt.Sprintf("Trade count: %d", len(lots)))

	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignLeft,
			md.AlignRight,
			md.AlignLeft,
			md.AlignRight,
			md.AlignLeft,
			md.AlignRight,
		},
		Header: []string{"Instrument", "Shares", "Entry", "Entry Price", "Exit", "Exit Price", "Status", "Realized"},
		Rows:   [][]string{},
	}
	for _, lot := range lots {
		exitPrice, realized := "", ""
		if pnl, ok := lot.RealizedPnL(); ok {
			exitPrice = lot.ExitPrice.String()
			realized = pnl.SignedString()
		}
		table.Rows = append(table.Rows, []string{
			lot.Instrument,
			lot.Shares.String(),
			lot.EntryDate.String(),
			lot.EntryPrice.String(),
			lot.ExitDate.String(),
			exitPrice,
			lot.Status.String(),
			realized,
		})
	}
	doc.Table(table)
	return doc.String()
}
