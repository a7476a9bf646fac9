package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/backtester"
	"github.com/etnz/backtester/store"
	"github.com/etnz/backtester/universe"
	md "github.com/nao1215/markdown"
)

// RunsMarkdown renders the list of saved runs.
func RunsMarkdown(runs []store.RunModel) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Saved Runs")
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight},
		Header:    []string{"ID", "Name", "Universe", "Window", "Final Value", "Sharpe Ratio", "Trades"},
		Rows:      [][]string{},
	}
	for _, r := range runs {
		sharpe := "n/a"
		if r.SharpeRatio != nil {
			sharpe = ratio(*r.SharpeRatio)
		}
		table.Rows = append(table.Rows, []string{
			md.Code(r.ID),
			r.Name,
			r.Universe,
			fmt.Sprintf("%s to %s", r.From, r.To),
			backtester.M(r.FinalValue, r.Currency).String(),
			sharpe,
			fmt.Sprint(r.Trades),
		})
	}
	doc.Table(table)
	return doc.String()
}

// IndexesMarkdown renders the known indexes and the ETF each one is benchmarked against.
func IndexesMarkdown() string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Indexes")
	table := md.TableSet{
		Header: []string{"Index", "Benchmark ETF"},
		Rows:   [][]string{},
	}
	for _, index := range universe.Indexes() {
		etf, err := universe.BenchmarkETF(index)
		if err != nil {
			etf = "?"
		}
		table.Rows = append(table.Rows, []string{index, etf})
	}
	doc.Table(table)
	return doc.String()
}
