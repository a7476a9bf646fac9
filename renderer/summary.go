package renderer

import (
	"bytes"
	"fmt"

	md "github.com/nao1215/markdown"
)

// SummaryMarkdown renders the trading history, portfolio value and performance of a run.
func SummaryMarkdown(r Run) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(r.Name())
	window := r.Window()
	doc.PlainText(fmt.Sprintf("From %s to %s, %d periods.", window.From, window.To, len(r.Result.Evolution)))

	if r.Ledger != nil {
		s := r.Ledger.Summary()
		doc.H2("Trading History")
		doc.Table(md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
			Header:    []string{"Lots", "Count"},
			Rows: [][]string{
				{"Trades", fmt.Sprint(s.Trades)},
				{"Open", fmt.Sprint(s.Open)},
				{"Closed", fmt.Sprint(s.Closed)},
				{"Realized P&L", s.Realized.SignedString()},
			},
		})
	}

	valueTable(doc, r)
	performanceTable(doc, r)
	return doc.String()
}

// Benchmark is the run of the index ETF a universe is compared to.
type Benchmark struct {
	Run
	Strategy  string // name of the benchmark strategy
	ETF       string
	OutputDir string // where outputs were written, if any
}

// BenchmarkMarkdown renders the benchmark block printed before the strategies.
func BenchmarkMarkdown(b Benchmark) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Benchmark Performance")
	window := b.Window()
	rows := [][]string{
		{"Start Date", window.From.String()},
		{"End Date", window.To.String()},
	}
	if b.OutputDir != "" {
		rows = append(rows, []string{"Output", md.Code(b.OutputDir)})
	}
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft},
		Header:    []string{"Benchmark", fmt.Sprintf("%s on %s", b.Strategy, b.ETF)},
		Rows:      rows,
	})

	valueTable(doc, b.Run)
	performanceTable(doc, b.Run)
	return doc.String()
}

// ComparisonMarkdown renders one row per run, to compare strategies side by side.
func ComparisonMarkdown(runs ...Run) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Backtester Summary")
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight},
		Header:    []string{"Strategy", "Total Return", "Cumulative Return", "Sharpe Ratio", "Max Drawdown"},
		Rows:      [][]string{},
	}
	for _, r := range runs {
		row := []string{r.Name(), r.TotalReturn().SignedString(), "", "", ""}
		if p := r.Result.Performance; p != nil {
			row[2] = percent(p.CumulativeReturn)
			row[3] = ratio(p.SharpeRatio)
			row[4] = percent(p.MaxDrawdown)
		}
		table.Rows = append(table.Rows, row)
	}
	doc.Table(table)
	return doc.String()
}

func valueTable(doc *md.Markdown, r Run) {
	doc.H2("Portfolio Value")
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{"Initial Value", r.InitialCapital.String()},
		Rows: [][]string{
			{"Final Value", r.FinalValue().String()},
			{"Total Return", r.TotalReturn().SignedString()},
		},
	})
}

func performanceTable(doc *md.Markdown, r Run) {
	p := r.Result.Performance
	if p == nil {
		return
	}
	doc.H2("Performance")
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{"Cumulative Return", percent(p.CumulativeReturn)},
		Rows: [][]string{
			{"Sharpe Ratio", ratio(p.SharpeRatio)},
			{"Max Drawdown", percent(p.MaxDrawdown)},
		},
	})
}
