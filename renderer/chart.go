package renderer

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// EquityChart writes an HTML page with the total value of each run over time.
//
// Runs may cover different dates: the x axis is the dates of the first run, and a run
// without a value on one of them shows a gap.
func EquityChart(w io.Writer, runs ...Run) error {
	if len(runs) == 0 {
		return fmt.Errorf("no run to chart")
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Backtest", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Portfolio Value", Subtitle: fmt.Sprintf("%s to %s", runs[0].Window().From, runs[0].Window().To)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	axis := runs[0].Result.Frame.Dates
	xAxis := make([]string, len(axis))
	for i, on := range axis {
		xAxis[i] = on.String()
	}
	line.SetXAxis(xAxis)

	for _, r := range runs {
		totals := make(map[string]float64, len(r.Result.Evolution))
		for _, p := range r.Result.Evolution {
			totals[p.Date.String()] = p.Total.AsFloat()
		}
		data := make([]opts.LineData, len(xAxis))
		for i, on := range xAxis {
			v, ok := totals[on]
			if !ok || math.IsNaN(v) {
				data[i] = opts.LineData{Value: nil}
				continue
			}
			data[i] = opts.LineData{Value: math.Round(v*100) / 100}
		}
		line.AddSeries(r.Name(), data)
	}
	return line.Render(w)
}
