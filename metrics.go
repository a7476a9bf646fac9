package backtester

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PeriodsPerYear is the number of trading days used to annualize daily figures.
const PeriodsPerYear = 252

var nan = math.NaN()

// SharpeRatio returns the annualized Sharpe ratio of a series of daily returns, given an
// annual risk-free rate.
//
// NaN returns are skipped. Mean and sample standard deviation are annualized by compounding
// over 252 periods. A zero volatility yields ±Inf (or NaN when the excess return is zero too)
// and fewer than two returns yield NaN: callers must treat those as degenerate values.
func SharpeRatio(returns []float64, riskFree float64) float64 {
	valid := make([]float64, 0, len(returns))
	for _, r := range returns {
		if !math.IsNaN(r) {
			valid = append(valid, r)
		}
	}
	if len(valid) < 2 {
		return nan
	}
	mean, std := stat.MeanStdDev(valid, nil)

	annualReturn := math.Pow(1+mean, PeriodsPerYear) - 1
	annualVolatility := std * math.Sqrt(PeriodsPerYear)

	dailyRiskFree := math.Pow(1+riskFree, 1.0/PeriodsPerYear) - 1
	annualRiskFree := math.Pow(1+dailyRiskFree, PeriodsPerYear) - 1

	return (annualReturn - annualRiskFree) / annualVolatility
}

// MaxDrawdown returns the largest peak to trough decline of levels, in percent.
//
// The result is never positive, and 0 for a non-decreasing series. An empty series returns 0.
func MaxDrawdown(levels []float64) float64 {
	if len(levels) == 0 {
		return 0
	}
	drawdowns := make([]float64, len(levels))
	peak := levels[0]
	for i, v := range levels {
		peak = math.Max(peak, v)
		drawdowns[i] = (v - peak) / peak
	}
	return floats.Min(drawdowns) * 100
}

// Performance holds the summary statistics of a daily backtest.
type Performance struct {
	CumulativeReturn Percent // last cumulative P&L over initial capital
	MaxDrawdown      Percent // of the total value
	SharpeRatio      float64 // of the period returns; may be ±Inf or NaN
}
