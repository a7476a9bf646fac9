package backtester

import (
	"fmt"
	"strings"
)

// Timeframe is the granularity of the periods of a backtest.
type Timeframe int

const (
	Daily Timeframe = iota
	Weekly
	Monthly
	OneMinute
	FiveMinute
)

func (t Timeframe) String() string {
	switch t {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case OneMinute:
		return "1-min"
	case FiveMinute:
		return "5-min"
	default:
		return "unknown"
	}
}

// Days returns the number of calendar days between two periods.
// Intraday timeframes have no such length and return false.
func (t Timeframe) Days() (int, bool) {
	switch t {
	case Daily:
		return 1, true
	case Weekly:
		return 7, true
	case Monthly:
		return 30, true
	default:
		return 0, false
	}
}

// ParseTimeframe parses a string into a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day":
		return Daily, nil
	case "weekly", "week":
		return Weekly, nil
	case "monthly", "month":
		return Monthly, nil
	case "1-min":
		return OneMinute, nil
	case "5-min":
		return FiveMinute, nil
	default:
		return Daily, fmt.Errorf("unknown timeframe %q", s)
	}
}
