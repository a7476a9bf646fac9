package backtester

import (
	"fmt"
	"strconv"
)

// Signal is the per period, per instrument trade direction.
type Signal int

const (
	Short Signal = -1
	Hold  Signal = 0
	Long  Signal = 1
)

func (s Signal) String() string { return strconv.Itoa(int(s)) }

// ParseSignal parses "-1", "0" or "1". An empty string is Hold.
func ParseSignal(s string) (Signal, error) {
	switch s {
	case "", "0", "0.0":
		return Hold, nil
	case "1", "1.0", "+1":
		return Long, nil
	case "-1", "-1.0":
		return Short, nil
	default:
		return Hold, fmt.Errorf("invalid signal %q want -1, 0 or 1", s)
	}
}
