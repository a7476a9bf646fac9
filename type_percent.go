package backtester

import (
	"fmt"
	"math"
)

// Percent is a ratio expressed in percent (12.5 means 12.5%).
type Percent float64

func (p Percent) Equal(q Percent) bool {
	// it has to be compared with some precision
	const precision = 0.0001
	return math.Abs(float64(p-q)) < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.3f%%", float64(p))
}

func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.3f%%", float64(p))
	if res == "+0.000%" {
		return "-"
	}
	return res
}
