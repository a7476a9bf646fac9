package backtester

import "fmt"

// DisposalMethod defines the order in which open lots are matched against an opposite trade.
type DisposalMethod int

const (
	// FIFO (First-In, First-Out) matches the oldest open lot first.
	FIFO DisposalMethod = iota
	// LIFO (Last-In, First-Out) matches the newest open lot first. It is not supported by Ledger.
	LIFO
)

func (m DisposalMethod) String() string {
	switch m {
	case FIFO:
		return "FIFO"
	case LIFO:
		return "LIFO"
	default:
		return "unknown"
	}
}

// ParseDisposalMethod parses a string into a DisposalMethod.
func ParseDisposalMethod(s string) (DisposalMethod, error) {
	switch s {
	case "FIFO", "fifo":
		return FIFO, nil
	case "LIFO", "lifo":
		return LIFO, nil
	default:
		return 0, fmt.Errorf("unknown disposal method: %q", s)
	}
}
