package backtester

import "errors"

var (
	// ErrUnsupportedDisposal is returned when a Ledger is built with another method than FIFO.
	ErrUnsupportedDisposal = errors.New("unsupported disposal method")
	// ErrUnsupportedTimeframe is returned for a timeframe the engine cannot run.
	ErrUnsupportedTimeframe = errors.New("unsupported timeframe")
	// ErrShapeMismatch is returned when price and intent matrices disagree on dates or instruments.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrNegativeShares is returned for an explicit negative share count.
	ErrNegativeShares = errors.New("negative share count")
	// ErrInconsistentIntent is returned when a signal contradicts its action.
	ErrInconsistentIntent = errors.New("inconsistent trade intent")
	// ErrUnknownInstrument is returned when an instrument is not part of a table.
	ErrUnknownInstrument = errors.New("unknown instrument")
)
