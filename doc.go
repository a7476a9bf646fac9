// Package backtester simulates the economic outcome of a trading strategy over historical
// prices.
//
// A strategy describes what it wants to trade as Intents: three matrices (signal, action and
// shares) aligned on the dates and instruments of a PriceTable. The package offers:
//   - Engine: runs the period by period evolution of cash, equity exposure, total value and
//     cumulative P&L, and computes summary Performance for daily backtests.
//   - Ledger: a FIFO lot matching book. Replaying the intents through it produces the
//     auditable trade history of the run, one Lot per open or closed position.
//   - Metrics: SharpeRatio and MaxDrawdown.
//   - Codecs: CSV for price tables, intents, evolution and trade history, and loaders for
//     daily price files.
//
// This package is the foundation of the `bt` command line tool.
package backtester
