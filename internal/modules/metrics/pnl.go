// Package metrics implements the trade metrics engine: pure, stateless
// functions that turn a list of journal trades into profit/loss figures,
// win/loss statistics, equity curves and calendar aggregates.
//
// Every function in this package is total over finite numeric input, holds no
// state between invocations, and is safe to call from any goroutine as long
// as the input slice is not concurrently mutated.
package metrics

import (
	"github.com/aristath/journal/internal/domain"
)

// Direction returns the P&L multiplier for a trade side: +1 for the long
// direction (Buy/Long), -1 for the short direction (Sell/Short).
//
// Any other value also maps to -1. This keeps the function total; input
// boundaries (repository validation, spreadsheet import) reject unknown sides
// before they reach the engine, so the fallback is unreachable for stored
// data.
func Direction(side domain.Side) float64 {
	if side.IsLong() {
		return 1
	}
	return -1
}

// ComputePnL calculates the signed profit/loss of a single trade:
//
//	(exitPrice - entryPrice) * direction * quantity
//
// The result is a pure function of (side, entryPrice, exitPrice, quantity);
// it never depends on other trades or on wall-clock time. No rounding is
// applied - display-time rounding is the caller's concern. NaN or Infinity
// inputs propagate arithmetically without panicking.
func ComputePnL(trade domain.Trade) float64 {
	return (trade.ExitPrice - trade.EntryPrice) * Direction(trade.Side) * trade.Quantity
}
