package metrics

import (
	"github.com/aristath/journal/internal/domain"
)

// OpenPosition is the mark-to-market view of a still-open trade.
type OpenPosition struct {
	Trade         domain.Trade `json:"trade"`
	MarkPrice     float64      `json:"mark_price"`
	UnrealizedPnL float64      `json:"unrealized_pnl"`
}

// MarkToMarket computes unrealized P&L for open trades against a map of
// current reference prices keyed by instrument. Trades that are closed, or
// open trades without a quote, are skipped. Quote keys are matched verbatim;
// callers normalize instrument casing if needed.
func MarkToMarket(trades []domain.Trade, quotes map[string]float64) []OpenPosition {
	var positions []OpenPosition
	for _, trade := range trades {
		if !trade.IsOpen() {
			continue
		}
		price, ok := quotes[trade.Instrument]
		if !ok {
			continue
		}
		positions = append(positions, OpenPosition{
			Trade:         trade,
			MarkPrice:     price,
			UnrealizedPnL: (price - trade.EntryPrice) * Direction(trade.Side) * trade.Quantity,
		})
	}
	return positions
}

// TotalUnrealized sums the unrealized P&L across open positions.
func TotalUnrealized(positions []OpenPosition) float64 {
	total := 0.0
	for _, p := range positions {
		total += p.UnrealizedPnL
	}
	return total
}
