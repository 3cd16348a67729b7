package metrics

import (
	"strings"

	"github.com/aristath/journal/internal/domain"
)

// NoStrategy is the sentinel label under which trades without a strategy are
// grouped. The em dash is stable and cannot collide with a user-entered
// strategy name that survives trimming.
const NoStrategy = "—"

// StrategyStats holds per-strategy win counts.
type StrategyStats struct {
	Wins  int `json:"wins"`
	Total int `json:"total"`
}

// WinRate returns the strategy's win percentage, 0 for an empty group.
func (s StrategyStats) WinRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Total) * 100
}

// GroupByStrategy groups trades by their strategy label. A win is a trade
// with pnl >= 0, identical to the summary computation. The returned map is
// unordered; presentation layers decide sort order.
func GroupByStrategy(trades []domain.Trade) map[string]StrategyStats {
	groups := make(map[string]StrategyStats)
	for _, trade := range trades {
		label := strings.TrimSpace(trade.Strategy)
		if label == "" {
			label = NoStrategy
		}
		stats := groups[label]
		stats.Total++
		if ComputePnL(trade) >= 0 {
			stats.Wins++
		}
		groups[label] = stats
	}
	return groups
}
