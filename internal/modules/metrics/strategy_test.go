package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/journal/internal/domain"
)

func TestGroupByStrategy(t *testing.T) {
	trades := []domain.Trade{
		{Strategy: "breakout", Side: domain.SideBuy, EntryPrice: 100, ExitPrice: 110, Quantity: 1},
		{Strategy: "breakout", Side: domain.SideBuy, EntryPrice: 100, ExitPrice: 90, Quantity: 1},
		{Strategy: "mean-reversion", Side: domain.SideShort, EntryPrice: 50, ExitPrice: 45, Quantity: 1},
		// Zero P&L counts as a win, same rule as the summary
		{Strategy: "mean-reversion", Side: domain.SideBuy, EntryPrice: 10, ExitPrice: 10, Quantity: 1},
		{Strategy: "", Side: domain.SideBuy, EntryPrice: 1, ExitPrice: 2, Quantity: 1},
		{Strategy: "   ", Side: domain.SideBuy, EntryPrice: 2, ExitPrice: 1, Quantity: 1},
	}

	groups := GroupByStrategy(trades)
	require.Len(t, groups, 3)

	assert.Equal(t, StrategyStats{Wins: 1, Total: 2}, groups["breakout"])
	assert.Equal(t, StrategyStats{Wins: 2, Total: 2}, groups["mean-reversion"])
	assert.Equal(t, StrategyStats{Wins: 1, Total: 2}, groups[NoStrategy])
}

func TestGroupByStrategy_Empty(t *testing.T) {
	assert.Empty(t, GroupByStrategy(nil))
}

func TestStrategyStats_WinRate(t *testing.T) {
	assert.InDelta(t, 50.0, StrategyStats{Wins: 1, Total: 2}.WinRate(), 1e-9)
	assert.Equal(t, 0.0, StrategyStats{}.WinRate(), "empty group reports 0, not NaN")
}
