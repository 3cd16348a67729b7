package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/journal/internal/domain"
)

func TestMarkToMarket(t *testing.T) {
	trades := []domain.Trade{
		// Open long, quoted
		{ID: "open-long", Instrument: "AAPL", Side: domain.SideBuy, Date: "2024-03-05", EntryPrice: 100, Quantity: 10},
		// Open short, quoted
		{ID: "open-short", Instrument: "TSLA", Side: domain.SideShort, Date: "2024-03-05", EntryPrice: 200, Quantity: 2},
		// Open but no quote available
		{ID: "unquoted", Instrument: "XYZ", Side: domain.SideBuy, Date: "2024-03-05", EntryPrice: 5, Quantity: 1},
		// Closed: never marked to market
		{ID: "closed", Instrument: "AAPL", Side: domain.SideBuy, Date: "2024-03-01", ExitDate: "2024-03-02", EntryPrice: 90, ExitPrice: 95, Quantity: 1},
	}

	quotes := map[string]float64{
		"AAPL": 105,
		"TSLA": 190,
	}

	positions := MarkToMarket(trades, quotes)
	require.Len(t, positions, 2)

	assert.Equal(t, "open-long", positions[0].Trade.ID)
	assert.InDelta(t, 50.0, positions[0].UnrealizedPnL, 1e-9, "(105-100)*+1*10")

	assert.Equal(t, "open-short", positions[1].Trade.ID)
	assert.InDelta(t, 20.0, positions[1].UnrealizedPnL, 1e-9, "(190-200)*-1*2")

	assert.InDelta(t, 70.0, TotalUnrealized(positions), 1e-9)
}

func TestMarkToMarket_Empty(t *testing.T) {
	assert.Empty(t, MarkToMarket(nil, nil))
	assert.Equal(t, 0.0, TotalUnrealized(nil))
}
