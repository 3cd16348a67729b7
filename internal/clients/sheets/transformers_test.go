package sheets

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/journal/internal/domain"
)

func TestParseLenientFloat(t *testing.T) {
	testCases := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{"123.45", 123.45, true},
		{"$1,234.50", 1234.50, true},
		{"€ 99", 99, true},
		{"£2,000", 2000, true},
		{"12.5%", 12.5, true},
		{"-50", -50, true},
		{"(50)", -50, true},
		{"($1,000.25)", -1000.25, true},
		{"  42  ", 42, true},
		{"0", 0, true},
		{"", 0, false},
		{"n/a", 0, false},
		{"--", 0, false},
		{"1.2.3", 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			v, ok := ParseLenientFloat(tc.input)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.InDelta(t, tc.expected, v, 1e-9)
			}
		})
	}
}

func testLog() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func TestTransformRows(t *testing.T) {
	records := [][]string{
		{"Date", "Symbol", "Side", "Entry Price", "Exit Price", "Qty", "Stop Loss", "Take Profit", "Strategy"},
		{"2024-03-05", "AAPL", "Buy", "$100.00", "$110.00", "10", "95", "115", "breakout"},
		{"2024-03-06", "TSLA", "short", "200", "190", "2", "", "", ""},
	}

	trades := TransformRows(records, testLog())
	require.Len(t, trades, 2)

	first := trades[0]
	assert.Equal(t, "AAPL", first.Instrument)
	assert.Equal(t, domain.SideBuy, first.Side)
	assert.Equal(t, 100.0, first.EntryPrice)
	assert.Equal(t, 110.0, first.ExitPrice)
	assert.Equal(t, 10.0, first.Quantity)
	require.NotNil(t, first.StopLoss)
	assert.Equal(t, 95.0, *first.StopLoss)
	require.NotNil(t, first.TakeProfit)
	assert.Equal(t, 115.0, *first.TakeProfit)
	assert.Equal(t, "breakout", first.Strategy)

	second := trades[1]
	assert.Equal(t, domain.SideShort, second.Side)
	assert.Nil(t, second.StopLoss, "missing optional cells stay nil")
}

func TestTransformRows_HeaderAliases(t *testing.T) {
	records := [][]string{
		{"Open Date", "Ticker", "Direction", "Entry", "Exit", "Size"},
		{"2024-03-05", "EURUSD", "Long", "1.0850", "1.0900", "10000"},
	}

	trades := TransformRows(records, testLog())
	require.Len(t, trades, 1)
	assert.Equal(t, "EURUSD", trades[0].Instrument)
	assert.Equal(t, domain.SideLong, trades[0].Side)
	assert.InDelta(t, 1.0850, trades[0].EntryPrice, 1e-9)
}

func TestTransformRows_SkipsBadRows(t *testing.T) {
	records := [][]string{
		{"Date", "Symbol", "Side", "Entry Price", "Exit Price", "Qty"},
		{"2024-03-05", "AAPL", "Buy", "100", "110", "10"},
		// Unknown side: skipped, not defaulted to short
		{"2024-03-06", "TSLA", "Hold", "200", "190", "2"},
		// Unparseable entry date: skipped
		{"whenever", "MSFT", "Buy", "300", "310", "1"},
		// Short row: missing cells read as empty
		{"2024-03-07", "NVDA", "Sell"},
	}

	trades := TransformRows(records, testLog())
	require.Len(t, trades, 2)
	assert.Equal(t, "AAPL", trades[0].Instrument)
	assert.Equal(t, "NVDA", trades[1].Instrument)
	assert.Equal(t, 0.0, trades[1].EntryPrice, "missing price defaults to 0")
}

func TestTransformRows_EmptyAndHeaderOnly(t *testing.T) {
	assert.Nil(t, TransformRows(nil, testLog()))
	assert.Nil(t, TransformRows([][]string{{"Date", "Symbol"}}, testLog()))
}
