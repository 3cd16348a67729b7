package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSide(t *testing.T) {
	testCases := []struct {
		input    string
		expected Side
		valid    bool
	}{
		{"Buy", SideBuy, true},
		{"buy", SideBuy, true},
		{"BUY", SideBuy, true},
		{" Long ", SideLong, true},
		{"Sell", SideSell, true},
		{"short", SideShort, true},
		{"hold", "", false},
		{"", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			side, err := ParseSide(tc.input)
			if tc.valid {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, side)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSide_IsLong(t *testing.T) {
	assert.True(t, SideBuy.IsLong())
	assert.True(t, SideLong.IsLong())
	assert.False(t, SideSell.IsLong())
	assert.False(t, SideShort.IsLong())
}

func TestParseTimestamp_DateOnlyIsLocalMidnight(t *testing.T) {
	ts, ok := ParseTimestamp("2024-03-05")
	require.True(t, ok)

	// Must be midnight in the local zone, not UTC. A UTC interpretation would
	// put the instant on the previous calendar day for zones west of Greenwich.
	assert.Equal(t, 2024, ts.Year())
	assert.Equal(t, time.March, ts.Month())
	assert.Equal(t, 5, ts.Day())
	assert.Equal(t, 0, ts.Hour())
	assert.Equal(t, time.Local, ts.Location())
}

func TestParseTimestamp_Formats(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		valid bool
	}{
		{"RFC3339", "2024-03-05T14:30:00Z", true},
		{"RFC3339 with offset", "2024-03-05T14:30:00+02:00", true},
		{"Naive datetime", "2024-03-05T14:30:00", true},
		{"Space separated", "2024-03-05 14:30:00", true},
		{"Minute precision", "2024-03-05T14:30", true},
		{"Empty", "", false},
		{"Garbage", "not-a-date", false},
		{"Bad day", "2024-03-99", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := ParseTimestamp(tc.input)
			assert.Equal(t, tc.valid, ok)
		})
	}
}

func TestTrade_Validate(t *testing.T) {
	valid := Trade{
		Instrument: "AAPL",
		Side:       SideBuy,
		Date:       "2024-03-05",
		EntryPrice: 100,
		ExitPrice:  110,
		Quantity:   10,
	}
	assert.NoError(t, valid.Validate())

	testCases := []struct {
		name   string
		mutate func(*Trade)
	}{
		{"empty instrument", func(tr *Trade) { tr.Instrument = " " }},
		{"unknown side", func(tr *Trade) { tr.Side = "Hold" }},
		{"bad date", func(tr *Trade) { tr.Date = "yesterday" }},
		{"negative entry price", func(tr *Trade) { tr.EntryPrice = -1 }},
		{"negative exit price", func(tr *Trade) { tr.ExitPrice = -1 }},
		{"negative quantity", func(tr *Trade) { tr.Quantity = -1 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := valid
			tc.mutate(&tr)
			assert.Error(t, tr.Validate())
		})
	}

	// Zero quantity and zero prices pass through - validation only rejects
	// negative values, the engine handles zeros arithmetically.
	zero := valid
	zero.Quantity = 0
	zero.EntryPrice = 0
	assert.NoError(t, zero.Validate())
}

func TestTrade_IsOpen(t *testing.T) {
	open := Trade{Instrument: "AAPL", Side: SideBuy, Date: "2024-03-05"}
	assert.True(t, open.IsOpen())

	closed := open
	closed.ExitDate = "2024-03-06"
	assert.False(t, closed.IsOpen())

	exitPriceOnly := open
	exitPriceOnly.ExitPrice = 105
	assert.False(t, exitPriceOnly.IsOpen())
}
