package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func curve(values ...float64) []EquityPoint {
	points := make([]EquityPoint, len(values))
	for i, v := range values {
		points[i] = EquityPoint{Equity: v}
	}
	return points
}

func TestMaxDrawdown(t *testing.T) {
	testCases := []struct {
		name     string
		equity   []EquityPoint
		expected float64
	}{
		{"spec scenario", curve(100, 150, 80, 120), -70},
		{"empty curve", nil, 0},
		{"single point", curve(100), 0},
		{"monotonic rise", curve(10, 20, 30), 0},
		{"flat", curve(50, 50, 50), 0},
		{"monotonic fall", curve(100, 60, 10), -90},
		{"recovers past peak", curve(100, 90, 200, 150), -50},
		{"negative territory", curve(-10, -40, -20), -30},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dd := MaxDrawdown(tc.equity)
			assert.InDelta(t, tc.expected, dd, 1e-9)
			assert.LessOrEqual(t, dd, 0.0)
		})
	}
}
