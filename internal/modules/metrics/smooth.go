package metrics

import (
	"github.com/markcheno/go-talib"
)

// SmoothEquity overlays a simple moving average on the running-equity series
// for chart display. Points before the window fills carry nil (no SMA value),
// matching how charting frontends expect leading gaps.
//
// Returns the original points untouched when the window is larger than the
// curve or not at least 2.
func SmoothEquity(equity []EquityPoint, window int) []SmoothedEquityPoint {
	smoothed := make([]SmoothedEquityPoint, len(equity))
	for i, point := range equity {
		smoothed[i] = SmoothedEquityPoint{Date: point.Date, Equity: point.Equity}
	}

	if window < 2 || window > len(equity) {
		return smoothed
	}

	values := make([]float64, len(equity))
	for i, point := range equity {
		values[i] = point.Equity
	}

	sma := talib.Sma(values, window)
	for i := window - 1; i < len(sma); i++ {
		v := sma[i]
		smoothed[i].SMA = &v
	}

	return smoothed
}

// SmoothedEquityPoint is an equity point with an optional SMA overlay value.
type SmoothedEquityPoint struct {
	Date   string   `json:"date"`
	Equity float64  `json:"equity"`
	SMA    *float64 `json:"sma,omitempty"`
}
