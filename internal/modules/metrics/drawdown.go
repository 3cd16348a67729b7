package metrics

// MaxDrawdown walks an equity curve in order and returns the most negative
// decline from a running peak. The result is always <= 0; it is exactly 0 for
// an empty or monotonically non-decreasing curve.
func MaxDrawdown(equity []EquityPoint) float64 {
	if len(equity) == 0 {
		return 0
	}

	peak := equity[0].Equity
	maxDD := 0.0

	for _, point := range equity {
		if point.Equity > peak {
			peak = point.Equity
		}
		dd := point.Equity - peak
		if dd < maxDD {
			maxDD = dd
		}
	}

	return maxDD
}
