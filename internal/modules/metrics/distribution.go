package metrics

import (
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/journal/internal/domain"
)

// Distribution describes the shape of the per-trade P&L distribution.
// ProfitFactor is nil when there are no losing trades (gross loss is zero),
// Expectancy and StdDev are nil for an empty input.
type Distribution struct {
	MeanPnL      *float64 `json:"mean_pnl"`
	StdDevPnL    *float64 `json:"stddev_pnl"`
	GrossProfit  float64  `json:"gross_profit"`
	GrossLoss    float64  `json:"gross_loss"`
	ProfitFactor *float64 `json:"profit_factor"`
}

// ComputeDistribution derives distribution statistics over the per-trade P&L
// series. Gross loss is reported as a positive magnitude.
func ComputeDistribution(trades []domain.Trade) Distribution {
	var dist Distribution
	if len(trades) == 0 {
		return dist
	}

	pnls := make([]float64, 0, len(trades))
	for _, trade := range trades {
		pnl := ComputePnL(trade)
		pnls = append(pnls, pnl)
		if pnl >= 0 {
			dist.GrossProfit += pnl
		} else {
			dist.GrossLoss += -pnl
		}
	}

	meanPnL := stat.Mean(pnls, nil)
	dist.MeanPnL = &meanPnL

	// StdDev needs at least two samples to be meaningful
	if len(pnls) >= 2 {
		stddev := stat.StdDev(pnls, nil)
		dist.StdDevPnL = &stddev
	}

	if dist.GrossLoss > 0 {
		pf := dist.GrossProfit / dist.GrossLoss
		dist.ProfitFactor = &pf
	}

	return dist
}
