package metrics

import (
	"math"
	"sort"

	"github.com/aristath/journal/internal/domain"
)

// EquityPoint is one entry of the chronological equity curve: the running
// total of P&L after the trade dated Date.
type EquityPoint struct {
	Date   string  `json:"date"`
	Equity float64 `json:"equity"`
}

// TradePnL pairs a trade with its computed P&L, used for best/worst trackers.
type TradePnL struct {
	Trade domain.Trade `json:"trade"`
	PnL   float64      `json:"pnl"`
}

// Summary is the aggregate result of a metrics computation over a trade list.
// AvgRR and AvgHoldingHours are nil (not zero) when no valid samples exist,
// so "no data" stays distinguishable from a genuine zero.
type Summary struct {
	TotalTrades     int           `json:"total_trades"`
	Wins            int           `json:"wins"`
	Losses          int           `json:"losses"`
	WinRate         float64       `json:"win_rate"`
	TotalPnL        float64       `json:"total_pnl"`
	AvgRR           *float64      `json:"avg_rr"`
	Best            *TradePnL     `json:"best"`
	Worst           *TradePnL     `json:"worst"`
	Equity          []EquityPoint `json:"equity"`
	AvgHoldingHours *float64      `json:"avg_holding_hours"`
}

// Compute aggregates a collection of trades into a Summary.
//
// Trades are sorted ascending by their date string (stable, so ties keep
// input order) and accumulated in a single forward pass. A trade with
// pnl >= 0 counts as a win, including exact zero. Best/worst trackers only
// move on strict comparison, so the earliest trade in sorted order wins ties.
//
// Risk:reward samples are taken from trades carrying both a stop loss and a
// take profit, with risk = |entry - stop| and reward = |take - entry|;
// zero-risk trades contribute no sample. Holding-hour samples come from
// trades with a parseable exit date; malformed dates are skipped silently.
//
// The input slice is not mutated and the returned Summary shares no state
// with previous invocations.
func Compute(trades []domain.Trade) Summary {
	sorted := make([]domain.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})

	summary := Summary{
		Equity: make([]EquityPoint, 0, len(sorted)),
	}

	var rrSamples []float64
	var holdingSamples []float64
	equity := 0.0

	for _, trade := range sorted {
		pnl := ComputePnL(trade)
		summary.TotalPnL += pnl
		equity += pnl
		summary.Equity = append(summary.Equity, EquityPoint{
			Date:   trade.Date,
			Equity: equity,
		})

		if pnl >= 0 {
			summary.Wins++
		} else {
			summary.Losses++
		}

		if summary.Best == nil || pnl > summary.Best.PnL {
			summary.Best = &TradePnL{Trade: trade, PnL: pnl}
		}
		if summary.Worst == nil || pnl < summary.Worst.PnL {
			summary.Worst = &TradePnL{Trade: trade, PnL: pnl}
		}

		if trade.StopLoss != nil && trade.TakeProfit != nil {
			risk := math.Abs(trade.EntryPrice - *trade.StopLoss)
			reward := math.Abs(*trade.TakeProfit - trade.EntryPrice)
			if risk > 0 {
				rrSamples = append(rrSamples, reward/risk)
			}
		}

		if hours, ok := holdingHours(trade); ok {
			holdingSamples = append(holdingSamples, hours)
		}
	}

	summary.TotalTrades = len(sorted)
	if summary.TotalTrades > 0 {
		summary.WinRate = float64(summary.Wins) / float64(summary.TotalTrades) * 100
	}

	if avg, ok := mean(rrSamples); ok {
		summary.AvgRR = &avg
	}
	if avg, ok := mean(holdingSamples); ok {
		summary.AvgHoldingHours = &avg
	}

	return summary
}

// holdingHours computes the holding duration of a trade in hours.
// Returns ok=false when either timestamp is missing or malformed, or when
// the computed value is not finite.
func holdingHours(trade domain.Trade) (float64, bool) {
	entry, ok := trade.EntryTime()
	if !ok {
		return 0, false
	}
	exit, ok := trade.ExitTime()
	if !ok {
		return 0, false
	}

	hours := exit.Sub(entry).Hours()
	if math.IsNaN(hours) || math.IsInf(hours, 0) {
		return 0, false
	}
	return hours, true
}

// mean returns the arithmetic mean of samples, with ok=false for an empty
// slice so callers can report "no data" instead of zero.
func mean(samples []float64) (float64, bool) {
	if len(samples) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples)), true
}
