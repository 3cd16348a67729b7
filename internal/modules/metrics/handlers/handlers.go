// Package handlers provides HTTP handlers for computed trade metrics.
// Every endpoint reads the journal, computes on the fly, and returns JSON;
// nothing here mutates state.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/metrics"
)

// TradeSource reads the full journal
type TradeSource interface {
	List() ([]domain.Trade, error)
}

// QuoteSource provides last prices for marking open positions to market
type QuoteSource interface {
	Snapshot() map[string]float64
}

// Handler handles metrics HTTP requests
type Handler struct {
	trades TradeSource
	quotes QuoteSource // Optional
	log    zerolog.Logger
}

// NewHandler creates a new metrics handler
func NewHandler(trades TradeSource, quotes QuoteSource, log zerolog.Logger) *Handler {
	return &Handler{
		trades: trades,
		quotes: quotes,
		log:    log.With().Str("handler", "metrics").Logger(),
	}
}

// RegisterRoutes registers all metrics routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/metrics", func(r chi.Router) {
		r.Get("/", h.HandleSummary)
		r.Get("/calendar", h.HandleCalendar)
		r.Get("/weekdays", h.HandleWeekdays)
		r.Get("/strategies", h.HandleStrategies)
		r.Get("/equity", h.HandleEquity)
		r.Get("/distribution", h.HandleDistribution)
		r.Get("/open", h.HandleOpenPositions)
	})
}

// HandleSummary handles GET /api/metrics
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	trades, ok := h.loadTrades(w)
	if !ok {
		return
	}

	summary := metrics.Compute(trades)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"summary":      summary,
			"max_drawdown": metrics.MaxDrawdown(summary.Equity),
		},
		"metadata": h.metadata(len(trades)),
	})
}

// HandleCalendar handles GET /api/metrics/calendar
func (h *Handler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	trades, ok := h.loadTrades(w)
	if !ok {
		return
	}

	days := metrics.AggregateByDay(trades)

	// Days in chronological order for the calendar grid
	keys := metrics.SortedDayKeys(days)
	ordered := make([]map[string]interface{}, 0, len(keys))
	for _, key := range keys {
		day := days[key]
		ordered = append(ordered, map[string]interface{}{
			"day":   key,
			"pnl":   day.PnL,
			"count": day.Count,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     ordered,
		"metadata": h.metadata(len(trades)),
	})
}

// HandleWeekdays handles GET /api/metrics/weekdays
func (h *Handler) HandleWeekdays(w http.ResponseWriter, r *http.Request) {
	trades, ok := h.loadTrades(w)
	if !ok {
		return
	}

	days := metrics.AggregateByDay(trades)
	weekdays := metrics.AggregateByWeekday(days)
	best, worst := metrics.BestWorstWeekday(weekdays)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"weekdays": weekdays,
			"best":     best,
			"worst":    worst,
		},
		"metadata": h.metadata(len(trades)),
	})
}

// HandleStrategies handles GET /api/metrics/strategies
func (h *Handler) HandleStrategies(w http.ResponseWriter, r *http.Request) {
	trades, ok := h.loadTrades(w)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     metrics.GroupByStrategy(trades),
		"metadata": h.metadata(len(trades)),
	})
}

// HandleEquity handles GET /api/metrics/equity?sma=N
func (h *Handler) HandleEquity(w http.ResponseWriter, r *http.Request) {
	trades, ok := h.loadTrades(w)
	if !ok {
		return
	}

	summary := metrics.Compute(trades)

	window := 0
	if raw := r.URL.Query().Get("sma"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "sma must be a positive integer", http.StatusBadRequest)
			return
		}
		window = parsed
	}

	var data interface{}
	if window > 0 {
		data = metrics.SmoothEquity(summary.Equity, window)
	} else {
		data = summary.Equity
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     data,
		"metadata": h.metadata(len(trades)),
	})
}

// HandleDistribution handles GET /api/metrics/distribution
func (h *Handler) HandleDistribution(w http.ResponseWriter, r *http.Request) {
	trades, ok := h.loadTrades(w)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     metrics.ComputeDistribution(trades),
		"metadata": h.metadata(len(trades)),
	})
}

// HandleOpenPositions handles GET /api/metrics/open
func (h *Handler) HandleOpenPositions(w http.ResponseWriter, r *http.Request) {
	trades, ok := h.loadTrades(w)
	if !ok {
		return
	}

	var quotes map[string]float64
	if h.quotes != nil {
		quotes = h.quotes.Snapshot()
	}

	positions := metrics.MarkToMarket(trades, quotes)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"positions":        positions,
			"total_unrealized": metrics.TotalUnrealized(positions),
		},
		"metadata": h.metadata(len(trades)),
	})
}

// loadTrades reads the journal, writing a 500 on failure
func (h *Handler) loadTrades(w http.ResponseWriter) ([]domain.Trade, bool) {
	trades, err := h.trades.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load trades")
		http.Error(w, "Failed to load trades", http.StatusInternalServerError)
		return nil, false
	}
	return trades, true
}

func (h *Handler) metadata(tradeCount int) map[string]interface{} {
	return map[string]interface{}{
		"trades":    tradeCount,
		"timestamp": time.Now().Format(time.RFC3339),
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
