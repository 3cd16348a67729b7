package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/journal/internal/domain"
)

type fakeTrades struct {
	trades []domain.Trade
	err    error
}

func (f *fakeTrades) List() ([]domain.Trade, error) {
	return f.trades, f.err
}

type fakeQuotes struct {
	quotes map[string]float64
}

func (f *fakeQuotes) Snapshot() map[string]float64 {
	return f.quotes
}

func testTrades() []domain.Trade {
	return []domain.Trade{
		{ID: "a", Date: "2024-03-05", ExitDate: "2024-03-05", Instrument: "AAPL", Side: domain.SideBuy, EntryPrice: 100, ExitPrice: 110, Quantity: 10, Strategy: "breakout"},
		{ID: "b", Date: "2024-03-06", ExitDate: "2024-03-06", Instrument: "TSLA", Side: domain.SideShort, EntryPrice: 200, ExitPrice: 210, Quantity: 2},
		{ID: "c", Date: "2024-03-07", Instrument: "NVDA", Side: domain.SideLong, EntryPrice: 800, Quantity: 1},
	}
}

func newTestRouter(trades *fakeTrades, quotes *fakeQuotes) http.Handler {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	var q QuoteSource
	if quotes != nil {
		q = quotes
	}
	handler := NewHandler(trades, q, log)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return r
}

func doGet(t *testing.T, router http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body map[string]interface{}
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHandleSummary(t *testing.T) {
	router := newTestRouter(&fakeTrades{trades: testTrades()}, nil)

	rec, body := doGet(t, router, "/api/metrics/")
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	summary := data["summary"].(map[string]interface{})
	assert.Equal(t, float64(3), summary["total_trades"])
	// +100, -20, and the open trade at its zero exit: (0-800)*1*1
	assert.Equal(t, -720.0, summary["total_pnl"])
	assert.Equal(t, float64(1), summary["wins"])
	assert.Equal(t, float64(2), summary["losses"])
	assert.LessOrEqual(t, data["max_drawdown"].(float64), 0.0)
}

func TestHandleSummary_RepositoryError(t *testing.T) {
	router := newTestRouter(&fakeTrades{err: errors.New("db closed")}, nil)

	rec, _ := doGet(t, router, "/api/metrics/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleCalendar(t *testing.T) {
	router := newTestRouter(&fakeTrades{trades: testTrades()}, nil)

	rec, body := doGet(t, router, "/api/metrics/calendar")
	require.Equal(t, http.StatusOK, rec.Code)

	days := body["data"].([]interface{})
	require.Len(t, days, 3)

	// Chronological order
	first := days[0].(map[string]interface{})
	assert.Equal(t, "2024-03-05", first["day"])
	assert.Equal(t, 100.0, first["pnl"])
}

func TestHandleWeekdays(t *testing.T) {
	router := newTestRouter(&fakeTrades{trades: testTrades()}, nil)

	rec, body := doGet(t, router, "/api/metrics/weekdays")
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	weekdays := data["weekdays"].([]interface{})
	assert.Len(t, weekdays, 7)

	// 2024-03-05 was a Tuesday (+100): best weekday
	assert.Equal(t, float64(2), data["best"])
}

func TestHandleStrategies(t *testing.T) {
	router := newTestRouter(&fakeTrades{trades: testTrades()}, nil)

	rec, body := doGet(t, router, "/api/metrics/strategies")
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	require.Contains(t, data, "breakout")
	require.Contains(t, data, "—", "untagged trades fall into the placeholder bucket")
}

func TestHandleEquity(t *testing.T) {
	router := newTestRouter(&fakeTrades{trades: testTrades()}, nil)

	rec, body := doGet(t, router, "/api/metrics/equity")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"].([]interface{}), 3)
}

func TestHandleEquity_WithSMA(t *testing.T) {
	router := newTestRouter(&fakeTrades{trades: testTrades()}, nil)

	rec, body := doGet(t, router, "/api/metrics/equity?sma=2")
	require.Equal(t, http.StatusOK, rec.Code)

	points := body["data"].([]interface{})
	require.Len(t, points, 3)
	first := points[0].(map[string]interface{})
	assert.Nil(t, first["sma"], "first point has no full window yet")
}

func TestHandleEquity_BadSMA(t *testing.T) {
	router := newTestRouter(&fakeTrades{trades: testTrades()}, nil)

	for _, q := range []string{"sma=0", "sma=-3", "sma=abc"} {
		rec, _ := doGet(t, router, "/api/metrics/equity?"+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestHandleDistribution(t *testing.T) {
	router := newTestRouter(&fakeTrades{trades: testTrades()}, nil)

	rec, body := doGet(t, router, "/api/metrics/distribution")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["data"].(map[string]interface{}), "mean_pnl")
}

func TestHandleOpenPositions(t *testing.T) {
	quotes := &fakeQuotes{quotes: map[string]float64{"NVDA": 850}}
	router := newTestRouter(&fakeTrades{trades: testTrades()}, quotes)

	rec, body := doGet(t, router, "/api/metrics/open")
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	positions := data["positions"].([]interface{})
	require.Len(t, positions, 1)
	assert.Equal(t, 50.0, data["total_unrealized"])
}

func TestHandleOpenPositions_NoQuoteSource(t *testing.T) {
	router := newTestRouter(&fakeTrades{trades: testTrades()}, nil)

	rec, body := doGet(t, router, "/api/metrics/open")
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, 0.0, data["total_unrealized"])
}
