package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/journal/internal/modules/metrics"
	"github.com/aristath/journal/internal/modules/snapshots"
)

func setupTestRepo(t *testing.T) *snapshots.Repository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE metric_snapshots (
			day        TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			created_at INTEGER NOT NULL
		)
	`)
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	return snapshots.NewRepository(db, nil, log)
}

func newTestRouter(t *testing.T, repo *snapshots.Repository) http.Handler {
	t.Helper()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(repo, log)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return r
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetByDay(t *testing.T) {
	repo := setupTestRepo(t)
	require.NoError(t, repo.Save("2024-03-06", metrics.Summary{TotalTrades: 5, TotalPnL: 120}))
	router := newTestRouter(t, repo)

	rec := get(t, router, "/api/snapshots/2024-03-06")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Day     string `json:"day"`
			Summary struct {
				TotalPnL float64 `json:"total_pnl"`
			} `json:"summary"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2024-03-06", body.Data.Day)
	assert.Equal(t, 120.0, body.Data.Summary.TotalPnL)
}

func TestGetByDay_NotFound(t *testing.T) {
	router := newTestRouter(t, setupTestRepo(t))

	rec := get(t, router, "/api/snapshots/2024-01-01")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetByDay_BadDay(t *testing.T) {
	router := newTestRouter(t, setupTestRepo(t))

	rec := get(t, router, "/api/snapshots/yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLatest(t *testing.T) {
	repo := setupTestRepo(t)
	require.NoError(t, repo.Save("2024-03-05", metrics.Summary{TotalPnL: 100}))
	require.NoError(t, repo.Save("2024-03-07", metrics.Summary{TotalPnL: 300}))
	router := newTestRouter(t, repo)

	rec := get(t, router, "/api/snapshots/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Day string `json:"day"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2024-03-07", body.Data.Day)
}

func TestLatest_Empty(t *testing.T) {
	router := newTestRouter(t, setupTestRepo(t))

	rec := get(t, router, "/api/snapshots/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestList_Range(t *testing.T) {
	repo := setupTestRepo(t)
	for _, day := range []string{"2024-03-04", "2024-03-05", "2024-03-06"} {
		require.NoError(t, repo.Save(day, metrics.Summary{}))
	}
	router := newTestRouter(t, repo)

	rec := get(t, router, "/api/snapshots/?from=2024-03-05&to=2024-03-06")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data     []json.RawMessage      `json:"data"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
	assert.Equal(t, float64(2), body.Metadata["count"])
}

func TestList_DefaultsToFullHistory(t *testing.T) {
	repo := setupTestRepo(t)
	for _, day := range []string{"2023-12-31", "2024-03-06"} {
		require.NoError(t, repo.Save(day, metrics.Summary{}))
	}
	router := newTestRouter(t, repo)

	rec := get(t, router, "/api/snapshots/")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
}

func TestList_BadBound(t *testing.T) {
	router := newTestRouter(t, setupTestRepo(t))

	rec := get(t, router, "/api/snapshots/?from=last-week")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
