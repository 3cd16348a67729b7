// Package handlers provides HTTP handlers for the snapshots module.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/modules/snapshots"
)

// Handler serves stored daily metric snapshots
type Handler struct {
	repo *snapshots.Repository
	log  zerolog.Logger
}

// NewHandler creates a new snapshots handler
func NewHandler(repo *snapshots.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "snapshots").Logger(),
	}
}

// RegisterRoutes registers snapshot routes on the router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/snapshots", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/latest", h.handleLatest)
		r.Get("/{day}", h.handleGet)
	})
}

// handleList handles GET /api/snapshots?from=2024-01-01&to=2024-03-31.
// Omitted bounds default to the full stored history.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	if from == "" {
		from = "0001-01-01"
	}
	if to == "" {
		to = "9999-12-31"
	}

	for _, day := range []string{from, to} {
		if _, err := time.Parse("2006-01-02", day); err != nil {
			http.Error(w, "Invalid day, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	items, err := h.repo.GetRange(from, to)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list snapshots")
		http.Error(w, "Failed to list snapshots", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []snapshots.Snapshot{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": items,
		"metadata": map[string]interface{}{
			"count": len(items),
			"from":  from,
			"to":    to,
		},
	})
}

// handleLatest handles GET /api/snapshots/latest
func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.repo.Latest()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load latest snapshot")
		http.Error(w, "Failed to load latest snapshot", http.StatusInternalServerError)
		return
	}
	if snapshot == nil {
		http.Error(w, "No snapshots stored yet", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": snapshot})
}

// handleGet handles GET /api/snapshots/{day}
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	day := chi.URLParam(r, "day")
	if _, err := time.Parse("2006-01-02", day); err != nil {
		http.Error(w, "Invalid day, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	snapshot, err := h.repo.Get(day)
	if err != nil {
		h.log.Error().Err(err).Str("day", day).Msg("Failed to load snapshot")
		http.Error(w, "Failed to load snapshot", http.StatusInternalServerError)
		return
	}
	if snapshot == nil {
		http.Error(w, "Snapshot not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": snapshot})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
