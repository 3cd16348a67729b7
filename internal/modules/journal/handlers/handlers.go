// Package handlers provides HTTP handlers for journal trade CRUD.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/journal"
)

// Handler handles trade HTTP requests
type Handler struct {
	repo *journal.TradeRepository
	log  zerolog.Logger
}

// NewHandler creates a new journal handler
func NewHandler(repo *journal.TradeRepository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "journal").Logger(),
	}
}

// RegisterRoutes registers all trade routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/trades", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
}

// HandleList handles GET /api/trades
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	trades, err := h.repo.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list trades")
		http.Error(w, "Failed to list trades", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": trades,
		"metadata": map[string]interface{}{
			"count":     len(trades),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleCreate handles POST /api/trades
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var trade domain.Trade
	if err := json.NewDecoder(r.Body).Decode(&trade); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.repo.Create(trade)
	if err != nil {
		if isValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Msg("Failed to create trade")
		http.Error(w, "Failed to create trade", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"data": created})
}

// HandleGet handles GET /api/trades/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	trade, err := h.repo.GetByID(id)
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to get trade")
		http.Error(w, "Failed to get trade", http.StatusInternalServerError)
		return
	}
	if trade == nil {
		http.Error(w, "Trade not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": trade})
}

// HandleUpdate handles PUT /api/trades/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var trade domain.Trade
	if err := json.NewDecoder(r.Body).Decode(&trade); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	// The path is authoritative for the ID
	trade.ID = id

	if err := h.repo.Update(trade); err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, "Trade not found", http.StatusNotFound)
			return
		}
		if isValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("id", id).Msg("Failed to update trade")
		http.Error(w, "Failed to update trade", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": trade})
}

// HandleDelete handles DELETE /api/trades/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.Delete(id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, "Trade not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("id", id).Msg("Failed to delete trade")
		http.Error(w, "Failed to delete trade", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// isValidationError distinguishes input problems from storage failures
func isValidationError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "must not be") ||
		strings.Contains(msg, "unknown trade side") ||
		strings.Contains(msg, "not a valid timestamp")
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
