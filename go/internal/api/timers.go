package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mcdev12/timekeeper/go/internal/timers"
	"github.com/rs/zerolog"
)

type createTimerRequest struct {
	Description string `json:"description"`
}

type stopTimerResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// ListTimers returns the caller's timers, newest first.
//
// GET /api/timers
func (h *Handler) ListTimers(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	list, err := h.timers.ListTimers(r.Context(), userID)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int64("user_id", userID).Msg("failed to list timers")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateTimer starts a timer for the caller.
//
// POST /api/timers
func (h *Handler) CreateTimer(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req createTimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	timer, err := h.timers.CreateTimer(r.Context(), userID, req.Description)
	if err != nil {
		if errors.Is(err, timers.ErrInvalidDescription) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Int64("user_id", userID).Msg("failed to create timer")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, timer)
}

// StopTimer stops one of the caller's running timers.
//
// POST /api/timers/{id}/stop
func (h *Handler) StopTimer(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	timerID := chi.URLParam(r, "id")

	timer, err := h.timers.StopTimer(r.Context(), userID, timerID)
	if err != nil {
		if errors.Is(err, timers.ErrTimerNotFound) {
			writeError(w, http.StatusNotFound, "Timer not found or already stopped")
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Str("timer_id", timerID).Msg("failed to stop timer")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, stopTimerResponse{Message: "Timer stopped", ID: timer.ID})
}
