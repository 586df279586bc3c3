package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xaenox/remy-notes/internal/apperr"
	"github.com/xaenox/remy-notes/internal/models"
	"go.uber.org/zap"
)

// ListIntents handles GET /intents with an optional status filter.
func (h *Handler) ListIntents(w http.ResponseWriter, r *http.Request) {
	status := models.IntentStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.IntentActive, models.IntentCompleted, models.IntentArchived:
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("invalid status"))
		return
	}

	intents, err := h.storage.ListIntents(r.Context(), callerID(r), status)
	if err != nil {
		h.logger.Error("Failed to list intents", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if intents == nil {
		intents = []*models.Intent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"intents": intents})
}

// UpdateIntent handles PUT /intents/{id}. Only the terminal lifecycle
// transitions are exposed: active -> completed and active -> archived.
func (h *Handler) UpdateIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.IntentStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Status != models.IntentCompleted && req.Status != models.IntentArchived {
		writeJSON(w, http.StatusBadRequest, errorBody("status must be completed or archived"))
		return
	}

	userID := callerID(r)
	id := chi.URLParam(r, "id")
	if err := h.storage.UpdateIntentStatus(r.Context(), userID, id, req.Status, time.Now()); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			h.logger.Error("Failed to update intent", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	intent, err := h.storage.GetIntent(r.Context(), userID, id)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": req.Status})
		return
	}
	writeJSON(w, http.StatusOK, intent)
}
