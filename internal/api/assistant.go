package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xaenox/remy-notes/internal/apperr"
	"github.com/xaenox/remy-notes/internal/models"
	"github.com/xaenox/remy-notes/internal/scope"
	"go.uber.org/zap"
)

type brainDumpRequest struct {
	ContextScope scope.Scope `json:"contextScope"`
	ForceRefresh bool        `json:"forceRefresh"`
}

// BrainDump handles POST /brain-dump.
func (h *Handler) BrainDump(w http.ResponseWriter, r *http.Request) {
	var req brainDumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.ContextScope.Type == "" {
		req.ContextScope.Type = scope.TypeGlobal
	}
	if err := req.ContextScope.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	result, err := h.synthesis.BrainDump(r.Context(), callerID(r), req.ContextScope, req.ForceRefresh)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			h.logger.Error("Brain dump failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type chatRequest struct {
	Messages     []models.ChatMessage `json:"messages"`
	ContextScope scope.Scope          `json:"contextScope"`
}

// Chat handles POST /chat. The reply may carry intents captured from the
// latest user message as a side effect.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("messages are required"))
		return
	}
	if req.ContextScope.Type == "" {
		req.ContextScope.Type = scope.TypeGlobal
	}
	if err := req.ContextScope.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	reply, err := h.assistant.Chat(r.Context(), callerID(r), req.Messages, req.ContextScope)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			h.logger.Error("Chat failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
