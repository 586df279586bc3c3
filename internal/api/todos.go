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

// ListTodos handles GET /todos.
func (h *Handler) ListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.storage.ListTodos(r.Context(), callerID(r))
	if err != nil {
		h.logger.Error("Failed to list todos", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if todos == nil {
		todos = []*models.Todo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"todos": todos})
}

// UpdateTodo handles PUT /todos/{id}.
func (h *Handler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title     *string `json:"title"`
		Completed *bool   `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	userID := callerID(r)
	todo, err := h.storage.GetTodo(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			h.logger.Error("Failed to load todo", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	if req.Title != nil {
		todo.Title = *req.Title
	}
	if req.Completed != nil {
		todo.Completed = *req.Completed
	}
	todo.UpdatedAt = time.Now()

	if err := h.storage.UpdateTodo(r.Context(), todo); err != nil {
		h.logger.Error("Failed to update todo", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, todo)
}
