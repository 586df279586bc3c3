package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/xaenox/remy-notes/internal/apperr"
	"github.com/xaenox/remy-notes/internal/models"
	"go.uber.org/zap"
)

type createNoteRequest struct {
	Transcription string `json:"transcription"`
	Folder        string `json:"folder"`
}

func (r createNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Transcription, validation.Required, validation.Length(1, 100000)),
	)
}

// ListNotes handles GET /notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	var notes []*models.Note
	var err error
	switch {
	case r.URL.Query().Get("folder") != "":
		notes, err = h.storage.ListNotesByFolder(r.Context(), userID, r.URL.Query().Get("folder"))
	case r.URL.Query().Get("tag") != "":
		notes, err = h.storage.ListNotesByTag(r.Context(), userID, r.URL.Query().Get("tag"))
	default:
		notes, err = h.storage.ListNotes(r.Context(), userID, limit)
	}
	if err != nil {
		h.logger.Error("Failed to list notes", zap.Error(err), zap.String("user_id", userID))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if notes == nil {
		notes = []*models.Note{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
}

// CreateNote handles POST /notes: it enforces the per-plan note limit,
// enriches the transcription, stores the note, and fans action items out
// to todos and intents.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req createNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	limits := h.plans.Limits(r.Context(), userID)
	if limits.NoteLimit > 0 {
		count, err := h.storage.CountNotes(r.Context(), userID)
		if err == nil && count >= limits.NoteLimit {
			writeJSON(w, http.StatusForbidden, errorBody("note limit reached"))
			return
		}
	}

	enrichment, tokens := h.enricher.Enrich(r.Context(), req.Transcription)
	h.tracker.AddTokens(r.Context(), userID, tokens)
	now := time.Now()
	note := &models.Note{
		ID:            uuid.New().String(),
		UserID:        userID,
		Title:         enrichment.Title,
		Transcription: req.Transcription,
		SmartText:     enrichment.SmartText,
		Summary:       enrichment.Summary,
		KeyPoints:     enrichment.KeyPoints,
		Tags:          enrichment.Tags,
		Folder:        req.Folder,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.storage.CreateNote(r.Context(), note); err != nil {
		h.logger.Error("Failed to create note", zap.Error(err), zap.String("user_id", userID))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	// Action items are secondary writes: individual failures are logged
	// and do not fail the note creation.
	for _, item := range enrichment.ActionItems {
		if item.Assignee == "remy" {
			intent := &models.Intent{
				ID:        uuid.New().String(),
				UserID:    userID,
				RawText:   item.Text,
				Label:     item.Text,
				Type:      models.IntentRemember,
				Source:    models.IntentSourceNote,
				SourceID:  note.ID,
				Status:    models.IntentActive,
				Folder:    note.Folder,
				Tags:      []string{},
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := h.storage.CreateIntent(r.Context(), intent); err != nil {
				h.logger.Error("Failed to create intent from note", zap.Error(err), zap.String("note_id", note.ID))
			}
			continue
		}
		todo := &models.Todo{
			ID:        uuid.New().String(),
			UserID:    userID,
			NoteID:    note.ID,
			Title:     item.Text,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := h.storage.CreateTodo(r.Context(), todo); err != nil {
			h.logger.Error("Failed to create todo from note", zap.Error(err), zap.String("note_id", note.ID))
		}
	}

	writeJSON(w, http.StatusCreated, note)
}

// GetNote handles GET /notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.storage.GetNote(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			h.logger.Error("Failed to get note", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

type updateNoteRequest struct {
	Title     *string   `json:"title"`
	SmartText *string   `json:"smart_text"`
	Summary   *string   `json:"summary"`
	KeyPoints *[]string `json:"key_points"`
	Tags      *[]string `json:"tags"`
	Folder    *string   `json:"folder"`
	Starred   *bool     `json:"starred"`
}

// UpdateNote handles PUT /notes/{id}. Only the fields present in the body
// are changed.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req updateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	note, err := h.storage.GetNote(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			h.logger.Error("Failed to load note", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	if req.Title != nil {
		note.Title = *req.Title
	}
	if req.SmartText != nil {
		note.SmartText = *req.SmartText
	}
	if req.Summary != nil {
		note.Summary = *req.Summary
	}
	if req.KeyPoints != nil {
		note.KeyPoints = *req.KeyPoints
	}
	if req.Tags != nil {
		note.Tags = *req.Tags
	}
	if req.Folder != nil {
		note.Folder = *req.Folder
	}
	if req.Starred != nil {
		note.Starred = *req.Starred
	}
	note.UpdatedAt = time.Now()

	if err := h.storage.UpdateNote(r.Context(), note); err != nil {
		h.logger.Error("Failed to update note", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /notes/{id}. The note's todos are cleaned up
// best-effort after the delete.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)
	id := chi.URLParam(r, "id")

	if err := h.storage.DeleteNote(r.Context(), userID, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			h.logger.Error("Failed to delete note", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	if err := h.storage.DeleteTodosByNote(r.Context(), userID, id); err != nil {
		h.logger.Error("Failed to delete todos for note", zap.Error(err), zap.String("note_id", id))
	}
	w.WriteHeader(http.StatusNoContent)
}
