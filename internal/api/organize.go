package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xaenox/remy-notes/internal/apperr"
	"github.com/xaenox/remy-notes/internal/models"
	"go.uber.org/zap"
)

// ListFolders handles GET /folders. Canonical folder rows are merged with
// folders that only exist as references on notes.
func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)

	folders, err := h.storage.ListFolders(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list folders", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	known := make(map[string]bool, len(folders))
	for _, folder := range folders {
		known[folder.Name] = true
	}

	notes, err := h.storage.ListNotes(r.Context(), userID, 0)
	if err == nil {
		for _, note := range notes {
			if note.Folder != "" && !known[note.Folder] {
				known[note.Folder] = true
				folders = append(folders, &models.Folder{
					UserID: userID,
					Name:   note.Folder,
				})
			}
		}
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })

	if folders == nil {
		folders = []*models.Folder{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

type folderRequest struct {
	Name    string `json:"name"`
	NewName string `json:"new_name"`
	Starred *bool  `json:"starred"`
}

// CreateFolder handles POST /folders.
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)

	var req folderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}

	if _, err := h.storage.GetFolder(r.Context(), userID, req.Name); err == nil {
		writeJSON(w, http.StatusConflict, errorBody("folder already exists"))
		return
	}

	folder := &models.Folder{
		UserID:    userID,
		Name:      req.Name,
		Starred:   req.Starred != nil && *req.Starred,
		CreatedAt: time.Now(),
	}
	if err := h.storage.UpsertFolder(r.Context(), folder); err != nil {
		h.logger.Error("Failed to create folder", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

// UpdateFolder handles PUT /folders/{name}: rename (with full cascade)
// and/or starring.
func (h *Handler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)
	name := chi.URLParam(r, "name")

	var req folderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	if req.NewName != "" && req.NewName != name {
		if err := h.cascader.RenameFolder(r.Context(), userID, name, req.NewName); err != nil {
			if errors.Is(err, apperr.ErrAlreadyExists) {
				writeJSON(w, http.StatusConflict, errorBody("folder already exists"))
			} else {
				h.logger.Error("Failed to rename folder", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			}
			return
		}
		name = req.NewName
	}

	if req.Starred != nil {
		folder, err := h.storage.GetFolder(r.Context(), userID, name)
		if errors.Is(err, apperr.ErrNotFound) {
			folder = &models.Folder{UserID: userID, Name: name, CreatedAt: time.Now()}
		} else if err != nil {
			h.logger.Error("Failed to load folder", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
		folder.Starred = *req.Starred
		if err := h.storage.UpsertFolder(r.Context(), folder); err != nil {
			h.logger.Error("Failed to update folder", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"name": name})
}

// DeleteFolder handles DELETE /folders/{name} with cascade.
func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	if err := h.cascader.DeleteFolder(r.Context(), callerID(r), chi.URLParam(r, "name")); err != nil {
		h.logger.Error("Failed to delete folder", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTags handles GET /tags. Canonical tag rows are merged with tags
// discovered on notes.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)

	tags, err := h.storage.ListTags(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list tags", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	known := make(map[string]bool, len(tags))
	for _, tag := range tags {
		known[tag.Name] = true
	}

	notes, err := h.storage.ListNotes(r.Context(), userID, 0)
	if err == nil {
		for _, note := range notes {
			for _, name := range note.Tags {
				if !known[name] {
					known[name] = true
					tags = append(tags, &models.Tag{UserID: userID, Name: name})
				}
			}
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })

	if tags == nil {
		tags = []*models.Tag{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

type tagRequest struct {
	Name    string `json:"name"`
	NewName string `json:"new_name"`
	Color   *string `json:"color"`
}

// CreateTag handles POST /tags.
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)

	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}

	if _, err := h.storage.GetTag(r.Context(), userID, req.Name); err == nil {
		writeJSON(w, http.StatusConflict, errorBody("tag already exists"))
		return
	}

	tag := &models.Tag{
		UserID:    userID,
		Name:      req.Name,
		CreatedAt: time.Now(),
	}
	if req.Color != nil {
		tag.Color = *req.Color
	}
	if err := h.storage.UpsertTag(r.Context(), tag); err != nil {
		h.logger.Error("Failed to create tag", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

// UpdateTag handles PUT /tags/{name}: rename (with full cascade) and/or
// recoloring.
func (h *Handler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)
	name := chi.URLParam(r, "name")

	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	if req.NewName != "" && req.NewName != name {
		if err := h.cascader.RenameTag(r.Context(), userID, name, req.NewName); err != nil {
			if errors.Is(err, apperr.ErrAlreadyExists) {
				writeJSON(w, http.StatusConflict, errorBody("tag already exists"))
			} else {
				h.logger.Error("Failed to rename tag", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			}
			return
		}
		name = req.NewName
	}

	if req.Color != nil {
		tag, err := h.storage.GetTag(r.Context(), userID, name)
		if errors.Is(err, apperr.ErrNotFound) {
			tag = &models.Tag{UserID: userID, Name: name, CreatedAt: time.Now()}
		} else if err != nil {
			h.logger.Error("Failed to load tag", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
		tag.Color = *req.Color
		if err := h.storage.UpsertTag(r.Context(), tag); err != nil {
			h.logger.Error("Failed to update tag", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"name": name})
}

// DeleteTag handles DELETE /tags/{name} with cascade.
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := h.cascader.DeleteTag(r.Context(), callerID(r), chi.URLParam(r, "name")); err != nil {
		h.logger.Error("Failed to delete tag", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
