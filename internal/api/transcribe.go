package api

import (
	"errors"
	"net/http"

	"github.com/xaenox/remy-notes/internal/apperr"
	"go.uber.org/zap"
)

// maxAudioUpload bounds the multipart audio body.
const maxAudioUpload = 25 << 20

// Transcribe handles POST /transcribe: multipart audio upload in the
// "audio" field, returning the transcript and consumed seconds.
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUpload)

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("audio file is required"))
		return
	}
	defer file.Close()

	text, seconds, err := h.transcriber.Transcribe(r.Context(), userID, header.Filename, file)
	if err != nil {
		if errors.Is(err, apperr.ErrQuotaExceeded) {
			writeJSON(w, http.StatusForbidden, errorBody("transcription limit reached"))
			return
		}
		h.logger.Error("Transcription failed", zap.Error(err), zap.String("user_id", userID))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"text":             text,
		"duration_seconds": seconds,
	})
}

// UsageSnapshot handles GET /usage.
func (h *Handler) UsageSnapshot(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)

	count, err := h.storage.CountNotes(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to count notes", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, h.plans.Usage(r.Context(), userID, count))
}
