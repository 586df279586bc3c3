// Package transcribe wraps the speech-to-text API and enforces the
// per-plan transcription time quota.
package transcribe

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/remy-notes/internal/apperr"
	"github.com/xaenox/remy-notes/internal/plans"
	"github.com/xaenox/remy-notes/internal/usage"
	"github.com/xaenox/remy-notes/internal/storage"
	"go.uber.org/zap"
)

// AudioTranscriber is the slice of the OpenAI client this package needs.
type AudioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

type Transcriber struct {
	client   AudioTranscriber
	model    string
	plans    *plans.Resolver
	profiles storage.ProfileStorage
	tracker  *usage.Tracker
	logger   *zap.Logger
}

func NewTranscriber(client AudioTranscriber, model string, plans *plans.Resolver, profiles storage.ProfileStorage, tracker *usage.Tracker, logger *zap.Logger) *Transcriber {
	return &Transcriber{
		client:   client,
		model:    model,
		plans:    plans,
		profiles: profiles,
		tracker:  tracker,
		logger:   logger,
	}
}

// Transcribe sends audio to the speech-to-text API and returns the text
// and the audio duration in seconds. The per-plan seconds quota is checked
// before the upstream call; exceeding it fails with apperr.ErrQuotaExceeded.
func (t *Transcriber) Transcribe(ctx context.Context, userID, filename string, audio io.Reader) (string, int64, error) {
	limits := t.plans.Limits(ctx, userID)
	if limits.TranscriptionSecondsLimit > 0 {
		var used int64
		if profile, err := t.profiles.GetProfile(ctx, userID); err == nil {
			used = profile.TranscriptionSecondsUsed
		}
		if used >= limits.TranscriptionSecondsLimit {
			return "", 0, apperr.ErrQuotaExceeded
		}
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: filename,
		Reader:   audio,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return "", 0, fmt.Errorf("transcription failed: %w", err)
	}

	seconds := int64(math.Ceil(float64(resp.Duration)))
	t.tracker.AddTranscriptionSeconds(ctx, userID, seconds)

	return resp.Text, seconds, nil
}
