// Package usage records cumulative per-user AI token and transcription
// consumption. Tracking is a secondary write: failures are logged and
// swallowed so a bookkeeping error never fails the primary operation.
package usage

import (
	"context"

	"github.com/xaenox/remy-notes/internal/storage"
	"go.uber.org/zap"
)

type Tracker struct {
	storage storage.ProfileStorage
	logger  *zap.Logger
}

func NewTracker(storage storage.ProfileStorage, logger *zap.Logger) *Tracker {
	return &Tracker{storage: storage, logger: logger}
}

func (t *Tracker) AddTokens(ctx context.Context, userID string, tokens int64) {
	if tokens <= 0 {
		return
	}
	if err := t.storage.AddTokenUsage(ctx, userID, tokens); err != nil {
		t.logger.Error("Failed to track token usage",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.Int64("tokens", tokens))
	}
}

func (t *Tracker) AddTranscriptionSeconds(ctx context.Context, userID string, seconds int64) {
	if seconds <= 0 {
		return
	}
	if err := t.storage.AddTranscriptionSeconds(ctx, userID, seconds); err != nil {
		t.logger.Error("Failed to track transcription usage",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.Int64("seconds", seconds))
	}
}
