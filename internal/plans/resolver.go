// Package plans resolves a user's subscription tier into concrete usage
// quotas. The tier table is cached process-wide for a fixed window; a
// stale table is served when a refresh fails so limit lookups never block
// on a transient source error.
package plans

import (
	"context"
	"sync"
	"time"

	"github.com/xaenox/remy-notes/internal/storage"
	"go.uber.org/zap"
)

const tierCacheTTL = 5 * time.Minute

// Tier is one subscription tier with its quotas.
type Tier struct {
	Name                      string
	DisplayName               string
	VariantID                 string
	NoteLimit                 int
	TranscriptionSecondsLimit int64
}

// Limits is the resolved quota set for one user.
type Limits struct {
	NoteLimit                 int    `json:"note_limit"`
	TranscriptionSecondsLimit int64  `json:"transcription_seconds_limit"`
	PlanName                  string `json:"plan_name"`
	DisplayName               string `json:"display_name"`
}

// Source provides the tier table. Backed by static config today; the
// resolver caches it regardless so a remote source can be swapped in.
type Source interface {
	Tiers(ctx context.Context) ([]Tier, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) ([]Tier, error)

func (f SourceFunc) Tiers(ctx context.Context) ([]Tier, error) { return f(ctx) }

// StaticSource returns a Source serving a fixed tier table.
func StaticSource(tiers []Tier) Source {
	return SourceFunc(func(context.Context) ([]Tier, error) { return tiers, nil })
}

type Resolver struct {
	storage     storage.ProfileStorage
	source      Source
	free        Tier
	defaultPaid string
	now         func() time.Time
	logger      *zap.Logger

	mu        sync.RWMutex
	tiers     []Tier
	fetchedAt time.Time
}

func NewResolver(storage storage.ProfileStorage, source Source, free Tier, defaultPaid string, logger *zap.Logger) *Resolver {
	return &Resolver{
		storage:     storage,
		source:      source,
		free:        free,
		defaultPaid: defaultPaid,
		now:         time.Now,
		logger:      logger,
	}
}

// WithClock overrides the resolver's clock. Tests use this to exercise the
// cache window deterministically.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Invalidate drops the cached tier table, forcing a refetch on next use.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiers = nil
	r.fetchedAt = time.Time{}
}

func (r *Resolver) tierTable(ctx context.Context) []Tier {
	r.mu.RLock()
	tiers, fetchedAt := r.tiers, r.fetchedAt
	r.mu.RUnlock()

	if tiers != nil && r.now().Sub(fetchedAt) < tierCacheTTL {
		return tiers
	}

	fresh, err := r.source.Tiers(ctx)
	if err != nil {
		r.logger.Warn("Failed to refresh tier table, serving stale", zap.Error(err))
		if tiers != nil {
			return tiers
		}
		return nil
	}

	r.mu.Lock()
	r.tiers = fresh
	r.fetchedAt = r.now()
	r.mu.Unlock()
	return fresh
}

// Limits returns the quota set for userID. Users without an active
// subscription get the free tier. Active subscribers are matched by
// billing variant id first, then by plan name; an active subscriber whose
// plan maps to nothing falls back to the configured default paid tier
// rather than being penalized for a missing mapping.
func (r *Resolver) Limits(ctx context.Context, userID string) Limits {
	profile, err := r.storage.GetProfile(ctx, userID)
	if err != nil || !profile.SubscriptionIsActive() {
		return limitsFrom(r.free)
	}

	tiers := r.tierTable(ctx)
	for _, tier := range tiers {
		if tier.VariantID != "" && tier.VariantID == profile.VariantID {
			return limitsFrom(tier)
		}
	}
	for _, tier := range tiers {
		if tier.Name == profile.PlanName {
			return limitsFrom(tier)
		}
	}
	for _, tier := range tiers {
		if tier.Name == r.defaultPaid {
			return limitsFrom(tier)
		}
	}
	return limitsFrom(r.free)
}

// Snapshot combines limits with the user's cumulative usage counters.
type Snapshot struct {
	Limits
	NoteCount                int   `json:"note_count"`
	TranscriptionSecondsUsed int64 `json:"transcription_seconds_used"`
	AITokensUsed             int64 `json:"ai_tokens_used"`
}

func (r *Resolver) Usage(ctx context.Context, userID string, noteCount int) Snapshot {
	snap := Snapshot{Limits: r.Limits(ctx, userID), NoteCount: noteCount}
	if profile, err := r.storage.GetProfile(ctx, userID); err == nil {
		snap.TranscriptionSecondsUsed = profile.TranscriptionSecondsUsed
		snap.AITokensUsed = profile.AITokensUsed
	}
	return snap
}

func limitsFrom(t Tier) Limits {
	return Limits{
		NoteLimit:                 t.NoteLimit,
		TranscriptionSecondsLimit: t.TranscriptionSecondsLimit,
		PlanName:                  t.Name,
		DisplayName:               t.DisplayName,
	}
}
