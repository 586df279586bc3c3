package plans

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/remy-notes/internal/models"
	"github.com/xaenox/remy-notes/internal/storage"
	"go.uber.org/zap"
)

var (
	freeTier = Tier{Name: "free", DisplayName: "Free", NoteLimit: 20, TranscriptionSecondsLimit: 600}
	proTier  = Tier{Name: "pro", DisplayName: "Pro", VariantID: "v-pro", NoteLimit: 0, TranscriptionSecondsLimit: 36000}
	liteTier = Tier{Name: "lite", DisplayName: "Lite", VariantID: "v-lite", NoteLimit: 200, TranscriptionSecondsLimit: 3600}
)

func newTestResolver(t *testing.T, source Source) (*Resolver, *storage.MemoryStorage) {
	t.Helper()
	store := storage.NewMemoryStorage()
	return NewResolver(store, source, freeTier, "pro", zap.NewNop()), store
}

func setSubscription(t *testing.T, store *storage.MemoryStorage, userID, status, plan, variant string) {
	t.Helper()
	err := store.UpdateSubscription(context.Background(), userID, status, plan, variant, "cust", "sub")
	require.NoError(t, err)
}

func TestLimitsMissingProfileGetsFree(t *testing.T) {
	r, _ := newTestResolver(t, StaticSource([]Tier{proTier, liteTier}))

	limits := r.Limits(context.Background(), "nobody")
	assert.Equal(t, "free", limits.PlanName)
	assert.Equal(t, 20, limits.NoteLimit)
}

func TestLimitsInactiveSubscriptionGetsFree(t *testing.T) {
	r, store := newTestResolver(t, StaticSource([]Tier{proTier, liteTier}))
	setSubscription(t, store, "u1", models.SubscriptionCancelled, "pro", "v-pro")

	assert.Equal(t, "free", r.Limits(context.Background(), "u1").PlanName)
}

func TestLimitsMatchesByVariantFirst(t *testing.T) {
	r, store := newTestResolver(t, StaticSource([]Tier{proTier, liteTier}))
	// Plan name says pro but the variant points at lite; variant wins.
	setSubscription(t, store, "u1", models.SubscriptionActive, "pro", "v-lite")

	assert.Equal(t, "lite", r.Limits(context.Background(), "u1").PlanName)
}

func TestLimitsMatchesByPlanName(t *testing.T) {
	r, store := newTestResolver(t, StaticSource([]Tier{proTier, liteTier}))
	setSubscription(t, store, "u1", models.SubscriptionActive, "lite", "v-unknown")

	assert.Equal(t, "lite", r.Limits(context.Background(), "u1").PlanName)
}

func TestLimitsActiveUnmappedFallsBackToDefaultPaid(t *testing.T) {
	r, store := newTestResolver(t, StaticSource([]Tier{proTier, liteTier}))
	setSubscription(t, store, "u1", models.SubscriptionActive, "legacy-plan", "v-gone")

	limits := r.Limits(context.Background(), "u1")
	assert.Equal(t, "pro", limits.PlanName, "active payer must not be penalized for a missing mapping")
}

func TestTierTableCachedWithinWindow(t *testing.T) {
	calls := 0
	source := SourceFunc(func(context.Context) ([]Tier, error) {
		calls++
		return []Tier{proTier}, nil
	})

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	r, store := newTestResolver(t, source)
	r.WithClock(func() time.Time { return now })
	setSubscription(t, store, "u1", models.SubscriptionActive, "pro", "v-pro")

	r.Limits(context.Background(), "u1")
	r.Limits(context.Background(), "u1")
	assert.Equal(t, 1, calls)

	// Advance past the TTL; the next lookup refetches.
	now = now.Add(tierCacheTTL + time.Second)
	r.Limits(context.Background(), "u1")
	assert.Equal(t, 2, calls)
}

func TestTierTableServesStaleOnFailure(t *testing.T) {
	calls := 0
	source := SourceFunc(func(context.Context) ([]Tier, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("source down")
		}
		return []Tier{proTier}, nil
	})

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	r, store := newTestResolver(t, source)
	r.WithClock(func() time.Time { return now })
	setSubscription(t, store, "u1", models.SubscriptionActive, "pro", "v-pro")

	assert.Equal(t, "pro", r.Limits(context.Background(), "u1").PlanName)

	now = now.Add(tierCacheTTL + time.Second)
	assert.Equal(t, "pro", r.Limits(context.Background(), "u1").PlanName,
		"stale tier table should be served when refresh fails")
}

func TestInvalidateForcesRefetch(t *testing.T) {
	calls := 0
	source := SourceFunc(func(context.Context) ([]Tier, error) {
		calls++
		return []Tier{proTier}, nil
	})

	r, store := newTestResolver(t, source)
	setSubscription(t, store, "u1", models.SubscriptionActive, "pro", "v-pro")

	r.Limits(context.Background(), "u1")
	r.Invalidate()
	r.Limits(context.Background(), "u1")
	assert.Equal(t, 2, calls)
}

func TestUsageSnapshot(t *testing.T) {
	r, store := newTestResolver(t, StaticSource([]Tier{proTier}))
	ctx := context.Background()
	require.NoError(t, store.AddTokenUsage(ctx, "u1", 1234))
	require.NoError(t, store.AddTranscriptionSeconds(ctx, "u1", 90))

	snap := r.Usage(ctx, "u1", 7)
	assert.Equal(t, 7, snap.NoteCount)
	assert.Equal(t, int64(1234), snap.AITokensUsed)
	assert.Equal(t, int64(90), snap.TranscriptionSecondsUsed)
	assert.Equal(t, "free", snap.PlanName)
}
