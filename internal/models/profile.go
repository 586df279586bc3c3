package models

import "time"

// Subscription statuses as reported by the payments provider.
const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionExpired   = "expired"
)

// Profile holds per-user subscription state and cumulative usage counters.
// Counters only ever grow; they are incremented by the usage tracker after
// model calls and transcriptions.
type Profile struct {
	UserID                   string    `json:"user_id"`
	Email                    string    `json:"email,omitempty"`
	SubscriptionStatus       string    `json:"subscription_status,omitempty"`
	PlanName                 string    `json:"plan_name,omitempty"`
	VariantID                string    `json:"variant_id,omitempty"`
	CustomerID               string    `json:"customer_id,omitempty"`
	SubscriptionID           string    `json:"subscription_id,omitempty"`
	TranscriptionSecondsUsed int64     `json:"transcription_seconds_used"`
	AITokensUsed             int64     `json:"ai_tokens_used"`
	OnboardingCompleted      bool      `json:"onboarding_completed"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// SubscriptionIsActive reports whether the user currently has a paid
// subscription.
func (p *Profile) SubscriptionIsActive() bool {
	return p != nil && p.SubscriptionStatus == SubscriptionActive
}
