package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/xaenox/remy-notes/internal/models"
	"github.com/xaenox/remy-notes/internal/storage"
	"go.uber.org/zap"
)

// WebhookEvent is the provider's event envelope.
type WebhookEvent struct {
	Meta struct {
		EventName string            `json:"event_name"`
		Custom    map[string]string `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Status     string `json:"status"`
			VariantID  json.Number `json:"variant_id"`
			PlanName   string `json:"variant_name"`
			CustomerID json.Number `json:"customer_id"`
		} `json:"attributes"`
	} `json:"data"`
}

// WebhookProcessor validates and applies payment provider webhooks.
type WebhookProcessor struct {
	secret   []byte
	profiles storage.ProfileStorage
	logger   *zap.Logger
}

func NewWebhookProcessor(secret string, profiles storage.ProfileStorage, logger *zap.Logger) *WebhookProcessor {
	return &WebhookProcessor{secret: []byte(secret), profiles: profiles, logger: logger}
}

// VerifySignature checks the hex HMAC-SHA256 signature over the raw body.
// Nothing is processed before this passes.
func (p *WebhookProcessor) VerifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, p.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Process applies one verified webhook event to the owning user's profile.
func (p *WebhookProcessor) Process(ctx context.Context, body []byte) error {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("error decoding webhook event: %v", err)
	}

	userID := event.Meta.Custom["user_id"]
	if userID == "" {
		return fmt.Errorf("webhook event %q has no user_id", event.Meta.EventName)
	}

	status := ""
	switch event.Meta.EventName {
	case "subscription_created", "subscription_updated", "subscription_resumed", "subscription_payment_success":
		status = event.Data.Attributes.Status
		if status == "" {
			status = models.SubscriptionActive
		}
	case "subscription_cancelled":
		status = models.SubscriptionCancelled
	case "subscription_expired":
		status = models.SubscriptionExpired
	default:
		p.logger.Info("Ignoring webhook event", zap.String("event", event.Meta.EventName))
		return nil
	}

	err := p.profiles.UpdateSubscription(ctx, userID,
		status,
		event.Data.Attributes.PlanName,
		event.Data.Attributes.VariantID.String(),
		event.Data.Attributes.CustomerID.String(),
		event.Data.ID,
	)
	if err != nil {
		return fmt.Errorf("error applying webhook event: %v", err)
	}

	p.logger.Info("Applied subscription event",
		zap.String("event", event.Meta.EventName),
		zap.String("user_id", userID),
		zap.String("status", status))
	return nil
}
