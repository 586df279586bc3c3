package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/xaenox/remy-notes/internal/apperr"
	"go.uber.org/zap"
)

// Checkout handles POST /checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)

	var req struct {
		VariantID string `json:"variant_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VariantID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("variant_id is required"))
		return
	}

	email := ""
	if profile, err := h.storage.GetProfile(r.Context(), userID); err == nil {
		email = profile.Email
	}

	url, err := h.payments.CreateCheckout(r.Context(), userID, email, req.VariantID)
	if err != nil {
		h.logger.Error("Failed to create checkout", zap.Error(err), zap.String("user_id", userID))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// subscriptionID loads the caller's subscription id or writes the
// appropriate error response and returns "".
func (h *Handler) subscriptionID(w http.ResponseWriter, r *http.Request) string {
	profile, err := h.storage.GetProfile(r.Context(), callerID(r))
	if errors.Is(err, apperr.ErrNotFound) || (err == nil && profile.SubscriptionID == "") {
		writeJSON(w, http.StatusBadRequest, errorBody("no subscription"))
		return ""
	}
	if err != nil {
		h.logger.Error("Failed to load profile", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return ""
	}
	return profile.SubscriptionID
}

// CancelSubscription handles POST /subscription/cancel.
func (h *Handler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	subID := h.subscriptionID(w, r)
	if subID == "" {
		return
	}
	if err := h.payments.CancelSubscription(r.Context(), subID); err != nil {
		h.logger.Error("Failed to cancel subscription", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancellation requested"})
}

// SubscriptionPortal handles POST /subscription/portal.
func (h *Handler) SubscriptionPortal(w http.ResponseWriter, r *http.Request) {
	subID := h.subscriptionID(w, r)
	if subID == "" {
		return
	}
	url, err := h.payments.PortalURL(r.Context(), subID)
	if err != nil {
		h.logger.Error("Failed to get portal URL", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// UpgradeSubscription handles POST /subscription/upgrade.
func (h *Handler) UpgradeSubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VariantID string `json:"variant_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VariantID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("variant_id is required"))
		return
	}

	subID := h.subscriptionID(w, r)
	if subID == "" {
		return
	}
	if err := h.payments.UpgradeSubscription(r.Context(), subID, req.VariantID); err != nil {
		h.logger.Error("Failed to upgrade subscription", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "upgrade requested"})
}

// PaymentsWebhook handles POST /webhook/payments. The signature is
// verified over the raw body before anything is processed. Processing
// errors still acknowledge with 200 so the provider does not retry-storm;
// alerting relies on logs.
func (h *Handler) PaymentsWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	if !h.webhooks.VerifySignature(body, r.Header.Get("X-Signature")) {
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid signature"))
		return
	}

	if err := h.webhooks.Process(r.Context(), body); err != nil {
		h.logger.Error("Webhook processing failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
