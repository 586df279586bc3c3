// Package billing orchestrates the payments provider: checkout sessions,
// subscription lifecycle calls, and the signed webhook that feeds
// subscription state back into user profiles.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a thin JSON client for the payments provider's REST API.
type Client struct {
	baseURL string
	apiKey  string
	storeID string
	http    *http.Client
}

func NewClient(baseURL, apiKey, storeID string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		storeID: storeID,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error encoding request: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("payments request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("payments API returned %d: %s", resp.StatusCode, data)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("error decoding payments response: %v", err)
		}
	}
	return nil
}

// CreateCheckout opens a checkout session for variantID and returns the
// hosted checkout URL. userID travels in the session's custom data so the
// webhook can attribute the subscription.
func (c *Client) CreateCheckout(ctx context.Context, userID, email, variantID string) (string, error) {
	req := map[string]any{
		"store_id":   c.storeID,
		"variant_id": variantID,
		"email":      email,
		"custom":     map[string]string{"user_id": userID},
	}
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/checkouts", req, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// CancelSubscription requests cancellation of an active subscription. The
// status change lands asynchronously via the webhook.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return c.do(ctx, http.MethodDelete, "/subscriptions/"+subscriptionID, nil, nil)
}

// PortalURL returns the customer's self-service billing portal URL.
func (c *Client) PortalURL(ctx context.Context, subscriptionID string) (string, error) {
	var resp struct {
		Urls struct {
			CustomerPortal string `json:"customer_portal"`
		} `json:"urls"`
	}
	if err := c.do(ctx, http.MethodGet, "/subscriptions/"+subscriptionID, nil, &resp); err != nil {
		return "", err
	}
	return resp.Urls.CustomerPortal, nil
}

// UpgradeSubscription moves an active subscription onto a new variant.
func (c *Client) UpgradeSubscription(ctx context.Context, subscriptionID, variantID string) error {
	req := map[string]any{"variant_id": variantID}
	return c.do(ctx, http.MethodPatch, "/subscriptions/"+subscriptionID, req, nil)
}
