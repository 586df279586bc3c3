// Package intent implements the "hey remy, remember this" capture
// pipeline: trigger detection on chat input, model-backed splitting of the
// captured payload into discrete items, and persistence of each item as an
// active intent.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/remy-notes/internal/models"
	"github.com/xaenox/remy-notes/internal/storage"
	"go.uber.org/zap"
)

// Trigger prefixes tested against the trimmed start of the latest user
// message, in order; first match wins. Matching is case-insensitive.
var triggerPrefixes = []string{
	"hey remy,",
	"hey remy",
	"remy, remember",
	"remy remember",
	"remy, don't forget",
	"remy don't forget",
	"@remy",
}

// minContentLength is the shortest stripped payload worth capturing.
// Anything at or below this is treated as a trigger with no content.
const minContentLength = 5

// DetectTrigger reports whether message starts with a capture trigger and
// returns the payload with the trigger phrase stripped.
func DetectTrigger(message string) (string, bool) {
	trimmed := strings.TrimSpace(message)
	lower := strings.ToLower(trimmed)
	for _, prefix := range triggerPrefixes {
		if strings.HasPrefix(lower, prefix) {
			content := strings.TrimSpace(trimmed[len(prefix):])
			content = strings.TrimLeft(content, ",:;- ")
			return content, true
		}
	}
	return "", false
}

// ChatCompleter is the slice of the OpenAI client the normalizer needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Item is one normalized intent produced from a captured payload.
type Item struct {
	Text string            `json:"text"`
	Type models.IntentType `json:"type"`
}

type Pipeline struct {
	client  ChatCompleter
	model   string
	storage storage.IntentStorage
	logger  *zap.Logger
}

func NewPipeline(client ChatCompleter, model string, storage storage.IntentStorage, logger *zap.Logger) *Pipeline {
	return &Pipeline{client: client, model: model, storage: storage, logger: logger}
}

// Capture runs the full pipeline on a chat message: detect the trigger,
// normalize the payload into discrete items, and persist each as an active
// intent. Returns the persisted intents, or nil when the message carried
// no trigger or no usable content. tokensUsed reports model consumption
// for usage tracking.
func (p *Pipeline) Capture(ctx context.Context, userID, message string) (captured []*models.Intent, tokensUsed int64) {
	content, ok := DetectTrigger(message)
	if !ok || len(content) <= minContentLength {
		return nil, 0
	}

	items, tokens := p.normalize(ctx, content)
	now := time.Now()
	for _, item := range items {
		intent := &models.Intent{
			ID:        uuid.New().String(),
			UserID:    userID,
			RawText:   content,
			Label:     item.Text,
			Type:      item.Type,
			Source:    models.IntentSourceChat,
			Status:    models.IntentActive,
			Tags:      []string{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		// A failed insert skips this item only; the rest still land.
		if err := p.storage.CreateIntent(ctx, intent); err != nil {
			p.logger.Error("Failed to save captured intent",
				zap.Error(err),
				zap.String("user_id", userID),
				zap.String("label", item.Text))
			continue
		}
		captured = append(captured, intent)
	}
	return captured, tokens
}

// normalize asks the model to split content into discrete items. Any model
// or parse failure falls back to a single "remember" item holding the raw
// text; a captured thought is never dropped because of a formatting error
// downstream.
func (p *Pipeline) normalize(ctx context.Context, content string) ([]Item, int64) {
	prompt := fmt.Sprintf(`The user asked their assistant to remember something. Split the text into discrete items.

Return only a JSON array, each element:
{"text": "short cleaned-up label", "type": "remember" | "todo" | "follow-up"}

Text: %s`, content)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		p.logger.Error("Failed to normalize intent content", zap.Error(err))
		return fallbackItems(content), 0
	}

	tokens := int64(resp.Usage.TotalTokens)
	var items []Item
	raw := trimJSONFence(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		p.logger.Error("Failed to parse normalized intents",
			zap.Error(err),
			zap.String("response", raw))
		return fallbackItems(content), tokens
	}

	out := items[:0]
	for _, item := range items {
		item.Text = strings.TrimSpace(item.Text)
		if item.Text == "" {
			continue
		}
		if !models.ValidIntentType(item.Type) {
			item.Type = models.IntentRemember
		}
		out = append(out, item)
	}
	if len(out) == 0 {
		return fallbackItems(content), tokens
	}
	return out, tokens
}

func fallbackItems(content string) []Item {
	return []Item{{Text: content, Type: models.IntentRemember}}
}

// trimJSONFence strips a markdown code fence the model sometimes wraps
// around its JSON.
func trimJSONFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
