// Package enrich turns a raw transcription into a structured note: title,
// cleaned-up text, summary, key points, tags, and action items, in one
// model call.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const maxTags = 5

// ActionItem is a task the model spotted in the note. Assignee "remy"
// marks items the assistant should remember (they become intents); every
// other item becomes a plain todo.
type ActionItem struct {
	Text     string `json:"text"`
	Assignee string `json:"assignee"`
}

// Enrichment is the structured analysis of one transcription.
type Enrichment struct {
	Title       string       `json:"title"`
	SmartText   string       `json:"smart_text"`
	Summary     string       `json:"summary"`
	KeyPoints   []string     `json:"key_points"`
	Tags        []string     `json:"tags"`
	ActionItems []ActionItem `json:"action_items"`
}

// ChatCompleter is the slice of the OpenAI client the enricher needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Enricher struct {
	client      ChatCompleter
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

func NewEnricher(client ChatCompleter, model string, maxTokens int, temperature float64, logger *zap.Logger) *Enricher {
	return &Enricher{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

// Enrich analyzes a transcription. On any model or parse failure it
// returns a minimal fallback built from the raw text, so a note is always
// storable.
func (e *Enricher) Enrich(ctx context.Context, transcription string) (Enrichment, int64) {
	prompt := fmt.Sprintf(`Analyze the following voice note transcription and provide a structured analysis with:
- A short descriptive title
- The text cleaned up for reading (filler words removed, punctuation fixed)
- A brief summary
- Key points
- Relevant tags (max %d, lowercase)
- Action items; set "assignee" to "remy" for things the assistant should remember, "user" otherwise

Return the response as a JSON object with this structure:
{
    "title": "short_title",
    "smart_text": "cleaned_text",
    "summary": "brief_summary",
    "key_points": ["point1", "point2", ...],
    "tags": ["tag1", "tag2", ...],
    "action_items": [{"text": "task", "assignee": "remy"}, ...]
}

Transcription: %s`, maxTags, transcription)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   e.maxTokens,
		Temperature: float32(e.temperature),
	})
	if err != nil {
		e.logger.Error("Failed to get enrichment response", zap.Error(err))
		return e.fallbackEnrichment(transcription), 0
	}

	tokens := int64(resp.Usage.TotalTokens)
	response := strings.TrimSpace(resp.Choices[0].Message.Content)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")

	var enrichment Enrichment
	if err := json.Unmarshal([]byte(strings.TrimSpace(response)), &enrichment); err != nil {
		e.logger.Error("Failed to parse enrichment response",
			zap.Error(err),
			zap.String("response", response))
		return e.fallbackEnrichment(transcription), tokens
	}

	if enrichment.Title == "" {
		enrichment.Title = fallbackTitle(transcription)
	}
	if len(enrichment.Tags) > maxTags {
		enrichment.Tags = enrichment.Tags[:maxTags]
	}
	return enrichment, tokens
}

// fallbackEnrichment keeps the note storable when the model is down.
func (e *Enricher) fallbackEnrichment(transcription string) Enrichment {
	return Enrichment{
		Title:     fallbackTitle(transcription),
		KeyPoints: []string{},
		Tags:      []string{},
	}
}

func fallbackTitle(transcription string) string {
	words := strings.Fields(transcription)
	if len(words) > 8 {
		words = words[:8]
	}
	title := strings.Join(words, " ")
	if title == "" {
		title = "Untitled note"
	}
	return title
}
