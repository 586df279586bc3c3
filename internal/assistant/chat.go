// Package assistant answers chat messages in the context of a note scope.
// Before replying it runs intent capture on the latest user message; a
// capture failure never blocks the reply.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/remy-notes/internal/intent"
	"github.com/xaenox/remy-notes/internal/models"
	"github.com/xaenox/remy-notes/internal/scope"
	"github.com/xaenox/remy-notes/internal/usage"
	"go.uber.org/zap"
)

// contextBodyLimit caps how much of each note's body goes into the system
// prompt.
const contextBodyLimit = 1000

// ChatCompleter is the slice of the OpenAI client the assistant needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Reply is the assistant's answer plus any intents captured as a side
// effect of the latest user message.
type Reply struct {
	Message         string           `json:"message"`
	CapturedIntents []*models.Intent `json:"captured_intents,omitempty"`
}

type Assistant struct {
	client  ChatCompleter
	model   string
	scopes  *scope.Resolver
	capture *intent.Pipeline
	tracker *usage.Tracker
	logger  *zap.Logger
}

func New(client ChatCompleter, model string, scopes *scope.Resolver, capture *intent.Pipeline, tracker *usage.Tracker, logger *zap.Logger) *Assistant {
	return &Assistant{
		client:  client,
		model:   model,
		scopes:  scopes,
		capture: capture,
		tracker: tracker,
		logger:  logger,
	}
}

// Chat resolves the scope into context, runs intent capture on the latest
// user message, and asks the model for a reply.
func (a *Assistant) Chat(ctx context.Context, userID string, messages []models.ChatMessage, sc scope.Scope) (*Reply, error) {
	notes, description, err := a.scopes.Resolve(ctx, userID, sc)
	if err != nil {
		return nil, err
	}

	var captured []*models.Intent
	if latest := latestUserMessage(messages); latest != "" {
		var tokens int64
		captured, tokens = a.capture.Capture(ctx, userID, latest)
		a.tracker.AddTokens(ctx, userID, tokens)
	}

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	chatMessages = append(chatMessages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt(notes, description),
	})
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: chatMessages,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	a.tracker.AddTokens(ctx, userID, int64(resp.Usage.TotalTokens))

	return &Reply{
		Message:         resp.Choices[0].Message.Content,
		CapturedIntents: captured,
	}, nil
}

func latestUserMessage(messages []models.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

func systemPrompt(notes []*models.Note, description string) string {
	var b strings.Builder
	b.WriteString("You are Remy, the user's voice-note assistant. Answer using ")
	b.WriteString(description)
	b.WriteString(" below as context. Be concise.\n")

	for _, note := range notes {
		fmt.Fprintf(&b, "\n--- %s (%s)\n", note.Title, note.ModifiedAt().Format("2006-01-02"))
		body := note.SmartText
		if body == "" {
			body = note.Transcription
		}
		if len(body) > contextBodyLimit {
			body = body[:contextBodyLimit]
		}
		b.WriteString(body)
		b.WriteString("\n")
	}
	return b.String()
}
