package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeCompleter struct {
	response string
	err      error
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.response}},
		},
		Usage: openai.Usage{TotalTokens: 77},
	}, nil
}

func TestEnrichParsesResponse(t *testing.T) {
	e := NewEnricher(&fakeCompleter{response: "```json\n" + `{
		"title": "Pricing call",
		"smart_text": "We discussed pricing.",
		"summary": "Pricing discussion.",
		"key_points": ["anchor high"],
		"tags": ["pricing", "sales"],
		"action_items": [{"text": "Send proposal", "assignee": "user"}]
	}` + "\n```", err: nil}, "m", 1000, 0.2, zap.NewNop())

	enrichment, tokens := e.Enrich(context.Background(), "um so we talked pricing")
	assert.Equal(t, int64(77), tokens)
	assert.Equal(t, "Pricing call", enrichment.Title)
	assert.Equal(t, []string{"pricing", "sales"}, enrichment.Tags)
	assert.Len(t, enrichment.ActionItems, 1)
}

func TestEnrichCapsTags(t *testing.T) {
	e := NewEnricher(&fakeCompleter{
		response: `{"title": "T", "tags": ["a", "b", "c", "d", "e", "f", "g"]}`,
	}, "m", 1000, 0.2, zap.NewNop())

	enrichment, _ := e.Enrich(context.Background(), "text")
	assert.Len(t, enrichment.Tags, maxTags)
}

func TestEnrichFallsBackOnModelError(t *testing.T) {
	e := NewEnricher(&fakeCompleter{err: errors.New("model down")}, "m", 1000, 0.2, zap.NewNop())

	enrichment, tokens := e.Enrich(context.Background(), "remember to water the plants before we leave on Friday morning")
	assert.Equal(t, int64(0), tokens)
	assert.Equal(t, "remember to water the plants before we leave", enrichment.Title, "fallback title is the first eight words")
	assert.Empty(t, enrichment.ActionItems)
}

func TestEnrichFallsBackOnMalformedResponse(t *testing.T) {
	e := NewEnricher(&fakeCompleter{response: "sure, here you go"}, "m", 1000, 0.2, zap.NewNop())

	enrichment, tokens := e.Enrich(context.Background(), "short note")
	assert.Equal(t, int64(77), tokens, "tokens were still spent")
	assert.Equal(t, "short note", enrichment.Title)
}

func TestEnrichFillsMissingTitle(t *testing.T) {
	e := NewEnricher(&fakeCompleter{response: `{"summary": "no title came back"}`}, "m", 1000, 0.2, zap.NewNop())

	enrichment, _ := e.Enrich(context.Background(), "the model forgot the title")
	assert.Equal(t, "the model forgot the title", enrichment.Title)
}

func TestFallbackTitleEmpty(t *testing.T) {
	assert.Equal(t, "Untitled note", fallbackTitle("   "))
}
