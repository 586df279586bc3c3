// Package synthesis implements the Brain Dump pipeline: it distills a
// scoped note set into categorized mental-state fragments, caching results
// keyed by (owner, scope, content signature).
package synthesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/remy-notes/internal/apperr"
	"github.com/xaenox/remy-notes/internal/models"
	"github.com/xaenox/remy-notes/internal/scope"
	"github.com/xaenox/remy-notes/internal/signature"
	"github.com/xaenox/remy-notes/internal/storage"
	"github.com/xaenox/remy-notes/internal/usage"
	"go.uber.org/zap"
)

// Per-note body excerpt cap and per-category item cap in the prompt.
const (
	bodyExcerptLimit = 1000
	itemsPerCategory = 5
)

// ChatCompleter is the slice of the OpenAI client the pipeline needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Result is a synthesis plus its cache metadata.
type Result struct {
	Synthesis models.Synthesis `json:"synthesis"`
	Scope     string           `json:"scope"`
	NoteCount int              `json:"note_count"`
	Cached    bool             `json:"cached"`
}

type Pipeline struct {
	client  ChatCompleter
	model   string
	scopes  *scope.Resolver
	storage storage.SynthesisStorage
	tracker *usage.Tracker
	logger  *zap.Logger
}

func NewPipeline(client ChatCompleter, model string, scopes *scope.Resolver, storage storage.SynthesisStorage, tracker *usage.Tracker, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		client:  client,
		model:   model,
		scopes:  scopes,
		storage: storage,
		tracker: tracker,
		logger:  logger,
	}
}

// BrainDump produces the synthesis for sc. An empty scope short-circuits
// to an all-empty result without touching the model. Unless forceRefresh
// is set, a cached synthesis whose signature still matches the live note
// set is returned as-is.
func (p *Pipeline) BrainDump(ctx context.Context, userID string, sc scope.Scope, forceRefresh bool) (*Result, error) {
	notes, description, err := p.scopes.Resolve(ctx, userID, sc)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return &Result{Synthesis: models.EmptySynthesis(), Scope: description, NoteCount: 0}, nil
	}

	sig := signature.Compute(notes)

	if !forceRefresh {
		entry, err := p.storage.GetSynthesisCache(ctx, userID, string(sc.Type), sc.Value())
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			// Non-fatal: a broken cache read just means regenerating.
			p.logger.Warn("Synthesis cache lookup failed", zap.Error(err), zap.String("user_id", userID))
		}
		if err == nil && entry.Signature == sig {
			return &Result{
				Synthesis: entry.Synthesis,
				Scope:     description,
				NoteCount: entry.NoteCount,
				Cached:    true,
			}, nil
		}
	}

	synth, tokens := p.generate(ctx, notes, description)
	p.tracker.AddTokens(ctx, userID, tokens)
	remapNoteIDs(&synth, notes)

	entry := &models.SynthesisCache{
		UserID:     userID,
		ScopeType:  string(sc.Type),
		ScopeValue: sc.Value(),
		Synthesis:  synth,
		Signature:  sig,
		NoteCount:  len(notes),
		UpdatedAt:  time.Now(),
	}
	if err := p.storage.UpsertSynthesisCache(ctx, entry); err != nil {
		// The fresh synthesis is still returned.
		p.logger.Error("Failed to write synthesis cache", zap.Error(err), zap.String("user_id", userID))
	}

	return &Result{Synthesis: synth, Scope: description, NoteCount: len(notes), Cached: false}, nil
}

// generate builds the bounded prompt and asks the model for the six
// categories. Malformed model output degrades to an all-empty synthesis
// rather than an error.
func (p *Pipeline) generate(ctx context.Context, notes []*models.Note, description string) (models.Synthesis, int64) {
	prompt := buildPrompt(notes, description)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		p.logger.Error("Brain dump completion failed", zap.Error(err))
		return models.EmptySynthesis(), 0
	}

	tokens := int64(resp.Usage.TotalTokens)
	raw := trimJSONFence(resp.Choices[0].Message.Content)

	var parsed struct {
		OpenThoughts []promptFragment `json:"openThoughts"`
		Decisions    []promptFragment `json:"decisions"`
		Questions    []promptFragment `json:"questions"`
		Blockers     []promptFragment `json:"blockers"`
		Ideas        []promptFragment `json:"ideas"`
		Themes       []promptFragment `json:"themes"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		p.logger.Error("Failed to parse brain dump response",
			zap.Error(err),
			zap.String("response", raw))
		return models.EmptySynthesis(), tokens
	}

	return models.Synthesis{
		OpenThoughts: toFragments(parsed.OpenThoughts),
		Decisions:    toFragments(parsed.Decisions),
		Questions:    toFragments(parsed.Questions),
		Blockers:     toFragments(parsed.Blockers),
		Ideas:        toFragments(parsed.Ideas),
		Themes:       toFragments(parsed.Themes),
	}, tokens
}

type promptFragment struct {
	Text      string `json:"text"`
	NoteTitle string `json:"noteTitle"`
}

func toFragments(items []promptFragment) []models.Fragment {
	if len(items) > itemsPerCategory {
		items = items[:itemsPerCategory]
	}
	out := make([]models.Fragment, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Text) == "" {
			continue
		}
		out = append(out, models.Fragment{Text: item.Text, NoteTitle: item.NoteTitle})
	}
	return out
}

func buildPrompt(notes []*models.Note, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Below are %s from the user's voice notes. Extract the user's current mental state into six categories.

Return only a JSON object:
{"openThoughts": [], "decisions": [], "questions": [], "blockers": [], "ideas": [], "themes": []}

Each category is an array of at most %d items, each {"text": "short fragment", "noteTitle": "exact title of the source note"}.

Notes:
`, description, itemsPerCategory)

	for _, note := range notes {
		fmt.Fprintf(&b, "\n--- %s (%s)\n", note.Title, note.ModifiedAt().Format("2006-01-02"))
		if note.Summary != "" {
			fmt.Fprintf(&b, "Summary: %s\n", note.Summary)
		}
		if len(note.KeyPoints) > 0 {
			fmt.Fprintf(&b, "Key points: %s\n", strings.Join(note.KeyPoints, "; "))
		}
		body := note.SmartText
		if body == "" {
			body = note.Transcription
		}
		if len(body) > bodyExcerptLimit {
			body = body[:bodyExcerptLimit]
		}
		b.WriteString(body)
		b.WriteString("\n")
	}
	return b.String()
}

// remapNoteIDs resolves each fragment's noteTitle to an authoritative note
// id from the resolved set. Model-provided identifiers are never trusted
// directly.
func remapNoteIDs(s *models.Synthesis, notes []*models.Note) {
	byTitle := make(map[string]string, len(notes))
	for _, note := range notes {
		byTitle[strings.ToLower(strings.TrimSpace(note.Title))] = note.ID
	}
	for _, category := range []*[]models.Fragment{
		&s.OpenThoughts, &s.Decisions, &s.Questions, &s.Blockers, &s.Ideas, &s.Themes,
	} {
		for i := range *category {
			fragment := &(*category)[i]
			fragment.NoteID = byTitle[strings.ToLower(strings.TrimSpace(fragment.NoteTitle))]
		}
	}
}

func trimJSONFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
