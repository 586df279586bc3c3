package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/remy-notes/internal/assistant"
	"github.com/xaenox/remy-notes/internal/auth"
	"github.com/xaenox/remy-notes/internal/billing"
	"github.com/xaenox/remy-notes/internal/cascade"
	"github.com/xaenox/remy-notes/internal/enrich"
	"github.com/xaenox/remy-notes/internal/intent"
	"github.com/xaenox/remy-notes/internal/models"
	"github.com/xaenox/remy-notes/internal/plans"
	"github.com/xaenox/remy-notes/internal/scope"
	"github.com/xaenox/remy-notes/internal/storage"
	"github.com/xaenox/remy-notes/internal/synthesis"
	"github.com/xaenox/remy-notes/internal/transcribe"
	"github.com/xaenox/remy-notes/internal/usage"
	"go.uber.org/zap"
)

const (
	testJWTSecret     = "test-jwt-secret"
	testWebhookSecret = "test-webhook-secret"
)

type fakeAI struct {
	response string
}

func (f *fakeAI) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.response}},
		},
		Usage: openai.Usage{TotalTokens: 50},
	}, nil
}

type fakeAudio struct {
	text     string
	duration float64
}

func (f *fakeAudio) CreateTranscription(_ context.Context, _ openai.AudioRequest) (openai.AudioResponse, error) {
	return openai.AudioResponse{Text: f.text, Duration: f.duration}, nil
}

const enrichmentResponse = `{
	"title": "Team sync recap",
	"smart_text": "Cleaned up text.",
	"summary": "A quick recap.",
	"key_points": ["decide pricing"],
	"tags": ["work"],
	"action_items": [
		{"text": "Email the deck to Alex", "assignee": "user"},
		{"text": "the team prefers Tuesdays", "assignee": "remy"}
	]
}`

type testAPI struct {
	router http.Handler
	store  *storage.MemoryStorage
	token  string
}

func newTestAPI(t *testing.T, ai *fakeAI, free plans.Tier, paymentsURL string) *testAPI {
	t.Helper()
	logger := zap.NewNop()
	store := storage.NewMemoryStorage()
	tracker := usage.NewTracker(store, logger)
	scopes := scope.NewResolver(store)

	pro := plans.Tier{Name: "pro", DisplayName: "Pro", VariantID: "v-pro", TranscriptionSecondsLimit: 36000}
	planResolver := plans.NewResolver(store, plans.StaticSource([]plans.Tier{pro}), free, "pro", logger)

	enricher := enrich.NewEnricher(ai, "test-model", 1000, 0.2, logger)
	capture := intent.NewPipeline(ai, "test-model", store, logger)
	synth := synthesis.NewPipeline(ai, "test-model", scopes, store, tracker, logger)
	chat := assistant.New(ai, "test-model", scopes, capture, tracker, logger)
	audio := &fakeAudio{text: "hello from a voice note", duration: 42.3}
	transcriber := transcribe.NewTranscriber(audio, "whisper-1", planResolver, store, tracker, logger)
	cascader := cascade.NewCascader(store, logger)
	payments := billing.NewClient(paymentsURL, "test-key", "store-1")
	webhooks := billing.NewWebhookProcessor(testWebhookSecret, store, logger)

	verifier := auth.NewVerifier(testJWTSecret)
	token, err := verifier.Issue("u1", time.Hour)
	require.NoError(t, err)

	handler := NewHandler(store, synth, chat, enricher, transcriber, cascader, planResolver, tracker, payments, webhooks, logger)
	return &testAPI{
		router: NewRouter(handler, verifier),
		store:  store,
		token:  token,
	}
}

func defaultFree() plans.Tier {
	return plans.Tier{Name: "free", DisplayName: "Free", NoteLimit: 100, TranscriptionSecondsLimit: 600}
}

func (a *testAPI) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t, &fakeAI{response: enrichmentResponse}, defaultFree(), "")

	rec := api.do(http.MethodGet, "/notes", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/notes", "", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	forged, err := auth.NewVerifier("other-secret").Issue("u1", time.Hour)
	require.NoError(t, err)
	rec = api.do(http.MethodGet, "/notes", "", forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateNoteEnrichesAndFansOut(t *testing.T) {
	api := newTestAPI(t, &fakeAI{response: enrichmentResponse}, defaultFree(), "")

	rec := api.do(http.MethodPost, "/notes", `{"transcription": "so um we talked about pricing today", "folder": "Work"}`, api.token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var note models.Note
	decodeBody(t, rec, &note)
	assert.Equal(t, "Team sync recap", note.Title)
	assert.Equal(t, "so um we talked about pricing today", note.Transcription)
	assert.Equal(t, "Cleaned up text.", note.SmartText)
	assert.Equal(t, []string{"work"}, note.Tags)
	assert.Equal(t, "Work", note.Folder)

	// The "user" action item lands as a todo, the "remy" one as an intent.
	todos, err := api.store.ListTodos(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, "Email the deck to Alex", todos[0].Title)
	assert.Equal(t, note.ID, todos[0].NoteID)

	intents, err := api.store.ListIntents(context.Background(), "u1", models.IntentActive)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, "the team prefers Tuesdays", intents[0].Label)
	assert.Equal(t, models.IntentSourceNote, intents[0].Source)
	assert.Equal(t, note.ID, intents[0].SourceID)

	rec = api.do(http.MethodGet, "/notes/"+note.ID, "", api.token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateNoteValidation(t *testing.T) {
	api := newTestAPI(t, &fakeAI{response: enrichmentResponse}, defaultFree(), "")

	rec := api.do(http.MethodPost, "/notes", `{"folder": "Work"}`, api.token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/notes", `{invalid`, api.token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateNotePlanLimit(t *testing.T) {
	free := defaultFree()
	free.NoteLimit = 1
	api := newTestAPI(t, &fakeAI{response: enrichmentResponse}, free, "")

	rec := api.do(http.MethodPost, "/notes", `{"transcription": "first note"}`, api.token)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodPost, "/notes", `{"transcription": "one too many"}`, api.token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateNotePartial(t *testing.T) {
	api := newTestAPI(t, &fakeAI{response: enrichmentResponse}, defaultFree(), "")

	rec := api.do(http.MethodPost, "/notes", `{"transcription": "original"}`, api.token)
	require.Equal(t, http.StatusCreated, rec.Code)
	var note models.Note
	decodeBody(t, rec, &note)

	rec = api.do(http.MethodPut, "/notes/"+note.ID, `{"title": "Renamed", "starred": true}`, api.token)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Note
	decodeBody(t, rec, &updated)
	assert.Equal(t, "Renamed", updated.Title)
	assert.True(t, updated.Starred)
	assert.Equal(t, note.SmartText, updated.SmartText, "absent fields stay untouched")
}

func TestDeleteNoteCleansUpTodos(t *testing.T) {
	api := newTestAPI(t, &fakeAI{response: enrichmentResponse}, defaultFree(), "")

	rec := api.do(http.MethodPost, "/notes", `{"transcription": "note with action items"}`, api.token)
	require.Equal(t, http.StatusCreated, rec.Code)
	var note models.Note
	decodeBody(t, rec, &note)

	rec = api.do(http.MethodDelete, "/notes/"+note.ID, "", api.token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(http.MethodGet, "/notes/"+note.ID, "", api.token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	todos, err := api.store.ListTodos(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, todos)
}

func TestNotesAreOwnerScoped(t *testing.T) {
	api := newTestAPI(t, &fakeAI{response: enrichmentResponse}, defaultFree(), "")
	ctx := context.Background()
	require.NoError(t, api.store.CreateNote(ctx, &models.Note{
		ID: "theirs", UserID: "u2", Title: "Not yours", CreatedAt: time.Now(),
	}))

	rec := api.do(http.MethodGet, "/notes/theirs", "", api.token)
	assert.Equal(t, http.StatusNotFound, rec.Code, "cross-tenant reads must look like missing rows")
}

func TestFolderEndpointsCascade(t *testing.T) {
	api := newTestAPI(t, &fakeAI{response: enrichmentResponse}, defaultFree(), "")
	ctx := context.Background()

	rec := api.do(http.MethodPost, "/folders", `{"name": "Work"}`, api.token)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodPost, "/folders", `{"name": "Work"}`, api.token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.NoError(t, api.store.CreateNote(ctx, &models.Note{
		ID: "n1", UserID: "u1", Title: "Standup", Folder: "Work", CreatedAt: time.Now(),
	}))

	rec = api.do(http.MethodPut, "/folders/Work", `{"new_name": "Projects"}`, api.token)
	require.Equal(t, http.StatusOK, rec.Code)

	note, err := api.store.GetNote(ctx, "u1", "n1")
	require.NoError(t, err)
	assert.Equal(t, "Projects", note.Folder)

	rec = api.do(http.MethodDelete, "/folders/Projects", "", api.token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	note, err = api.store.GetNote(ctx, "u1", "n1")
	require.NoError(t, err)
	assert.Empty(t, note.Folder)
}

func TestListFoldersIncludesAutoDiscovered(t *testing.T) {
	api := newTestAPI(t, &fakeAI{response: enrichmentResponse}, defaultFree(), "")
	ctx := context.Background()
	require.NoError(t, api.store.UpsertFolder(ctx, &models.Folder{UserID: "u1", Name: "Canonical", CreatedAt: time.Now()}))
	require.NoError(t, api.store.CreateNote(ctx, &models.Note{
		ID: "n1", UserID: "u1", Title: "Loose", Folder: "Implicit", CreatedAt: time.Now(),
	}))

	rec := api.do(http.MethodGet, "/folders", "", api.token)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Folders []models.Folder `json:"folders"`
	}
	decodeBody(t, rec, &body)
	names := make([]string, 0, len(body.Folders))
	for _, f := range body.Folders {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Canonical", "Implicit"}, names)
}

func TestTagRenameConflict(t *testing.T) {
	api := newTestAPI(t, &fakeAI{response: enrichmentResponse}, defaultFree(), "")

	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/tags", `{"name": "meeting"}`, api.token).Code)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/tags", `{"name": "sync"}`, api.token).Code)

	rec := api.do(http.MethodPut, "/tags/meeting", `{"new_name": "sync"}`, api.token)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestIntentLifecycleEndpoint(t *testing.T) {
	api := newTestAPI(t, &fakeAI{response: enrichmentResponse}, defaultFree(), "")
	ctx := context.Background()
	require.NoError(t, api.store.CreateIntent(ctx, &models.Intent{
		ID: "i1", UserID: "u1", Label: "Call Sarah", Type: models.IntentTodo,
		Source: models.IntentSourceChat, Status: models.IntentActive, CreatedAt: time.Now(),
	}))

	rec := api.do(http.MethodPut, "/intents/i1", `{"status": "bogus"}`, api.token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPut, "/intents/i1", `{"status": "completed"}`, api.token)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Intent
	decodeBody(t, rec, &updated)
	assert.Equal(t, models.IntentCompleted, updated.Status)
	assert.NotNil(t, updated.CompletedAt)

	// Terminal states cannot transition again.
	rec = api.do(http.MethodPut, "/intents/i1", `{"status": "archived"}`, api.token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBrainDumpEndpoint(t *testing.T) {
	synthResponse := `{"openThoughts": [{"text": "thought", "noteTitle": "My note"}],
		"decisions": [], "questions": [], "blockers": [], "ideas": [], "themes": []}`
	api := newTestAPI(t, &fakeAI{response: synthResponse}, defaultFree(), "")
	require.NoError(t, api.store.CreateNote(context.Background(), &models.Note{
		ID: "n1", UserID: "u1", Title: "My note", Transcription: "body", CreatedAt: time.Now(),
	}))

	rec := api.do(http.MethodPost, "/brain-dump", `{}`, api.token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result synthesis.Result
	decodeBody(t, rec, &result)
	assert.Equal(t, 1, result.NoteCount)
	assert.False(t, result.Cached)
	require.Len(t, result.Synthesis.OpenThoughts, 1)
	assert.Equal(t, "n1", result.Synthesis.OpenThoughts[0].NoteID)

	rec = api.do(http.MethodPost, "/brain-dump", `{"contextScope": {"type": "global"}}`, api.token)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &result)
	assert.True(t, result.Cached)
}

func TestBrainDumpInvalidScope(t *testing.T) {
	api := newTestAPI(t, &fakeAI{response: enrichmentResponse}, defaultFree(), "")

	rec := api.do(http.MethodPost, "/brain-dump", `{"contextScope": {"type": "galaxy"}}`, api.token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatEndpointCapturesIntents(t *testing.T) {
	api := newTestAPI(t, &fakeAI{response: `[{"text": "Call Sarah", "type": "todo"}]`}, defaultFree(), "")

	body := `{"messages": [{"role": "user", "content": "hey remy, remember to call Sarah"}]}`
	rec := api.do(http.MethodPost, "/chat", body, api.token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var reply assistant.Reply
	decodeBody(t, rec, &reply)
	require.Len(t, reply.CapturedIntents, 1)
	assert.Equal(t, "Call Sarah", reply.CapturedIntents[0].Label)

	rec = api.do(http.MethodPost, "/chat", `{"messages": []}`, api.token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func (a *testAPI) doAudio(t *testing.T, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "note.m4a")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake audio bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/transcribe", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func TestTranscribeEndpoint(t *testing.T) {
	api := newTestAPI(t, &fakeAI{response: enrichmentResponse}, defaultFree(), "")

	rec := api.doAudio(t, api.token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Text    string `json:"text"`
		Seconds int64  `json:"duration_seconds"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "hello from a voice note", body.Text)
	assert.Equal(t, int64(43), body.Seconds, "duration is rounded up")

	profile, err := api.store.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(43), profile.TranscriptionSecondsUsed)
}

func TestTranscribeQuotaExceeded(t *testing.T) {
	api := newTestAPI(t, &fakeAI{response: enrichmentResponse}, defaultFree(), "")
	require.NoError(t, api.store.AddTranscriptionSeconds(context.Background(), "u1", 600))

	rec := api.doAudio(t, api.token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUsageSnapshotEndpoint(t *testing.T) {
	api := newTestAPI(t, &fakeAI{response: enrichmentResponse}, defaultFree(), "")
	ctx := context.Background()
	require.NoError(t, api.store.CreateNote(ctx, &models.Note{ID: "n1", UserID: "u1", CreatedAt: time.Now()}))
	require.NoError(t, api.store.AddTokenUsage(ctx, "u1", 500))

	rec := api.do(http.MethodGet, "/usage", "", api.token)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap plans.Snapshot
	decodeBody(t, rec, &snap)
	assert.Equal(t, 1, snap.NoteCount)
	assert.Equal(t, int64(500), snap.AITokensUsed)
	assert.Equal(t, "free", snap.PlanName)
}

func TestCheckoutEndpoint(t *testing.T) {
	payments := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkouts", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "v-pro", req["variant_id"])
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"url": "https://pay.example/checkout/abc"}`))
	}))
	defer payments.Close()

	api := newTestAPI(t, &fakeAI{response: enrichmentResponse}, defaultFree(), payments.URL)

	rec := api.do(http.MethodPost, "/checkout", `{"variant_id": "v-pro"}`, api.token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "https://pay.example/checkout/abc", body["url"])

	rec = api.do(http.MethodPost, "/checkout", `{}`, api.token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscriptionEndpointsRequireSubscription(t *testing.T) {
	api := newTestAPI(t, &fakeAI{response: enrichmentResponse}, defaultFree(), "")

	rec := api.do(http.MethodPost, "/subscription/cancel", "", api.token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/subscription/portal", "", api.token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func signWebhook(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaymentsWebhookEndpoint(t *testing.T) {
	api := newTestAPI(t, &fakeAI{response: enrichmentResponse}, defaultFree(), "")
	body := []byte(`{
		"meta": {"event_name": "subscription_created", "custom_data": {"user_id": "u1"}},
		"data": {"id": "sub-1", "attributes": {"status": "active", "variant_id": 11, "variant_name": "pro", "customer_id": 22}}
	}`)

	// No auth header needed, but the signature is mandatory.
	req := httptest.NewRequest(http.MethodPost, "/webhook/payments", bytes.NewReader(body))
	req.Header.Set("X-Signature", signWebhook(body))
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	profile, err := api.store.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, profile.SubscriptionStatus)

	req = httptest.NewRequest(http.MethodPost, "/webhook/payments", bytes.NewReader(body))
	req.Header.Set("X-Signature", "deadbeef")
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPaymentsWebhookAcksProcessingFailures(t *testing.T) {
	api := newTestAPI(t, &fakeAI{response: enrichmentResponse}, defaultFree(), "")
	// Verified but unusable payload: missing user_id.
	body := []byte(`{"meta": {"event_name": "subscription_created", "custom_data": {}}, "data": {"id": "sub-1"}}`)

	req := httptest.NewRequest(http.MethodPost, "/webhook/payments", bytes.NewReader(body))
	req.Header.Set("X-Signature", signWebhook(body))
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "processing failures still acknowledge")
}
