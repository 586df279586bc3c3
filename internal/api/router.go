package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/xaenox/remy-notes/internal/assistant"
	"github.com/xaenox/remy-notes/internal/auth"
	"github.com/xaenox/remy-notes/internal/billing"
	"github.com/xaenox/remy-notes/internal/cascade"
	"github.com/xaenox/remy-notes/internal/enrich"
	"github.com/xaenox/remy-notes/internal/plans"
	"github.com/xaenox/remy-notes/internal/storage"
	"github.com/xaenox/remy-notes/internal/synthesis"
	"github.com/xaenox/remy-notes/internal/transcribe"
	"github.com/xaenox/remy-notes/internal/usage"
	"go.uber.org/zap"
)

// Handler holds API route handlers and their collaborators.
type Handler struct {
	storage     storage.Storage
	synthesis   *synthesis.Pipeline
	assistant   *assistant.Assistant
	enricher    *enrich.Enricher
	transcriber *transcribe.Transcriber
	cascader    *cascade.Cascader
	plans       *plans.Resolver
	tracker     *usage.Tracker
	payments    *billing.Client
	webhooks    *billing.WebhookProcessor
	logger      *zap.Logger
}

// NewHandler creates a new Handler.
func NewHandler(
	store storage.Storage,
	synth *synthesis.Pipeline,
	chat *assistant.Assistant,
	enricher *enrich.Enricher,
	transcriber *transcribe.Transcriber,
	cascader *cascade.Cascader,
	planResolver *plans.Resolver,
	tracker *usage.Tracker,
	payments *billing.Client,
	webhooks *billing.WebhookProcessor,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		storage:     store,
		synthesis:   synth,
		assistant:   chat,
		enricher:    enricher,
		transcriber: transcriber,
		cascader:    cascader,
		plans:       planResolver,
		tracker:     tracker,
		payments:    payments,
		webhooks:    webhooks,
		logger:      logger,
	}
}

// NewRouter creates a chi router with all API routes mounted. Every route
// except the payments webhook requires an authenticated session.
func NewRouter(h *Handler, verifier *auth.Verifier) chi.Router {
	r := chi.NewRouter()

	r.Post("/webhook/payments", h.PaymentsWebhook)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(verifier))

		r.Post("/brain-dump", h.BrainDump)
		r.Post("/chat", h.Chat)

		r.Get("/notes", h.ListNotes)
		r.Post("/notes", h.CreateNote)
		r.Get("/notes/{id}", h.GetNote)
		r.Put("/notes/{id}", h.UpdateNote)
		r.Delete("/notes/{id}", h.DeleteNote)

		r.Get("/folders", h.ListFolders)
		r.Post("/folders", h.CreateFolder)
		r.Put("/folders/{name}", h.UpdateFolder)
		r.Delete("/folders/{name}", h.DeleteFolder)

		r.Get("/tags", h.ListTags)
		r.Post("/tags", h.CreateTag)
		r.Put("/tags/{name}", h.UpdateTag)
		r.Delete("/tags/{name}", h.DeleteTag)

		r.Get("/intents", h.ListIntents)
		r.Put("/intents/{id}", h.UpdateIntent)

		r.Get("/todos", h.ListTodos)
		r.Put("/todos/{id}", h.UpdateTodo)

		r.Post("/transcribe", h.Transcribe)
		r.Get("/usage", h.UsageSnapshot)

		r.Post("/checkout", h.Checkout)
		r.Post("/subscription/cancel", h.CancelSubscription)
		r.Post("/subscription/portal", h.SubscriptionPortal)
		r.Post("/subscription/upgrade", h.UpgradeSubscription)
	})

	return r
}
