package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/remy-notes/internal/api"
	"github.com/xaenox/remy-notes/internal/assistant"
	"github.com/xaenox/remy-notes/internal/auth"
	"github.com/xaenox/remy-notes/internal/billing"
	"github.com/xaenox/remy-notes/internal/cascade"
	"github.com/xaenox/remy-notes/internal/enrich"
	"github.com/xaenox/remy-notes/internal/intent"
	"github.com/xaenox/remy-notes/internal/plans"
	"github.com/xaenox/remy-notes/internal/scope"
	"github.com/xaenox/remy-notes/internal/storage"
	"github.com/xaenox/remy-notes/internal/synthesis"
	"github.com/xaenox/remy-notes/internal/transcribe"
	"github.com/xaenox/remy-notes/internal/usage"
	"github.com/xaenox/remy-notes/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	configPath := os.Getenv("APP_CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", configPath))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	client := openai.NewClient(cfg.OpenAI.APIKey)

	tracker := usage.NewTracker(store, logger)
	scopes := scope.NewResolver(store)

	tiers := make([]plans.Tier, 0, len(cfg.Plans.Tiers))
	var free plans.Tier
	for _, t := range cfg.Plans.Tiers {
		tier := plans.Tier{
			Name:                      t.Name,
			DisplayName:               t.DisplayName,
			VariantID:                 t.VariantID,
			NoteLimit:                 t.NoteLimit,
			TranscriptionSecondsLimit: t.TranscriptionSecondsLimit,
		}
		if t.Name == "free" {
			free = tier
			continue
		}
		tiers = append(tiers, tier)
	}
	planResolver := plans.NewResolver(store, plans.StaticSource(tiers), free, cfg.Plans.DefaultPaid, logger)

	enricher := enrich.NewEnricher(client, cfg.OpenAI.Model, cfg.OpenAI.MaxTokens, cfg.OpenAI.Temperature, logger)
	capture := intent.NewPipeline(client, cfg.OpenAI.Model, store, logger)
	synth := synthesis.NewPipeline(client, cfg.OpenAI.Model, scopes, store, tracker, logger)
	chat := assistant.New(client, cfg.OpenAI.Model, scopes, capture, tracker, logger)
	transcriber := transcribe.NewTranscriber(client, cfg.OpenAI.WhisperModel, planResolver, store, tracker, logger)
	cascader := cascade.NewCascader(store, logger)

	payments := billing.NewClient(cfg.Payments.BaseURL, cfg.Payments.APIKey, cfg.Payments.StoreID)
	webhooks := billing.NewWebhookProcessor(cfg.Payments.WebhookSecret, store, logger)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)
	handler := api.NewHandler(store, synth, chat, enricher, transcriber, cascader, planResolver, tracker, payments, webhooks, logger)
	router := api.NewRouter(handler, verifier)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
	logger.Info("Server stopped")
}
