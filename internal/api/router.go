package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/Harshitk-cp/kindred/internal/api/handlers"
	mw "github.com/Harshitk-cp/kindred/internal/api/middleware"
	"github.com/Harshitk-cp/kindred/internal/buildconfig"
	"github.com/Harshitk-cp/kindred/internal/config"
	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/Harshitk-cp/kindred/internal/llm"
	"github.com/Harshitk-cp/kindred/internal/service"
	"github.com/Harshitk-cp/kindred/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores groups the persistence dependencies of the app.
type Stores struct {
	Tenants       domain.TenantStore
	Personas      domain.PersonaStore
	Patterns      domain.PatternStore
	Feedback      domain.FeedbackStore
	Evolution     domain.EvolutionStore
	Corrections   domain.CorrectionSettingsStore
	UsedResponses domain.UsedResponseStore
}

// App holds the router and background services for lifecycle management.
type App struct {
	Router    *chi.Mux
	Sweeper   *service.Sweeper
	Evolution *service.EvolutionService
	startTime time.Time
	metrics   *mw.MetricsCollector
}

// NewApp wires the Postgres and Redis backed stores and the configured text
// generator into an App.
func NewApp(db *pgxpool.Pool, rdb *redis.Client, logger *zap.Logger) (*App, error) {
	stores := Stores{
		Tenants:     store.NewTenantStore(db),
		Personas:    store.NewPersonaStore(db),
		Patterns:    store.NewPatternStore(db),
		Feedback:    store.NewFeedbackStore(db),
		Evolution:   store.NewEvolutionStore(db),
		Corrections: store.NewCorrectionSettingsStore(db),
		// Keys outlive the window a little so a late sweep never races a read.
		UsedResponses: store.NewUsedResponseStore(rdb, 2*config.DedupWindow()),
	}

	llmProvider := config.LLMProvider()
	generator, err := llm.NewClient(llmProvider, config.LLMAPIKey())
	if err != nil {
		logger.Warn("LLM client initialization failed", zap.String("provider", llmProvider), zap.Error(err))
		generator = llm.UnavailableClient{Err: err}
	} else {
		logger.Info("LLM client initialized", zap.String("provider", llmProvider))
	}

	health := func(ctx context.Context) error {
		if err := db.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	}

	return NewAppWithStores(stores, generator, health, logger)
}

// NewAppWithStores builds the app on top of arbitrary store implementations.
// health may be nil.
func NewAppWithStores(stores Stores, generator domain.TextGenerator, health func(context.Context) error, logger *zap.Logger) (*App, error) {
	patterns, err := service.LoadCorrectionPatternsFile(config.CorrectionPatternsPath())
	if err != nil {
		return nil, fmt.Errorf("load correction patterns: %w", err)
	}

	// Services
	personaSvc := service.NewPersonaService(stores.Personas)

	correctionSvc := service.NewCorrectionService(service.NewCorrectionDetector(patterns), stores.Corrections, logger)
	correctionSvc.SetApplyTimeout(config.CorrectionApplyTimeout())

	evolutionSvc := service.NewEvolutionService(stores.Personas, stores.Patterns, stores.Feedback, stores.Evolution, logger)
	evolutionSvc.SetCache(config.AdjustmentCacheSize(), config.AdjustmentCacheTTL())

	patternSvc := service.NewPatternService(stores.Patterns, stores.Personas, evolutionSvc)
	feedbackSvc := service.NewFeedbackService(stores.Feedback, stores.Personas, evolutionSvc)

	tracker := service.NewResponseTracker(stores.UsedResponses, stores.Personas, logger)
	tracker.SetWindow(config.DedupWindow())

	sweeper := service.NewSweeper(tracker, logger)
	sweeper.SetInterval(config.DedupSweepInterval())

	chatSvc := service.NewChatService(
		stores.Personas,
		correctionSvc,
		evolutionSvc,
		tracker,
		service.NewPromptAssembler(config.PromptHistoryTurns()),
		generator,
		logger,
	)
	chatSvc.SetFetchTimeout(config.AdjustmentFetchTimeout())

	// Handlers
	tenantHandler := handlers.NewTenantHandler(stores.Tenants)
	personaHandler := handlers.NewPersonaHandler(personaSvc)
	patternHandler := handlers.NewPatternHandler(personaSvc, patternSvc)
	feedbackHandler := handlers.NewFeedbackHandler(personaSvc, feedbackSvc)
	evolutionHandler := handlers.NewEvolutionHandler(personaSvc, evolutionSvc)
	chatHandler := handlers.NewChatHandler(personaSvc, chatSvc)
	responseHandler := handlers.NewResponseHandler(personaSvc, tracker)
	correctionHandler := handlers.NewCorrectionHandler(correctionSvc, logger)

	r := chi.NewRouter()

	// Initialize app with metrics tracking
	app := &App{
		Router:    r,
		Sweeper:   sweeper,
		Evolution: evolutionSvc,
		startTime: time.Now(),
		metrics:   mw.NewMetricsCollector(),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)                                                 // Generate/extract request ID first
	r.Use(middleware.RealIP)                                            // Extract real IP
	r.Use(app.metrics.Middleware)                                       // Collect metrics
	r.Use(mw.Logging(logger))                                           // Log all requests
	r.Use(middleware.Recoverer)                                         // Recover from panics
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst())) // Rate limiting

	// Health (no auth)
	r.Get("/health", healthHandler(health))

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	// Tenant creation (no auth, bootstrap endpoint)
	r.Post("/v1/tenants", tenantHandler.Create)

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(stores.Tenants))
		r.Use(mw.UserIdentity)
		r.Use(mw.RateLimitByCaller(config.RateLimitRPS(), config.RateLimitBurst()))

		r.Route("/personas", func(r chi.Router) {
			r.Post("/", personaHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", personaHandler.GetByID)
				r.Post("/patterns", patternHandler.Create)
				r.Post("/feedback", feedbackHandler.Create)

				r.Get("/evolution", evolutionHandler.GetState)
				r.Post("/evolution/refresh", evolutionHandler.Refresh)
				r.Post("/evolution/reset", evolutionHandler.Reset)
				r.Get("/adjustments", evolutionHandler.GetAdjustments)

				r.Post("/messages", chatHandler.SendMessage)
				r.Post("/opener", chatHandler.Opener)

				r.Post("/responses/available", responseHandler.Available)
				r.Post("/responses", responseHandler.Record)
			})
		})

		r.Route("/corrections", func(r chi.Router) {
			r.Get("/", correctionHandler.Get)
			r.Post("/detect", correctionHandler.Detect)
		})
	})

	return app, nil
}

func healthHandler(check func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			if err := check(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"requests":       app.metrics.Snapshot(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"build": buildconfig.Current(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.TenantStore             = (*store.TenantStore)(nil)
	_ domain.PersonaStore            = (*store.PersonaStore)(nil)
	_ domain.PatternStore            = (*store.PatternStore)(nil)
	_ domain.FeedbackStore           = (*store.FeedbackStore)(nil)
	_ domain.EvolutionStore          = (*store.EvolutionStore)(nil)
	_ domain.CorrectionSettingsStore = (*store.CorrectionSettingsStore)(nil)
	_ domain.UsedResponseStore       = (*store.UsedResponseStore)(nil)
	_ domain.TextGenerator           = (*llm.OpenAIClient)(nil)
	_ domain.TextGenerator           = (*llm.AnthropicClient)(nil)
	_ domain.TextGenerator           = (*llm.GeminiClient)(nil)
	_ domain.TextGenerator           = (*llm.CerebrasClient)(nil)
	_ domain.TextGenerator           = (*llm.MockClient)(nil)
	_ domain.TextGenerator           = llm.UnavailableClient{}
)
