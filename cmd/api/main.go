package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lingo-api/internal/config"
	"github.com/noah-isme/gema-lingo-api/internal/database"
	"github.com/noah-isme/gema-lingo-api/internal/handler"
	"github.com/noah-isme/gema-lingo-api/internal/middleware"
	"github.com/noah-isme/gema-lingo-api/internal/repository"
	"github.com/noah-isme/gema-lingo-api/internal/router"
	"github.com/noah-isme/gema-lingo-api/internal/service"
	"github.com/noah-isme/gema-lingo-api/pkg/ai"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "gema-lingo-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if !cfg.IsProduction() {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	ctx := context.Background()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if redisClient == nil {
		logger.Warn().Msg("redis not configured, leaderboard caching disabled")
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}

	provider, err := newAIProvider(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure ai provider")
	}
	if provider == nil {
		logger.Warn().Str("provider", cfg.AIProvider).Msg("no ai credential configured, using heuristic scoring")
	}

	evaluator := ai.NewRubricEvaluator(ai.EvaluatorConfig{
		Provider:       provider,
		MaxAttempts:    cfg.AIMaxAttempts,
		InitialBackoff: cfg.AIInitialBackoff,
		AttemptTimeout: cfg.AIRequestTimeout,
		Logger:         logger,
	})

	validate := validator.New(validator.WithRequiredStructEnabled())

	challengeRepo := repository.NewChallengeRepository(db)
	userRepo := repository.NewUserRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db, userRepo)

	leaderboardService := service.NewLeaderboardService(submissionRepo, redisClient, cfg.LeaderboardCacheTTL, logger)
	events := service.NewSubmissionEventPublisher(redisClient, natsConn, cfg.EventSubjectBase, logger)
	submissionService := service.NewSubmissionService(
		challengeRepo,
		submissionRepo,
		evaluator,
		leaderboardService,
		events,
		validate,
		service.SubmissionServiceOptions{StoreRawResponse: cfg.AIStoreRaw},
		logger,
	)

	submissionHandler := handler.NewSubmissionHandler(
		submissionService,
		leaderboardService,
		middleware.RateLimit("submissions", cfg.SubmissionRateLimit, cfg.SubmissionWindow),
		logger,
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    1 << 20,
		// one evaluation may spend up to three provider timeouts plus backoff
		WriteTimeout: time.Duration(cfg.AIMaxAttempts)*cfg.AIRequestTimeout + 30*time.Second,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigin: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler: submissionHandler,
		JWTMiddleware:     middleware.JWTIdentity(cfg.JWTSecret),
		Evaluator:         evaluator,
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Str("ai_provider", evaluator.ProviderName()).Msg("starting http server")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, cfg.ShutdownTimeout, logger)

	if natsConn != nil {
		if err := natsConn.Drain(); err != nil {
			logger.Warn().Err(err).Msg("failed to drain nats connection")
		}
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newAIProvider returns nil when the selected provider has no credential,
// which makes the evaluator fall back to heuristic scoring.
func newAIProvider(cfg config.Config) (ai.Provider, error) {
	if !cfg.AIConfigured() {
		return nil, nil
	}

	switch cfg.AIProvider {
	case config.AIProviderAnthropic:
		return ai.NewAnthropicProvider(ai.AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AIModel,
		})
	default:
		return ai.NewOpenAIProvider(ai.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.AIModel,
			Timeout: cfg.AIRequestTimeout,
		})
	}
}

func waitForShutdown(app *fiber.App, timeout time.Duration, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
