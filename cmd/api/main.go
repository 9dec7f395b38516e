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

	"github.com/noah-isme/speakup-api/internal/broker"
	"github.com/noah-isme/speakup-api/internal/config"
	"github.com/noah-isme/speakup-api/internal/database"
	"github.com/noah-isme/speakup-api/internal/handler"
	"github.com/noah-isme/speakup-api/internal/middleware"
	"github.com/noah-isme/speakup-api/internal/router"
	"github.com/noah-isme/speakup-api/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	deps := service.TutorDependencies{Settings: cfg.AISettings()}

	if cfg.RedisURL != "" {
		redisClient, err := database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, speech enhancement cache disabled")
		} else {
			defer redisClient.Close()
			deps.Cache = service.NewRedisEnhancementCache(redisClient, cfg.EnhanceCacheTTL)
		}
	}

	if cfg.NATSURL != "" {
		natsConn, err := broker.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, feedback events disabled")
		} else {
			defer natsConn.Close()
			deps.Publisher = service.NewNATSFeedbackPublisher(natsConn, cfg.NATSChannel)
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	tutorService := service.NewTutorService(deps, validate, logger)
	tutorHandler := handler.NewTutorHandler(tutorService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		TutorHandler: tutorHandler,
		Health:       tutorService,
		TutorLimiter: middleware.RateLimit("tutor", cfg.TutorRateLimit, cfg.TutorRateWindow),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	logger.Info().
		Str("addr", cfg.HTTPAddress()).
		Str("provider", cfg.AIProvider).
		Bool("configured", tutorService.Configured()).
		Msg("speakup api started")

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
