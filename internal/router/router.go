package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/speakup-api/internal/config"
	"github.com/noah-isme/speakup-api/internal/handler"
	"github.com/noah-isme/speakup-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	TutorHandler *handler.TutorHandler
	Health       handler.ConfigurationReporter
	// TutorLimiter guards the generation endpoints. Nil disables it.
	TutorLimiter fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Health))

	if deps.TutorHandler != nil {
		limiter := deps.TutorLimiter
		if limiter == nil {
			limiter = func(c *fiber.Ctx) error { return c.Next() }
		}
		deps.TutorHandler.Register(api.Group("/tutor", limiter))
	}
}
