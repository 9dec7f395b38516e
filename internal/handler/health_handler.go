package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/speakup-api/internal/config"
	"github.com/noah-isme/speakup-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Provider    string    `json:"provider"`
	Configured  bool      `json:"configured"`
}

// ConfigurationReporter reports whether the tutor backend has an API key.
type ConfigurationReporter interface {
	Configured() bool
}

// HealthCheck returns a handler that reports application health information.
// The service stays healthy while unconfigured; configured tells the UI whether it
// still has to ask for an API key.
func HealthCheck(cfg config.Config, reporter ConfigurationReporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Provider:    cfg.AIProvider,
			Configured:  reporter != nil && reporter.Configured(),
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
