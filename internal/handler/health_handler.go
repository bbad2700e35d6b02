package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-lingo-api/internal/config"
	"github.com/noah-isme/gema-lingo-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Service      string    `json:"service"`
	Environment  string    `json:"environment"`
	AIProvider   string    `json:"ai_provider"`
	AIConfigured bool      `json:"ai_configured"`
}

// EvaluatorStatus reports which backend grades submissions.
type EvaluatorStatus interface {
	UsesFallback() bool
	ProviderName() string
}

// HealthCheck returns a handler that reports application health information.
// ai_configured is false when evaluations use the heuristic fallback.
func HealthCheck(cfg config.Config, evaluator EvaluatorStatus) fiber.Handler {
	provider := "heuristic"
	configured := false
	if evaluator != nil && !evaluator.UsesFallback() {
		provider = evaluator.ProviderName()
		configured = true
	}

	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:       "ok",
			Timestamp:    time.Now().UTC(),
			Service:      cfg.AppName,
			Environment:  cfg.AppEnv,
			AIProvider:   provider,
			AIConfigured: configured,
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
