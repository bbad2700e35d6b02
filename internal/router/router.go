package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-lingo-api/internal/config"
	"github.com/noah-isme/gema-lingo-api/internal/handler"
	"github.com/noah-isme/gema-lingo-api/internal/middleware"
	"github.com/noah-isme/gema-lingo-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler *handler.SubmissionHandler
	JWTMiddleware     fiber.Handler
	Evaluator         handler.EvaluatorStatus
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Evaluator))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTIdentity(cfg.JWTSecret)
	}

	if deps.SubmissionHandler != nil {
		challenges := app.Group("/api/v2/challenges", jwtMiddleware, middleware.RequireUser())
		deps.SubmissionHandler.Register(challenges)
	}
}
