package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lingo-api/internal/config"
	"github.com/noah-isme/gema-lingo-api/internal/handler"
	"github.com/noah-isme/gema-lingo-api/pkg/ai"
)

func TestHealthCheckReportsAIProvider(t *testing.T) {
	anthropic, err := ai.NewAnthropicProvider(ai.AnthropicConfig{APIKey: "key"})
	require.NoError(t, err)

	cfg := config.Config{AppName: "Lingo", AppEnv: "test"}
	cases := []struct {
		name       string
		evaluator  handler.EvaluatorStatus
		configured bool
		provider   string
	}{
		{"fallback", ai.NewRubricEvaluator(ai.EvaluatorConfig{Logger: zerolog.Nop()}), false, "heuristic"},
		{"anthropic", ai.NewRubricEvaluator(ai.EvaluatorConfig{Provider: anthropic, Logger: zerolog.Nop()}), true, "anthropic"},
		{"missing", nil, false, "heuristic"},
	}

	for _, tc := range cases {
		app := fiber.New()
		app.Get("/health", handler.HealthCheck(cfg, tc.evaluator))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
		require.NoError(t, err, tc.name)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, tc.name)

		var body struct {
			Data handler.HealthResponse `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body), tc.name)
		require.Equal(t, "Lingo", body.Data.Service, tc.name)
		require.Equal(t, tc.configured, body.Data.AIConfigured, tc.name)
		require.Equal(t, tc.provider, body.Data.AIProvider, tc.name)
	}
}
