package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("LINGO_JWT_SECRET", "secret")
	t.Setenv("LINGO_OPENAI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, AIProviderOpenAI, cfg.AIProvider)
	require.Equal(t, 3, cfg.AIMaxAttempts)
	require.Equal(t, time.Second, cfg.AIInitialBackoff)
	require.Equal(t, 30*time.Second, cfg.AIRequestTimeout)
	require.Equal(t, 30*time.Second, cfg.LeaderboardCacheTTL)
	require.Equal(t, 10, cfg.SubmissionRateLimit)
	require.Equal(t, time.Minute, cfg.SubmissionWindow)
	require.True(t, cfg.AIStoreRaw, "raw replies are kept outside production")
	require.False(t, cfg.AIConfigured())
}

func TestLoadProductionDisablesRawStorage(t *testing.T) {
	t.Setenv("LINGO_JWT_SECRET", "secret")
	t.Setenv("LINGO_APP_ENV", "production")
	t.Setenv("LINGO_AI_PROVIDER", "Anthropic")
	t.Setenv("LINGO_ANTHROPIC_API_KEY", "sk-ant")

	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.AIStoreRaw)
	require.Equal(t, AIProviderAnthropic, cfg.AIProvider)
	require.Equal(t, "sk-ant", cfg.AIAPIKey())
	require.True(t, cfg.AIConfigured())

	t.Setenv("LINGO_AI_STORE_RAW", "true")
	cfg, err = Load()
	require.NoError(t, err)
	require.True(t, cfg.AIStoreRaw)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("LINGO_JWT_SECRET", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("LINGO_JWT_SECRET", "secret")
	t.Setenv("LINGO_AI_PROVIDER", "gemini")
	_, err = Load()
	require.ErrorContains(t, err, "unsupported ai provider")

	t.Setenv("LINGO_AI_PROVIDER", "openai")
	t.Setenv("LINGO_LEADERBOARD_CACHE_TTL", "soon")
	_, err = Load()
	require.ErrorContains(t, err, "leaderboard.cache_ttl")
}
