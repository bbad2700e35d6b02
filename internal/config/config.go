package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported AI providers.
const (
	AIProviderOpenAI    = "openai"
	AIProviderAnthropic = "anthropic"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	CORSAllowOrigins    string
	DatabaseURL         string
	RedisURL            string
	NATSURL             string
	EventSubjectBase    string
	JWTSecret           string
	AIProvider          string
	OpenAIAPIKey        string
	AnthropicAPIKey     string
	AIModel             string
	AIMaxAttempts       int
	AIInitialBackoff    time.Duration
	AIRequestTimeout    time.Duration
	AIStoreRaw          bool
	LeaderboardCacheTTL time.Duration
	SubmissionRateLimit int
	SubmissionWindow    time.Duration
	ShutdownTimeout     time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// AIAPIKey returns the credential for the selected provider.
func (c Config) AIAPIKey() string {
	if c.AIProvider == AIProviderAnthropic {
		return c.AnthropicAPIKey
	}
	return c.OpenAIAPIKey
}

// AIConfigured reports whether evaluations go to a real provider instead of the heuristic fallback.
func (c Config) AIConfigured() bool {
	return strings.TrimSpace(c.AIAPIKey()) != ""
}

// IsProduction reports whether the service runs in a production-like environment.
func (c Config) IsProduction() bool {
	switch strings.ToLower(c.AppEnv) {
	case "production", "prod", "staging":
		return true
	default:
		return false
	}
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LINGO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("openai_api_key", "LINGO_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("anthropic_api_key", "LINGO_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")

	v.SetDefault("app.name", "GEMA Lingo API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("events.subject_base", "lingo")
	v.SetDefault("ai.provider", AIProviderOpenAI)
	v.SetDefault("ai.max_attempts", 3)
	v.SetDefault("ai.initial_backoff", "1s")
	v.SetDefault("ai.request_timeout", "30s")
	v.SetDefault("leaderboard.cache_ttl", "30s")
	v.SetDefault("submission.rate_limit", 10)
	v.SetDefault("submission.rate_window", "1m")
	v.SetDefault("shutdown.timeout", "10s")

	durations := map[string]*time.Duration{}
	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              strings.ToLower(v.GetString("app.env")),
		AppPort:             v.GetString("app.port"),
		CORSAllowOrigins:    v.GetString("cors.allow_origins"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		EventSubjectBase:    v.GetString("events.subject_base"),
		JWTSecret:           v.GetString("jwt.secret"),
		AIProvider:          strings.ToLower(strings.TrimSpace(v.GetString("ai.provider"))),
		OpenAIAPIKey:        v.GetString("openai_api_key"),
		AnthropicAPIKey:     v.GetString("anthropic_api_key"),
		AIModel:             v.GetString("ai.model"),
		AIMaxAttempts:       v.GetInt("ai.max_attempts"),
		SubmissionRateLimit: v.GetInt("submission.rate_limit"),
	}
	durations["ai.initial_backoff"] = &cfg.AIInitialBackoff
	durations["ai.request_timeout"] = &cfg.AIRequestTimeout
	durations["leaderboard.cache_ttl"] = &cfg.LeaderboardCacheTTL
	durations["submission.rate_window"] = &cfg.SubmissionWindow
	durations["shutdown.timeout"] = &cfg.ShutdownTimeout

	for key, target := range durations {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		*target = parsed
	}

	if v.IsSet("ai.store_raw") {
		cfg.AIStoreRaw = v.GetBool("ai.store_raw")
	} else {
		cfg.AIStoreRaw = !cfg.IsProduction()
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.AIProvider {
	case AIProviderOpenAI, AIProviderAnthropic:
	default:
		return Config{}, fmt.Errorf("unsupported ai provider %q", cfg.AIProvider)
	}

	if cfg.AIMaxAttempts <= 0 {
		cfg.AIMaxAttempts = 3
	}
	if cfg.SubmissionRateLimit <= 0 {
		cfg.SubmissionRateLimit = 10
	}

	return cfg, nil
}
