package ai

import "fmt"

const anthropicCompatBaseURL = "https://api.anthropic.com/v1/"

// AnthropicConfig configures the Anthropic provider.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// NewAnthropicProvider builds a provider that talks to Anthropic through its
// OpenAI-compatible chat completions endpoint. JSON response mode is not
// requested there; the evaluator extracts the object from the reply text.
func NewAnthropicProvider(cfg AnthropicConfig) (*ChatProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}

	return newChatProvider("anthropic", OpenAIConfig{
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		BaseURL:   anthropicCompatBaseURL,
		MaxTokens: cfg.MaxTokens,
	}, false), nil
}
