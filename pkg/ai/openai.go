package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lingo",
		Subsystem: "ai",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of AI provider completion requests",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"provider", "model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lingo",
		Subsystem: "ai",
		Name:      "evaluation_failures_total",
		Help:      "Number of failed AI provider completion requests",
	}, []string{"provider", "model"})
)

// OpenAIConfig defines configuration options for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// ChatProvider implements Provider on top of an OpenAI-compatible chat completion API.
type ChatProvider struct {
	name     string
	client   *openai.Client
	model    string
	tokens   int
	temp     float32
	jsonMode bool
	tracer   trace.Tracer
}

// NewOpenAIProvider builds a provider backed by the OpenAI API.
func NewOpenAIProvider(cfg OpenAIConfig) (*ChatProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	return newChatProvider("openai", cfg, true), nil
}

func newChatProvider(name string, cfg OpenAIConfig, jsonMode bool) *ChatProvider {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		config.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &ChatProvider{
		name:     name,
		client:   openai.NewClientWithConfig(config),
		model:    cfg.Model,
		tokens:   cfg.MaxTokens,
		temp:     cfg.Temperature,
		jsonMode: jsonMode,
		tracer:   otel.Tracer("github.com/noah-isme/gema-lingo-api/pkg/ai/" + name),
	}
}

// Model returns the model identifier used for completions.
func (p *ChatProvider) Model() string {
	return p.model
}

// Name returns the provider name.
func (p *ChatProvider) Name() string {
	return p.name
}

// Generate sends one chat completion request and returns the raw reply text.
func (p *ChatProvider) Generate(parent context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, span := p.tracer.Start(parent, p.name+".generate", trace.WithAttributes(
		attribute.String("model", p.model),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   p.tokens,
		Temperature: p.temp,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}
	if p.jsonMode {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(p.name, p.model).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", p.fail(span, fmt.Errorf("%s completion: %w", p.name, err))
	}

	if len(resp.Choices) == 0 {
		return "", p.fail(span, fmt.Errorf("no choices returned from %s", p.name))
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", p.fail(span, fmt.Errorf("empty completion returned from %s", p.name))
	}

	span.SetAttributes(attribute.Int("usage.total_tokens", resp.Usage.TotalTokens))
	return content, nil
}

func (p *ChatProvider) fail(span trace.Span, err error) error {
	aiFailures.WithLabelValues(p.name, p.model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
