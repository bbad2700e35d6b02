package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-lingo-api/pkg/scoring"
)

const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = time.Second
	defaultAttemptTimeout = 30 * time.Second
)

// EvaluatorConfig configures a RubricEvaluator. A nil Provider selects the
// deterministic heuristic fallback.
type EvaluatorConfig struct {
	Provider       Provider
	MaxAttempts    int
	InitialBackoff time.Duration
	AttemptTimeout time.Duration
	Logger         zerolog.Logger
}

// RubricEvaluator grades essays through a Provider with retry and backoff.
type RubricEvaluator struct {
	provider       Provider
	maxAttempts    int
	initialBackoff time.Duration
	attemptTimeout time.Duration
	logger         zerolog.Logger
	tracer         trace.Tracer
	now            func() time.Time
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewRubricEvaluator builds an evaluator from cfg, filling defaults.
func NewRubricEvaluator(cfg EvaluatorConfig) *RubricEvaluator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = defaultAttemptTimeout
	}

	return &RubricEvaluator{
		provider:       cfg.Provider,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		attemptTimeout: cfg.AttemptTimeout,
		logger:         cfg.Logger.With().Str("component", "rubric_evaluator").Logger(),
		tracer:         otel.Tracer("github.com/noah-isme/gema-lingo-api/pkg/ai/evaluator"),
		now:            time.Now,
		sleep:          sleepContext,
	}
}

// UsesFallback reports whether evaluations run without an AI provider.
func (e *RubricEvaluator) UsesFallback() bool {
	return e.provider == nil
}

// ProviderName names the backend that grades essays, "heuristic" without a provider.
func (e *RubricEvaluator) ProviderName() string {
	if e.provider == nil {
		return "heuristic"
	}
	return e.provider.Name()
}

// Evaluate grades input.Essay against input.Rubric.
func (e *RubricEvaluator) Evaluate(parent context.Context, input EvaluationInput) (EvaluationResult, error) {
	start := e.now()

	if err := scoring.ValidateRubric(input.Rubric); err != nil {
		return EvaluationResult{}, err
	}

	if e.provider == nil {
		result := heuristicEvaluation(input)
		result.ProcessingTimeMs = e.now().Sub(start).Milliseconds()
		return result, nil
	}

	ctx, span := e.tracer.Start(parent, "ai.evaluate", trace.WithAttributes(
		attribute.String("provider", e.provider.Name()),
		attribute.String("model", e.provider.Model()),
		attribute.String("challenge_id", input.ChallengeID),
		attribute.Int("rubric_size", len(input.Rubric)),
	))
	defer span.End()

	systemPrompt := evaluatorSystemPrompt()
	userPrompt := buildUserPrompt(input)
	index := scoring.NewIndex(input.Rubric)
	backoff := e.initialBackoff

	var lastErr error
	attempts := 0
	for attempts < e.maxAttempts {
		attempts++
		result, err := e.attempt(ctx, systemPrompt, userPrompt, index)
		if err == nil {
			result.Attempts = attempts
			result.ProcessingTimeMs = e.now().Sub(start).Milliseconds()
			span.SetAttributes(attribute.Int("attempts", attempts))
			return result, nil
		}

		lastErr = err
		if ctx.Err() != nil || attempts == e.maxAttempts {
			break
		}

		e.logger.Warn().
			Err(err).
			Str("challenge_id", input.ChallengeID).
			Int("attempt", attempts).
			Int("max_attempts", e.maxAttempts).
			Dur("backoff", backoff).
			Msg("ai evaluation attempt failed, retrying")

		if err := e.sleep(ctx, backoff); err != nil {
			lastErr = errors.Join(lastErr, err)
			break
		}
		backoff *= 2
	}

	evalErr := &EvaluationError{
		ChallengeID: input.ChallengeID,
		EssayLength: len(input.Essay),
		RubricSize:  len(input.Rubric),
		Attempts:    attempts,
		Timestamp:   e.now().UTC(),
		Err:         lastErr,
	}
	span.RecordError(evalErr)
	span.SetStatus(codes.Error, evalErr.Error())
	e.logger.Error().
		Err(lastErr).
		Str("challenge_id", input.ChallengeID).
		Int("essay_length", evalErr.EssayLength).
		Int("rubric_size", evalErr.RubricSize).
		Int("attempts", attempts).
		Msg("ai evaluation failed")

	return EvaluationResult{}, evalErr
}

func (e *RubricEvaluator) attempt(parent context.Context, systemPrompt, userPrompt string, index scoring.Index) (EvaluationResult, error) {
	ctx, cancel := context.WithTimeout(parent, e.attemptTimeout)
	defer cancel()

	raw, err := e.provider.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return EvaluationResult{}, fmt.Errorf("generate: %w", err)
	}

	payload, err := parseEvaluationResponse(raw)
	if err != nil {
		return EvaluationResult{}, err
	}

	categories, dropped := normalizeCategories(payload, index)
	if len(dropped) > 0 {
		e.logger.Warn().
			Strs("dropped_keys", dropped).
			Int("kept", len(categories)).
			Msg("ai categories did not match the rubric")
	}

	return EvaluationResult{
		Model:           e.provider.Model(),
		Categories:      categories,
		OverallFeedback: payload.OverallFeedback,
		Raw:             raw,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
