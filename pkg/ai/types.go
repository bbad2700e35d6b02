package ai

import (
	"context"

	"github.com/noah-isme/gema-lingo-api/pkg/scoring"
)

// EvaluationInput contains the challenge context and essay to grade.
type EvaluationInput struct {
	ChallengeID string
	Title       string
	Prompt      string
	Language    string
	Category    string
	Difficulty  string
	Rubric      []scoring.Criterion
	Essay       string
}

// EvaluationResult is the structured feedback returned by an evaluator.
type EvaluationResult struct {
	Model            string             `json:"model"`
	Categories       []scoring.Category `json:"categories"`
	OverallFeedback  string             `json:"overall_feedback"`
	ProcessingTimeMs int64              `json:"processing_time_ms"`
	Attempts         int                `json:"attempts"`
	Raw              string             `json:"raw,omitempty"`
}

// Evaluator grades an essay against a challenge rubric.
type Evaluator interface {
	Evaluate(ctx context.Context, input EvaluationInput) (EvaluationResult, error)
}

// Provider is a text-generation backend driven by a system and user prompt.
type Provider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Model() string
	Name() string
}
