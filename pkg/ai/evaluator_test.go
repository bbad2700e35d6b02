package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lingo-api/pkg/scoring"
)

type scriptedProvider struct {
	replies []string
	errs    []error
	calls   int
	users   []string
}

func (p *scriptedProvider) Generate(_ context.Context, _ string, userPrompt string) (string, error) {
	idx := p.calls
	p.calls++
	p.users = append(p.users, userPrompt)
	if idx < len(p.errs) && p.errs[idx] != nil {
		return "", p.errs[idx]
	}
	if idx < len(p.replies) {
		return p.replies[idx], nil
	}
	return p.replies[len(p.replies)-1], nil
}

func (p *scriptedProvider) Model() string { return "test-model" }

func (p *scriptedProvider) Name() string { return "scripted" }

const validReply = `{"categories":[{"key":"grammar","score":80,"comment":"Good control of tenses."},{"label":"Content","score":49.6}],"overallFeedback":"Solid essay."}`

func essayInput() EvaluationInput {
	return EvaluationInput{
		ChallengeID: "6f1c1b8e-7f0a-4a57-9f43-2f2b51d1a001",
		Title:       "Describe your hometown",
		Prompt:      "Write about the place you grew up.",
		Language:    "Spanish",
		Difficulty:  scoring.DifficultyIntermediate,
		Rubric: []scoring.Criterion{
			{Name: "Grammar", Weight: 60, Description: "Accuracy of verb forms"},
			{Name: "Content", Weight: 40},
		},
		Essay: "Mi ciudad es pequeña pero muy bonita y tiene un mercado enorme.",
	}
}

func newTestEvaluator(provider Provider) (*RubricEvaluator, *[]time.Duration) {
	evaluator := NewRubricEvaluator(EvaluatorConfig{Provider: provider, Logger: zerolog.Nop()})
	sleeps := &[]time.Duration{}
	evaluator.sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return ctx.Err()
	}
	return evaluator, sleeps
}

func TestEvaluateHeuristicFallbackIsDeterministic(t *testing.T) {
	evaluator := NewRubricEvaluator(EvaluatorConfig{Logger: zerolog.Nop()})
	require.True(t, evaluator.UsesFallback())
	require.Equal(t, "heuristic", evaluator.ProviderName())

	first, err := evaluator.Evaluate(context.Background(), essayInput())
	require.NoError(t, err)
	second, err := evaluator.Evaluate(context.Background(), essayInput())
	require.NoError(t, err)

	require.Equal(t, HeuristicModel, first.Model)
	require.Equal(t, first.Categories, second.Categories)
	require.Equal(t, first.OverallFeedback, second.OverallFeedback)
	require.Len(t, first.Categories, 2)
	require.Equal(t, "grammar", first.Categories[0].Key)
	for _, category := range first.Categories {
		require.GreaterOrEqual(t, category.Score, 0.0)
		require.LessOrEqual(t, category.Score, 100.0)
		require.NotEmpty(t, category.Comment)
	}
}

func TestEvaluateHeuristicMatchesFormula(t *testing.T) {
	input := essayInput()
	input.Essay = "ab"
	input.Rubric = []scoring.Criterion{{Name: "only", Weight: 100}}

	result := heuristicEvaluation(input)

	// ('a'+'b') % 1000 = 195; (195+37) % 101 = 30; 0.7*30 + 0.3*100 = 51
	require.Equal(t, 51.0, result.Categories[0].Score)
}

func TestEvaluateRejectsRubricBeforeCallingProvider(t *testing.T) {
	provider := &scriptedProvider{replies: []string{validReply}}
	evaluator, _ := newTestEvaluator(provider)
	require.False(t, evaluator.UsesFallback())
	require.Equal(t, "scripted", evaluator.ProviderName())

	input := essayInput()
	input.Rubric = []scoring.Criterion{{Name: "grammar", Weight: 60}, {Name: "content", Weight: 30}}

	_, err := evaluator.Evaluate(context.Background(), input)
	require.ErrorIs(t, err, scoring.ErrInvalidRubric)
	require.Zero(t, provider.calls)

	fallback := NewRubricEvaluator(EvaluatorConfig{Logger: zerolog.Nop()})
	_, err = fallback.Evaluate(context.Background(), input)
	require.ErrorIs(t, err, scoring.ErrInvalidRubric)
}

func TestEvaluateParsesReplyWrappedInProse(t *testing.T) {
	provider := &scriptedProvider{replies: []string{"Here is my grading:\n```json\n" + validReply + "\n```\nGood luck!"}}
	evaluator, sleeps := newTestEvaluator(provider)

	result, err := evaluator.Evaluate(context.Background(), essayInput())
	require.NoError(t, err)
	require.Equal(t, "test-model", result.Model)
	require.Equal(t, 1, result.Attempts)
	require.Empty(t, *sleeps)
	require.Equal(t, "Solid essay.", result.OverallFeedback)
	require.Contains(t, result.Raw, "Here is my grading")
	require.Equal(t, []scoring.Category{
		{Key: "grammar", Label: "grammar", Score: 80, Comment: "Good control of tenses."},
		{Key: "content", Label: "Content", Score: 50},
	}, result.Categories)
	require.Contains(t, provider.users[0], "Grammar (weight 60): Accuracy of verb forms")
}

func TestEvaluateDropsCategoriesOutsideRubric(t *testing.T) {
	reply := `{"categories":[{"key":"grammar","score":70},{"key":"style","score":95},{"key":"CONTENT","score":60}],"overallFeedback":"ok"}`
	evaluator, _ := newTestEvaluator(&scriptedProvider{replies: []string{reply}})

	result, err := evaluator.Evaluate(context.Background(), essayInput())
	require.NoError(t, err)
	require.Len(t, result.Categories, 2)
	require.Equal(t, "grammar", result.Categories[0].Key)
	require.Equal(t, "content", result.Categories[1].Key)
}

func TestEvaluateRetriesWithExponentialBackoff(t *testing.T) {
	provider := &scriptedProvider{
		errs:    []error{errors.New("connection reset"), nil},
		replies: []string{"", validReply},
	}
	evaluator, sleeps := newTestEvaluator(provider)

	result, err := evaluator.Evaluate(context.Background(), essayInput())
	require.NoError(t, err)
	require.Equal(t, 2, result.Attempts)
	require.Equal(t, 2, provider.calls)
	require.Equal(t, []time.Duration{time.Second}, *sleeps)
}

func TestEvaluateFailsAfterThreeAttempts(t *testing.T) {
	provider := &scriptedProvider{replies: []string{`{"categories":[],"overallFeedback":"x"}`}}
	evaluator, sleeps := newTestEvaluator(provider)
	input := essayInput()

	_, err := evaluator.Evaluate(context.Background(), input)
	require.ErrorIs(t, err, ErrEvaluationFailed)
	require.ErrorIs(t, err, ErrMalformedResponse)
	require.Equal(t, 3, provider.calls)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *sleeps)

	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	require.Equal(t, input.ChallengeID, evalErr.ChallengeID)
	require.Equal(t, len(input.Essay), evalErr.EssayLength)
	require.Equal(t, 2, evalErr.RubricSize)
	require.Equal(t, 3, evalErr.Attempts)
	require.False(t, evalErr.Timestamp.IsZero())
}

func TestEvaluateStopsRetryingWhenContextCancelled(t *testing.T) {
	provider := &scriptedProvider{errs: []error{errors.New("boom"), errors.New("boom"), errors.New("boom")}, replies: []string{""}}
	evaluator, sleeps := newTestEvaluator(provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := evaluator.Evaluate(ctx, essayInput())
	require.ErrorIs(t, err, ErrEvaluationFailed)
	require.Equal(t, 1, provider.calls)
	require.Empty(t, *sleeps)
}
