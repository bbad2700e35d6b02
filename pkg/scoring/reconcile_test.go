package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lingo-api/pkg/scoring"
)

var essayRubric = []scoring.Criterion{
	{Name: "grammar", Weight: 60},
	{Name: "content", Weight: 40},
}

func TestReconcileWeightsCategories(t *testing.T) {
	result := scoring.Reconcile(essayRubric, []scoring.Category{
		{Key: "grammar", Score: 80, Comment: "few agreement errors"},
		{Key: "Content", Score: 50},
	})

	require.Equal(t, 68.0, result.Total)
	require.Empty(t, result.Unmatched)
	require.Len(t, result.Scores, 2)
	require.Equal(t, scoring.WeightedScore{Key: "grammar", Label: "grammar", RawScore: 80, Weight: 60, WeightedScore: 48, Comment: "few agreement errors"}, result.Scores[0])
	require.Equal(t, 20.0, result.Scores[1].WeightedScore)
	require.Equal(t, "content", result.Scores[1].Key)
}

func TestReconcileTotalIsSumOfRoundedWeightedScores(t *testing.T) {
	rubric := []scoring.Criterion{
		{Name: "a", Weight: 33.3},
		{Name: "b", Weight: 33.3},
		{Name: "c", Weight: 33.4},
	}
	categories := []scoring.Category{{Key: "a", Score: 77}, {Key: "b", Score: 91}, {Key: "c", Score: 100}}

	result := scoring.Reconcile(rubric, categories)

	expected := scoring.Round2(scoring.Round2(77*33.3/100) + scoring.Round2(91*33.3/100) + scoring.Round2(100*33.4/100))
	require.Equal(t, expected, result.Total)
	require.GreaterOrEqual(t, result.Total, 0.0)
	require.LessOrEqual(t, result.Total, 100.0)
}

func TestReconcileUnmatchedCategoryContributesZero(t *testing.T) {
	result := scoring.Reconcile(essayRubric, []scoring.Category{
		{Key: "grammar", Score: 100},
		{Label: "Style", Score: 90},
	})

	require.Equal(t, 60.0, result.Total)
	require.Equal(t, []string{"style"}, result.Unmatched)
	require.Equal(t, 0.0, result.Scores[1].Weight)
	require.Equal(t, 0.0, result.Scores[1].WeightedScore)
}

func TestReconcileClampsAndDeduplicates(t *testing.T) {
	result := scoring.Reconcile(essayRubric, []scoring.Category{
		{Key: "grammar", Score: 140},
		{Key: "content", Score: -5},
		{Key: "GRAMMAR", Score: 100},
	})

	require.Len(t, result.Scores, 2)
	require.Equal(t, 100, result.Scores[0].RawScore)
	require.Equal(t, 0, result.Scores[1].RawScore)
	require.Equal(t, 60.0, result.Total)
	require.Equal(t, []string{"grammar"}, result.Unmatched)
}

func TestReconcileMissingCategoryContributesNothing(t *testing.T) {
	result := scoring.Reconcile(essayRubric, []scoring.Category{{Key: "content", Score: 75}})
	require.Equal(t, 30.0, result.Total)
}

func TestClampScore(t *testing.T) {
	require.Equal(t, 81, scoring.ClampScore(80.6))
	require.Equal(t, 0, scoring.ClampScore(-3))
	require.Equal(t, 100, scoring.ClampScore(100.4))
}
