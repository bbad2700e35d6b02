package scoring

import (
	"math"
	"strings"
)

// Challenge difficulty levels.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

const (
	// MinQualifyingScore is the total score below which no XP is awarded.
	MinQualifyingScore = 30.0
	// MinAward is the smallest non-zero XP reward.
	MinAward = 5
)

var baseXP = map[string]float64{
	DifficultyBeginner:     40,
	DifficultyIntermediate: 60,
	DifficultyAdvanced:     80,
}

// BaseXP returns the reward for a perfect first attempt at the given difficulty.
func BaseXP(difficulty string) float64 {
	if base, ok := baseXP[strings.ToLower(strings.TrimSpace(difficulty))]; ok {
		return base
	}
	return baseXP[DifficultyBeginner]
}

// AttemptMultiplier is the diminishing-reward factor for the nth attempt.
func AttemptMultiplier(attemptNumber int) float64 {
	switch {
	case attemptNumber <= 1:
		return 1.0
	case attemptNumber == 2:
		return 0.6
	case attemptNumber == 3:
		return 0.4
	default:
		return 0.25
	}
}

// Award computes the XP earned by a submission.
func Award(difficulty string, totalScore float64, attemptNumber int) int {
	if math.IsNaN(totalScore) || totalScore < MinQualifyingScore {
		return 0
	}
	if totalScore > 100 {
		totalScore = 100
	}

	award := int(math.Round(BaseXP(difficulty) * (totalScore / 100) * AttemptMultiplier(attemptNumber)))
	if award > 0 && award < MinAward {
		award = MinAward
	}
	return award
}
