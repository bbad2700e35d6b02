package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lingo-api/internal/models"
	"github.com/noah-isme/gema-lingo-api/pkg/scoring"
)

// ChallengeRepository is the content store view used by the submission pipeline.
type ChallengeRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (models.Challenge, error)
	RecordSubmissionScore(ctx context.Context, id uuid.UUID, totalScore float64) (models.Challenge, error)
}

type challengeRepository struct {
	db *gorm.DB
}

// NewChallengeRepository constructs a challenge repository.
func NewChallengeRepository(db *gorm.DB) ChallengeRepository {
	return &challengeRepository{db: db}
}

func (r *challengeRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Challenge, error) {
	var challenge models.Challenge
	if err := r.db.WithContext(ctx).First(&challenge, "id = ?", id).Error; err != nil {
		return models.Challenge{}, err
	}
	return challenge, nil
}

// RecordSubmissionScore folds one more total score into the challenge aggregate.
// The counters are incremented in SQL and the average is derived from them while
// the row is still locked by the same transaction.
func (r *challengeRepository) RecordSubmissionScore(ctx context.Context, id uuid.UUID, totalScore float64) (models.Challenge, error) {
	var challenge models.Challenge
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Challenge{}).
			Where("id = ?", id).
			UpdateColumns(map[string]interface{}{
				"attempts_count":          gorm.Expr("attempts_count + 1"),
				"total_score_accumulator": gorm.Expr("total_score_accumulator + ?", totalScore),
				"updated_at":              time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.First(&challenge, "id = ?", id).Error; err != nil {
			return err
		}

		average := 0.0
		if challenge.AttemptsCount > 0 {
			average = scoring.Round2(challenge.TotalScoreAccumulator / float64(challenge.AttemptsCount))
		}
		challenge.AverageScore = average

		return tx.Model(&models.Challenge{}).
			Where("id = ?", id).
			UpdateColumn("average_score", average).
			Error
	})
	if err != nil {
		return models.Challenge{}, err
	}

	return challenge, nil
}
