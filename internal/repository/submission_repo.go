package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lingo-api/internal/models"
)

// ErrDuplicateAttempt signals that another submission already holds the attempt number.
var ErrDuplicateAttempt = errors.New("duplicate attempt number")

// RewardResult reports the user's XP after a submission was stored.
type RewardResult struct {
	Applied bool
	UserXP  int64
}

// LeaderboardRow is one user's best submission for a challenge.
type LeaderboardRow struct {
	Submission models.Submission
	User       models.User
}

// SubmissionRepository persists and queries challenge submissions.
type SubmissionRepository interface {
	CountAttempts(ctx context.Context, challengeID uuid.UUID, userID uint) (int64, error)
	CreateWithReward(ctx context.Context, submission *models.Submission) (RewardResult, error)
	ListByChallengeAndUser(ctx context.Context, challengeID uuid.UUID, userID uint) ([]models.Submission, error)
	BestByUser(ctx context.Context, challengeID uuid.UUID, limit int) ([]LeaderboardRow, error)
}

type submissionRepository struct {
	db    *gorm.DB
	users UserRepository
}

// NewSubmissionRepository instantiates the repository. XP credits go through users.
func NewSubmissionRepository(db *gorm.DB, users UserRepository) SubmissionRepository {
	return &submissionRepository{db: db, users: users}
}

func (r *submissionRepository) CountAttempts(ctx context.Context, challengeID uuid.UUID, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		Count(&count).Error
	return count, err
}

// CreateWithReward credits the submission's XP to its user and inserts the
// submission in one transaction. A clash on the attempt number rolls both back.
// An unknown user yields gorm.ErrRecordNotFound whether or not XP was earned.
func (r *submissionRepository) CreateWithReward(ctx context.Context, submission *models.Submission) (RewardResult, error) {
	var reward RewardResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := r.users.WithTx(tx)
		if submission.XPAwarded > 0 {
			xp, err := users.IncrementXP(ctx, submission.UserID, submission.XPAwarded)
			if err != nil {
				return err
			}
			reward = RewardResult{Applied: true, UserXP: xp}
		} else if _, err := users.GetByID(ctx, submission.UserID); err != nil {
			return err
		}

		if err := tx.Create(submission).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateAttempt
			}
			return err
		}
		return nil
	})
	if err != nil {
		return RewardResult{}, err
	}

	return reward, nil
}

func (r *submissionRepository) ListByChallengeAndUser(ctx context.Context, challengeID uuid.UUID, userID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Select("id", "challenge_id", "user_id", "attempt_number", "total_score", "xp_awarded", "created_at").
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		Order("attempt_number DESC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

const bestSubmissionIDsQuery = `
SELECT ranked.id
FROM (
	SELECT id, total_score, created_at,
		ROW_NUMBER() OVER (
			PARTITION BY user_id
			ORDER BY total_score DESC, created_at ASC, attempt_number ASC
		) AS rn
	FROM submissions
	WHERE challenge_id = ?
) ranked
WHERE ranked.rn = 1
ORDER BY ranked.total_score DESC, ranked.created_at ASC
LIMIT ?`

// BestByUser returns each user's best submission ordered by score, then by
// how early that score was reached.
func (r *submissionRepository) BestByUser(ctx context.Context, challengeID uuid.UUID, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = 20
	}

	var ids []string
	if err := r.db.WithContext(ctx).Raw(bestSubmissionIDsQuery, challengeID, limit).Scan(&ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []LeaderboardRow{}, nil
	}

	var submissions []models.Submission
	if err := r.db.WithContext(ctx).
		Omit("text", "ai_raw").
		Where("id IN ?", ids).
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	userIDs := make([]uint, 0, len(submissions))
	byID := make(map[string]models.Submission, len(submissions))
	for _, submission := range submissions {
		byID[submission.ID.String()] = submission
		userIDs = append(userIDs, submission.UserID)
	}

	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	usersByID := make(map[uint]models.User, len(users))
	for _, user := range users {
		usersByID[user.ID] = user
	}

	rows := make([]LeaderboardRow, 0, len(ids))
	for _, id := range ids {
		submission, ok := byID[id]
		if !ok {
			continue
		}
		rows = append(rows, LeaderboardRow{Submission: submission, User: usersByID[submission.UserID]})
	}

	return rows, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") || strings.Contains(message, "duplicate key")
}
