package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lingo-api/internal/models"
	"github.com/noah-isme/gema-lingo-api/pkg/scoring"
)

func TestSubmissionRepositoryCreateWithRewardCreditsXP(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db, NewUserRepository(db))
	challenge := seedChallenge(t, db)
	user := seedUser(t, db, "ana")

	submission := models.Submission{
		ChallengeID:   challenge.ID,
		UserID:        user.ID,
		AttemptNumber: 1,
		Text:          "my city is small and quiet",
		WordCount:     6,
		TotalScore:    68,
		XPAwarded:     41,
		Scores: []scoring.WeightedScore{
			{Key: "grammar", Label: "Grammar", RawScore: 70, Weight: 40, WeightedScore: 28},
		},
	}

	reward, err := repo.CreateWithReward(context.Background(), &submission)
	require.NoError(t, err)
	require.True(t, reward.Applied)
	require.Equal(t, int64(41), reward.UserXP)

	var stored models.Submission
	require.NoError(t, db.First(&stored, "id = ?", submission.ID).Error)
	require.Len(t, stored.Scores, 1)
	require.Equal(t, "grammar", stored.Scores[0].Key)

	count, err := repo.CountAttempts(context.Background(), challenge.ID, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestSubmissionRepositoryCreateWithRewardZeroXPLeavesUserUntouched(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db, NewUserRepository(db))
	challenge := seedChallenge(t, db)
	user := seedUser(t, db, "ben")

	submission := models.Submission{ChallengeID: challenge.ID, UserID: user.ID, AttemptNumber: 1, Text: "short", WordCount: 1, TotalScore: 25}
	reward, err := repo.CreateWithReward(context.Background(), &submission)
	require.NoError(t, err)
	require.False(t, reward.Applied)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	require.Equal(t, int64(0), reloaded.XP)
}

func TestSubmissionRepositoryCreateWithRewardRejectsUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db, NewUserRepository(db))
	challenge := seedChallenge(t, db)

	for _, xp := range []int{0, 41} {
		submission := models.Submission{ChallengeID: challenge.ID, UserID: 9999, AttemptNumber: 1, Text: "nobody", WordCount: 1, TotalScore: 25, XPAwarded: xp}
		_, err := repo.CreateWithReward(context.Background(), &submission)
		require.ErrorIs(t, err, gorm.ErrRecordNotFound, "xp=%d", xp)
	}

	var stored int64
	require.NoError(t, db.Model(&models.Submission{}).Count(&stored).Error)
	require.Zero(t, stored)
}

func TestSubmissionRepositoryDuplicateAttemptRollsBackXP(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db, NewUserRepository(db))
	challenge := seedChallenge(t, db)
	user := seedUser(t, db, "cai")

	first := models.Submission{ChallengeID: challenge.ID, UserID: user.ID, AttemptNumber: 1, Text: "first", WordCount: 1, TotalScore: 80, XPAwarded: 48}
	_, err := repo.CreateWithReward(context.Background(), &first)
	require.NoError(t, err)

	clash := models.Submission{ChallengeID: challenge.ID, UserID: user.ID, AttemptNumber: 1, Text: "second", WordCount: 1, TotalScore: 90, XPAwarded: 54}
	_, err = repo.CreateWithReward(context.Background(), &clash)
	require.ErrorIs(t, err, ErrDuplicateAttempt)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	require.Equal(t, int64(48), reloaded.XP, "losing attempt must not award xp")

	count, err := repo.CountAttempts(context.Background(), challenge.ID, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestSubmissionRepositoryListByChallengeAndUserNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db, NewUserRepository(db))
	challenge := seedChallenge(t, db)
	user := seedUser(t, db, "dee")
	other := seedUser(t, db, "eli")

	for attempt := 1; attempt <= 3; attempt++ {
		submission := models.Submission{ChallengeID: challenge.ID, UserID: user.ID, AttemptNumber: attempt, Text: "text", WordCount: 1, TotalScore: float64(40 + attempt)}
		require.NoError(t, db.Create(&submission).Error)
	}
	require.NoError(t, db.Create(&models.Submission{ChallengeID: challenge.ID, UserID: other.ID, AttemptNumber: 1, Text: "text", WordCount: 1}).Error)

	items, err := repo.ListByChallengeAndUser(context.Background(), challenge.ID, user.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, 3, items[0].AttemptNumber)
	require.Equal(t, 1, items[2].AttemptNumber)
	require.Equal(t, 43.0, items[0].TotalScore)
	require.Empty(t, items[0].Text, "listing does not load essay text")
}

func TestSubmissionRepositoryBestByUserRanksBestScoreThenEarliest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db, NewUserRepository(db))
	challenge := seedChallenge(t, db)
	ana := seedUser(t, db, "ana")
	ben := seedUser(t, db, "ben")
	cai := seedUser(t, db, "cai")

	base := time.Now().Add(-time.Hour)
	rows := []models.Submission{
		{ChallengeID: challenge.ID, UserID: ana.ID, AttemptNumber: 1, TotalScore: 70, CreatedAt: base},
		{ChallengeID: challenge.ID, UserID: ana.ID, AttemptNumber: 2, TotalScore: 85, CreatedAt: base.Add(10 * time.Minute)},
		{ChallengeID: challenge.ID, UserID: ben.ID, AttemptNumber: 1, TotalScore: 85, CreatedAt: base.Add(5 * time.Minute)},
		{ChallengeID: challenge.ID, UserID: cai.ID, AttemptNumber: 1, TotalScore: 60, CreatedAt: base.Add(time.Minute)},
	}
	for i := range rows {
		rows[i].Text = "essay"
		rows[i].WordCount = 1
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	board, err := repo.BestByUser(context.Background(), challenge.ID, 20)
	require.NoError(t, err)
	require.Len(t, board, 3)

	require.Equal(t, ben.ID, board[0].User.ID, "equal best scores break ties by earliest achievement")
	require.Equal(t, ana.ID, board[1].User.ID)
	require.Equal(t, 2, board[1].Submission.AttemptNumber)
	require.Equal(t, "ana", board[1].User.Name)
	require.Equal(t, cai.ID, board[2].User.ID)

	limited, err := repo.BestByUser(context.Background(), challenge.ID, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestSubmissionRepositoryBestByUserEmptyChallenge(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db, NewUserRepository(db))
	challenge := seedChallenge(t, db)

	board, err := repo.BestByUser(context.Background(), challenge.ID, 20)
	require.NoError(t, err)
	require.Empty(t, board)
}
