package repository

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lingo-api/internal/models"
	"github.com/noah-isme/gema-lingo-api/pkg/scoring"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Challenge{}, &models.Submission{}))
	return db
}

func seedChallenge(t *testing.T, db *gorm.DB) models.Challenge {
	t.Helper()

	challenge := models.Challenge{
		Title:        "Describe your city",
		Prompt:       "Write about the city you live in.",
		Language:     "en",
		Category:     "writing",
		Difficulty:   scoring.DifficultyIntermediate,
		IsActive:     true,
		WordLimitMin: 10,
		WordLimitMax: 200,
		Rubric: []scoring.Criterion{
			{Name: "Grammar", Weight: 40},
			{Name: "Vocabulary", Weight: 30},
			{Name: "Coherence", Weight: 30},
		},
	}
	require.NoError(t, db.Create(&challenge).Error)
	return challenge
}

func seedUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()

	user := models.User{Name: name, Email: name + "@example.com"}
	require.NoError(t, db.Create(&user).Error)
	return user
}
