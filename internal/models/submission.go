package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lingo-api/pkg/scoring"
)

// Submission is an immutable, scored attempt by a user at a challenge.
// (challenge_id, user_id, attempt_number) is unique.
type Submission struct {
	ID               uuid.UUID               `gorm:"type:char(36);primaryKey" json:"id"`
	ChallengeID      uuid.UUID               `gorm:"type:char(36);not null;uniqueIndex:idx_submissions_attempt,priority:1" json:"challenge_id"`
	UserID           uint                    `gorm:"not null;index;uniqueIndex:idx_submissions_attempt,priority:2" json:"user_id"`
	AttemptNumber    int                     `gorm:"not null;uniqueIndex:idx_submissions_attempt,priority:3" json:"attempt_number"`
	Text             string                  `gorm:"type:text;not null" json:"text"`
	WordCount        int                     `gorm:"not null" json:"word_count"`
	ScoresRaw        datatypes.JSON          `gorm:"column:scores;type:json" json:"-"`
	TotalScore       float64                 `gorm:"not null;index" json:"total_score"`
	XPAwarded        int                     `gorm:"column:xp_awarded;not null;default:0" json:"xp_awarded"`
	Feedback         string                  `gorm:"type:text" json:"feedback"`
	AIModel          string                  `gorm:"column:ai_model;size:128" json:"ai_model"`
	AIRaw            string                  `gorm:"column:ai_raw;type:text" json:"-"`
	ProcessingTimeMs int64                   `gorm:"not null;default:0" json:"processing_time_ms"`
	CreatedAt        time.Time               `gorm:"index" json:"created_at"`
	Scores           []scoring.WeightedScore `gorm:"-" json:"scores"`
}

// BeforeCreate assigns an identifier when missing.
func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// BeforeSave serialises per-category scores into their JSON column.
func (s *Submission) BeforeSave(tx *gorm.DB) error {
	scores := s.Scores
	if scores == nil {
		scores = []scoring.WeightedScore{}
	}
	data, err := json.Marshal(scores)
	if err != nil {
		return err
	}
	s.ScoresRaw = datatypes.JSON(data)
	return nil
}

// AfterFind hydrates per-category scores after loading from DB.
func (s *Submission) AfterFind(tx *gorm.DB) error {
	s.Scores = nil
	if len(s.ScoresRaw) == 0 {
		return nil
	}
	return json.Unmarshal(s.ScoresRaw, &s.Scores)
}
