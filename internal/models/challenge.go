package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lingo-api/pkg/scoring"
)

// Challenge is a writing or speaking prompt scored against a weighted rubric.
type Challenge struct {
	ID                    uuid.UUID           `gorm:"type:char(36);primaryKey" json:"id"`
	Title                 string              `gorm:"size:255;not null" json:"title"`
	Prompt                string              `gorm:"type:text" json:"prompt"`
	Language              string              `gorm:"size:64" json:"language"`
	Category              string              `gorm:"size:64" json:"category"`
	Difficulty            string              `gorm:"size:32;not null" json:"difficulty"`
	IsActive              bool                `gorm:"not null" json:"is_active"`
	WordLimitMin          int                 `gorm:"not null;default:0" json:"word_limit_min"`
	WordLimitMax          int                 `gorm:"not null;default:0" json:"word_limit_max"`
	RubricRaw             datatypes.JSON      `gorm:"column:rubric;type:json" json:"-"`
	AverageScore          float64             `gorm:"not null;default:0" json:"average_score"`
	AttemptsCount         int64               `gorm:"not null;default:0" json:"attempts_count"`
	TotalScoreAccumulator float64             `gorm:"not null;default:0" json:"-"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
	Rubric                []scoring.Criterion `gorm:"-" json:"rubric"`
}

// BeforeCreate assigns an identifier when missing.
func (c *Challenge) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// BeforeSave serialises the rubric into its JSON column.
func (c *Challenge) BeforeSave(tx *gorm.DB) error {
	data, err := json.Marshal(c.Rubric)
	if err != nil {
		return err
	}
	if c.Rubric == nil {
		data = []byte("[]")
	}
	c.RubricRaw = datatypes.JSON(data)
	return nil
}

// AfterFind hydrates the rubric after loading from DB.
func (c *Challenge) AfterFind(tx *gorm.DB) error {
	c.Rubric = nil
	if len(c.RubricRaw) == 0 {
		return nil
	}
	return json.Unmarshal(c.RubricRaw, &c.Rubric)
}
