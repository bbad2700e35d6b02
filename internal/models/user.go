package models

import "time"

// User is a learner. Only XP is written by the submission pipeline.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	AvatarURL string    `gorm:"size:512" json:"avatar_url"`
	XP        int64     `gorm:"not null;default:0" json:"xp"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
