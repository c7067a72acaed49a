// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered account. Password always holds a bcrypt hash;
// the plaintext never leaves the signup/login handlers.
type User struct {
	ID              uint           `gorm:"primaryKey" json:"user_id"`
	Email           string         `gorm:"size:254;not null;uniqueIndex" json:"email"`
	Password        string         `gorm:"not null" json:"-"`
	Nickname        string         `gorm:"size:60;not null" json:"nickname"`
	ProfileImageURL string         `json:"profile_image_url,omitempty"`
	Posts           []Post         `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}
