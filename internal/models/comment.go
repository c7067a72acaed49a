package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment belongs to a post and an author. Rows are removed when the parent
// post is deleted; a comment must never outlive its post.
type Comment struct {
	ID        uint           `gorm:"primaryKey" json:"comment_id"`
	PostID    uint           `gorm:"not null;index" json:"post_id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	User      User           `gorm:"foreignKey:UserID" json:"-"`
	Content   string         `gorm:"type:text" json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
