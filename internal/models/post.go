package models

import (
	"time"

	"gorm.io/gorm"
)

// Board types observed in the wild. BoardType is an opaque filter string;
// unknown values are stored as-is.
const (
	BoardTypeCouple  = "couple"
	BoardTypePlanner = "planner"
	BoardTypePrivate = "private"
)

// Post represents a board post. LikeCount and ViewCount are derived counters:
// they are mutated only through ToggleLike and IncrementView, never through a
// general update.
type Post struct {
	ID             uint           `gorm:"primaryKey" json:"post_id"`
	UserID         uint           `gorm:"not null;index" json:"user_id"`
	User           User           `gorm:"foreignKey:UserID" json:"-"`
	Title          string         `gorm:"size:2000;not null" json:"title"`
	Content        string         `gorm:"type:text;not null" json:"content"`
	BoardType      string         `gorm:"size:30;not null;default:'couple';index" json:"board_type"`
	ImageURL       string         `json:"image_url,omitempty"`
	ImageClass     string         `gorm:"size:60" json:"image_class,omitempty"`
	Summary        string         `gorm:"type:text" json:"summary,omitempty"`
	SentimentLabel string         `gorm:"size:20" json:"sentiment_label,omitempty"`
	SentimentScore float64        `json:"sentiment_score,omitempty"`
	Tags           []Tag          `gorm:"many2many:post_tags" json:"tags"`
	LikeCount      int            `gorm:"not null;default:0" json:"like_count"`
	ViewCount      int            `gorm:"not null;default:0" json:"view_count"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// PostLike is the (post, user) join row. Row existence means "user likes
// post"; the composite primary key is what keeps concurrent toggles honest.
type PostLike struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (PostLike) TableName() string {
	return "post_likes"
}

// Tag is a unique label attached to posts many-to-many.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:60;not null;uniqueIndex" json:"name"`
}
