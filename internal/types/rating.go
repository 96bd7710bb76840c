package types

import (
	"time"

	"github.com/google/uuid"
)

// Rating scores are always in [1,5]. A user has at most one rating per story
// and one per module, enforced by the composite unique indexes below; a second
// submission updates the existing row.
type Rating struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Score     int             `gorm:"not null;column:score" json:"score"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_user_story_rating,unique;index:idx_user_module_rating,unique" json:"user_id"`
	User      *User           `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	StoryID   *uuid.UUID      `gorm:"type:uuid;index:idx_user_story_rating,unique" json:"story_id,omitempty"`
	Story     *Story          `gorm:"constraint:OnDelete:CASCADE;foreignKey:StoryID;references:ID" json:"story,omitempty"`
	ModuleID  *uuid.UUID      `gorm:"type:uuid;index:idx_user_module_rating,unique" json:"module_id,omitempty"`
	Module    *LearningModule `gorm:"constraint:OnDelete:CASCADE;foreignKey:ModuleID;references:ID" json:"module,omitempty"`
	Review    string          `gorm:"column:review" json:"review,omitempty"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null" json:"updated_at"`
}

func (Rating) TableName() string { return "rating" }

const (
	MinRatingScore = 1
	MaxRatingScore = 5

	// LikeThreshold is the score at or above which a rating counts as a
	// positive signal for the recommendation engine.
	LikeThreshold = 4
)
