package types

import (
	"time"

	"github.com/google/uuid"
)

type Comment struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Content      string          `gorm:"not null;column:content" json:"content"`
	UserID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User         *User           `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	StoryID      *uuid.UUID      `gorm:"type:uuid;index" json:"story_id,omitempty"`
	Story        *Story          `gorm:"constraint:OnDelete:CASCADE;foreignKey:StoryID;references:ID" json:"story,omitempty"`
	ModuleID     *uuid.UUID      `gorm:"type:uuid;index" json:"module_id,omitempty"`
	Module       *LearningModule `gorm:"constraint:OnDelete:CASCADE;foreignKey:ModuleID;references:ID" json:"module,omitempty"`
	ParentID     *uuid.UUID      `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	LikeCount    int             `gorm:"column:like_count;default:0" json:"like_count"`
	DislikeCount int             `gorm:"column:dislike_count;default:0" json:"dislike_count"`
	IsApproved   bool            `gorm:"column:is_approved;default:true" json:"is_approved"`
	IsPinned     bool            `gorm:"column:is_pinned;default:false" json:"is_pinned"`
	IsDeleted    bool            `gorm:"column:is_deleted;default:false" json:"is_deleted"`
	CreatedAt    time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updated_at"`
}

func (Comment) TableName() string { return "comment" }
