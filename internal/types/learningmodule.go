package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type LearningModule struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title             string         `gorm:"not null;column:title" json:"title"`
	TitleEN           string         `gorm:"column:title_en" json:"title_en"`
	Slug              string         `gorm:"uniqueIndex;column:slug" json:"slug"`
	Description       string         `gorm:"column:description" json:"description"`
	DescriptionEN     string         `gorm:"column:description_en" json:"description_en"`
	Content           string         `gorm:"not null;column:content" json:"content"`
	ContentEN         string         `gorm:"column:content_en" json:"content_en"`
	Category          string         `gorm:"index;column:category" json:"category"`
	DifficultyLevel   int            `gorm:"column:difficulty_level;default:1" json:"difficulty_level"`
	Position          int            `gorm:"column:position;default:0" json:"position"`
	VideoURL          string         `gorm:"column:video_url" json:"video_url"`
	Thumbnail         string         `gorm:"column:thumbnail" json:"thumbnail"`
	Resources         datatypes.JSON `gorm:"type:jsonb;column:resources" json:"resources"`
	// Prerequisite module ids. Stored and surfaced, not enforced by the
	// progression recommender (difficulty gating only).
	Prerequisites     datatypes.JSON `gorm:"type:jsonb;column:prerequisites" json:"prerequisites"`
	EstimatedDuration int            `gorm:"column:estimated_duration" json:"estimated_duration"`
	PointsReward      int            `gorm:"column:points_reward;default:10" json:"points_reward"`
	EnrollmentCount   int            `gorm:"column:enrollment_count;default:0" json:"enrollment_count"`
	CompletionCount   int            `gorm:"column:completion_count;default:0" json:"completion_count"`
	IsPublished       bool           `gorm:"column:is_published;default:true" json:"is_published"`
	IsFree            bool           `gorm:"column:is_free;default:true" json:"is_free"`
	CreatedAt         time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updated_at"`
}

func (LearningModule) TableName() string { return "learning_module" }

func (m *LearningModule) CompletionRate() float64 {
	if m.EnrollmentCount == 0 {
		return 0
	}
	return float64(m.CompletionCount) / float64(m.EnrollmentCount) * 100
}
