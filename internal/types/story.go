package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Story struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string         `gorm:"not null;index;column:title" json:"title"`
	TitleEN       string         `gorm:"column:title_en" json:"title_en"`
	Slug          string         `gorm:"uniqueIndex;column:slug" json:"slug"`
	Description   string         `gorm:"not null;column:description" json:"description"`
	DescriptionEN string         `gorm:"column:description_en" json:"description_en"`
	FullContent   string         `gorm:"column:full_content" json:"full_content"`
	FullContentEN string         `gorm:"column:full_content_en" json:"full_content_en"`
	Thumbnail     string         `gorm:"column:thumbnail" json:"thumbnail"`
	VideoURL      string         `gorm:"column:video_url" json:"video_url"`
	Images        datatypes.JSON `gorm:"type:jsonb;column:images" json:"images"`
	Category      string         `gorm:"index;column:category" json:"category"`
	Tags          datatypes.JSON `gorm:"type:jsonb;column:tags" json:"tags"`
	DifficultyLevel int          `gorm:"column:difficulty_level;default:1" json:"difficulty_level"`
	ViewCount     int            `gorm:"column:view_count;default:0" json:"view_count"`
	LikeCount     int            `gorm:"column:like_count;default:0" json:"like_count"`
	ShareCount    int            `gorm:"column:share_count;default:0" json:"share_count"`
	IsPublished   bool           `gorm:"column:is_published;default:true" json:"is_published"`
	IsFeatured    bool           `gorm:"column:is_featured;default:false" json:"is_featured"`
	Duration      int            `gorm:"column:duration" json:"duration"`
	AuthorID      *uuid.UUID     `gorm:"type:uuid;column:author_id" json:"author_id,omitempty"`
	Author        *User          `gorm:"constraint:OnDelete:SET NULL;foreignKey:AuthorID;references:ID" json:"author,omitempty"`
	PublishedAt   *time.Time     `gorm:"column:published_at" json:"published_at,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (Story) TableName() string { return "story" }

type Scene struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StoryID       uuid.UUID `gorm:"type:uuid;not null;index" json:"story_id"`
	Story         *Story    `gorm:"constraint:OnDelete:CASCADE;foreignKey:StoryID;references:ID" json:"story,omitempty"`
	Title         string    `gorm:"not null;column:title" json:"title"`
	TitleEN       string    `gorm:"column:title_en" json:"title_en"`
	Description   string    `gorm:"not null;column:description" json:"description"`
	DescriptionEN string    `gorm:"column:description_en" json:"description_en"`
	ImageURL      string    `gorm:"column:image_url" json:"image_url"`
	AudioURL      string    `gorm:"column:audio_url" json:"audio_url"`
	Position      int       `gorm:"column:position;not null;default:0" json:"position"`
	StartTime     int       `gorm:"column:start_time" json:"start_time"`
	EndTime       int       `gorm:"column:end_time" json:"end_time"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (Scene) TableName() string { return "scene" }

// StoryCharacter links a character into a story with its role and entrance
// order.
type StoryCharacter struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StoryID         uuid.UUID  `gorm:"type:uuid;not null;index:idx_story_character,unique" json:"story_id"`
	Story           *Story     `gorm:"constraint:OnDelete:CASCADE;foreignKey:StoryID;references:ID" json:"story,omitempty"`
	CharacterID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_story_character,unique" json:"character_id"`
	Character       *Character `gorm:"constraint:OnDelete:CASCADE;foreignKey:CharacterID;references:ID" json:"character,omitempty"`
	RoleDescription string     `gorm:"column:role_description" json:"role_description"`
	Position        int        `gorm:"column:position;default:0" json:"position"`
}

func (StoryCharacter) TableName() string { return "story_character" }
