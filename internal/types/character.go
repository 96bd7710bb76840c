package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Character struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string         `gorm:"not null;index;column:name" json:"name"`
	NameEN            string         `gorm:"column:name_en" json:"name_en"`
	Description       string         `gorm:"column:description" json:"description"`
	DescriptionEN     string         `gorm:"column:description_en" json:"description_en"`
	Background        string         `gorm:"column:background" json:"background"`
	BackgroundEN      string         `gorm:"column:background_en" json:"background_en"`
	CharacterType     string         `gorm:"column:character_type" json:"character_type"`
	PersonalityTraits datatypes.JSON `gorm:"type:jsonb;column:personality_traits" json:"personality_traits"`
	SpecialAbilities  datatypes.JSON `gorm:"type:jsonb;column:special_abilities" json:"special_abilities"`
	ImageURL          string         `gorm:"column:image_url" json:"image_url"`
	ShadowPuppetImage string         `gorm:"column:shadow_puppet_image" json:"shadow_puppet_image"`
	ColorScheme       string         `gorm:"column:color_scheme" json:"color_scheme"`
	Origin            string         `gorm:"column:origin" json:"origin"`
	HistoricalPeriod  string         `gorm:"column:historical_period" json:"historical_period"`
	PopularityScore   int            `gorm:"column:popularity_score;default:0" json:"popularity_score"`
	IsActive          bool           `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt         time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updated_at"`
}

func (Character) TableName() string { return "character" }
