package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Activity types recorded through ActivityService.
const (
	ActivityViewStory      = "view_story"
	ActivityCompleteModule = "complete_module"
	ActivitySubmitComment  = "submit_comment"
	ActivityRateContent    = "rate_content"
	ActivityShareContent   = "share_content"
	ActivityLogin          = "login"
	ActivityLogout         = "logout"
	ActivityQuizAttempt    = "quiz_attempt"
)

type UserActivity struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User         *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	ActivityType string         `gorm:"not null;index;column:activity_type" json:"activity_type"`
	Details      datatypes.JSON `gorm:"type:jsonb;column:details" json:"details"`
	IPAddress    string         `gorm:"column:ip_address" json:"-"`
	UserAgent    string         `gorm:"column:user_agent" json:"-"`
	DeviceType   string         `gorm:"column:device_type" json:"device_type"`
	CreatedAt    time.Time      `gorm:"not null;index" json:"created_at"`
}

func (UserActivity) TableName() string { return "user_activity" }

// ContentView is an append-only read signal. UserID is nil for anonymous
// visitors.
type ContentView struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      *uuid.UUID      `gorm:"type:uuid;index" json:"user_id,omitempty"`
	User        *User           `gorm:"constraint:OnDelete:SET NULL;foreignKey:UserID;references:ID" json:"user,omitempty"`
	StoryID     *uuid.UUID      `gorm:"type:uuid;index" json:"story_id,omitempty"`
	Story       *Story          `gorm:"constraint:OnDelete:CASCADE;foreignKey:StoryID;references:ID" json:"story,omitempty"`
	ModuleID    *uuid.UUID      `gorm:"type:uuid;index" json:"module_id,omitempty"`
	Module      *LearningModule `gorm:"constraint:OnDelete:CASCADE;foreignKey:ModuleID;references:ID" json:"module,omitempty"`
	Duration    int             `gorm:"column:duration" json:"duration"`
	Completed   bool            `gorm:"column:completed;default:false" json:"completed"`
	Referrer    string          `gorm:"column:referrer" json:"-"`
	SearchQuery string          `gorm:"column:search_query" json:"search_query,omitempty"`
	IPAddress   string          `gorm:"column:ip_address" json:"-"`
	DeviceType  string          `gorm:"column:device_type" json:"device_type"`
	CreatedAt   time.Time       `gorm:"not null;index" json:"created_at"`
}

func (ContentView) TableName() string { return "content_view" }

// DetectDeviceType buckets a User-Agent string the same way the web tier did.
func DetectDeviceType(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "mobile"):
		return "mobile"
	case strings.Contains(ua, "tablet"), strings.Contains(ua, "ipad"):
		return "tablet"
	default:
		return "desktop"
	}
}
