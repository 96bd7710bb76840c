package types

import (
	"time"

	"github.com/google/uuid"
)

type UserProgress struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_user_module_progress,unique" json:"user_id"`
	User          *User           `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	ModuleID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_user_module_progress,unique" json:"module_id"`
	Module        *LearningModule `gorm:"constraint:OnDelete:CASCADE;foreignKey:ModuleID;references:ID" json:"module,omitempty"`
	Progress      float64         `gorm:"column:progress;default:0" json:"progress"`
	Completed     bool            `gorm:"column:completed;default:false" json:"completed"`
	LastPosition  string          `gorm:"column:last_position" json:"last_position"`
	QuizAttempts  int             `gorm:"column:quiz_attempts;default:0" json:"quiz_attempts"`
	BestQuizScore int             `gorm:"column:best_quiz_score;default:0" json:"best_quiz_score"`
	QuizPassed    bool            `gorm:"column:quiz_passed;default:false" json:"quiz_passed"`
	TimeSpent     int             `gorm:"column:time_spent;default:0" json:"time_spent"`
	StartedAt     time.Time       `gorm:"column:started_at" json:"started_at"`
	CompletedAt   *time.Time      `gorm:"column:completed_at" json:"completed_at,omitempty"`
	LastAccessed  time.Time       `gorm:"column:last_accessed" json:"last_accessed"`
	Notes         string          `gorm:"column:notes" json:"notes,omitempty"`
}

func (UserProgress) TableName() string { return "user_progress" }

// ApplyProgress clamps the value to [0,100] and keeps a completed record at
// 100. Returns true when the update crossed the completion threshold.
func (p *UserProgress) ApplyProgress(value float64, now time.Time) bool {
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	if p.Completed {
		p.LastAccessed = now
		return false
	}
	p.Progress = value
	p.LastAccessed = now
	return p.Progress >= 100
}
