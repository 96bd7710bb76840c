package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Quiz struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"module_id"`
	Module           *LearningModule `gorm:"constraint:OnDelete:CASCADE;foreignKey:ModuleID;references:ID" json:"module,omitempty"`
	Title            string          `gorm:"not null;column:title" json:"title"`
	TitleEN          string          `gorm:"column:title_en" json:"title_en"`
	TimeLimit        int             `gorm:"column:time_limit" json:"time_limit"`
	PassingScore     int             `gorm:"column:passing_score;default:60" json:"passing_score"`
	MaxAttempts      int             `gorm:"column:max_attempts;default:3" json:"max_attempts"`
	ShuffleQuestions bool            `gorm:"column:shuffle_questions;default:true" json:"shuffle_questions"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`
}

func (Quiz) TableName() string { return "quiz" }

type QuizQuestion struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	QuizID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"quiz_id"`
	Quiz           *Quiz          `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuizID;references:ID" json:"quiz,omitempty"`
	QuestionText   string         `gorm:"not null;column:question_text" json:"question_text"`
	QuestionTextEN string         `gorm:"column:question_text_en" json:"question_text_en"`
	QuestionType   string         `gorm:"column:question_type;default:multiple_choice" json:"question_type"`
	Position       int            `gorm:"column:position;default:0" json:"position"`
	Options        datatypes.JSON `gorm:"type:jsonb;column:options" json:"options"`
	OptionsEN      datatypes.JSON `gorm:"type:jsonb;column:options_en" json:"options_en"`
	CorrectAnswer  datatypes.JSON `gorm:"type:jsonb;column:correct_answer" json:"-"`
	Explanation    string         `gorm:"column:explanation" json:"explanation,omitempty"`
	ExplanationEN  string         `gorm:"column:explanation_en" json:"explanation_en,omitempty"`
	Points         int            `gorm:"column:points;default:1" json:"points"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
}

func (QuizQuestion) TableName() string { return "quiz_question" }

type QuizAnswer struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User         *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	QuizID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"quiz_id"`
	Quiz         *Quiz          `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuizID;references:ID" json:"quiz,omitempty"`
	QuestionID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"question_id"`
	Question     *QuizQuestion  `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuestionID;references:ID" json:"question,omitempty"`
	UserAnswer   datatypes.JSON `gorm:"type:jsonb;column:user_answer" json:"user_answer"`
	IsCorrect    bool           `gorm:"column:is_correct" json:"is_correct"`
	PointsEarned int            `gorm:"column:points_earned;default:0" json:"points_earned"`
	TimeSpent    int            `gorm:"column:time_spent" json:"time_spent"`
	AnsweredAt   time.Time      `gorm:"not null" json:"answered_at"`
}

func (QuizAnswer) TableName() string { return "quiz_answer" }
