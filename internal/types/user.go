package types

import (
	"time"

	"github.com/google/uuid"
)

// PointsPerLevel drives level derivation: one level per 100 points, floor at 1.
const PointsPerLevel = 100

type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string     `gorm:"uniqueIndex;not null;column:username" json:"username"`
	Email        string     `gorm:"uniqueIndex;not null;column:email" json:"email"`
	PasswordHash string     `gorm:"not null;column:password_hash" json:"-"`
	Nickname     string     `gorm:"column:nickname" json:"nickname"`
	Avatar       string     `gorm:"column:avatar;default:default_avatar.png" json:"avatar"`
	Bio          string     `gorm:"column:bio" json:"bio"`
	Location     string     `gorm:"column:location" json:"location"`
	IsActive     bool       `gorm:"column:is_active;default:true" json:"is_active"`
	IsAdmin      bool       `gorm:"column:is_admin;default:false" json:"is_admin"`
	Language     string     `gorm:"column:language;default:zh_CN" json:"language"`
	Theme        string     `gorm:"column:theme;default:light" json:"theme"`
	Points       int        `gorm:"column:points;default:0" json:"points"`
	Level        int        `gorm:"column:level;default:1" json:"level"`
	LastLogin    *time.Time `gorm:"column:last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "user" }

// AddPoints accumulates points and re-derives the level. The level never
// decreases. Returns true when the user levelled up.
func (u *User) AddPoints(points int) bool {
	u.Points += points
	newLevel := (u.Points / PointsPerLevel) + 1
	if newLevel > u.Level {
		u.Level = newLevel
		return true
	}
	return false
}

func (u *User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}
