package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

type ActivityCount struct {
	ActivityType string `json:"activity_type"`
	Count        int64  `json:"count"`
}

type UserActivityRepo interface {
	Create(ctx context.Context, tx *gorm.DB, activity *types.UserActivity) error
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, offset, limit int) ([]*types.UserActivity, int64, error)
	GetRecentTypesByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]string, error)
	CountByTypeSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]ActivityCount, error)
	CountActiveUsersSince(ctx context.Context, tx *gorm.DB, since time.Time) (int64, error)
}

type userActivityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserActivityRepo(db *gorm.DB, baseLog *logger.Logger) UserActivityRepo {
	return &userActivityRepo{db: db, log: baseLog.With("repo", "UserActivityRepo")}
}

func (ar *userActivityRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ar.db
}

func (ar *userActivityRepo) Create(ctx context.Context, tx *gorm.DB, activity *types.UserActivity) error {
	return ar.handle(tx).WithContext(ctx).Create(activity).Error
}

func (ar *userActivityRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, offset, limit int) ([]*types.UserActivity, int64, error) {
	q := ar.handle(tx).WithContext(ctx).
		Model(&types.UserActivity{}).
		Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*types.UserActivity
	if err := q.Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

// GetRecentTypesByUser returns the activity type tags of the user's most
// recent activities, newest first.
func (ar *userActivityRepo) GetRecentTypesByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]string, error) {
	var results []string
	if err := ar.handle(tx).WithContext(ctx).
		Model(&types.UserActivity{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Pluck("activity_type", &results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *userActivityRepo) CountByTypeSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]ActivityCount, error) {
	var results []ActivityCount
	if err := ar.handle(tx).WithContext(ctx).
		Model(&types.UserActivity{}).
		Select("activity_type, COUNT(id) AS count").
		Where("created_at >= ?", since).
		Group("activity_type").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *userActivityRepo) CountActiveUsersSince(ctx context.Context, tx *gorm.DB, since time.Time) (int64, error) {
	var count int64
	if err := ar.handle(tx).WithContext(ctx).
		Model(&types.UserActivity{}).
		Where("created_at >= ?", since).
		Distinct("user_id").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
