package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

type UserProgressRepo interface {
	Create(ctx context.Context, tx *gorm.DB, progress *types.UserProgress) error
	Update(ctx context.Context, tx *gorm.DB, progress *types.UserProgress) error
	GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) (*types.UserProgress, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserProgress, error)
	GetCompletedModuleIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error)
	CountCompleted(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	AverageProgress(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (float64, error)
	CountDistinctLearners(ctx context.Context, tx *gorm.DB) (int64, error)
}

type userProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserProgressRepo(db *gorm.DB, baseLog *logger.Logger) UserProgressRepo {
	return &userProgressRepo{db: db, log: baseLog.With("repo", "UserProgressRepo")}
}

func (pr *userProgressRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return pr.db
}

func (pr *userProgressRepo) Create(ctx context.Context, tx *gorm.DB, progress *types.UserProgress) error {
	return pr.handle(tx).WithContext(ctx).Create(progress).Error
}

func (pr *userProgressRepo) Update(ctx context.Context, tx *gorm.DB, progress *types.UserProgress) error {
	return pr.handle(tx).WithContext(ctx).Save(progress).Error
}

func (pr *userProgressRepo) GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) (*types.UserProgress, error) {
	var result types.UserProgress
	err := pr.handle(tx).WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (pr *userProgressRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserProgress, error) {
	var results []*types.UserProgress
	if err := pr.handle(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_accessed DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *userProgressRepo) GetCompletedModuleIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := pr.handle(tx).WithContext(ctx).
		Model(&types.UserProgress{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Pluck("module_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (pr *userProgressRepo) CountCompleted(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	var count int64
	if err := pr.handle(tx).WithContext(ctx).
		Model(&types.UserProgress{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (pr *userProgressRepo) AverageProgress(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (float64, error) {
	var avg float64
	if err := pr.handle(tx).WithContext(ctx).
		Model(&types.UserProgress{}).
		Where("user_id = ?", userID).
		Select("COALESCE(AVG(progress), 0)").
		Scan(&avg).Error; err != nil {
		return 0, err
	}
	return avg, nil
}

func (pr *userProgressRepo) CountDistinctLearners(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	if err := pr.handle(tx).WithContext(ctx).
		Model(&types.UserProgress{}).
		Distinct("user_id").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
