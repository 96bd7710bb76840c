package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

type ModuleFilter struct {
	Category        string
	DifficultyLevel int
	PublishedOnly   bool
	FreeOnly        bool
	Offset          int
	Limit           int
}

type LearningModuleRepo interface {
	Create(ctx context.Context, tx *gorm.DB, modules []*types.LearningModule) ([]*types.LearningModule, error)
	Update(ctx context.Context, tx *gorm.DB, module *types.LearningModule) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, moduleIDs []uuid.UUID) error
	GetByIDs(ctx context.Context, tx *gorm.DB, moduleIDs []uuid.UUID) ([]*types.LearningModule, error)
	List(ctx context.Context, tx *gorm.DB, filter ModuleFilter) ([]*types.LearningModule, int64, error)
	GetNextForLevel(ctx context.Context, tx *gorm.DB, maxDifficulty int, excludeIDs []uuid.UUID, limit int) ([]*types.LearningModule, error)
	GetPopular(ctx context.Context, tx *gorm.DB, limit int) ([]*types.LearningModule, error)
	Search(ctx context.Context, tx *gorm.DB, query string, limit int) ([]*types.LearningModule, error)
	IncrementEnrollment(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) error
	IncrementCompletion(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) error
	CountPublished(ctx context.Context, tx *gorm.DB) (int64, error)
}

type learningModuleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearningModuleRepo(db *gorm.DB, baseLog *logger.Logger) LearningModuleRepo {
	return &learningModuleRepo{db: db, log: baseLog.With("repo", "LearningModuleRepo")}
}

func (lr *learningModuleRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return lr.db
}

func (lr *learningModuleRepo) Create(ctx context.Context, tx *gorm.DB, modules []*types.LearningModule) ([]*types.LearningModule, error) {
	if len(modules) == 0 {
		return []*types.LearningModule{}, nil
	}
	if err := lr.handle(tx).WithContext(ctx).Create(&modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

func (lr *learningModuleRepo) Update(ctx context.Context, tx *gorm.DB, module *types.LearningModule) error {
	return lr.handle(tx).WithContext(ctx).Save(module).Error
}

func (lr *learningModuleRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, moduleIDs []uuid.UUID) error {
	if len(moduleIDs) == 0 {
		return nil
	}
	return lr.handle(tx).WithContext(ctx).
		Where("id IN ?", moduleIDs).
		Delete(&types.LearningModule{}).Error
}

func (lr *learningModuleRepo) GetByIDs(ctx context.Context, tx *gorm.DB, moduleIDs []uuid.UUID) ([]*types.LearningModule, error) {
	var results []*types.LearningModule
	if len(moduleIDs) == 0 {
		return results, nil
	}
	if err := lr.handle(tx).WithContext(ctx).
		Where("id IN ?", moduleIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (lr *learningModuleRepo) List(ctx context.Context, tx *gorm.DB, filter ModuleFilter) ([]*types.LearningModule, int64, error) {
	q := lr.handle(tx).WithContext(ctx).Model(&types.LearningModule{})
	if filter.PublishedOnly {
		q = q.Where("is_published = ?", true)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.DifficultyLevel > 0 {
		q = q.Where("difficulty_level = ?", filter.DifficultyLevel)
	}
	if filter.FreeOnly {
		q = q.Where("is_free = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Order("position ASC, created_at ASC")
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var results []*types.LearningModule
	if err := q.Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

// GetNextForLevel returns published modules the learner has not finished,
// no harder than one difficulty step above their level, easiest first with
// enrollment count breaking ties.
func (lr *learningModuleRepo) GetNextForLevel(ctx context.Context, tx *gorm.DB, maxDifficulty int, excludeIDs []uuid.UUID, limit int) ([]*types.LearningModule, error) {
	var results []*types.LearningModule
	q := lr.handle(tx).WithContext(ctx).
		Where("is_published = ?", true).
		Where("difficulty_level <= ?", maxDifficulty)
	if len(excludeIDs) > 0 {
		q = q.Where("id NOT IN ?", excludeIDs)
	}
	if err := q.Order("difficulty_level ASC, enrollment_count DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (lr *learningModuleRepo) GetPopular(ctx context.Context, tx *gorm.DB, limit int) ([]*types.LearningModule, error) {
	var results []*types.LearningModule
	if err := lr.handle(tx).WithContext(ctx).
		Where("is_published = ?", true).
		Order("enrollment_count DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (lr *learningModuleRepo) Search(ctx context.Context, tx *gorm.DB, query string, limit int) ([]*types.LearningModule, error) {
	var results []*types.LearningModule
	pattern := "%" + query + "%"
	if err := lr.handle(tx).WithContext(ctx).
		Where("is_published = ?", true).
		Where("title LIKE ? OR title_en LIKE ? OR description LIKE ?", pattern, pattern, pattern).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (lr *learningModuleRepo) IncrementEnrollment(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) error {
	return lr.handle(tx).WithContext(ctx).
		Model(&types.LearningModule{}).
		Where("id = ?", moduleID).
		UpdateColumn("enrollment_count", gorm.Expr("enrollment_count + 1")).Error
}

func (lr *learningModuleRepo) IncrementCompletion(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) error {
	return lr.handle(tx).WithContext(ctx).
		Model(&types.LearningModule{}).
		Where("id = ?", moduleID).
		UpdateColumn("completion_count", gorm.Expr("completion_count + 1")).Error
}

func (lr *learningModuleRepo) CountPublished(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	if err := lr.handle(tx).WithContext(ctx).
		Model(&types.LearningModule{}).
		Where("is_published = ?", true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
