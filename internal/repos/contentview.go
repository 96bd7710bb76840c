package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

type ContentViewRepo interface {
	Create(ctx context.Context, tx *gorm.DB, view *types.ContentView) error
	// GetRecentStoryViewsByUser returns the user's story views, newest first.
	GetRecentStoryViewsByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.ContentView, error)
	// GetTopCategoriesByUser ranks the categories of stories the user viewed
	// by view count.
	GetTopCategoriesByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]string, error)
	GetPopularStoryIDsSince(ctx context.Context, tx *gorm.DB, since time.Time, limit int) ([]uuid.UUID, error)
	GetPopularModuleIDsSince(ctx context.Context, tx *gorm.DB, since time.Time, limit int) ([]uuid.UUID, error)
	CountSince(ctx context.Context, tx *gorm.DB, since time.Time) (int64, error)
}

type contentViewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentViewRepo(db *gorm.DB, baseLog *logger.Logger) ContentViewRepo {
	return &contentViewRepo{db: db, log: baseLog.With("repo", "ContentViewRepo")}
}

func (vr *contentViewRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return vr.db
}

func (vr *contentViewRepo) Create(ctx context.Context, tx *gorm.DB, view *types.ContentView) error {
	return vr.handle(tx).WithContext(ctx).Create(view).Error
}

func (vr *contentViewRepo) GetRecentStoryViewsByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.ContentView, error) {
	var results []*types.ContentView
	if err := vr.handle(tx).WithContext(ctx).
		Where("user_id = ? AND story_id IS NOT NULL", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (vr *contentViewRepo) GetTopCategoriesByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]string, error) {
	var categories []string
	if err := vr.handle(tx).WithContext(ctx).
		Model(&types.ContentView{}).
		Joins("JOIN story ON story.id = content_view.story_id").
		Where("content_view.user_id = ?", userID).
		Group("story.category").
		Order("COUNT(content_view.id) DESC").
		Limit(limit).
		Pluck("story.category", &categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (vr *contentViewRepo) GetPopularStoryIDsSince(ctx context.Context, tx *gorm.DB, since time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := vr.handle(tx).WithContext(ctx).
		Model(&types.ContentView{}).
		Where("story_id IS NOT NULL AND created_at >= ?", since).
		Group("story_id").
		Order("COUNT(id) DESC").
		Limit(limit).
		Pluck("story_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (vr *contentViewRepo) GetPopularModuleIDsSince(ctx context.Context, tx *gorm.DB, since time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := vr.handle(tx).WithContext(ctx).
		Model(&types.ContentView{}).
		Where("module_id IS NOT NULL AND created_at >= ?", since).
		Group("module_id").
		Order("COUNT(id) DESC").
		Limit(limit).
		Pluck("module_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (vr *contentViewRepo) CountSince(ctx context.Context, tx *gorm.DB, since time.Time) (int64, error) {
	var count int64
	if err := vr.handle(tx).WithContext(ctx).
		Model(&types.ContentView{}).
		Where("created_at >= ?", since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
