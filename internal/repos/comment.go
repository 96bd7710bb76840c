package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

type CommentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, comment *types.Comment) error
	Update(ctx context.Context, tx *gorm.DB, comment *types.Comment) error
	GetByIDs(ctx context.Context, tx *gorm.DB, commentIDs []uuid.UUID) ([]*types.Comment, error)
	GetByStoryID(ctx context.Context, tx *gorm.DB, storyID uuid.UUID, offset, limit int) ([]*types.Comment, int64, error)
	GetByModuleID(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, offset, limit int) ([]*types.Comment, int64, error)
	GetReplies(ctx context.Context, tx *gorm.DB, parentIDs []uuid.UUID) ([]*types.Comment, error)
	GetPendingApproval(ctx context.Context, tx *gorm.DB, offset, limit int) ([]*types.Comment, int64, error)
	IncrementLike(ctx context.Context, tx *gorm.DB, commentID uuid.UUID) error
	CountAll(ctx context.Context, tx *gorm.DB) (int64, error)
}

type commentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommentRepo(db *gorm.DB, baseLog *logger.Logger) CommentRepo {
	return &commentRepo{db: db, log: baseLog.With("repo", "CommentRepo")}
}

func (cr *commentRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return cr.db
}

func (cr *commentRepo) Create(ctx context.Context, tx *gorm.DB, comment *types.Comment) error {
	return cr.handle(tx).WithContext(ctx).Create(comment).Error
}

func (cr *commentRepo) Update(ctx context.Context, tx *gorm.DB, comment *types.Comment) error {
	return cr.handle(tx).WithContext(ctx).Save(comment).Error
}

func (cr *commentRepo) GetByIDs(ctx context.Context, tx *gorm.DB, commentIDs []uuid.UUID) ([]*types.Comment, error) {
	var results []*types.Comment
	if len(commentIDs) == 0 {
		return results, nil
	}
	if err := cr.handle(tx).WithContext(ctx).
		Where("id IN ?", commentIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *commentRepo) visible(q *gorm.DB) *gorm.DB {
	return q.Where("is_deleted = ? AND is_approved = ?", false, true)
}

func (cr *commentRepo) GetByStoryID(ctx context.Context, tx *gorm.DB, storyID uuid.UUID, offset, limit int) ([]*types.Comment, int64, error) {
	q := cr.visible(cr.handle(tx).WithContext(ctx).Model(&types.Comment{})).
		Where("story_id = ? AND parent_id IS NULL", storyID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*types.Comment
	if err := q.Order("is_pinned DESC, created_at DESC").
		Offset(offset).Limit(limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (cr *commentRepo) GetByModuleID(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, offset, limit int) ([]*types.Comment, int64, error) {
	q := cr.visible(cr.handle(tx).WithContext(ctx).Model(&types.Comment{})).
		Where("module_id = ? AND parent_id IS NULL", moduleID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*types.Comment
	if err := q.Order("is_pinned DESC, created_at DESC").
		Offset(offset).Limit(limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (cr *commentRepo) GetReplies(ctx context.Context, tx *gorm.DB, parentIDs []uuid.UUID) ([]*types.Comment, error) {
	var results []*types.Comment
	if len(parentIDs) == 0 {
		return results, nil
	}
	if err := cr.visible(cr.handle(tx).WithContext(ctx).Model(&types.Comment{})).
		Where("parent_id IN ?", parentIDs).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *commentRepo) GetPendingApproval(ctx context.Context, tx *gorm.DB, offset, limit int) ([]*types.Comment, int64, error) {
	q := cr.handle(tx).WithContext(ctx).Model(&types.Comment{}).
		Where("is_approved = ? AND is_deleted = ?", false, false)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*types.Comment
	if err := q.Order("created_at ASC").
		Offset(offset).Limit(limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (cr *commentRepo) IncrementLike(ctx context.Context, tx *gorm.DB, commentID uuid.UUID) error {
	return cr.handle(tx).WithContext(ctx).
		Model(&types.Comment{}).
		Where("id = ?", commentID).
		UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
}

func (cr *commentRepo) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	if err := cr.handle(tx).WithContext(ctx).
		Model(&types.Comment{}).
		Where("is_deleted = ?", false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
