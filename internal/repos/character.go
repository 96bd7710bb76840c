package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

type CharacterFilter struct {
	CharacterType string
	ActiveOnly    bool
	Offset        int
	Limit         int
}

type CharacterRepo interface {
	Create(ctx context.Context, tx *gorm.DB, characters []*types.Character) ([]*types.Character, error)
	Update(ctx context.Context, tx *gorm.DB, character *types.Character) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, characterIDs []uuid.UUID) error
	GetByIDs(ctx context.Context, tx *gorm.DB, characterIDs []uuid.UUID) ([]*types.Character, error)
	List(ctx context.Context, tx *gorm.DB, filter CharacterFilter) ([]*types.Character, int64, error)
	GetPopular(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Character, error)
	Search(ctx context.Context, tx *gorm.DB, query string, limit int) ([]*types.Character, error)
	IncrementPopularity(ctx context.Context, tx *gorm.DB, characterID uuid.UUID, delta int) error
}

type characterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCharacterRepo(db *gorm.DB, baseLog *logger.Logger) CharacterRepo {
	return &characterRepo{db: db, log: baseLog.With("repo", "CharacterRepo")}
}

func (cr *characterRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return cr.db
}

func (cr *characterRepo) Create(ctx context.Context, tx *gorm.DB, characters []*types.Character) ([]*types.Character, error) {
	if len(characters) == 0 {
		return []*types.Character{}, nil
	}
	if err := cr.handle(tx).WithContext(ctx).Create(&characters).Error; err != nil {
		return nil, err
	}
	return characters, nil
}

func (cr *characterRepo) Update(ctx context.Context, tx *gorm.DB, character *types.Character) error {
	return cr.handle(tx).WithContext(ctx).Save(character).Error
}

func (cr *characterRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, characterIDs []uuid.UUID) error {
	if len(characterIDs) == 0 {
		return nil
	}
	return cr.handle(tx).WithContext(ctx).
		Where("id IN ?", characterIDs).
		Delete(&types.Character{}).Error
}

func (cr *characterRepo) GetByIDs(ctx context.Context, tx *gorm.DB, characterIDs []uuid.UUID) ([]*types.Character, error) {
	var results []*types.Character
	if len(characterIDs) == 0 {
		return results, nil
	}
	if err := cr.handle(tx).WithContext(ctx).
		Where("id IN ?", characterIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *characterRepo) List(ctx context.Context, tx *gorm.DB, filter CharacterFilter) ([]*types.Character, int64, error) {
	q := cr.handle(tx).WithContext(ctx).Model(&types.Character{})
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if filter.CharacterType != "" {
		q = q.Where("character_type = ?", filter.CharacterType)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Order("popularity_score DESC")
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var results []*types.Character
	if err := q.Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (cr *characterRepo) GetPopular(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Character, error) {
	var results []*types.Character
	if err := cr.handle(tx).WithContext(ctx).
		Where("is_active = ?", true).
		Order("popularity_score DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *characterRepo) Search(ctx context.Context, tx *gorm.DB, query string, limit int) ([]*types.Character, error) {
	var results []*types.Character
	pattern := "%" + query + "%"
	if err := cr.handle(tx).WithContext(ctx).
		Where("is_active = ?", true).
		Where("name LIKE ? OR name_en LIKE ? OR description LIKE ?", pattern, pattern, pattern).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *characterRepo) IncrementPopularity(ctx context.Context, tx *gorm.DB, characterID uuid.UUID, delta int) error {
	return cr.handle(tx).WithContext(ctx).
		Model(&types.Character{}).
		Where("id = ?", characterID).
		UpdateColumn("popularity_score", gorm.Expr("popularity_score + ?", delta)).Error
}
