package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

// StoryFilter narrows List. Zero values mean "no constraint".
type StoryFilter struct {
	Category        string
	DifficultyLevel int
	FeaturedOnly    bool
	PublishedOnly   bool
	Sort            string // "newest", "popular", "rating" (default newest)
	Offset          int
	Limit           int
}

type StoryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, stories []*types.Story) ([]*types.Story, error)
	Update(ctx context.Context, tx *gorm.DB, story *types.Story) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, storyIDs []uuid.UUID) error
	GetByIDs(ctx context.Context, tx *gorm.DB, storyIDs []uuid.UUID) ([]*types.Story, error)
	GetBySlugs(ctx context.Context, tx *gorm.DB, slugs []string) ([]*types.Story, error)
	List(ctx context.Context, tx *gorm.DB, filter StoryFilter) ([]*types.Story, int64, error)
	GetFeatured(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Story, error)
	GetPopular(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Story, error)
	GetPopularInCategories(ctx context.Context, tx *gorm.DB, categories []string, excludeIDs []uuid.UUID, limit int) ([]*types.Story, error)
	GetCoRatedCandidates(ctx context.Context, tx *gorm.DB, raterIDs []uuid.UUID, excludeIDs []uuid.UUID, limit int) ([]*types.Story, error)
	Search(ctx context.Context, tx *gorm.DB, query string, limit int) ([]*types.Story, error)
	IncrementView(ctx context.Context, tx *gorm.DB, storyID uuid.UUID) error
	IncrementLike(ctx context.Context, tx *gorm.DB, storyID uuid.UUID) error
	IncrementShare(ctx context.Context, tx *gorm.DB, storyID uuid.UUID) error
	CountPublished(ctx context.Context, tx *gorm.DB) (int64, error)
	GetScenesByStoryIDs(ctx context.Context, tx *gorm.DB, storyIDs []uuid.UUID) ([]*types.Scene, error)
	GetCharacterLinks(ctx context.Context, tx *gorm.DB, storyIDs []uuid.UUID) ([]*types.StoryCharacter, error)
}

type storyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStoryRepo(db *gorm.DB, baseLog *logger.Logger) StoryRepo {
	return &storyRepo{db: db, log: baseLog.With("repo", "StoryRepo")}
}

func (sr *storyRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return sr.db
}

func (sr *storyRepo) Create(ctx context.Context, tx *gorm.DB, stories []*types.Story) ([]*types.Story, error) {
	if len(stories) == 0 {
		return []*types.Story{}, nil
	}
	if err := sr.handle(tx).WithContext(ctx).Create(&stories).Error; err != nil {
		return nil, err
	}
	return stories, nil
}

func (sr *storyRepo) Update(ctx context.Context, tx *gorm.DB, story *types.Story) error {
	return sr.handle(tx).WithContext(ctx).Save(story).Error
}

func (sr *storyRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, storyIDs []uuid.UUID) error {
	if len(storyIDs) == 0 {
		return nil
	}
	return sr.handle(tx).WithContext(ctx).
		Where("id IN ?", storyIDs).
		Delete(&types.Story{}).Error
}

func (sr *storyRepo) GetByIDs(ctx context.Context, tx *gorm.DB, storyIDs []uuid.UUID) ([]*types.Story, error) {
	var results []*types.Story
	if len(storyIDs) == 0 {
		return results, nil
	}
	if err := sr.handle(tx).WithContext(ctx).
		Where("id IN ?", storyIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *storyRepo) GetBySlugs(ctx context.Context, tx *gorm.DB, slugs []string) ([]*types.Story, error) {
	var results []*types.Story
	if len(slugs) == 0 {
		return results, nil
	}
	if err := sr.handle(tx).WithContext(ctx).
		Where("slug IN ?", slugs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *storyRepo) List(ctx context.Context, tx *gorm.DB, filter StoryFilter) ([]*types.Story, int64, error) {
	q := sr.handle(tx).WithContext(ctx).Model(&types.Story{})
	if filter.PublishedOnly {
		q = q.Where("is_published = ?", true)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.DifficultyLevel > 0 {
		q = q.Where("difficulty_level = ?", filter.DifficultyLevel)
	}
	if filter.FeaturedOnly {
		q = q.Where("is_featured = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.Sort {
	case "popular":
		q = q.Order("view_count DESC")
	case "likes":
		q = q.Order("like_count DESC")
	default:
		q = q.Order("created_at DESC")
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var results []*types.Story
	if err := q.Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (sr *storyRepo) GetFeatured(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Story, error) {
	var results []*types.Story
	if err := sr.handle(tx).WithContext(ctx).
		Where("is_published = ? AND is_featured = ?", true, true).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *storyRepo) GetPopular(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Story, error) {
	var results []*types.Story
	if err := sr.handle(tx).WithContext(ctx).
		Where("is_published = ?", true).
		Order("view_count DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *storyRepo) GetPopularInCategories(ctx context.Context, tx *gorm.DB, categories []string, excludeIDs []uuid.UUID, limit int) ([]*types.Story, error) {
	var results []*types.Story
	if len(categories) == 0 {
		return results, nil
	}
	q := sr.handle(tx).WithContext(ctx).
		Where("is_published = ?", true).
		Where("category IN ?", categories)
	if len(excludeIDs) > 0 {
		q = q.Where("id NOT IN ?", excludeIDs)
	}
	if err := q.Order("view_count DESC").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetCoRatedCandidates returns published stories the given raters scored at
// the like threshold or above, ranked by how many of them did, excluding the
// target user's own liked stories.
func (sr *storyRepo) GetCoRatedCandidates(ctx context.Context, tx *gorm.DB, raterIDs []uuid.UUID, excludeIDs []uuid.UUID, limit int) ([]*types.Story, error) {
	var results []*types.Story
	if len(raterIDs) == 0 {
		return results, nil
	}
	q := sr.handle(tx).WithContext(ctx).
		Model(&types.Story{}).
		Joins("JOIN rating ON rating.story_id = story.id").
		Where("rating.user_id IN ?", raterIDs).
		Where("rating.score >= ?", types.LikeThreshold).
		Where("story.is_published = ?", true)
	if len(excludeIDs) > 0 {
		q = q.Where("story.id NOT IN ?", excludeIDs)
	}
	if err := q.Group("story.id").
		Order("COUNT(rating.id) DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *storyRepo) Search(ctx context.Context, tx *gorm.DB, query string, limit int) ([]*types.Story, error) {
	var results []*types.Story
	pattern := "%" + query + "%"
	if err := sr.handle(tx).WithContext(ctx).
		Where("is_published = ?", true).
		Where("title LIKE ? OR title_en LIKE ? OR description LIKE ?", pattern, pattern, pattern).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *storyRepo) IncrementView(ctx context.Context, tx *gorm.DB, storyID uuid.UUID) error {
	return sr.handle(tx).WithContext(ctx).
		Model(&types.Story{}).
		Where("id = ?", storyID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func (sr *storyRepo) IncrementLike(ctx context.Context, tx *gorm.DB, storyID uuid.UUID) error {
	return sr.handle(tx).WithContext(ctx).
		Model(&types.Story{}).
		Where("id = ?", storyID).
		UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
}

func (sr *storyRepo) IncrementShare(ctx context.Context, tx *gorm.DB, storyID uuid.UUID) error {
	return sr.handle(tx).WithContext(ctx).
		Model(&types.Story{}).
		Where("id = ?", storyID).
		UpdateColumn("share_count", gorm.Expr("share_count + 1")).Error
}

func (sr *storyRepo) CountPublished(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	if err := sr.handle(tx).WithContext(ctx).
		Model(&types.Story{}).
		Where("is_published = ?", true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (sr *storyRepo) GetScenesByStoryIDs(ctx context.Context, tx *gorm.DB, storyIDs []uuid.UUID) ([]*types.Scene, error) {
	var results []*types.Scene
	if len(storyIDs) == 0 {
		return results, nil
	}
	if err := sr.handle(tx).WithContext(ctx).
		Where("story_id IN ?", storyIDs).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *storyRepo) GetCharacterLinks(ctx context.Context, tx *gorm.DB, storyIDs []uuid.UUID) ([]*types.StoryCharacter, error) {
	var results []*types.StoryCharacter
	if len(storyIDs) == 0 {
		return results, nil
	}
	if err := sr.handle(tx).WithContext(ctx).
		Where("story_id IN ?", storyIDs).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
