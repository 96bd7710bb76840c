package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

type RatingRepo interface {
	// UpsertStoryRating inserts the rating or, when the user already rated the
	// story, replaces score and review in place.
	UpsertStoryRating(ctx context.Context, tx *gorm.DB, rating *types.Rating) error
	UpsertModuleRating(ctx context.Context, tx *gorm.DB, rating *types.Rating) error
	GetByUserAndStory(ctx context.Context, tx *gorm.DB, userID, storyID uuid.UUID) (*types.Rating, error)
	GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) (*types.Rating, error)
	GetByStoryIDs(ctx context.Context, tx *gorm.DB, storyIDs []uuid.UUID) ([]*types.Rating, error)
	GetLikedStoryIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error)
	// GetSimilarRaterIDs returns the other users who liked any of the given
	// stories, most overlapping first.
	GetSimilarRaterIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, storyIDs []uuid.UUID, limit int) ([]uuid.UUID, error)
	AverageStoryScore(ctx context.Context, tx *gorm.DB, storyID uuid.UUID) (float64, int64, error)
	CountAll(ctx context.Context, tx *gorm.DB) (int64, error)
}

type ratingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRatingRepo(db *gorm.DB, baseLog *logger.Logger) RatingRepo {
	return &ratingRepo{db: db, log: baseLog.With("repo", "RatingRepo")}
}

func (rr *ratingRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return rr.db
}

func (rr *ratingRepo) UpsertStoryRating(ctx context.Context, tx *gorm.DB, rating *types.Rating) error {
	return rr.handle(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "story_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "review", "updated_at"}),
		}).
		Create(rating).Error
}

func (rr *ratingRepo) UpsertModuleRating(ctx context.Context, tx *gorm.DB, rating *types.Rating) error {
	return rr.handle(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "module_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "review", "updated_at"}),
		}).
		Create(rating).Error
}

func (rr *ratingRepo) GetByUserAndStory(ctx context.Context, tx *gorm.DB, userID, storyID uuid.UUID) (*types.Rating, error) {
	var result types.Rating
	err := rr.handle(tx).WithContext(ctx).
		Where("user_id = ? AND story_id = ?", userID, storyID).
		First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (rr *ratingRepo) GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uuid.UUID) (*types.Rating, error) {
	var result types.Rating
	err := rr.handle(tx).WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (rr *ratingRepo) GetByStoryIDs(ctx context.Context, tx *gorm.DB, storyIDs []uuid.UUID) ([]*types.Rating, error) {
	var results []*types.Rating
	if len(storyIDs) == 0 {
		return results, nil
	}
	if err := rr.handle(tx).WithContext(ctx).
		Where("story_id IN ?", storyIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *ratingRepo) GetLikedStoryIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := rr.handle(tx).WithContext(ctx).
		Model(&types.Rating{}).
		Where("user_id = ? AND score >= ? AND story_id IS NOT NULL", userID, types.LikeThreshold).
		Pluck("story_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (rr *ratingRepo) GetSimilarRaterIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, storyIDs []uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if len(storyIDs) == 0 {
		return ids, nil
	}
	if err := rr.handle(tx).WithContext(ctx).
		Model(&types.Rating{}).
		Where("story_id IN ?", storyIDs).
		Where("score >= ?", types.LikeThreshold).
		Where("user_id <> ?", userID).
		Group("user_id").
		Order("COUNT(id) DESC").
		Limit(limit).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (rr *ratingRepo) AverageStoryScore(ctx context.Context, tx *gorm.DB, storyID uuid.UUID) (float64, int64, error) {
	type aggregate struct {
		Avg   float64
		Total int64
	}
	var agg aggregate
	if err := rr.handle(tx).WithContext(ctx).
		Model(&types.Rating{}).
		Select("COALESCE(AVG(score), 0) AS avg, COUNT(id) AS total").
		Where("story_id = ?", storyID).
		Scan(&agg).Error; err != nil {
		return 0, 0, err
	}
	return agg.Avg, agg.Total, nil
}

func (rr *ratingRepo) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	if err := rr.handle(tx).WithContext(ctx).
		Model(&types.Rating{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
