package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/normalization"
	"github.com/piyingxi/shadowplay-backend/internal/repos"
	"github.com/piyingxi/shadowplay-backend/internal/requestdata"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

type RatingInput struct {
	Score  int    `json:"score" binding:"required"`
	Review string `json:"review"`
}

type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
	Own     *int    `json:"own,omitempty"`
}

type RatingService interface {
	// RateStory inserts or replaces the caller's rating for the story; a
	// repeat submission never creates a second row.
	RateStory(ctx context.Context, storyID uuid.UUID, input RatingInput) (*RatingSummary, error)
	RateModule(ctx context.Context, moduleID uuid.UUID, input RatingInput) error
	GetStoryRating(ctx context.Context, storyID uuid.UUID) (*RatingSummary, error)
}

type ratingService struct {
	db         *gorm.DB
	log        *logger.Logger
	ratingRepo repos.RatingRepo
	storyRepo  repos.StoryRepo
	moduleRepo repos.LearningModuleRepo
	activity   ActivityService
}

func NewRatingService(
	db *gorm.DB,
	log *logger.Logger,
	ratingRepo repos.RatingRepo,
	storyRepo repos.StoryRepo,
	moduleRepo repos.LearningModuleRepo,
	activity ActivityService,
) RatingService {
	serviceLog := log.With("service", "RatingService")
	return &ratingService{
		db:         db,
		log:        serviceLog,
		ratingRepo: ratingRepo,
		storyRepo:  storyRepo,
		moduleRepo: moduleRepo,
		activity:   activity,
	}
}

func validateRating(input RatingInput) error {
	if input.Score < types.MinRatingScore || input.Score > types.MaxRatingScore {
		return fmt.Errorf("score must be within %d..%d: %w", types.MinRatingScore, types.MaxRatingScore, ErrValidation)
	}
	return nil
}

func (s *ratingService) RateStory(ctx context.Context, storyID uuid.UUID, input RatingInput) (*RatingSummary, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("login required: %w", ErrUnauthorized)
	}
	if err := validateRating(input); err != nil {
		return nil, err
	}

	stories, err := s.storyRepo.GetByIDs(ctx, nil, []uuid.UUID{storyID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch story: %w", err)
	}
	if len(stories) == 0 || !stories[0].IsPublished {
		return nil, fmt.Errorf("story %s: %w", storyID, ErrNotFound)
	}

	rating := &types.Rating{
		ID:      uuid.New(),
		Score:   input.Score,
		UserID:  rd.UserID,
		StoryID: &storyID,
		Review:  normalization.TrimInputString(input.Review),
	}
	if err := s.ratingRepo.UpsertStoryRating(ctx, nil, rating); err != nil {
		return nil, fmt.Errorf("failed to save rating: %w", err)
	}

	if s.activity != nil {
		s.activity.Record(ctx, rd.UserID, types.ActivityRateContent, map[string]any{
			"story_id": storyID.String(),
			"score":    input.Score,
		})
	}

	return s.summarize(ctx, storyID, &input.Score)
}

func (s *ratingService) RateModule(ctx context.Context, moduleID uuid.UUID, input RatingInput) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return fmt.Errorf("login required: %w", ErrUnauthorized)
	}
	if err := validateRating(input); err != nil {
		return err
	}

	modules, err := s.moduleRepo.GetByIDs(ctx, nil, []uuid.UUID{moduleID})
	if err != nil {
		return fmt.Errorf("failed to fetch module: %w", err)
	}
	if len(modules) == 0 || !modules[0].IsPublished {
		return fmt.Errorf("module %s: %w", moduleID, ErrNotFound)
	}

	rating := &types.Rating{
		ID:       uuid.New(),
		Score:    input.Score,
		UserID:   rd.UserID,
		ModuleID: &moduleID,
		Review:   normalization.TrimInputString(input.Review),
	}
	if err := s.ratingRepo.UpsertModuleRating(ctx, nil, rating); err != nil {
		return fmt.Errorf("failed to save rating: %w", err)
	}

	if s.activity != nil {
		s.activity.Record(ctx, rd.UserID, types.ActivityRateContent, map[string]any{
			"module_id": moduleID.String(),
			"score":     input.Score,
		})
	}
	return nil
}

func (s *ratingService) GetStoryRating(ctx context.Context, storyID uuid.UUID) (*RatingSummary, error) {
	var own *int
	if rd := requestdata.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
		existing, err := s.ratingRepo.GetByUserAndStory(ctx, nil, rd.UserID, storyID)
		if err == nil && existing != nil {
			score := existing.Score
			own = &score
		}
	}
	return s.summarize(ctx, storyID, own)
}

func (s *ratingService) summarize(ctx context.Context, storyID uuid.UUID, own *int) (*RatingSummary, error) {
	avg, count, err := s.ratingRepo.AverageStoryScore(ctx, nil, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	return &RatingSummary{Average: avg, Count: count, Own: own}, nil
}
