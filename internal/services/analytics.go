package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/clients/rediscache"
	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/repos"
	"github.com/piyingxi/shadowplay-backend/internal/requestdata"
)

type PlatformStats struct {
	ActiveUsers      int64 `json:"active_users"`
	PublishedStories int64 `json:"published_stories"`
	PublishedModules int64 `json:"published_modules"`
	TotalComments    int64 `json:"total_comments"`
	TotalRatings     int64 `json:"total_ratings"`
	Learners         int64 `json:"learners"`
}

type TrendingContent struct {
	Stories []StoryDTO  `json:"stories"`
	Modules []ModuleDTO `json:"modules"`
	Days    int         `json:"days"`
}

type AdminDashboard struct {
	Stats           PlatformStats         `json:"stats"`
	ViewsLastWeek   int64                 `json:"views_last_week"`
	ActiveLastWeek  int64                 `json:"active_last_week"`
	ActivityByType  []repos.ActivityCount `json:"activity_by_type"`
	PendingComments int64                 `json:"pending_comments"`
}

type AnalyticsService interface {
	GetPlatformStats(ctx context.Context) (*PlatformStats, error)
	// GetTrending ranks content by view events within the window.
	GetTrending(ctx context.Context, days, limit int) (*TrendingContent, error)
	GetAdminDashboard(ctx context.Context) (*AdminDashboard, error)
}

type analyticsService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	storyRepo    repos.StoryRepo
	moduleRepo   repos.LearningModuleRepo
	commentRepo  repos.CommentRepo
	ratingRepo   repos.RatingRepo
	progressRepo repos.UserProgressRepo
	activityRepo repos.UserActivityRepo
	viewRepo     repos.ContentViewRepo
	cache        *rediscache.Cache
}

func NewAnalyticsService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	storyRepo repos.StoryRepo,
	moduleRepo repos.LearningModuleRepo,
	commentRepo repos.CommentRepo,
	ratingRepo repos.RatingRepo,
	progressRepo repos.UserProgressRepo,
	activityRepo repos.UserActivityRepo,
	viewRepo repos.ContentViewRepo,
	cache *rediscache.Cache,
) AnalyticsService {
	serviceLog := log.With("service", "AnalyticsService")
	return &analyticsService{
		db:           db,
		log:          serviceLog,
		userRepo:     userRepo,
		storyRepo:    storyRepo,
		moduleRepo:   moduleRepo,
		commentRepo:  commentRepo,
		ratingRepo:   ratingRepo,
		progressRepo: progressRepo,
		activityRepo: activityRepo,
		viewRepo:     viewRepo,
		cache:        cache,
	}
}

func (s *analyticsService) GetPlatformStats(ctx context.Context) (*PlatformStats, error) {
	var cached PlatformStats
	if s.cache.GetJSON(ctx, "stats:platform", &cached) {
		return &cached, nil
	}

	activeUsers, err := s.userRepo.CountActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	stories, err := s.storyRepo.CountPublished(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count stories: %w", err)
	}
	modules, err := s.moduleRepo.CountPublished(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count modules: %w", err)
	}
	comments, err := s.commentRepo.CountAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}
	ratings, err := s.ratingRepo.CountAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count ratings: %w", err)
	}
	learners, err := s.progressRepo.CountDistinctLearners(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count learners: %w", err)
	}

	stats := &PlatformStats{
		ActiveUsers:      activeUsers,
		PublishedStories: stories,
		PublishedModules: modules,
		TotalComments:    comments,
		TotalRatings:     ratings,
		Learners:         learners,
	}
	s.cache.SetJSON(ctx, "stats:platform", stats)
	return stats, nil
}

func (s *analyticsService) GetTrending(ctx context.Context, days, limit int) (*TrendingContent, error) {
	if days <= 0 || days > 90 {
		days = 7
	}
	if limit <= 0 || limit > 20 {
		limit = 5
	}
	language := requestdata.Language(ctx)

	cacheKey := fmt.Sprintf("trending:%s:%d:%d", language, days, limit)
	var cached TrendingContent
	if s.cache.GetJSON(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	since := time.Now().AddDate(0, 0, -days)

	storyIDs, err := s.viewRepo.GetPopularStoryIDsSince(ctx, nil, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank story views: %w", err)
	}
	moduleIDs, err := s.viewRepo.GetPopularModuleIDsSince(ctx, nil, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank module views: %w", err)
	}

	stories, err := s.storyRepo.GetByIDs(ctx, nil, storyIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trending stories: %w", err)
	}
	modules, err := s.moduleRepo.GetByIDs(ctx, nil, moduleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trending modules: %w", err)
	}

	// Re-apply the view ranking lost by the IN query.
	trending := &TrendingContent{
		Stories: NewStoryDTOs(orderStories(stories, storyIDs), language),
		Modules: NewModuleDTOs(orderModules(modules, moduleIDs), language),
		Days:    days,
	}
	s.cache.SetJSON(ctx, cacheKey, trending)
	return trending, nil
}

func (s *analyticsService) GetAdminDashboard(ctx context.Context) (*AdminDashboard, error) {
	stats, err := s.GetPlatformStats(ctx)
	if err != nil {
		return nil, err
	}
	weekAgo := time.Now().AddDate(0, 0, -7)

	views, err := s.viewRepo.CountSince(ctx, nil, weekAgo)
	if err != nil {
		return nil, fmt.Errorf("failed to count views: %w", err)
	}
	active, err := s.activityRepo.CountActiveUsersSince(ctx, nil, weekAgo)
	if err != nil {
		return nil, fmt.Errorf("failed to count active users: %w", err)
	}
	byType, err := s.activityRepo.CountByTypeSince(ctx, nil, weekAgo)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate activities: %w", err)
	}
	_, pending, err := s.commentRepo.GetPendingApproval(ctx, nil, 0, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending comments: %w", err)
	}

	return &AdminDashboard{
		Stats:           *stats,
		ViewsLastWeek:   views,
		ActiveLastWeek:  active,
		ActivityByType:  byType,
		PendingComments: pending,
	}, nil
}
