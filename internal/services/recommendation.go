package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/clients/deepseek"
	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/repos"
	"github.com/piyingxi/shadowplay-backend/internal/requestdata"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

const (
	// ColdStartThreshold is the minimum number of viewed stories before the
	// personalized strategies run.
	ColdStartThreshold = 3

	recentViewWindow     = 50
	recentActivityWindow = 100
	strategyLimit        = 5
	topCategoryCount     = 3
)

// UserHistory is the read-only snapshot every strategy works from. One
// snapshot per request; strategies never re-read interaction tables.
type UserHistory struct {
	ViewedStories    []uuid.UUID
	ViewedModules    []uuid.UUID
	CompletedModules []uuid.UUID
	LikedStories     []uuid.UUID
	RecentActivities []string
	TopCategories    []string
	Level            int
}

// ColdStart reports whether the history is too thin to personalize.
func (h *UserHistory) ColdStart() bool {
	return len(h.ViewedStories) < ColdStartThreshold
}

type RecommendationSet struct {
	Stories []StoryDTO  `json:"stories"`
	Modules []ModuleDTO `json:"modules"`
	// Strategy is "personalized" or "default" (cold start / anonymous).
	Strategy string `json:"strategy"`
}

type RecommendationService interface {
	// GetRecommendations blends the strategy outputs for the user, or serves
	// the default set for anonymous and cold-start users. Strategy failures
	// degrade the result, they never fail the request.
	GetRecommendations(ctx context.Context, userID *uuid.UUID, limit int) (*RecommendationSet, error)
}

type recommendationService struct {
	db           *gorm.DB
	log          *logger.Logger
	storyRepo    repos.StoryRepo
	moduleRepo   repos.LearningModuleRepo
	ratingRepo   repos.RatingRepo
	progressRepo repos.UserProgressRepo
	viewRepo     repos.ContentViewRepo
	activityRepo repos.UserActivityRepo
	userRepo     repos.UserRepo
	external     deepseek.Client
}

func NewRecommendationService(
	db *gorm.DB,
	log *logger.Logger,
	storyRepo repos.StoryRepo,
	moduleRepo repos.LearningModuleRepo,
	ratingRepo repos.RatingRepo,
	progressRepo repos.UserProgressRepo,
	viewRepo repos.ContentViewRepo,
	activityRepo repos.UserActivityRepo,
	userRepo repos.UserRepo,
	external deepseek.Client,
) RecommendationService {
	serviceLog := log.With("service", "RecommendationService")
	return &recommendationService{
		db:           db,
		log:          serviceLog,
		storyRepo:    storyRepo,
		moduleRepo:   moduleRepo,
		ratingRepo:   ratingRepo,
		progressRepo: progressRepo,
		viewRepo:     viewRepo,
		activityRepo: activityRepo,
		userRepo:     userRepo,
		external:     external,
	}
}

func (s *recommendationService) GetRecommendations(ctx context.Context, userID *uuid.UUID, limit int) (*RecommendationSet, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	language := requestdata.Language(ctx)

	if userID == nil || *userID == uuid.Nil {
		return s.defaultSet(ctx, limit, language)
	}

	history, err := s.readHistory(ctx, *userID)
	if err != nil {
		return nil, err
	}
	if history.ColdStart() {
		return s.defaultSet(ctx, limit, language)
	}

	var stories []*types.Story
	var modules []*types.LearningModule

	if collab, cErr := s.collaborative(ctx, *userID, history); cErr != nil {
		s.log.Warn("collaborative strategy failed", "user_id", userID, "error", cErr)
	} else {
		stories = append(stories, collab...)
	}

	if content, cErr := s.contentBased(ctx, history); cErr != nil {
		s.log.Warn("content-based strategy failed", "user_id", userID, "error", cErr)
	} else {
		stories = append(stories, content...)
	}

	if prog, pErr := s.progression(ctx, history); pErr != nil {
		s.log.Warn("progression strategy failed", "user_id", userID, "error", pErr)
	} else {
		modules = append(modules, prog...)
	}

	extStories, extModules := s.externalSuggestions(ctx, *userID, history, limit)
	stories = append(stories, extStories...)
	modules = append(modules, extModules...)

	return &RecommendationSet{
		Stories:  NewStoryDTOs(dedupStories(stories, limit), language),
		Modules:  NewModuleDTOs(dedupModules(modules, limit), language),
		Strategy: "personalized",
	}, nil
}

// defaultSet serves anonymous and cold-start traffic: featured stories first,
// backfilled with the most viewed, and modules by enrollment.
func (s *recommendationService) defaultSet(ctx context.Context, limit int, language string) (*RecommendationSet, error) {
	featured, err := s.storyRepo.GetFeatured(ctx, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch featured stories: %w", err)
	}
	popular, err := s.storyRepo.GetPopular(ctx, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch popular stories: %w", err)
	}
	modules, err := s.moduleRepo.GetPopular(ctx, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch popular modules: %w", err)
	}

	stories := dedupStories(append(featured, popular...), limit)
	return &RecommendationSet{
		Stories:  NewStoryDTOs(stories, language),
		Modules:  NewModuleDTOs(modules, language),
		Strategy: "default",
	}, nil
}

// readHistory builds the per-request interaction snapshot. A user with no
// rows anywhere gets an empty history, which reads as cold start.
func (s *recommendationService) readHistory(ctx context.Context, userID uuid.UUID) (*UserHistory, error) {
	history := &UserHistory{Level: 1}

	views, err := s.viewRepo.GetRecentStoryViewsByUser(ctx, nil, userID, recentViewWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to read view history: %w", err)
	}
	seen := map[uuid.UUID]struct{}{}
	for _, v := range views {
		if v.StoryID == nil {
			continue
		}
		if _, dup := seen[*v.StoryID]; dup {
			continue
		}
		seen[*v.StoryID] = struct{}{}
		history.ViewedStories = append(history.ViewedStories, *v.StoryID)
	}

	progress, err := s.progressRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read progress history: %w", err)
	}
	for _, p := range progress {
		history.ViewedModules = append(history.ViewedModules, p.ModuleID)
		if p.Completed {
			history.CompletedModules = append(history.CompletedModules, p.ModuleID)
		}
	}

	liked, err := s.ratingRepo.GetLikedStoryIDs(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read rating history: %w", err)
	}
	history.LikedStories = liked

	activities, err := s.activityRepo.GetRecentTypesByUser(ctx, nil, userID, recentActivityWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to read activity history: %w", err)
	}
	history.RecentActivities = activities

	categories, err := s.viewRepo.GetTopCategoriesByUser(ctx, nil, userID, topCategoryCount)
	if err != nil {
		return nil, fmt.Errorf("failed to read category preferences: %w", err)
	}
	history.TopCategories = categories

	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("failed to read user: %w", err)
	}
	if len(users) > 0 {
		history.Level = users[0].Level
	}
	return history, nil
}

// collaborative finds stories liked by users whose likes overlap the
// target's, single hop, ranked by how many of those raters liked each
// candidate.
func (s *recommendationService) collaborative(ctx context.Context, userID uuid.UUID, history *UserHistory) ([]*types.Story, error) {
	if len(history.LikedStories) == 0 {
		return nil, nil
	}
	raterIDs, err := s.ratingRepo.GetSimilarRaterIDs(ctx, nil, userID, history.LikedStories, 20)
	if err != nil {
		return nil, err
	}
	if len(raterIDs) == 0 {
		return nil, nil
	}
	return s.storyRepo.GetCoRatedCandidates(ctx, nil, raterIDs, history.LikedStories, strategyLimit)
}

// contentBased surfaces unseen published stories from the user's most viewed
// categories.
func (s *recommendationService) contentBased(ctx context.Context, history *UserHistory) ([]*types.Story, error) {
	if len(history.TopCategories) == 0 {
		return nil, nil
	}
	return s.storyRepo.GetPopularInCategories(ctx, nil, history.TopCategories, history.ViewedStories, strategyLimit)
}

// progression proposes modules no harder than one step above the user's
// level, skipping completed ones, easiest first.
func (s *recommendationService) progression(ctx context.Context, history *UserHistory) ([]*types.LearningModule, error) {
	return s.moduleRepo.GetNextForLevel(ctx, nil, history.Level+1, history.CompletedModules, strategyLimit)
}

// externalSuggestions asks the DeepSeek adapter and resolves its references
// to live published rows. Every failure path returns empty slices; the engine
// only logs.
func (s *recommendationService) externalSuggestions(ctx context.Context, userID uuid.UUID, history *UserHistory, limit int) ([]*types.Story, []*types.LearningModule) {
	if s.external == nil || !s.external.Enabled() {
		return nil, nil
	}
	snapshot := deepseek.UserHistory{
		ViewedStories:    history.ViewedStories,
		ViewedModules:    history.ViewedModules,
		CompletedModules: history.CompletedModules,
		LikedStories:     history.LikedStories,
		RecentActivities: history.RecentActivities,
	}
	suggestions, err := s.external.Suggest(ctx, snapshot, limit)
	if err != nil {
		s.log.Warn("external suggestions unavailable", "user_id", userID, "error", err)
		return nil, nil
	}

	var storyIDs, moduleIDs []uuid.UUID
	for _, sug := range suggestions {
		ref, ok := sug.Ref()
		if !ok {
			// Unknown content kinds and nil ids are dropped silently.
			continue
		}
		switch ref.Type {
		case types.ContentTypeStory:
			storyIDs = append(storyIDs, ref.ID)
		case types.ContentTypeModule:
			moduleIDs = append(moduleIDs, ref.ID)
		}
	}

	stories, err := s.storyRepo.GetByIDs(ctx, nil, storyIDs)
	if err != nil {
		s.log.Warn("failed to resolve suggested stories", "error", err)
		stories = nil
	}
	modules, err := s.moduleRepo.GetByIDs(ctx, nil, moduleIDs)
	if err != nil {
		s.log.Warn("failed to resolve suggested modules", "error", err)
		modules = nil
	}

	// Keep the adapter's ordering and drop unpublished or unresolvable ids.
	published := make([]*types.Story, 0, len(stories))
	for _, st := range orderStories(stories, storyIDs) {
		if st.IsPublished {
			published = append(published, st)
		}
	}
	publishedModules := make([]*types.LearningModule, 0, len(modules))
	for _, m := range orderModules(modules, moduleIDs) {
		if m.IsPublished {
			publishedModules = append(publishedModules, m)
		}
	}
	return published, publishedModules
}

// dedupStories keeps the first occurrence of each story, preserving order,
// truncated to limit.
func dedupStories(stories []*types.Story, limit int) []*types.Story {
	seen := map[uuid.UUID]struct{}{}
	out := make([]*types.Story, 0, limit)
	for _, st := range stories {
		if _, dup := seen[st.ID]; dup {
			continue
		}
		seen[st.ID] = struct{}{}
		out = append(out, st)
		if len(out) == limit {
			break
		}
	}
	return out
}

func dedupModules(modules []*types.LearningModule, limit int) []*types.LearningModule {
	seen := map[uuid.UUID]struct{}{}
	out := make([]*types.LearningModule, 0, limit)
	for _, m := range modules {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out
}

// orderStories re-sorts a Find result back into the given id order.
func orderStories(stories []*types.Story, order []uuid.UUID) []*types.Story {
	byID := make(map[uuid.UUID]*types.Story, len(stories))
	for _, st := range stories {
		byID[st.ID] = st
	}
	out := make([]*types.Story, 0, len(stories))
	for _, id := range order {
		if st, ok := byID[id]; ok {
			out = append(out, st)
		}
	}
	return out
}

func orderModules(modules []*types.LearningModule, order []uuid.UUID) []*types.LearningModule {
	byID := make(map[uuid.UUID]*types.LearningModule, len(modules))
	for _, m := range modules {
		byID[m.ID] = m
	}
	out := make([]*types.LearningModule, 0, len(modules))
	for _, id := range order {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out
}
