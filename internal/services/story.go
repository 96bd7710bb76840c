package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/normalization"
	"github.com/piyingxi/shadowplay-backend/internal/repos"
	"github.com/piyingxi/shadowplay-backend/internal/requestdata"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

type StoryListInput struct {
	Category        string
	DifficultyLevel int
	FeaturedOnly    bool
	Sort            string
	Page            int
	PerPage         int
}

type StoryPage struct {
	Stories []StoryDTO `json:"stories"`
	Total   int64      `json:"total"`
	Page    int        `json:"page"`
	PerPage int        `json:"per_page"`
}

type StoryDetail struct {
	Story      StoryDTO       `json:"story"`
	Scenes     []SceneDTO     `json:"scenes"`
	Characters []CharacterDTO `json:"characters"`
}

type StoryInput struct {
	Title           string         `json:"title" binding:"required"`
	TitleEN         string         `json:"title_en"`
	Slug            string         `json:"slug" binding:"required"`
	Description     string         `json:"description" binding:"required"`
	DescriptionEN   string         `json:"description_en"`
	FullContent     string         `json:"full_content"`
	FullContentEN   string         `json:"full_content_en"`
	Thumbnail       string         `json:"thumbnail"`
	VideoURL        string         `json:"video_url"`
	Images          datatypes.JSON `json:"images"`
	Category        string         `json:"category"`
	Tags            datatypes.JSON `json:"tags"`
	DifficultyLevel int            `json:"difficulty_level"`
	IsPublished     *bool          `json:"is_published"`
	IsFeatured      *bool          `json:"is_featured"`
	Duration        int            `json:"duration"`
}

type StoryService interface {
	ListStories(ctx context.Context, input StoryListInput) (*StoryPage, error)
	GetStory(ctx context.Context, storyID uuid.UUID) (*StoryDetail, error)
	GetStoryBySlug(ctx context.Context, slug string) (*StoryDetail, error)
	LikeStory(ctx context.Context, storyID uuid.UUID) error
	ShareStory(ctx context.Context, storyID uuid.UUID) error
	SearchStories(ctx context.Context, query string, limit int) ([]StoryDTO, error)

	// Admin surface.
	CreateStory(ctx context.Context, input StoryInput) (*StoryDTO, error)
	UpdateStory(ctx context.Context, storyID uuid.UUID, input StoryInput) (*StoryDTO, error)
	DeleteStory(ctx context.Context, storyID uuid.UUID) error
}

type storyService struct {
	db        *gorm.DB
	log       *logger.Logger
	storyRepo repos.StoryRepo
	charRepo  repos.CharacterRepo
	viewRepo  repos.ContentViewRepo
	activity  ActivityService
}

func NewStoryService(
	db *gorm.DB,
	log *logger.Logger,
	storyRepo repos.StoryRepo,
	charRepo repos.CharacterRepo,
	viewRepo repos.ContentViewRepo,
	activity ActivityService,
) StoryService {
	serviceLog := log.With("service", "StoryService")
	return &storyService{
		db:        db,
		log:       serviceLog,
		storyRepo: storyRepo,
		charRepo:  charRepo,
		viewRepo:  viewRepo,
		activity:  activity,
	}
}

func (s *storyService) ListStories(ctx context.Context, input StoryListInput) (*StoryPage, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	perPage := input.PerPage
	if perPage <= 0 || perPage > 50 {
		perPage = 12
	}

	stories, total, err := s.storyRepo.List(ctx, nil, repos.StoryFilter{
		Category:        normalization.TrimInputString(input.Category),
		DifficultyLevel: input.DifficultyLevel,
		FeaturedOnly:    input.FeaturedOnly,
		PublishedOnly:   true,
		Sort:            input.Sort,
		Offset:          (page - 1) * perPage,
		Limit:           perPage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}

	language := requestdata.Language(ctx)
	return &StoryPage{
		Stories: NewStoryDTOs(stories, language),
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}, nil
}

func (s *storyService) GetStory(ctx context.Context, storyID uuid.UUID) (*StoryDetail, error) {
	stories, err := s.storyRepo.GetByIDs(ctx, nil, []uuid.UUID{storyID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch story: %w", err)
	}
	if len(stories) == 0 || !stories[0].IsPublished {
		return nil, fmt.Errorf("story %s: %w", storyID, ErrNotFound)
	}
	return s.buildDetail(ctx, stories[0])
}

func (s *storyService) GetStoryBySlug(ctx context.Context, slug string) (*StoryDetail, error) {
	stories, err := s.storyRepo.GetBySlugs(ctx, nil, []string{normalization.ParseInputString(slug)})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch story: %w", err)
	}
	if len(stories) == 0 || !stories[0].IsPublished {
		return nil, fmt.Errorf("story %q: %w", slug, ErrNotFound)
	}
	return s.buildDetail(ctx, stories[0])
}

func (s *storyService) buildDetail(ctx context.Context, story *types.Story) (*StoryDetail, error) {
	scenes, err := s.storyRepo.GetScenesByStoryIDs(ctx, nil, []uuid.UUID{story.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scenes: %w", err)
	}
	links, err := s.storyRepo.GetCharacterLinks(ctx, nil, []uuid.UUID{story.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch character links: %w", err)
	}
	charIDs := make([]uuid.UUID, 0, len(links))
	for _, link := range links {
		charIDs = append(charIDs, link.CharacterID)
	}
	characters, err := s.charRepo.GetByIDs(ctx, nil, charIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch characters: %w", err)
	}

	s.recordView(ctx, story)

	language := requestdata.Language(ctx)
	return &StoryDetail{
		Story:      NewStoryDetailDTO(story, language),
		Scenes:     NewSceneDTOs(scenes, language),
		Characters: NewCharacterDTOs(characters, language),
	}, nil
}

// recordView bumps the counter and appends a ContentView row. Both are
// best-effort read signals and never fail the read.
func (s *storyService) recordView(ctx context.Context, story *types.Story) {
	if err := s.storyRepo.IncrementView(ctx, nil, story.ID); err != nil {
		s.log.Warn("failed to increment view count", "story_id", story.ID, "error", err)
	}

	view := &types.ContentView{
		ID:        uuid.New(),
		StoryID:   &story.ID,
		CreatedAt: time.Now(),
	}
	if rd := requestdata.GetRequestData(ctx); rd != nil {
		if rd.UserID != uuid.Nil {
			userID := rd.UserID
			view.UserID = &userID
		}
		view.IPAddress = rd.IPAddress
		view.DeviceType = types.DetectDeviceType(rd.UserAgent)
	}
	if err := s.viewRepo.Create(ctx, nil, view); err != nil {
		s.log.Warn("failed to record content view", "story_id", story.ID, "error", err)
	}

	if rd := requestdata.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil && s.activity != nil {
		s.activity.Record(ctx, rd.UserID, types.ActivityViewStory, map[string]any{
			"story_id": story.ID.String(),
			"category": story.Category,
		})
	}
}

func (s *storyService) LikeStory(ctx context.Context, storyID uuid.UUID) error {
	if err := s.requireStory(ctx, storyID); err != nil {
		return err
	}
	if err := s.storyRepo.IncrementLike(ctx, nil, storyID); err != nil {
		return fmt.Errorf("failed to like story: %w", err)
	}
	return nil
}

func (s *storyService) ShareStory(ctx context.Context, storyID uuid.UUID) error {
	if err := s.requireStory(ctx, storyID); err != nil {
		return err
	}
	if err := s.storyRepo.IncrementShare(ctx, nil, storyID); err != nil {
		return fmt.Errorf("failed to share story: %w", err)
	}
	if rd := requestdata.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil && s.activity != nil {
		s.activity.Record(ctx, rd.UserID, types.ActivityShareContent, map[string]any{
			"story_id": storyID.String(),
		})
	}
	return nil
}

func (s *storyService) requireStory(ctx context.Context, storyID uuid.UUID) error {
	stories, err := s.storyRepo.GetByIDs(ctx, nil, []uuid.UUID{storyID})
	if err != nil {
		return fmt.Errorf("failed to fetch story: %w", err)
	}
	if len(stories) == 0 || !stories[0].IsPublished {
		return fmt.Errorf("story %s: %w", storyID, ErrNotFound)
	}
	return nil
}

func (s *storyService) SearchStories(ctx context.Context, query string, limit int) ([]StoryDTO, error) {
	query = normalization.TrimInputString(query)
	if query == "" {
		return []StoryDTO{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	stories, err := s.storyRepo.Search(ctx, nil, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search stories: %w", err)
	}
	return NewStoryDTOs(stories, requestdata.Language(ctx)), nil
}

func (s *storyService) CreateStory(ctx context.Context, input StoryInput) (*StoryDTO, error) {
	if err := validateStoryInput(input); err != nil {
		return nil, err
	}

	existing, err := s.storyRepo.GetBySlugs(ctx, nil, []string{input.Slug})
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("slug %q already in use: %w", input.Slug, ErrConflict)
	}

	now := time.Now()
	story := &types.Story{
		ID:              uuid.New(),
		Slug:            normalization.ParseInputString(input.Slug),
		DifficultyLevel: input.DifficultyLevel,
		IsPublished:     true,
	}
	applyStoryInput(story, input)
	if story.IsPublished {
		story.PublishedAt = &now
	}
	if rd := requestdata.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
		authorID := rd.UserID
		story.AuthorID = &authorID
	}

	if _, err := s.storyRepo.Create(ctx, nil, []*types.Story{story}); err != nil {
		return nil, fmt.Errorf("failed to create story: %w", err)
	}

	s.log.Info("story created", "story_id", story.ID, "slug", story.Slug)
	dto := NewStoryDetailDTO(story, requestdata.Language(ctx))
	return &dto, nil
}

func (s *storyService) UpdateStory(ctx context.Context, storyID uuid.UUID, input StoryInput) (*StoryDTO, error) {
	stories, err := s.storyRepo.GetByIDs(ctx, nil, []uuid.UUID{storyID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch story: %w", err)
	}
	if len(stories) == 0 {
		return nil, fmt.Errorf("story %s: %w", storyID, ErrNotFound)
	}
	story := stories[0]

	if slug := normalization.ParseInputString(input.Slug); slug != "" && slug != story.Slug {
		existing, sErr := s.storyRepo.GetBySlugs(ctx, nil, []string{slug})
		if sErr != nil {
			return nil, fmt.Errorf("failed to check slug: %w", sErr)
		}
		if len(existing) > 0 {
			return nil, fmt.Errorf("slug %q already in use: %w", slug, ErrConflict)
		}
		story.Slug = slug
	}

	wasPublished := story.IsPublished
	applyStoryInput(story, input)
	if !wasPublished && story.IsPublished && story.PublishedAt == nil {
		now := time.Now()
		story.PublishedAt = &now
	}

	if err := s.storyRepo.Update(ctx, nil, story); err != nil {
		return nil, fmt.Errorf("failed to update story: %w", err)
	}
	dto := NewStoryDetailDTO(story, requestdata.Language(ctx))
	return &dto, nil
}

func (s *storyService) DeleteStory(ctx context.Context, storyID uuid.UUID) error {
	stories, err := s.storyRepo.GetByIDs(ctx, nil, []uuid.UUID{storyID})
	if err != nil {
		return fmt.Errorf("failed to fetch story: %w", err)
	}
	if len(stories) == 0 {
		return fmt.Errorf("story %s: %w", storyID, ErrNotFound)
	}
	if err := s.storyRepo.FullDeleteByIDs(ctx, nil, []uuid.UUID{storyID}); err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	s.log.Info("story deleted", "story_id", storyID)
	return nil
}

func validateStoryInput(input StoryInput) error {
	if normalization.TrimInputString(input.Title) == "" {
		return fmt.Errorf("title is required: %w", ErrValidation)
	}
	if normalization.ParseInputString(input.Slug) == "" {
		return fmt.Errorf("slug is required: %w", ErrValidation)
	}
	if normalization.TrimInputString(input.Description) == "" {
		return fmt.Errorf("description is required: %w", ErrValidation)
	}
	if input.DifficultyLevel < 0 || input.DifficultyLevel > 5 {
		return fmt.Errorf("difficulty_level must be within 1..5: %w", ErrValidation)
	}
	return nil
}

func applyStoryInput(story *types.Story, input StoryInput) {
	story.Title = normalization.TrimInputString(input.Title)
	story.TitleEN = normalization.TrimInputString(input.TitleEN)
	story.Description = normalization.TrimInputString(input.Description)
	story.DescriptionEN = normalization.TrimInputString(input.DescriptionEN)
	story.FullContent = input.FullContent
	story.FullContentEN = input.FullContentEN
	story.Thumbnail = input.Thumbnail
	story.VideoURL = input.VideoURL
	if input.Images != nil {
		story.Images = input.Images
	}
	story.Category = normalization.ParseInputString(input.Category)
	if input.Tags != nil {
		story.Tags = input.Tags
	}
	if input.DifficultyLevel > 0 {
		story.DifficultyLevel = input.DifficultyLevel
	}
	if input.IsPublished != nil {
		story.IsPublished = *input.IsPublished
	}
	if input.IsFeatured != nil {
		story.IsFeatured = *input.IsFeatured
	}
	if input.Duration > 0 {
		story.Duration = input.Duration
	}
}
