package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/normalization"
	"github.com/piyingxi/shadowplay-backend/internal/repos"
	"github.com/piyingxi/shadowplay-backend/internal/requestdata"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

type ModuleListInput struct {
	Category        string
	DifficultyLevel int
	Page            int
	PerPage         int
}

type ModulePage struct {
	Modules []ModuleDTO `json:"modules"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
}

type ModuleDetail struct {
	Module   ModuleDTO           `json:"module"`
	Progress *types.UserProgress `json:"progress,omitempty"`
}

type ProgressInput struct {
	Progress     float64 `json:"progress"`
	LastPosition string  `json:"last_position"`
	TimeSpent    int     `json:"time_spent"`
}

type CompletionResult struct {
	Progress      *types.UserProgress `json:"progress"`
	PointsAwarded int                 `json:"points_awarded"`
	LevelledUp    bool                `json:"levelled_up"`
	NewLevel      int                 `json:"new_level"`
}

type ModuleInput struct {
	Title             string `json:"title" binding:"required"`
	TitleEN           string `json:"title_en"`
	Slug              string `json:"slug" binding:"required"`
	Description       string `json:"description"`
	DescriptionEN     string `json:"description_en"`
	Content           string `json:"content" binding:"required"`
	ContentEN         string `json:"content_en"`
	Category          string `json:"category"`
	DifficultyLevel   int    `json:"difficulty_level"`
	Position          int    `json:"position"`
	VideoURL          string `json:"video_url"`
	Thumbnail         string `json:"thumbnail"`
	EstimatedDuration int    `json:"estimated_duration"`
	PointsReward      int    `json:"points_reward"`
	IsPublished       *bool  `json:"is_published"`
	IsFree            *bool  `json:"is_free"`
}

type LearningService interface {
	ListModules(ctx context.Context, input ModuleListInput) (*ModulePage, error)
	GetModule(ctx context.Context, moduleID uuid.UUID) (*ModuleDetail, error)
	EnrollModule(ctx context.Context, moduleID uuid.UUID) (*types.UserProgress, error)
	UpdateProgress(ctx context.Context, moduleID uuid.UUID, input ProgressInput) (*CompletionResult, error)
	CompleteModule(ctx context.Context, moduleID uuid.UUID) (*CompletionResult, error)
	SearchModules(ctx context.Context, query string, limit int) ([]ModuleDTO, error)

	// Admin surface.
	CreateModule(ctx context.Context, input ModuleInput) (*ModuleDTO, error)
	UpdateModule(ctx context.Context, moduleID uuid.UUID, input ModuleInput) (*ModuleDTO, error)
	DeleteModule(ctx context.Context, moduleID uuid.UUID) error
}

type learningService struct {
	db           *gorm.DB
	log          *logger.Logger
	moduleRepo   repos.LearningModuleRepo
	progressRepo repos.UserProgressRepo
	userRepo     repos.UserRepo
	viewRepo     repos.ContentViewRepo
	activity     ActivityService
}

func NewLearningService(
	db *gorm.DB,
	log *logger.Logger,
	moduleRepo repos.LearningModuleRepo,
	progressRepo repos.UserProgressRepo,
	userRepo repos.UserRepo,
	viewRepo repos.ContentViewRepo,
	activity ActivityService,
) LearningService {
	serviceLog := log.With("service", "LearningService")
	return &learningService{
		db:           db,
		log:          serviceLog,
		moduleRepo:   moduleRepo,
		progressRepo: progressRepo,
		userRepo:     userRepo,
		viewRepo:     viewRepo,
		activity:     activity,
	}
}

func (s *learningService) ListModules(ctx context.Context, input ModuleListInput) (*ModulePage, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	perPage := input.PerPage
	if perPage <= 0 || perPage > 50 {
		perPage = 12
	}

	modules, total, err := s.moduleRepo.List(ctx, nil, repos.ModuleFilter{
		Category:        normalization.TrimInputString(input.Category),
		DifficultyLevel: input.DifficultyLevel,
		PublishedOnly:   true,
		Offset:          (page - 1) * perPage,
		Limit:           perPage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}

	return &ModulePage{
		Modules: NewModuleDTOs(modules, requestdata.Language(ctx)),
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}, nil
}

func (s *learningService) GetModule(ctx context.Context, moduleID uuid.UUID) (*ModuleDetail, error) {
	module, err := s.requireModule(ctx, nil, moduleID)
	if err != nil {
		return nil, err
	}

	detail := &ModuleDetail{Module: NewModuleDetailDTO(module, requestdata.Language(ctx))}

	rd := requestdata.GetRequestData(ctx)
	if rd != nil && rd.UserID != uuid.Nil {
		progress, pErr := s.progressRepo.GetByUserAndModule(ctx, nil, rd.UserID, moduleID)
		if pErr != nil && !errors.Is(pErr, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to fetch progress: %w", pErr)
		}
		detail.Progress = progress
	}

	view := &types.ContentView{
		ID:        uuid.New(),
		ModuleID:  &module.ID,
		CreatedAt: time.Now(),
	}
	if rd != nil {
		if rd.UserID != uuid.Nil {
			userID := rd.UserID
			view.UserID = &userID
		}
		view.IPAddress = rd.IPAddress
		view.DeviceType = types.DetectDeviceType(rd.UserAgent)
	}
	if err := s.viewRepo.Create(ctx, nil, view); err != nil {
		s.log.Warn("failed to record module view", "module_id", moduleID, "error", err)
	}

	return detail, nil
}

// EnrollModule creates the progress row lazily and bumps the enrollment
// counter once per user.
func (s *learningService) EnrollModule(ctx context.Context, moduleID uuid.UUID) (*types.UserProgress, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("login required: %w", ErrUnauthorized)
	}

	var progress *types.UserProgress
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, mErr := s.requireModule(ctx, tx, moduleID); mErr != nil {
			return mErr
		}

		existing, pErr := s.progressRepo.GetByUserAndModule(ctx, tx, rd.UserID, moduleID)
		if pErr != nil && !errors.Is(pErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check progress: %w", pErr)
		}
		if existing != nil {
			progress = existing
			return nil
		}

		now := time.Now()
		progress = &types.UserProgress{
			ID:           uuid.New(),
			UserID:       rd.UserID,
			ModuleID:     moduleID,
			StartedAt:    now,
			LastAccessed: now,
		}
		if cErr := s.progressRepo.Create(ctx, tx, progress); cErr != nil {
			return fmt.Errorf("failed to create progress: %w", cErr)
		}
		if iErr := s.moduleRepo.IncrementEnrollment(ctx, tx, moduleID); iErr != nil {
			return fmt.Errorf("failed to bump enrollment: %w", iErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

func (s *learningService) UpdateProgress(ctx context.Context, moduleID uuid.UUID, input ProgressInput) (*CompletionResult, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("login required: %w", ErrUnauthorized)
	}
	if input.Progress < 0 || input.Progress > 100 {
		return nil, fmt.Errorf("progress must be within [0,100]: %w", ErrValidation)
	}

	var result *CompletionResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		module, mErr := s.requireModule(ctx, tx, moduleID)
		if mErr != nil {
			return mErr
		}

		progress, pErr := s.progressRepo.GetByUserAndModule(ctx, tx, rd.UserID, moduleID)
		if pErr != nil {
			if errors.Is(pErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("not enrolled in module %s: %w", moduleID, ErrNotFound)
			}
			return fmt.Errorf("failed to fetch progress: %w", pErr)
		}

		now := time.Now()
		crossed := progress.ApplyProgress(input.Progress, now)
		if input.LastPosition != "" {
			progress.LastPosition = input.LastPosition
		}
		if input.TimeSpent > 0 {
			progress.TimeSpent += input.TimeSpent
		}

		if crossed {
			r, cErr := s.finishModule(ctx, tx, progress, module, now)
			if cErr != nil {
				return cErr
			}
			result = r
			return nil
		}

		if uErr := s.progressRepo.Update(ctx, tx, progress); uErr != nil {
			return fmt.Errorf("failed to update progress: %w", uErr)
		}
		result = &CompletionResult{Progress: progress}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *learningService) CompleteModule(ctx context.Context, moduleID uuid.UUID) (*CompletionResult, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("login required: %w", ErrUnauthorized)
	}

	var result *CompletionResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		module, mErr := s.requireModule(ctx, tx, moduleID)
		if mErr != nil {
			return mErr
		}

		progress, pErr := s.progressRepo.GetByUserAndModule(ctx, tx, rd.UserID, moduleID)
		if pErr != nil {
			if errors.Is(pErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("not enrolled in module %s: %w", moduleID, ErrNotFound)
			}
			return fmt.Errorf("failed to fetch progress: %w", pErr)
		}
		if progress.Completed {
			// Completion is idempotent; points are awarded once.
			result = &CompletionResult{Progress: progress}
			return nil
		}

		now := time.Now()
		progress.ApplyProgress(100, now)
		r, cErr := s.finishModule(ctx, tx, progress, module, now)
		if cErr != nil {
			return cErr
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// finishModule marks the record complete, awards the module's points, and
// bumps the module completion counter. Caller holds the transaction.
func (s *learningService) finishModule(ctx context.Context, tx *gorm.DB, progress *types.UserProgress, module *types.LearningModule, now time.Time) (*CompletionResult, error) {
	progress.Completed = true
	progress.Progress = 100
	progress.CompletedAt = &now
	if err := s.progressRepo.Update(ctx, tx, progress); err != nil {
		return nil, fmt.Errorf("failed to save completion: %w", err)
	}
	if err := s.moduleRepo.IncrementCompletion(ctx, tx, module.ID); err != nil {
		return nil, fmt.Errorf("failed to bump completion count: %w", err)
	}

	users, err := s.userRepo.GetByIDs(ctx, tx, []uuid.UUID{progress.UserID})
	if err != nil {
		return nil, fmt.Errorf("failed to load user for reward: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user %s: %w", progress.UserID, ErrNotFound)
	}
	user := users[0]
	levelledUp := user.AddPoints(module.PointsReward)
	if err := s.userRepo.Update(ctx, tx, user); err != nil {
		return nil, fmt.Errorf("failed to award points: %w", err)
	}

	if s.activity != nil {
		if aErr := s.activity.RecordTx(ctx, tx, user.ID, types.ActivityCompleteModule, map[string]any{
			"module_id": module.ID.String(),
			"points":    module.PointsReward,
		}); aErr != nil {
			s.log.Warn("failed to record completion activity", "module_id", module.ID, "error", aErr)
		}
	}

	s.log.Info("module completed", "module_id", module.ID, "user_id", user.ID, "points", module.PointsReward, "levelled_up", levelledUp)
	return &CompletionResult{
		Progress:      progress,
		PointsAwarded: module.PointsReward,
		LevelledUp:    levelledUp,
		NewLevel:      user.Level,
	}, nil
}

func (s *learningService) requireModule(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) (*types.LearningModule, error) {
	modules, err := s.moduleRepo.GetByIDs(ctx, tx, []uuid.UUID{moduleID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch module: %w", err)
	}
	if len(modules) == 0 || !modules[0].IsPublished {
		return nil, fmt.Errorf("module %s: %w", moduleID, ErrNotFound)
	}
	return modules[0], nil
}

func (s *learningService) SearchModules(ctx context.Context, query string, limit int) ([]ModuleDTO, error) {
	query = normalization.TrimInputString(query)
	if query == "" {
		return []ModuleDTO{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	modules, err := s.moduleRepo.Search(ctx, nil, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search modules: %w", err)
	}
	return NewModuleDTOs(modules, requestdata.Language(ctx)), nil
}

func (s *learningService) CreateModule(ctx context.Context, input ModuleInput) (*ModuleDTO, error) {
	if normalization.TrimInputString(input.Title) == "" {
		return nil, fmt.Errorf("title is required: %w", ErrValidation)
	}
	if normalization.TrimInputString(input.Content) == "" {
		return nil, fmt.Errorf("content is required: %w", ErrValidation)
	}

	module := &types.LearningModule{
		ID:           uuid.New(),
		Slug:         normalization.ParseInputString(input.Slug),
		PointsReward: 10,
		IsPublished:  true,
		IsFree:       true,
	}
	applyModuleInput(module, input)

	if _, err := s.moduleRepo.Create(ctx, nil, []*types.LearningModule{module}); err != nil {
		return nil, fmt.Errorf("failed to create module: %w", err)
	}
	s.log.Info("module created", "module_id", module.ID, "slug", module.Slug)

	dto := NewModuleDetailDTO(module, requestdata.Language(ctx))
	return &dto, nil
}

func (s *learningService) UpdateModule(ctx context.Context, moduleID uuid.UUID, input ModuleInput) (*ModuleDTO, error) {
	modules, err := s.moduleRepo.GetByIDs(ctx, nil, []uuid.UUID{moduleID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch module: %w", err)
	}
	if len(modules) == 0 {
		return nil, fmt.Errorf("module %s: %w", moduleID, ErrNotFound)
	}
	module := modules[0]
	if slug := normalization.ParseInputString(input.Slug); slug != "" {
		module.Slug = slug
	}
	applyModuleInput(module, input)

	if err := s.moduleRepo.Update(ctx, nil, module); err != nil {
		return nil, fmt.Errorf("failed to update module: %w", err)
	}
	dto := NewModuleDetailDTO(module, requestdata.Language(ctx))
	return &dto, nil
}

func (s *learningService) DeleteModule(ctx context.Context, moduleID uuid.UUID) error {
	modules, err := s.moduleRepo.GetByIDs(ctx, nil, []uuid.UUID{moduleID})
	if err != nil {
		return fmt.Errorf("failed to fetch module: %w", err)
	}
	if len(modules) == 0 {
		return fmt.Errorf("module %s: %w", moduleID, ErrNotFound)
	}
	if err := s.moduleRepo.FullDeleteByIDs(ctx, nil, []uuid.UUID{moduleID}); err != nil {
		return fmt.Errorf("failed to delete module: %w", err)
	}
	s.log.Info("module deleted", "module_id", moduleID)
	return nil
}

func applyModuleInput(module *types.LearningModule, input ModuleInput) {
	module.Title = normalization.TrimInputString(input.Title)
	module.TitleEN = normalization.TrimInputString(input.TitleEN)
	module.Description = normalization.TrimInputString(input.Description)
	module.DescriptionEN = normalization.TrimInputString(input.DescriptionEN)
	module.Content = input.Content
	module.ContentEN = input.ContentEN
	module.Category = normalization.ParseInputString(input.Category)
	if input.DifficultyLevel > 0 {
		module.DifficultyLevel = input.DifficultyLevel
	}
	if input.Position > 0 {
		module.Position = input.Position
	}
	module.VideoURL = input.VideoURL
	module.Thumbnail = input.Thumbnail
	if input.EstimatedDuration > 0 {
		module.EstimatedDuration = input.EstimatedDuration
	}
	if input.PointsReward > 0 {
		module.PointsReward = input.PointsReward
	}
	if input.IsPublished != nil {
		module.IsPublished = *input.IsPublished
	}
	if input.IsFree != nil {
		module.IsFree = *input.IsFree
	}
}
