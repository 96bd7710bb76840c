package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/normalization"
	"github.com/piyingxi/shadowplay-backend/internal/repos"
	"github.com/piyingxi/shadowplay-backend/internal/requestdata"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

type ProfileInput struct {
	Nickname *string `json:"nickname"`
	Avatar   *string `json:"avatar"`
	Bio      *string `json:"bio"`
	Location *string `json:"location"`
	Language *string `json:"language"`
	Theme    *string `json:"theme"`
}

type PasswordInput struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type UserStats struct {
	Points           int     `json:"points"`
	Level            int     `json:"level"`
	CompletedModules int64   `json:"completed_modules"`
	AverageProgress  float64 `json:"average_progress"`
}

type UserListPage struct {
	Users   []UserDTO `json:"users"`
	Total   int64     `json:"total"`
	Page    int       `json:"page"`
	PerPage int       `json:"per_page"`
}

var validLanguages = map[string]struct{}{
	"zh_CN": {},
	"en_US": {},
}

var validThemes = map[string]struct{}{
	"light": {},
	"dark":  {},
}

type UserService interface {
	GetMe(ctx context.Context) (*UserDTO, error)
	UpdateProfile(ctx context.Context, input ProfileInput) (*UserDTO, error)
	ChangePassword(ctx context.Context, input PasswordInput) error
	GetMyStats(ctx context.Context) (*UserStats, error)

	// Admin surface.
	ListUsers(ctx context.Context, page, perPage int) (*UserListPage, error)
	ToggleActive(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
}

type userService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	progressRepo repos.UserProgressRepo
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, progressRepo repos.UserProgressRepo) UserService {
	serviceLog := log.With("service", "UserService")
	return &userService{db: db, log: serviceLog, userRepo: userRepo, progressRepo: progressRepo}
}

func (s *userService) currentUser(ctx context.Context) (*types.User, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("login required: %w", ErrUnauthorized)
	}
	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{rd.UserID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user %s: %w", rd.UserID, ErrNotFound)
	}
	return users[0], nil
}

func (s *userService) GetMe(ctx context.Context) (*UserDTO, error) {
	user, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	dto := NewUserDTO(user)
	return &dto, nil
}

func (s *userService) UpdateProfile(ctx context.Context, input ProfileInput) (*UserDTO, error) {
	user, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	if input.Nickname != nil {
		user.Nickname = normalization.TrimInputString(*input.Nickname)
	}
	if input.Avatar != nil {
		user.Avatar = normalization.TrimInputString(*input.Avatar)
	}
	if input.Bio != nil {
		user.Bio = normalization.TrimInputString(*input.Bio)
	}
	if input.Location != nil {
		user.Location = normalization.TrimInputString(*input.Location)
	}
	if input.Language != nil {
		lang := normalization.TrimInputString(*input.Language)
		if _, ok := validLanguages[lang]; !ok {
			return nil, fmt.Errorf("unsupported language %q: %w", lang, ErrValidation)
		}
		user.Language = lang
	}
	if input.Theme != nil {
		theme := normalization.ParseInputString(*input.Theme)
		if _, ok := validThemes[theme]; !ok {
			return nil, fmt.Errorf("unsupported theme %q: %w", theme, ErrValidation)
		}
		user.Theme = theme
	}

	if err := s.userRepo.Update(ctx, nil, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	dto := NewUserDTO(user)
	return &dto, nil
}

func (s *userService) ChangePassword(ctx context.Context, input PasswordInput) error {
	user, err := s.currentUser(ctx)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.CurrentPassword)) != nil {
		return fmt.Errorf("current password does not match: %w", ErrUnauthorized)
	}
	if len(input.NewPassword) < 6 {
		return fmt.Errorf("new password must be at least 6 characters: %w", ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	if err := s.userRepo.Update(ctx, nil, user); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}
	s.log.Info("password changed", "user_id", user.ID)
	return nil
}

func (s *userService) GetMyStats(ctx context.Context) (*UserStats, error) {
	user, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	completed, err := s.progressRepo.CountCompleted(ctx, nil, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count completions: %w", err)
	}
	avg, err := s.progressRepo.AverageProgress(ctx, nil, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to average progress: %w", err)
	}
	return &UserStats{
		Points:           user.Points,
		Level:            user.Level,
		CompletedModules: completed,
		AverageProgress:  avg,
	}, nil
}

func (s *userService) ListUsers(ctx context.Context, page, perPage int) (*UserListPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}
	users, total, err := s.userRepo.List(ctx, nil, (page-1)*perPage, perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	out := make([]UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserDTO(u))
	}
	return &UserListPage{Users: out, Total: total, Page: page, PerPage: perPage}, nil
}

func (s *userService) ToggleActive(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	user := users[0]
	if user.IsAdmin {
		return nil, fmt.Errorf("cannot deactivate an admin account: %w", ErrForbidden)
	}
	user.IsActive = !user.IsActive
	if err := s.userRepo.Update(ctx, nil, user); err != nil {
		return nil, fmt.Errorf("failed to toggle user: %w", err)
	}
	s.log.Info("user active flag toggled", "user_id", userID, "is_active", user.IsActive)
	dto := NewUserDTO(user)
	return &dto, nil
}
