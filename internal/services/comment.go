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

const maxCommentLength = 2000

type CommentInput struct {
	Content  string     `json:"content" binding:"required"`
	ParentID *uuid.UUID `json:"parent_id"`
}

type CommentPage struct {
	Comments []CommentDTO `json:"comments"`
	Total    int64        `json:"total"`
}

type CommentService interface {
	CreateStoryComment(ctx context.Context, storyID uuid.UUID, input CommentInput) (*CommentDTO, error)
	CreateModuleComment(ctx context.Context, moduleID uuid.UUID, input CommentInput) (*CommentDTO, error)
	GetStoryComments(ctx context.Context, storyID uuid.UUID, offset, limit int) (*CommentPage, error)
	GetModuleComments(ctx context.Context, moduleID uuid.UUID, offset, limit int) (*CommentPage, error)
	LikeComment(ctx context.Context, commentID uuid.UUID) error

	// Admin surface.
	GetPendingComments(ctx context.Context, offset, limit int) (*CommentPage, error)
	ApproveComment(ctx context.Context, commentID uuid.UUID) error
	DeleteComment(ctx context.Context, commentID uuid.UUID) error
}

type commentService struct {
	db          *gorm.DB
	log         *logger.Logger
	commentRepo repos.CommentRepo
	storyRepo   repos.StoryRepo
	moduleRepo  repos.LearningModuleRepo
	userRepo    repos.UserRepo
	activity    ActivityService
}

func NewCommentService(
	db *gorm.DB,
	log *logger.Logger,
	commentRepo repos.CommentRepo,
	storyRepo repos.StoryRepo,
	moduleRepo repos.LearningModuleRepo,
	userRepo repos.UserRepo,
	activity ActivityService,
) CommentService {
	serviceLog := log.With("service", "CommentService")
	return &commentService{
		db:          db,
		log:         serviceLog,
		commentRepo: commentRepo,
		storyRepo:   storyRepo,
		moduleRepo:  moduleRepo,
		userRepo:    userRepo,
		activity:    activity,
	}
}

func (s *commentService) CreateStoryComment(ctx context.Context, storyID uuid.UUID, input CommentInput) (*CommentDTO, error) {
	stories, err := s.storyRepo.GetByIDs(ctx, nil, []uuid.UUID{storyID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch story: %w", err)
	}
	if len(stories) == 0 || !stories[0].IsPublished {
		return nil, fmt.Errorf("story %s: %w", storyID, ErrNotFound)
	}
	return s.create(ctx, &storyID, nil, input)
}

func (s *commentService) CreateModuleComment(ctx context.Context, moduleID uuid.UUID, input CommentInput) (*CommentDTO, error) {
	modules, err := s.moduleRepo.GetByIDs(ctx, nil, []uuid.UUID{moduleID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch module: %w", err)
	}
	if len(modules) == 0 || !modules[0].IsPublished {
		return nil, fmt.Errorf("module %s: %w", moduleID, ErrNotFound)
	}
	return s.create(ctx, nil, &moduleID, input)
}

func (s *commentService) create(ctx context.Context, storyID, moduleID *uuid.UUID, input CommentInput) (*CommentDTO, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("login required: %w", ErrUnauthorized)
	}

	content := normalization.TrimInputString(input.Content)
	if content == "" {
		return nil, fmt.Errorf("content is required: %w", ErrValidation)
	}
	if len(content) > maxCommentLength {
		return nil, fmt.Errorf("content exceeds %d characters: %w", maxCommentLength, ErrValidation)
	}

	if input.ParentID != nil {
		parents, pErr := s.commentRepo.GetByIDs(ctx, nil, []uuid.UUID{*input.ParentID})
		if pErr != nil {
			return nil, fmt.Errorf("failed to fetch parent comment: %w", pErr)
		}
		if len(parents) == 0 || parents[0].IsDeleted {
			return nil, fmt.Errorf("parent comment %s: %w", *input.ParentID, ErrNotFound)
		}
	}

	comment := &types.Comment{
		ID:         uuid.New(),
		Content:    content,
		UserID:     rd.UserID,
		StoryID:    storyID,
		ModuleID:   moduleID,
		ParentID:   input.ParentID,
		IsApproved: true,
	}
	if err := s.commentRepo.Create(ctx, nil, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	if s.activity != nil {
		details := map[string]any{"comment_id": comment.ID.String()}
		if storyID != nil {
			details["story_id"] = storyID.String()
		}
		if moduleID != nil {
			details["module_id"] = moduleID.String()
		}
		s.activity.Record(ctx, rd.UserID, types.ActivitySubmitComment, details)
	}

	authorName := s.authorName(ctx, rd.UserID)
	dto := NewCommentDTO(comment, authorName)
	return &dto, nil
}

func (s *commentService) GetStoryComments(ctx context.Context, storyID uuid.UUID, offset, limit int) (*CommentPage, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	comments, total, err := s.commentRepo.GetByStoryID(ctx, nil, storyID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments: %w", err)
	}
	return s.buildPage(ctx, comments, total)
}

func (s *commentService) GetModuleComments(ctx context.Context, moduleID uuid.UUID, offset, limit int) (*CommentPage, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	comments, total, err := s.commentRepo.GetByModuleID(ctx, nil, moduleID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments: %w", err)
	}
	return s.buildPage(ctx, comments, total)
}

// buildPage hydrates one reply level plus author display names.
func (s *commentService) buildPage(ctx context.Context, comments []*types.Comment, total int64) (*CommentPage, error) {
	parentIDs := make([]uuid.UUID, 0, len(comments))
	for _, c := range comments {
		parentIDs = append(parentIDs, c.ID)
	}
	replies, err := s.commentRepo.GetReplies(ctx, nil, parentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch replies: %w", err)
	}

	userIDSet := map[uuid.UUID]struct{}{}
	for _, c := range comments {
		userIDSet[c.UserID] = struct{}{}
	}
	for _, r := range replies {
		userIDSet[r.UserID] = struct{}{}
	}
	userIDs := make([]uuid.UUID, 0, len(userIDSet))
	for id := range userIDSet {
		userIDs = append(userIDs, id)
	}
	users, err := s.userRepo.GetByIDs(ctx, nil, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comment authors: %w", err)
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}

	repliesByParent := map[uuid.UUID][]CommentDTO{}
	for _, r := range replies {
		if r.ParentID == nil {
			continue
		}
		repliesByParent[*r.ParentID] = append(repliesByParent[*r.ParentID], NewCommentDTO(r, names[r.UserID]))
	}

	out := make([]CommentDTO, 0, len(comments))
	for _, c := range comments {
		dto := NewCommentDTO(c, names[c.UserID])
		dto.Replies = repliesByParent[c.ID]
		out = append(out, dto)
	}
	return &CommentPage{Comments: out, Total: total}, nil
}

func (s *commentService) LikeComment(ctx context.Context, commentID uuid.UUID) error {
	comments, err := s.commentRepo.GetByIDs(ctx, nil, []uuid.UUID{commentID})
	if err != nil {
		return fmt.Errorf("failed to fetch comment: %w", err)
	}
	if len(comments) == 0 || comments[0].IsDeleted {
		return fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	if err := s.commentRepo.IncrementLike(ctx, nil, commentID); err != nil {
		return fmt.Errorf("failed to like comment: %w", err)
	}
	return nil
}

func (s *commentService) GetPendingComments(ctx context.Context, offset, limit int) (*CommentPage, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	comments, total, err := s.commentRepo.GetPendingApproval(ctx, nil, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending comments: %w", err)
	}
	return s.buildPage(ctx, comments, total)
}

func (s *commentService) ApproveComment(ctx context.Context, commentID uuid.UUID) error {
	comments, err := s.commentRepo.GetByIDs(ctx, nil, []uuid.UUID{commentID})
	if err != nil {
		return fmt.Errorf("failed to fetch comment: %w", err)
	}
	if len(comments) == 0 || comments[0].IsDeleted {
		return fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	comment := comments[0]
	comment.IsApproved = true
	if err := s.commentRepo.Update(ctx, nil, comment); err != nil {
		return fmt.Errorf("failed to approve comment: %w", err)
	}
	return nil
}

// DeleteComment soft-deletes so reply threads keep their shape.
func (s *commentService) DeleteComment(ctx context.Context, commentID uuid.UUID) error {
	comments, err := s.commentRepo.GetByIDs(ctx, nil, []uuid.UUID{commentID})
	if err != nil {
		return fmt.Errorf("failed to fetch comment: %w", err)
	}
	if len(comments) == 0 {
		return fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	comment := comments[0]
	comment.IsDeleted = true
	if err := s.commentRepo.Update(ctx, nil, comment); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	s.log.Info("comment deleted", "comment_id", commentID)
	return nil
}

func (s *commentService) authorName(ctx context.Context, userID uuid.UUID) string {
	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil || len(users) == 0 {
		return ""
	}
	return users[0].DisplayName()
}
