package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/repos"
	"github.com/piyingxi/shadowplay-backend/internal/requestdata"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

type ActivityPage struct {
	Activities []*types.UserActivity `json:"activities"`
	Total      int64                 `json:"total"`
}

// ActivityService appends to the user activity stream. Recording is
// best-effort: a failed insert is logged and never fails the causing
// operation.
type ActivityService interface {
	Record(ctx context.Context, userID uuid.UUID, activityType string, details map[string]any)
	RecordTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, activityType string, details map[string]any) error
	GetUserActivities(ctx context.Context, userID uuid.UUID, offset, limit int) (*ActivityPage, error)
}

type activityService struct {
	db           *gorm.DB
	log          *logger.Logger
	activityRepo repos.UserActivityRepo
}

func NewActivityService(db *gorm.DB, log *logger.Logger, activityRepo repos.UserActivityRepo) ActivityService {
	serviceLog := log.With("service", "ActivityService")
	return &activityService{db: db, log: serviceLog, activityRepo: activityRepo}
}

func (s *activityService) Record(ctx context.Context, userID uuid.UUID, activityType string, details map[string]any) {
	if err := s.RecordTx(ctx, nil, userID, activityType, details); err != nil {
		s.log.Warn("failed to record activity", "activity_type", activityType, "user_id", userID, "error", err)
	}
}

func (s *activityService) RecordTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, activityType string, details map[string]any) error {
	if userID == uuid.Nil {
		return fmt.Errorf("user id required for activity record")
	}

	var raw datatypes.JSON
	if len(details) > 0 {
		encoded, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to encode activity details: %w", err)
		}
		raw = datatypes.JSON(encoded)
	}

	activity := &types.UserActivity{
		ID:           uuid.New(),
		UserID:       userID,
		ActivityType: activityType,
		Details:      raw,
	}
	if rd := requestdata.GetRequestData(ctx); rd != nil {
		activity.IPAddress = rd.IPAddress
		activity.UserAgent = rd.UserAgent
		activity.DeviceType = types.DetectDeviceType(rd.UserAgent)
	}
	return s.activityRepo.Create(ctx, tx, activity)
}

func (s *activityService) GetUserActivities(ctx context.Context, userID uuid.UUID, offset, limit int) (*ActivityPage, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	activities, total, err := s.activityRepo.GetByUserID(ctx, nil, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activities: %w", err)
	}
	return &ActivityPage{Activities: activities, Total: total}, nil
}
