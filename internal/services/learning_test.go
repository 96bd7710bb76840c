package services

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/repos"
	"github.com/piyingxi/shadowplay-backend/internal/testutil"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

func newLearningService(t *testing.T, gdb *gorm.DB) LearningService {
	t.Helper()
	log := testutil.Logger(t)
	return NewLearningService(
		gdb,
		log,
		repos.NewLearningModuleRepo(gdb, log),
		repos.NewUserProgressRepo(gdb, log),
		repos.NewUserRepo(gdb, log),
		repos.NewContentViewRepo(gdb, log),
		nil,
	)
}

func TestEnrollModule_IsIdempotent(t *testing.T) {
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, gdb, "learner")
	module := testutil.SeedModule(t, gdb, "module-one", 1)
	svc := newLearningService(t, gdb)
	ctx := authedCtx(user.ID)

	first, err := svc.EnrollModule(ctx, module.ID)
	if err != nil {
		t.Fatalf("EnrollModule failed: %v", err)
	}
	second, err := svc.EnrollModule(ctx, module.ID)
	if err != nil {
		t.Fatalf("second EnrollModule failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same progress row, got %v and %v", first.ID, second.ID)
	}

	var stored types.LearningModule
	if err := gdb.First(&stored, "id = ?", module.ID).Error; err != nil {
		t.Fatalf("failed to reload module: %v", err)
	}
	if stored.EnrollmentCount != 1 {
		t.Fatalf("enrollment must count once per user, got %d", stored.EnrollmentCount)
	}
}

func TestUpdateProgress_RejectsOutOfRange(t *testing.T) {
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, gdb, "learner")
	module := testutil.SeedModule(t, gdb, "module-one", 1)
	testutil.SeedProgress(t, gdb, user.ID, module.ID, 0, false)
	svc := newLearningService(t, gdb)
	ctx := authedCtx(user.ID)

	if _, err := svc.UpdateProgress(ctx, module.ID, ProgressInput{Progress: -1}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for -1, got %v", err)
	}
	if _, err := svc.UpdateProgress(ctx, module.ID, ProgressInput{Progress: 101}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for 101, got %v", err)
	}
}

func TestUpdateProgress_CompletionAwardsPointsOnce(t *testing.T) {
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, gdb, "learner")
	module := testutil.SeedModule(t, gdb, "module-one", 1)
	testutil.SeedProgress(t, gdb, user.ID, module.ID, 40, false)
	svc := newLearningService(t, gdb)
	ctx := authedCtx(user.ID)

	result, err := svc.UpdateProgress(ctx, module.ID, ProgressInput{Progress: 100})
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if !result.Progress.Completed || result.Progress.Progress != 100 {
		t.Fatalf("expected completed progress at 100, got %+v", result.Progress)
	}
	if result.PointsAwarded != module.PointsReward {
		t.Fatalf("expected %d points, got %d", module.PointsReward, result.PointsAwarded)
	}
	if result.Progress.CompletedAt == nil {
		t.Fatalf("expected CompletedAt to be set")
	}

	// Completion is monotonic: a lower value afterwards changes nothing.
	result, err = svc.UpdateProgress(ctx, module.ID, ProgressInput{Progress: 10})
	if err != nil {
		t.Fatalf("post-completion UpdateProgress failed: %v", err)
	}
	if !result.Progress.Completed || result.Progress.Progress != 100 {
		t.Fatalf("completed progress must stay at 100, got %+v", result.Progress)
	}
	if result.PointsAwarded != 0 {
		t.Fatalf("points must not be awarded twice, got %d", result.PointsAwarded)
	}

	var stored types.User
	if err := gdb.First(&stored, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if stored.Points != module.PointsReward {
		t.Fatalf("expected user points %d, got %d", module.PointsReward, stored.Points)
	}

	var storedModule types.LearningModule
	if err := gdb.First(&storedModule, "id = ?", module.ID).Error; err != nil {
		t.Fatalf("failed to reload module: %v", err)
	}
	if storedModule.CompletionCount != 1 {
		t.Fatalf("expected completion count 1, got %d", storedModule.CompletionCount)
	}
}

func TestCompleteModule_LevelsUpAcrossThreshold(t *testing.T) {
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, gdb, "learner")
	module := testutil.SeedModule(t, gdb, "module-big", 1)
	if err := gdb.Model(module).Update("points_reward", types.PointsPerLevel+20).Error; err != nil {
		t.Fatalf("failed to raise reward: %v", err)
	}
	testutil.SeedProgress(t, gdb, user.ID, module.ID, 90, false)
	svc := newLearningService(t, gdb)

	result, err := svc.CompleteModule(authedCtx(user.ID), module.ID)
	if err != nil {
		t.Fatalf("CompleteModule failed: %v", err)
	}
	if !result.LevelledUp || result.NewLevel != 2 {
		t.Fatalf("expected level up to 2, got levelledUp=%v level=%d", result.LevelledUp, result.NewLevel)
	}

	// Repeat completion stays idempotent.
	result, err = svc.CompleteModule(authedCtx(user.ID), module.ID)
	if err != nil {
		t.Fatalf("repeat CompleteModule failed: %v", err)
	}
	if result.PointsAwarded != 0 || result.LevelledUp {
		t.Fatalf("repeat completion must not award anything, got %+v", result)
	}
}

func TestUpdateProgress_RequiresEnrollment(t *testing.T) {
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, gdb, "learner")
	module := testutil.SeedModule(t, gdb, "module-one", 1)
	svc := newLearningService(t, gdb)

	if _, err := svc.UpdateProgress(authedCtx(user.ID), module.ID, ProgressInput{Progress: 10}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound without enrollment, got %v", err)
	}
}
