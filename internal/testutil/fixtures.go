package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/types"
)

// SeedUser inserts a user with a unique username/email derived from name.
func SeedUser(t *testing.T, gdb *gorm.DB, name string) *types.User {
	t.Helper()
	now := time.Now().UTC()
	user := &types.User{
		ID:           uuid.New(),
		Username:     name,
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: "x",
		IsActive:     true,
		Language:     "zh_CN",
		Theme:        "light",
		Level:        1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := gdb.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", name, err)
	}
	return user
}

// SeedStory inserts a published story in the given category.
func SeedStory(t *testing.T, gdb *gorm.DB, title, category string) *types.Story {
	t.Helper()
	now := time.Now().UTC()
	story := &types.Story{
		ID:              uuid.New(),
		Title:           title,
		Slug:            fmt.Sprintf("%s-%s", title, uuid.NewString()[:8]),
		Description:     "seeded story",
		Category:        category,
		DifficultyLevel: 1,
		IsPublished:     true,
		PublishedAt:     &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := gdb.Create(story).Error; err != nil {
		t.Fatalf("failed to seed story %s: %v", title, err)
	}
	return story
}

// SeedModule inserts a published learning module at the given difficulty.
func SeedModule(t *testing.T, gdb *gorm.DB, title string, difficulty int) *types.LearningModule {
	t.Helper()
	now := time.Now().UTC()
	module := &types.LearningModule{
		ID:              uuid.New(),
		Title:           title,
		Slug:            fmt.Sprintf("%s-%s", title, uuid.NewString()[:8]),
		Content:         "seeded content",
		DifficultyLevel: difficulty,
		PointsReward:    10,
		IsPublished:     true,
		IsFree:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := gdb.Create(module).Error; err != nil {
		t.Fatalf("failed to seed module %s: %v", title, err)
	}
	return module
}

// SeedCharacter inserts an active character.
func SeedCharacter(t *testing.T, gdb *gorm.DB, name, characterType string) *types.Character {
	t.Helper()
	now := time.Now().UTC()
	character := &types.Character{
		ID:            uuid.New(),
		Name:          name,
		Description:   "seeded character",
		CharacterType: characterType,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := gdb.Create(character).Error; err != nil {
		t.Fatalf("failed to seed character %s: %v", name, err)
	}
	return character
}

// SeedStoryRating inserts a rating for a story.
func SeedStoryRating(t *testing.T, gdb *gorm.DB, userID, storyID uuid.UUID, score int) *types.Rating {
	t.Helper()
	now := time.Now().UTC()
	rating := &types.Rating{
		ID:        uuid.New(),
		Score:     score,
		UserID:    userID,
		StoryID:   &storyID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := gdb.Create(rating).Error; err != nil {
		t.Fatalf("failed to seed rating: %v", err)
	}
	return rating
}

// SeedStoryView inserts a content view of a story by a user.
func SeedStoryView(t *testing.T, gdb *gorm.DB, userID, storyID uuid.UUID) *types.ContentView {
	t.Helper()
	view := &types.ContentView{
		ID:        uuid.New(),
		UserID:    &userID,
		StoryID:   &storyID,
		CreatedAt: time.Now().UTC(),
	}
	if err := gdb.Create(view).Error; err != nil {
		t.Fatalf("failed to seed view: %v", err)
	}
	return view
}

// SeedProgress inserts a user progress row for a module.
func SeedProgress(t *testing.T, gdb *gorm.DB, userID, moduleID uuid.UUID, progress float64, completed bool) *types.UserProgress {
	t.Helper()
	now := time.Now().UTC()
	p := &types.UserProgress{
		ID:           uuid.New(),
		UserID:       userID,
		ModuleID:     moduleID,
		Progress:     progress,
		Completed:    completed,
		StartedAt:    now,
		LastAccessed: now,
	}
	if completed {
		p.CompletedAt = &now
	}
	if err := gdb.Create(p).Error; err != nil {
		t.Fatalf("failed to seed progress: %v", err)
	}
	return p
}
