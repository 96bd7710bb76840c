package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/piyingxi/shadowplay-backend/internal/testutil"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

func TestStoryList_FiltersAndCounts(t *testing.T) {
	gdb := testutil.DB(t)
	repo := NewStoryRepo(gdb, testutil.Logger(t))
	ctx := context.Background()

	legend1 := testutil.SeedStory(t, gdb, "story-one", "legend")
	testutil.SeedStory(t, gdb, "story-two", "legend")
	testutil.SeedStory(t, gdb, "story-three", "opera")
	draft := testutil.SeedStory(t, gdb, "story-draft", "legend")
	if err := gdb.Model(draft).Update("is_published", false).Error; err != nil {
		t.Fatalf("failed to unpublish: %v", err)
	}

	stories, total, err := repo.List(ctx, nil, StoryFilter{Category: "legend", PublishedOnly: true, Limit: 10})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 || len(stories) != 2 {
		t.Fatalf("expected 2 published legend stories, got total=%d len=%d", total, len(stories))
	}
	for _, s := range stories {
		if s.Category != "legend" || !s.IsPublished {
			t.Fatalf("filter leaked story %+v", s)
		}
	}

	// Popular sort puts the most viewed first.
	if err := gdb.Model(legend1).Update("view_count", 99).Error; err != nil {
		t.Fatalf("failed to bump views: %v", err)
	}
	stories, _, err = repo.List(ctx, nil, StoryFilter{PublishedOnly: true, Sort: "popular", Limit: 10})
	if err != nil {
		t.Fatalf("popular List failed: %v", err)
	}
	if stories[0].ID != legend1.ID {
		t.Fatalf("expected most viewed story first, got %v", stories[0].ID)
	}
}

func TestGetCoRatedCandidates_RanksAndExcludes(t *testing.T) {
	gdb := testutil.DB(t)
	repo := NewStoryRepo(gdb, testutil.Logger(t))
	ctx := context.Background()

	r1 := testutil.SeedUser(t, gdb, "rater-one")
	r2 := testutil.SeedUser(t, gdb, "rater-two")
	shared := testutil.SeedStory(t, gdb, "story-shared", "legend")
	twice := testutil.SeedStory(t, gdb, "story-twice", "legend")
	low := testutil.SeedStory(t, gdb, "story-low", "legend")

	testutil.SeedStoryRating(t, gdb, r1.ID, twice.ID, 5)
	testutil.SeedStoryRating(t, gdb, r2.ID, twice.ID, 4)
	testutil.SeedStoryRating(t, gdb, r1.ID, shared.ID, 5)
	testutil.SeedStoryRating(t, gdb, r2.ID, low.ID, 2)

	got, err := repo.GetCoRatedCandidates(ctx, nil, []uuid.UUID{r1.ID, r2.ID}, nil, 10)
	if err != nil {
		t.Fatalf("GetCoRatedCandidates failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].ID != twice.ID {
		t.Fatalf("expected the twice-liked story first, got %v", got[0].ID)
	}
	for _, s := range got {
		if s.ID == low.ID {
			t.Fatalf("a low-scored story is not a candidate")
		}
	}

	got, err = repo.GetCoRatedCandidates(ctx, nil, []uuid.UUID{r1.ID, r2.ID}, []uuid.UUID{twice.ID}, 10)
	if err != nil {
		t.Fatalf("excluding GetCoRatedCandidates failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != shared.ID {
		t.Fatalf("expected only the non-excluded candidate, got %v", got)
	}
}

func TestStorySearch_MatchesAcrossLanguages(t *testing.T) {
	gdb := testutil.DB(t)
	repo := NewStoryRepo(gdb, testutil.Logger(t))
	ctx := context.Background()

	zh := testutil.SeedStory(t, gdb, "白蛇传", "legend")
	en := testutil.SeedStory(t, gdb, "story-en", "legend")
	if err := gdb.Model(en).Update("title_en", "Monkey King Rises").Error; err != nil {
		t.Fatalf("failed to set english title: %v", err)
	}
	testutil.SeedStory(t, gdb, "unrelated", "legend")

	got, err := repo.Search(ctx, nil, "白蛇", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != zh.ID {
		t.Fatalf("expected the Chinese title match, got %v", got)
	}

	got, err = repo.Search(ctx, nil, "Monkey", 10)
	if err != nil {
		t.Fatalf("english Search failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != en.ID {
		t.Fatalf("expected the English title match, got %v", got)
	}
}

func TestIncrementView_AddsOne(t *testing.T) {
	gdb := testutil.DB(t)
	repo := NewStoryRepo(gdb, testutil.Logger(t))
	ctx := context.Background()

	story := testutil.SeedStory(t, gdb, "story-one", "legend")
	for i := 0; i < 3; i++ {
		if err := repo.IncrementView(ctx, nil, story.ID); err != nil {
			t.Fatalf("IncrementView failed: %v", err)
		}
	}
	var stored types.Story
	if err := gdb.First(&stored, "id = ?", story.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if stored.ViewCount != 3 {
		t.Fatalf("expected 3 views, got %d", stored.ViewCount)
	}
}
