package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/piyingxi/shadowplay-backend/internal/testutil"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

func TestUpsertStoryRating_SecondSubmissionUpdatesInPlace(t *testing.T) {
	gdb := testutil.DB(t)
	repo := NewRatingRepo(gdb, testutil.Logger(t))
	ctx := context.Background()

	user := testutil.SeedUser(t, gdb, "rater")
	story := testutil.SeedStory(t, gdb, "story-one", "legend")

	now := time.Now().UTC()
	first := &types.Rating{
		ID:        uuid.New(),
		Score:     3,
		UserID:    user.ID,
		StoryID:   &story.ID,
		Review:    "fine",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.UpsertStoryRating(ctx, nil, first); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	second := &types.Rating{
		ID:        uuid.New(),
		Score:     5,
		UserID:    user.ID,
		StoryID:   &story.ID,
		Review:    "great on rewatch",
		CreatedAt: now,
		UpdatedAt: now.Add(time.Minute),
	}
	if err := repo.UpsertStoryRating(ctx, nil, second); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	var count int64
	if err := gdb.Model(&types.Rating{}).Where("user_id = ? AND story_id = ?", user.ID, story.ID).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one rating row, got %d", count)
	}

	got, err := repo.GetByUserAndStory(ctx, nil, user.ID, story.ID)
	if err != nil {
		t.Fatalf("GetByUserAndStory failed: %v", err)
	}
	if got.Score != 5 || got.Review != "great on rewatch" {
		t.Fatalf("expected updated score and review, got %d %q", got.Score, got.Review)
	}
}

func TestGetLikedStoryIDs_AppliesThreshold(t *testing.T) {
	gdb := testutil.DB(t)
	repo := NewRatingRepo(gdb, testutil.Logger(t))
	ctx := context.Background()

	user := testutil.SeedUser(t, gdb, "rater")
	liked := testutil.SeedStory(t, gdb, "story-liked", "legend")
	meh := testutil.SeedStory(t, gdb, "story-meh", "legend")
	testutil.SeedStoryRating(t, gdb, user.ID, liked.ID, types.LikeThreshold)
	testutil.SeedStoryRating(t, gdb, user.ID, meh.ID, types.LikeThreshold-1)

	ids, err := repo.GetLikedStoryIDs(ctx, nil, user.ID)
	if err != nil {
		t.Fatalf("GetLikedStoryIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != liked.ID {
		t.Fatalf("expected only the liked story, got %v", ids)
	}
}

func TestGetSimilarRaterIDs_RanksByOverlap(t *testing.T) {
	gdb := testutil.DB(t)
	repo := NewRatingRepo(gdb, testutil.Logger(t))
	ctx := context.Background()

	me := testutil.SeedUser(t, gdb, "me")
	big := testutil.SeedUser(t, gdb, "big-overlap")
	small := testutil.SeedUser(t, gdb, "small-overlap")
	s1 := testutil.SeedStory(t, gdb, "story-one", "legend")
	s2 := testutil.SeedStory(t, gdb, "story-two", "legend")

	testutil.SeedStoryRating(t, gdb, me.ID, s1.ID, 5)
	testutil.SeedStoryRating(t, gdb, me.ID, s2.ID, 5)
	testutil.SeedStoryRating(t, gdb, big.ID, s1.ID, 5)
	testutil.SeedStoryRating(t, gdb, big.ID, s2.ID, 4)
	testutil.SeedStoryRating(t, gdb, small.ID, s1.ID, 4)

	ids, err := repo.GetSimilarRaterIDs(ctx, nil, me.ID, []uuid.UUID{s1.ID, s2.ID}, 10)
	if err != nil {
		t.Fatalf("GetSimilarRaterIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 similar raters, got %v", ids)
	}
	if ids[0] != big.ID {
		t.Fatalf("expected the larger overlap first, got %v", ids)
	}
	for _, id := range ids {
		if id == me.ID {
			t.Fatalf("the target user must be excluded")
		}
	}
}
