package services

import (
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/repos"
	"github.com/piyingxi/shadowplay-backend/internal/testutil"
)

func newCommentService(t *testing.T, gdb *gorm.DB) CommentService {
	t.Helper()
	log := testutil.Logger(t)
	return NewCommentService(
		gdb,
		log,
		repos.NewCommentRepo(gdb, log),
		repos.NewStoryRepo(gdb, log),
		repos.NewLearningModuleRepo(gdb, log),
		repos.NewUserRepo(gdb, log),
		nil,
	)
}

func TestCreateStoryComment_ThreadsAndValidates(t *testing.T) {
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, gdb, "commenter")
	story := testutil.SeedStory(t, gdb, "story-one", "legend")
	svc := newCommentService(t, gdb)
	ctx := authedCtx(user.ID)

	parent, err := svc.CreateStoryComment(ctx, story.ID, CommentInput{Content: "很精彩"})
	if err != nil {
		t.Fatalf("CreateStoryComment failed: %v", err)
	}

	reply, err := svc.CreateStoryComment(ctx, story.ID, CommentInput{Content: "同感", ParentID: &parent.ID})
	if err != nil {
		t.Fatalf("reply failed: %v", err)
	}

	page, err := svc.GetStoryComments(ctx, story.ID, 0, 10)
	if err != nil {
		t.Fatalf("GetStoryComments failed: %v", err)
	}
	if page.Total != 1 || len(page.Comments) != 1 {
		t.Fatalf("replies must not count as top-level comments, got total=%d", page.Total)
	}
	if len(page.Comments[0].Replies) != 1 || page.Comments[0].Replies[0].ID != reply.ID {
		t.Fatalf("expected the reply nested under its parent, got %+v", page.Comments[0].Replies)
	}

	if _, err := svc.CreateStoryComment(ctx, story.ID, CommentInput{Content: "   "}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank content, got %v", err)
	}
	long := strings.Repeat("a", maxCommentLength+1)
	if _, err := svc.CreateStoryComment(ctx, story.ID, CommentInput{Content: long}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for oversize content, got %v", err)
	}
}

func TestDeleteComment_HidesFromListing(t *testing.T) {
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, gdb, "commenter")
	story := testutil.SeedStory(t, gdb, "story-one", "legend")
	svc := newCommentService(t, gdb)
	ctx := authedCtx(user.ID)

	first, err := svc.CreateStoryComment(ctx, story.ID, CommentInput{Content: "first"})
	if err != nil {
		t.Fatalf("CreateStoryComment failed: %v", err)
	}
	if _, err := svc.CreateStoryComment(ctx, story.ID, CommentInput{Content: "second"}); err != nil {
		t.Fatalf("second comment failed: %v", err)
	}

	if err := svc.DeleteComment(ctx, first.ID); err != nil {
		t.Fatalf("DeleteComment failed: %v", err)
	}

	page, err := svc.GetStoryComments(ctx, story.ID, 0, 10)
	if err != nil {
		t.Fatalf("GetStoryComments failed: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("soft-deleted comment must be hidden, got total=%d", page.Total)
	}
	for _, c := range page.Comments {
		if c.ID == first.ID {
			t.Fatalf("deleted comment leaked into the listing")
		}
	}
}

func TestCreateStoryComment_RejectsUnpublishedTarget(t *testing.T) {
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, gdb, "commenter")
	draft := testutil.SeedStory(t, gdb, "story-draft", "legend")
	if err := gdb.Model(draft).Update("is_published", false).Error; err != nil {
		t.Fatalf("failed to unpublish: %v", err)
	}
	svc := newCommentService(t, gdb)

	if _, err := svc.CreateStoryComment(authedCtx(user.ID), draft.ID, CommentInput{Content: "hi"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for draft story, got %v", err)
	}
}
