package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/clients/deepseek"
	"github.com/piyingxi/shadowplay-backend/internal/repos"
	"github.com/piyingxi/shadowplay-backend/internal/testutil"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

func newRecommendationService(t *testing.T, gdb *gorm.DB, external deepseek.Client) RecommendationService {
	t.Helper()
	log := testutil.Logger(t)
	return NewRecommendationService(
		gdb,
		log,
		repos.NewStoryRepo(gdb, log),
		repos.NewLearningModuleRepo(gdb, log),
		repos.NewRatingRepo(gdb, log),
		repos.NewUserProgressRepo(gdb, log),
		repos.NewContentViewRepo(gdb, log),
		repos.NewUserActivityRepo(gdb, log),
		repos.NewUserRepo(gdb, log),
		external,
	)
}

func storyIDsOf(set *RecommendationSet) map[uuid.UUID]bool {
	ids := map[uuid.UUID]bool{}
	for _, s := range set.Stories {
		ids[s.ID] = true
	}
	return ids
}

func moduleIDsOf(set *RecommendationSet) map[uuid.UUID]bool {
	ids := map[uuid.UUID]bool{}
	for _, m := range set.Modules {
		ids[m.ID] = true
	}
	return ids
}

func TestGetRecommendations_AnonymousGetsDefaultSet(t *testing.T) {
	gdb := testutil.DB(t)
	featured := testutil.SeedStory(t, gdb, "story-featured", "legend")
	if err := gdb.Model(featured).Update("is_featured", true).Error; err != nil {
		t.Fatalf("failed to flag featured: %v", err)
	}
	popular := testutil.SeedStory(t, gdb, "story-popular", "opera")
	if err := gdb.Model(popular).Update("view_count", 500).Error; err != nil {
		t.Fatalf("failed to bump views: %v", err)
	}
	module := testutil.SeedModule(t, gdb, "module-basics", 1)

	svc := newRecommendationService(t, gdb, nil)
	set, err := svc.GetRecommendations(context.Background(), nil, 10)
	if err != nil {
		t.Fatalf("GetRecommendations failed: %v", err)
	}
	if set.Strategy != "default" {
		t.Fatalf("expected strategy=default, got %q", set.Strategy)
	}
	if len(set.Stories) != 2 {
		t.Fatalf("expected 2 stories, got %d", len(set.Stories))
	}
	if set.Stories[0].ID != featured.ID {
		t.Fatalf("expected featured story first, got %v", set.Stories[0].ID)
	}
	if !moduleIDsOf(set)[module.ID] {
		t.Fatalf("expected module %v in default set", module.ID)
	}
}

func TestGetRecommendations_ColdStartUserGetsDefaultSet(t *testing.T) {
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, gdb, "fresh")
	s1 := testutil.SeedStory(t, gdb, "story-one", "legend")
	s2 := testutil.SeedStory(t, gdb, "story-two", "legend")
	// Two distinct viewed stories is below the personalization threshold.
	testutil.SeedStoryView(t, gdb, user.ID, s1.ID)
	testutil.SeedStoryView(t, gdb, user.ID, s2.ID)
	testutil.SeedStoryView(t, gdb, user.ID, s2.ID)

	svc := newRecommendationService(t, gdb, nil)
	set, err := svc.GetRecommendations(context.Background(), &user.ID, 10)
	if err != nil {
		t.Fatalf("GetRecommendations failed: %v", err)
	}
	if set.Strategy != "default" {
		t.Fatalf("expected cold-start user to get default set, got %q", set.Strategy)
	}
}

func TestGetRecommendations_CollaborativeSurfacesCoRatedStories(t *testing.T) {
	gdb := testutil.DB(t)
	alice := testutil.SeedUser(t, gdb, "alice")
	bob := testutil.SeedUser(t, gdb, "bob")
	s1 := testutil.SeedStory(t, gdb, "story-one", "legend")
	s2 := testutil.SeedStory(t, gdb, "story-two", "legend")
	s3 := testutil.SeedStory(t, gdb, "story-three", "opera")

	// Enough view history to personalize.
	testutil.SeedStoryView(t, gdb, alice.ID, s1.ID)
	testutil.SeedStoryView(t, gdb, alice.ID, s2.ID)
	testutil.SeedStoryView(t, gdb, alice.ID, s3.ID)

	// Alice and Bob both liked s1 and s2; only Bob liked s3's sibling... Bob
	// also liked s3, so it is the co-rated candidate for Alice.
	testutil.SeedStoryRating(t, gdb, alice.ID, s1.ID, 5)
	testutil.SeedStoryRating(t, gdb, alice.ID, s2.ID, 4)
	testutil.SeedStoryRating(t, gdb, bob.ID, s1.ID, 5)
	testutil.SeedStoryRating(t, gdb, bob.ID, s2.ID, 5)
	testutil.SeedStoryRating(t, gdb, bob.ID, s3.ID, 5)

	svc := newRecommendationService(t, gdb, nil)
	set, err := svc.GetRecommendations(context.Background(), &alice.ID, 10)
	if err != nil {
		t.Fatalf("GetRecommendations failed: %v", err)
	}
	if set.Strategy != "personalized" {
		t.Fatalf("expected personalized strategy, got %q", set.Strategy)
	}
	if !storyIDsOf(set)[s3.ID] {
		t.Fatalf("expected co-rated story %v in recommendations", s3.ID)
	}
	// Stories Alice already liked never come back.
	if storyIDsOf(set)[s1.ID] {
		t.Fatalf("liked story %v should not be recommended", s1.ID)
	}
}

func TestGetRecommendations_ContentBasedUsesTopCategories(t *testing.T) {
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, gdb, "reader")
	s1 := testutil.SeedStory(t, gdb, "story-one", "legend")
	s2 := testutil.SeedStory(t, gdb, "story-two", "legend")
	s3 := testutil.SeedStory(t, gdb, "story-three", "legend")
	unseen := testutil.SeedStory(t, gdb, "story-unseen", "legend")
	other := testutil.SeedStory(t, gdb, "story-other", "history")

	testutil.SeedStoryView(t, gdb, user.ID, s1.ID)
	testutil.SeedStoryView(t, gdb, user.ID, s2.ID)
	testutil.SeedStoryView(t, gdb, user.ID, s3.ID)

	svc := newRecommendationService(t, gdb, nil)
	set, err := svc.GetRecommendations(context.Background(), &user.ID, 10)
	if err != nil {
		t.Fatalf("GetRecommendations failed: %v", err)
	}
	ids := storyIDsOf(set)
	if !ids[unseen.ID] {
		t.Fatalf("expected unseen story %v from the top category", unseen.ID)
	}
	if ids[s1.ID] || ids[s2.ID] || ids[s3.ID] {
		t.Fatalf("viewed stories should be excluded, got %v", ids)
	}
	if ids[other.ID] {
		t.Fatalf("story outside the user's categories should not appear")
	}
}

func TestGetRecommendations_ProgressionRespectsDifficultyGate(t *testing.T) {
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, gdb, "learner")
	s1 := testutil.SeedStory(t, gdb, "story-one", "legend")
	s2 := testutil.SeedStory(t, gdb, "story-two", "legend")
	s3 := testutil.SeedStory(t, gdb, "story-three", "legend")
	testutil.SeedStoryView(t, gdb, user.ID, s1.ID)
	testutil.SeedStoryView(t, gdb, user.ID, s2.ID)
	testutil.SeedStoryView(t, gdb, user.ID, s3.ID)

	done := testutil.SeedModule(t, gdb, "module-done", 1)
	next := testutil.SeedModule(t, gdb, "module-next", 2)
	tooHard := testutil.SeedModule(t, gdb, "module-advanced", 5)
	testutil.SeedProgress(t, gdb, user.ID, done.ID, 100, true)

	svc := newRecommendationService(t, gdb, nil)
	set, err := svc.GetRecommendations(context.Background(), &user.ID, 10)
	if err != nil {
		t.Fatalf("GetRecommendations failed: %v", err)
	}
	ids := moduleIDsOf(set)
	if !ids[next.ID] {
		t.Fatalf("expected module %v one step above level 1", next.ID)
	}
	if ids[done.ID] {
		t.Fatalf("completed module should not be recommended")
	}
	if ids[tooHard.ID] {
		t.Fatalf("module above the difficulty gate should not be recommended")
	}
}

func TestGetRecommendations_ExternalFailureDegrades(t *testing.T) {
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, gdb, "reader")
	s1 := testutil.SeedStory(t, gdb, "story-one", "legend")
	s2 := testutil.SeedStory(t, gdb, "story-two", "legend")
	s3 := testutil.SeedStory(t, gdb, "story-three", "legend")
	unseen := testutil.SeedStory(t, gdb, "story-unseen", "legend")
	testutil.SeedStoryView(t, gdb, user.ID, s1.ID)
	testutil.SeedStoryView(t, gdb, user.ID, s2.ID)
	testutil.SeedStoryView(t, gdb, user.ID, s3.ID)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()
	external := deepseek.NewClientWithBaseURL(testutil.Logger(t), server.URL, "test-key", time.Second)

	svc := newRecommendationService(t, gdb, external)
	set, err := svc.GetRecommendations(context.Background(), &user.ID, 10)
	if err != nil {
		t.Fatalf("adapter failure must not fail the request: %v", err)
	}
	if set.Strategy != "personalized" {
		t.Fatalf("expected personalized strategy, got %q", set.Strategy)
	}
	if !storyIDsOf(set)[unseen.ID] {
		t.Fatalf("local strategies should still produce results")
	}
}

func TestGetRecommendations_ExternalRequestCarriesHistorySnapshot(t *testing.T) {
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, gdb, "reader")
	s1 := testutil.SeedStory(t, gdb, "story-one", "legend")
	s2 := testutil.SeedStory(t, gdb, "story-two", "legend")
	s3 := testutil.SeedStory(t, gdb, "story-three", "legend")
	testutil.SeedStoryView(t, gdb, user.ID, s1.ID)
	testutil.SeedStoryView(t, gdb, user.ID, s2.ID)
	testutil.SeedStoryView(t, gdb, user.ID, s3.ID)
	testutil.SeedStoryRating(t, gdb, user.ID, s1.ID, 5)
	module := testutil.SeedModule(t, gdb, "module-basics", 1)
	testutil.SeedProgress(t, gdb, user.ID, module.ID, 100, true)
	activity := &types.UserActivity{ID: uuid.New(), UserID: user.ID, ActivityType: "view_story", CreatedAt: time.Now()}
	if err := gdb.Create(activity).Error; err != nil {
		t.Fatalf("failed to seed activity: %v", err)
	}

	suggested := testutil.SeedStory(t, gdb, "story-suggested", "history")

	var body map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"recommendations":[` +
			`{"type":"story","story_id":"` + suggested.ID.String() + `"},` +
			`{"type":"module","module_id":"` + module.ID.String() + `"}]}`))
	}))
	defer server.Close()
	external := deepseek.NewClientWithBaseURL(testutil.Logger(t), server.URL, "test-key", time.Second)

	svc := newRecommendationService(t, gdb, external)
	set, err := svc.GetRecommendations(context.Background(), &user.ID, 10)
	if err != nil {
		t.Fatalf("GetRecommendations failed: %v", err)
	}

	if body == nil {
		t.Fatalf("external service was never called")
	}
	var task string
	if err := json.Unmarshal(body["task"], &task); err != nil || task != "content_recommendation" {
		t.Fatalf("expected task=content_recommendation, got %s (err %v)", body["task"], err)
	}
	var history struct {
		ViewedStories    []uuid.UUID `json:"viewed_stories"`
		ViewedModules    []uuid.UUID `json:"viewed_modules"`
		CompletedModules []uuid.UUID `json:"completed_modules"`
		LikedStories     []uuid.UUID `json:"liked_stories"`
		RecentActivities []string    `json:"recent_activities"`
	}
	if raw, ok := body["user_history"]; !ok {
		t.Fatalf("request body missing user_history; sent keys: %v", keysOf(body))
	} else if err := json.Unmarshal(raw, &history); err != nil {
		t.Fatalf("failed to decode user_history: %v", err)
	}
	if len(history.ViewedStories) != 3 {
		t.Fatalf("expected 3 viewed stories in snapshot, got %v", history.ViewedStories)
	}
	if len(history.ViewedModules) != 1 || history.ViewedModules[0] != module.ID {
		t.Fatalf("expected viewed module %v, got %v", module.ID, history.ViewedModules)
	}
	if len(history.CompletedModules) != 1 {
		t.Fatalf("expected completed module in snapshot, got %v", history.CompletedModules)
	}
	if len(history.LikedStories) != 1 || history.LikedStories[0] != s1.ID {
		t.Fatalf("expected liked story %v, got %v", s1.ID, history.LikedStories)
	}
	if len(history.RecentActivities) != 1 || history.RecentActivities[0] != "view_story" {
		t.Fatalf("expected recent activity types, got %v", history.RecentActivities)
	}

	if !storyIDsOf(set)[suggested.ID] {
		t.Fatalf("story recommendation entry was not resolved")
	}
	if !moduleIDsOf(set)[module.ID] {
		t.Fatalf("module recommendation entry was not resolved")
	}
}

func keysOf(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestGetRecommendations_ExternalSuggestionsDropUnpublished(t *testing.T) {
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, gdb, "reader")
	s1 := testutil.SeedStory(t, gdb, "story-one", "legend")
	s2 := testutil.SeedStory(t, gdb, "story-two", "legend")
	s3 := testutil.SeedStory(t, gdb, "story-three", "legend")
	testutil.SeedStoryView(t, gdb, user.ID, s1.ID)
	testutil.SeedStoryView(t, gdb, user.ID, s2.ID)
	testutil.SeedStoryView(t, gdb, user.ID, s3.ID)

	suggested := testutil.SeedStory(t, gdb, "story-suggested", "history")
	draft := testutil.SeedStory(t, gdb, "story-draft", "history")
	if err := gdb.Model(draft).Update("is_published", false).Error; err != nil {
		t.Fatalf("failed to unpublish: %v", err)
	}
	phantom := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"recommendations":[` +
			`{"type":"story","story_id":"` + suggested.ID.String() + `","score":0.9},` +
			`{"type":"story","story_id":"` + draft.ID.String() + `","score":0.8},` +
			`{"type":"story","story_id":"` + phantom.String() + `","score":0.7},` +
			`{"type":"poem","story_id":"` + suggested.ID.String() + `","score":0.6}]}`))
	}))
	defer server.Close()
	external := deepseek.NewClientWithBaseURL(testutil.Logger(t), server.URL, "test-key", time.Second)

	svc := newRecommendationService(t, gdb, external)
	set, err := svc.GetRecommendations(context.Background(), &user.ID, 10)
	if err != nil {
		t.Fatalf("GetRecommendations failed: %v", err)
	}
	ids := storyIDsOf(set)
	if !ids[suggested.ID] {
		t.Fatalf("expected suggested story %v", suggested.ID)
	}
	if ids[draft.ID] {
		t.Fatalf("unpublished suggestion must be dropped")
	}
	if ids[phantom] {
		t.Fatalf("unresolvable suggestion must be dropped")
	}
}

func TestGetRecommendations_MergeDedupesAndHonorsLimit(t *testing.T) {
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, gdb, "reader")
	for _, name := range []string{"story-a", "story-b", "story-c"} {
		st := testutil.SeedStory(t, gdb, name, "legend")
		testutil.SeedStoryView(t, gdb, user.ID, st.ID)
	}
	for _, name := range []string{"story-d", "story-e", "story-f", "story-g"} {
		testutil.SeedStory(t, gdb, name, "legend")
	}

	svc := newRecommendationService(t, gdb, nil)
	set, err := svc.GetRecommendations(context.Background(), &user.ID, 2)
	if err != nil {
		t.Fatalf("GetRecommendations failed: %v", err)
	}
	if len(set.Stories) > 2 {
		t.Fatalf("expected at most 2 stories, got %d", len(set.Stories))
	}
	seen := map[uuid.UUID]bool{}
	for _, s := range set.Stories {
		if seen[s.ID] {
			t.Fatalf("duplicate story %v in merged set", s.ID)
		}
		seen[s.ID] = true
	}
}
