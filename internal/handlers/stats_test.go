package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/repos"
	"github.com/piyingxi/shadowplay-backend/internal/services"
	"github.com/piyingxi/shadowplay-backend/internal/testutil"
)

func newSearchRouter(t *testing.T, gdb *gorm.DB) *gin.Engine {
	t.Helper()
	log := testutil.Logger(t)
	storyRepo := repos.NewStoryRepo(gdb, log)
	charRepo := repos.NewCharacterRepo(gdb, log)
	viewRepo := repos.NewContentViewRepo(gdb, log)

	storyService := services.NewStoryService(gdb, log, storyRepo, charRepo, viewRepo, nil)
	learningService := services.NewLearningService(gdb, log,
		repos.NewLearningModuleRepo(gdb, log),
		repos.NewUserProgressRepo(gdb, log),
		repos.NewUserRepo(gdb, log),
		viewRepo, nil)
	characterService := services.NewCharacterService(gdb, log, charRepo)

	handler := NewStatsHandler(nil, storyService, learningService, characterService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/search", handler.Search)
	return router
}

type searchResponse struct {
	Stories    []services.StoryDTO     `json:"stories"`
	Modules    []services.ModuleDTO    `json:"modules"`
	Characters []services.CharacterDTO `json:"characters"`
}

func TestSearch_RequiresQuery(t *testing.T) {
	router := newSearchRouter(t, testutil.DB(t))

	for _, target := range []string{"/api/search", "/api/search?q=%20%20"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, target, nil)
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 for empty query, got %d", target, w.Code)
		}
	}
}

func TestSearch_CoversAllContentKinds(t *testing.T) {
	gdb := testutil.DB(t)
	story := testutil.SeedStory(t, gdb, "shadow-legend", "legend")
	module := testutil.SeedModule(t, gdb, "shadow-basics", 1)
	character := testutil.SeedCharacter(t, gdb, "shadow-master", "hero")
	testutil.SeedStory(t, gdb, "paper-cutting", "craft")

	router := newSearchRouter(t, gdb)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=shadow", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var out searchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(out.Stories) != 1 || out.Stories[0].ID != story.ID {
		t.Fatalf("expected story %v, got %+v", story.ID, out.Stories)
	}
	if len(out.Modules) != 1 || out.Modules[0].ID != module.ID {
		t.Fatalf("expected module %v, got %+v", module.ID, out.Modules)
	}
	if len(out.Characters) != 1 || out.Characters[0].ID != character.ID {
		t.Fatalf("expected character %v, got %+v", character.ID, out.Characters)
	}
}

func TestSearch_CategoryNarrowsScope(t *testing.T) {
	gdb := testutil.DB(t)
	testutil.SeedStory(t, gdb, "shadow-legend", "legend")
	module := testutil.SeedModule(t, gdb, "shadow-basics", 1)
	testutil.SeedCharacter(t, gdb, "shadow-master", "hero")

	router := newSearchRouter(t, gdb)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=shadow&category=module", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var out searchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(out.Modules) != 1 || out.Modules[0].ID != module.ID {
		t.Fatalf("expected module %v, got %+v", module.ID, out.Modules)
	}
	if len(out.Stories) != 0 || len(out.Characters) != 0 {
		t.Fatalf("category=module must not return stories or characters")
	}
}
