package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/piyingxi/shadowplay-backend/internal/services"
)

type StatsHandler struct {
	analyticsService services.AnalyticsService
	storyService     services.StoryService
	learningService  services.LearningService
	characterService services.CharacterService
}

func NewStatsHandler(
	analyticsService services.AnalyticsService,
	storyService services.StoryService,
	learningService services.LearningService,
	characterService services.CharacterService,
) *StatsHandler {
	return &StatsHandler{
		analyticsService: analyticsService,
		storyService:     storyService,
		learningService:  learningService,
		characterService: characterService,
	}
}

func (sh *StatsHandler) GetPlatformStats(c *gin.Context) {
	stats, err := sh.analyticsService.GetPlatformStats(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"stats": stats})
}

func (sh *StatsHandler) GetTrending(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
	trending, err := sh.analyticsService.GetTrending(c.Request.Context(), days, limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, trending)
}

// Search covers stories, modules and characters. The category parameter
// narrows the scope to one kind; "all" (the default) queries every kind.
func (sh *StatsHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("search query is required"))
		return
	}
	category := c.DefaultQuery("category", "all")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	ctx := c.Request.Context()

	stories := []services.StoryDTO{}
	modules := []services.ModuleDTO{}
	characters := []services.CharacterDTO{}

	if category == "all" || category == "story" {
		found, err := sh.storyService.SearchStories(ctx, query, limit)
		if err != nil {
			RespondServiceError(c, err)
			return
		}
		stories = found
	}
	if category == "all" || category == "module" {
		found, err := sh.learningService.SearchModules(ctx, query, limit)
		if err != nil {
			RespondServiceError(c, err)
			return
		}
		modules = found
	}
	if category == "all" || category == "character" {
		found, err := sh.characterService.SearchCharacters(ctx, query, limit)
		if err != nil {
			RespondServiceError(c, err)
			return
		}
		characters = found
	}

	RespondOK(c, gin.H{
		"stories":    stories,
		"modules":    modules,
		"characters": characters,
	})
}
