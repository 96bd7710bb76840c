package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/piyingxi/shadowplay-backend/internal/services"
)

type StoryHandler struct {
	storyService  services.StoryService
	ratingService services.RatingService
}

func NewStoryHandler(storyService services.StoryService, ratingService services.RatingService) *StoryHandler {
	return &StoryHandler{storyService: storyService, ratingService: ratingService}
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}

func (sh *StoryHandler) List(c *gin.Context) {
	difficulty, _ := strconv.Atoi(c.Query("difficulty"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "12"))

	result, err := sh.storyService.ListStories(c.Request.Context(), services.StoryListInput{
		Category:        c.Query("category"),
		DifficultyLevel: difficulty,
		FeaturedOnly:    c.Query("featured") == "true",
		Sort:            c.Query("sort"),
		Page:            page,
		PerPage:         perPage,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

func (sh *StoryHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	detail, err := sh.storyService.GetStory(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, detail)
}

func (sh *StoryHandler) GetBySlug(c *gin.Context) {
	detail, err := sh.storyService.GetStoryBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, detail)
}

func (sh *StoryHandler) Like(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := sh.storyService.LikeStory(c.Request.Context(), id); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "liked"})
}

func (sh *StoryHandler) Share(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := sh.storyService.ShareStory(c.Request.Context(), id); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "shared"})
}

func (sh *StoryHandler) Rate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input services.RatingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	summary, err := sh.ratingService.RateStory(c.Request.Context(), id, input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"rating": summary})
}

func (sh *StoryHandler) GetRating(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	summary, err := sh.ratingService.GetStoryRating(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"rating": summary})
}
