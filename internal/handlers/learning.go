package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/piyingxi/shadowplay-backend/internal/services"
)

type LearningHandler struct {
	learningService services.LearningService
	ratingService   services.RatingService
}

func NewLearningHandler(learningService services.LearningService, ratingService services.RatingService) *LearningHandler {
	return &LearningHandler{learningService: learningService, ratingService: ratingService}
}

func (lh *LearningHandler) List(c *gin.Context) {
	difficulty, _ := strconv.Atoi(c.Query("difficulty"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "12"))

	result, err := lh.learningService.ListModules(c.Request.Context(), services.ModuleListInput{
		Category:        c.Query("category"),
		DifficultyLevel: difficulty,
		Page:            page,
		PerPage:         perPage,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

func (lh *LearningHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	detail, err := lh.learningService.GetModule(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, detail)
}

func (lh *LearningHandler) Enroll(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	progress, err := lh.learningService.EnrollModule(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"progress": progress})
}

func (lh *LearningHandler) UpdateProgress(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input services.ProgressInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	result, err := lh.learningService.UpdateProgress(c.Request.Context(), id, input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

func (lh *LearningHandler) Complete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	result, err := lh.learningService.CompleteModule(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

func (lh *LearningHandler) Rate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input services.RatingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	if err := lh.ratingService.RateModule(c.Request.Context(), id, input); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "rated"})
}
