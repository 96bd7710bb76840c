package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/piyingxi/shadowplay-backend/internal/requestdata"
	"github.com/piyingxi/shadowplay-backend/internal/services"
)

type RecommendationHandler struct {
	recommendationService services.RecommendationService
}

func NewRecommendationHandler(recommendationService services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recommendationService: recommendationService}
}

// Get serves /api/recommendations. Auth is optional: logged-in users get the
// personalized blend, everyone else the default set.
func (rh *RecommendationHandler) Get(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	var userID *uuid.UUID
	if rd := requestdata.GetRequestData(c.Request.Context()); rd != nil && rd.UserID != uuid.Nil {
		id := rd.UserID
		userID = &id
	}

	set, err := rh.recommendationService.GetRecommendations(c.Request.Context(), userID, limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, set)
}
