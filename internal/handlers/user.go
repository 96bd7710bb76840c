package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/piyingxi/shadowplay-backend/internal/requestdata"
	"github.com/piyingxi/shadowplay-backend/internal/services"
)

type UserHandler struct {
	userService     services.UserService
	activityService services.ActivityService
}

func NewUserHandler(userService services.UserService, activityService services.ActivityService) *UserHandler {
	return &UserHandler{userService: userService, activityService: activityService}
}

func (uh *UserHandler) GetMe(c *gin.Context) {
	me, err := uh.userService.GetMe(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"me": me})
}

func (uh *UserHandler) UpdateProfile(c *gin.Context) {
	var input services.ProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	me, err := uh.userService.UpdateProfile(c.Request.Context(), input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"me": me})
}

func (uh *UserHandler) ChangePassword(c *gin.Context) {
	var input services.PasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	if err := uh.userService.ChangePassword(c.Request.Context(), input); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "password updated"})
}

func (uh *UserHandler) GetMyStats(c *gin.Context) {
	stats, err := uh.userService.GetMyStats(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"stats": stats})
}

func (uh *UserHandler) GetMyActivities(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	page, err := uh.activityService.GetUserActivities(c.Request.Context(), rd.UserID, offset, limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, page)
}
