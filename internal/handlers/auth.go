package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/piyingxi/shadowplay-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (ah *AuthHandler) Register(c *gin.Context) {
	var input services.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	pair, err := ah.authService.RegisterUser(c.Request.Context(), input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, pair)
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

func (ah *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	identity := req.Username
	if identity == "" {
		identity = req.Email
	}
	pair, err := ah.authService.LoginUser(c.Request.Context(), identity, req.Password)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, pair)
}

func (ah *AuthHandler) Refresh(c *gin.Context) {
	pair, err := ah.authService.RefreshUser(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, pair)
}

func (ah *AuthHandler) Logout(c *gin.Context) {
	if err := ah.authService.LogoutUser(c.Request.Context()); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "logged out"})
}
