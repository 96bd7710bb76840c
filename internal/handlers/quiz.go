package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/piyingxi/shadowplay-backend/internal/services"
)

type QuizHandler struct {
	quizService services.QuizService
}

func NewQuizHandler(quizService services.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

func (qh *QuizHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	quiz, err := qh.quizService.GetQuiz(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"quiz": quiz})
}

func (qh *QuizHandler) Submit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var submission services.QuizSubmission
	if err := c.ShouldBindJSON(&submission); err != nil {
		RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	result, err := qh.quizService.SubmitQuiz(c.Request.Context(), id, submission)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}
