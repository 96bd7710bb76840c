package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/piyingxi/shadowplay-backend/internal/services"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

type AdminHandler struct {
	analyticsService services.AnalyticsService
	userService      services.UserService
	storyService     services.StoryService
	learningService  services.LearningService
	characterService services.CharacterService
	quizService      services.QuizService
	commentService   services.CommentService
}

func NewAdminHandler(
	analyticsService services.AnalyticsService,
	userService services.UserService,
	storyService services.StoryService,
	learningService services.LearningService,
	characterService services.CharacterService,
	quizService services.QuizService,
	commentService services.CommentService,
) *AdminHandler {
	return &AdminHandler{
		analyticsService: analyticsService,
		userService:      userService,
		storyService:     storyService,
		learningService:  learningService,
		characterService: characterService,
		quizService:      quizService,
		commentService:   commentService,
	}
}

func (ah *AdminHandler) GetDashboard(c *gin.Context) {
	dashboard, err := ah.analyticsService.GetAdminDashboard(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"dashboard": dashboard})
}

func (ah *AdminHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	users, err := ah.userService.ListUsers(c.Request.Context(), page, perPage)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, users)
}

func (ah *AdminHandler) ToggleUserActive(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	user, err := ah.userService.ToggleActive(c.Request.Context(), userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"user": user})
}

func (ah *AdminHandler) CreateStory(c *gin.Context) {
	var input services.StoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	story, err := ah.storyService.CreateStory(c.Request.Context(), input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"story": story})
}

func (ah *AdminHandler) UpdateStory(c *gin.Context) {
	storyID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input services.StoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	story, err := ah.storyService.UpdateStory(c.Request.Context(), storyID, input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"story": story})
}

func (ah *AdminHandler) DeleteStory(c *gin.Context) {
	storyID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := ah.storyService.DeleteStory(c.Request.Context(), storyID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

func (ah *AdminHandler) CreateModule(c *gin.Context) {
	var input services.ModuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	module, err := ah.learningService.CreateModule(c.Request.Context(), input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"module": module})
}

func (ah *AdminHandler) UpdateModule(c *gin.Context) {
	moduleID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input services.ModuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	module, err := ah.learningService.UpdateModule(c.Request.Context(), moduleID, input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"module": module})
}

func (ah *AdminHandler) DeleteModule(c *gin.Context) {
	moduleID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := ah.learningService.DeleteModule(c.Request.Context(), moduleID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

func (ah *AdminHandler) CreateCharacter(c *gin.Context) {
	var input services.CharacterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	character, err := ah.characterService.CreateCharacter(c.Request.Context(), input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"character": character})
}

func (ah *AdminHandler) UpdateCharacter(c *gin.Context) {
	characterID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input services.CharacterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	character, err := ah.characterService.UpdateCharacter(c.Request.Context(), characterID, input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"character": character})
}

func (ah *AdminHandler) DeleteCharacter(c *gin.Context) {
	characterID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := ah.characterService.DeleteCharacter(c.Request.Context(), characterID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

type createQuizQuestion struct {
	QuestionText   string         `json:"question_text" binding:"required"`
	QuestionTextEN string         `json:"question_text_en"`
	QuestionType   string         `json:"question_type"`
	Position       int            `json:"position"`
	Options        datatypes.JSON `json:"options"`
	OptionsEN      datatypes.JSON `json:"options_en"`
	CorrectAnswer  datatypes.JSON `json:"correct_answer" binding:"required"`
	Explanation    string         `json:"explanation"`
	ExplanationEN  string         `json:"explanation_en"`
	Points         int            `json:"points"`
}

type createQuizRequest struct {
	Title            string               `json:"title" binding:"required"`
	TitleEN          string               `json:"title_en"`
	TimeLimit        int                  `json:"time_limit"`
	PassingScore     int                  `json:"passing_score"`
	MaxAttempts      int                  `json:"max_attempts"`
	ShuffleQuestions bool                 `json:"shuffle_questions"`
	Questions        []createQuizQuestion `json:"questions" binding:"required"`
}

func (ah *AdminHandler) CreateQuiz(c *gin.Context) {
	moduleID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req createQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	quiz := &types.Quiz{
		Title:            req.Title,
		TitleEN:          req.TitleEN,
		TimeLimit:        req.TimeLimit,
		PassingScore:     req.PassingScore,
		MaxAttempts:      req.MaxAttempts,
		ShuffleQuestions: req.ShuffleQuestions,
	}
	questions := make([]*types.QuizQuestion, 0, len(req.Questions))
	for i, q := range req.Questions {
		position := q.Position
		if position == 0 {
			position = i + 1
		}
		questions = append(questions, &types.QuizQuestion{
			QuestionText:   q.QuestionText,
			QuestionTextEN: q.QuestionTextEN,
			QuestionType:   q.QuestionType,
			Position:       position,
			Options:        q.Options,
			OptionsEN:      q.OptionsEN,
			CorrectAnswer:  q.CorrectAnswer,
			Explanation:    q.Explanation,
			ExplanationEN:  q.ExplanationEN,
			Points:         q.Points,
		})
	}
	created, err := ah.quizService.CreateQuiz(c.Request.Context(), moduleID, quiz, questions)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"quiz": created})
}

func (ah *AdminHandler) GetPendingComments(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	comments, err := ah.commentService.GetPendingComments(c.Request.Context(), offset, limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, comments)
}

func (ah *AdminHandler) ApproveComment(c *gin.Context) {
	commentID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := ah.commentService.ApproveComment(c.Request.Context(), commentID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"approved": true})
}

func (ah *AdminHandler) DeleteComment(c *gin.Context) {
	commentID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := ah.commentService.DeleteComment(c.Request.Context(), commentID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}
