package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/piyingxi/shadowplay-backend/internal/handlers"
	"github.com/piyingxi/shadowplay-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware        *middleware.AuthMiddleware
	AuthHandler           *handlers.AuthHandler
	UserHandler           *handlers.UserHandler
	StoryHandler          *handlers.StoryHandler
	CharacterHandler      *handlers.CharacterHandler
	LearningHandler       *handlers.LearningHandler
	QuizHandler           *handlers.QuizHandler
	CommentHandler        *handlers.CommentHandler
	RecommendationHandler *handlers.RecommendationHandler
	StatsHandler          *handlers.StatsHandler
	AdminHandler          *handlers.AdminHandler
	AllowOrigins          []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Language"},
		AllowCredentials: true,
	}))
	router.Use(otelgin.Middleware("shadowplay-backend"))
	router.Use(middleware.RequestContext())

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	api := router.Group("/api")
	{
		api.POST("/auth/register", cfg.AuthHandler.Register)
		api.POST("/auth/login", cfg.AuthHandler.Login)

		api.GET("/stories", cfg.StoryHandler.List)
		api.GET("/stories/:id", cfg.StoryHandler.Get)
		api.GET("/stories/slug/:slug", cfg.StoryHandler.GetBySlug)
		api.GET("/stories/:id/comments", cfg.CommentHandler.ListForStory)
		api.GET("/stories/:id/rating", cfg.StoryHandler.GetRating)
		api.POST("/stories/:id/share", cfg.StoryHandler.Share)

		api.GET("/modules", cfg.LearningHandler.List)
		api.GET("/modules/:id", cfg.LearningHandler.Get)
		api.GET("/modules/:id/comments", cfg.CommentHandler.ListForModule)

		api.GET("/characters", cfg.CharacterHandler.List)
		api.GET("/characters/:id", cfg.CharacterHandler.Get)

		api.GET("/search", cfg.StatsHandler.Search)
		api.GET("/stats", cfg.StatsHandler.GetPlatformStats)
		api.GET("/stats/trending", cfg.StatsHandler.GetTrending)
	}
	// Anonymous requests get the default set, authenticated ones personalize.
	api.GET("/recommendations", cfg.AuthMiddleware.OptionalAuth(), cfg.RecommendationHandler.Get)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/auth/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/auth/logout", cfg.AuthHandler.Logout)
	// Profile
	protected.GET("/me", cfg.UserHandler.GetMe)
	protected.PUT("/me", cfg.UserHandler.UpdateProfile)
	protected.PUT("/me/password", cfg.UserHandler.ChangePassword)
	protected.GET("/me/stats", cfg.UserHandler.GetMyStats)
	protected.GET("/me/activities", cfg.UserHandler.GetMyActivities)
	// Stories
	protected.POST("/stories/:id/like", cfg.StoryHandler.Like)
	protected.POST("/stories/:id/comments", cfg.CommentHandler.CreateForStory)
	protected.POST("/stories/:id/rating", cfg.StoryHandler.Rate)
	// Learning
	protected.POST("/modules/:id/enroll", cfg.LearningHandler.Enroll)
	protected.POST("/modules/:id/progress", cfg.LearningHandler.UpdateProgress)
	protected.POST("/modules/:id/complete", cfg.LearningHandler.Complete)
	protected.POST("/modules/:id/comments", cfg.CommentHandler.CreateForModule)
	protected.POST("/modules/:id/rating", cfg.LearningHandler.Rate)
	// Quizzes
	protected.GET("/quizzes/:id", cfg.QuizHandler.Get)
	protected.POST("/quizzes/:id/submit", cfg.QuizHandler.Submit)
	// Comments
	protected.POST("/comments/:id/like", cfg.CommentHandler.Like)

	// ===============
	// || Admin     ||
	// ===============
	admin := router.Group("/api/admin")
	admin.Use(cfg.AuthMiddleware.RequireAuth(), cfg.AuthMiddleware.RequireAdmin())
	admin.GET("/dashboard", cfg.AdminHandler.GetDashboard)
	admin.GET("/users", cfg.AdminHandler.ListUsers)
	admin.POST("/users/:id/toggle-active", cfg.AdminHandler.ToggleUserActive)
	admin.POST("/stories", cfg.AdminHandler.CreateStory)
	admin.PUT("/stories/:id", cfg.AdminHandler.UpdateStory)
	admin.DELETE("/stories/:id", cfg.AdminHandler.DeleteStory)
	admin.POST("/modules", cfg.AdminHandler.CreateModule)
	admin.PUT("/modules/:id", cfg.AdminHandler.UpdateModule)
	admin.DELETE("/modules/:id", cfg.AdminHandler.DeleteModule)
	admin.POST("/modules/:id/quiz", cfg.AdminHandler.CreateQuiz)
	admin.POST("/characters", cfg.AdminHandler.CreateCharacter)
	admin.PUT("/characters/:id", cfg.AdminHandler.UpdateCharacter)
	admin.DELETE("/characters/:id", cfg.AdminHandler.DeleteCharacter)
	admin.GET("/comments/pending", cfg.AdminHandler.GetPendingComments)
	admin.POST("/comments/:id/approve", cfg.AdminHandler.ApproveComment)
	admin.DELETE("/comments/:id", cfg.AdminHandler.DeleteComment)

	return router
}
