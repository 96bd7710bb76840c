package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/piyingxi/shadowplay-backend/internal/clients/deepseek"
	"github.com/piyingxi/shadowplay-backend/internal/clients/rediscache"
	"github.com/piyingxi/shadowplay-backend/internal/db"
	"github.com/piyingxi/shadowplay-backend/internal/handlers"
	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/middleware"
	"github.com/piyingxi/shadowplay-backend/internal/observability"
	"github.com/piyingxi/shadowplay-backend/internal/repos"
	"github.com/piyingxi/shadowplay-backend/internal/server"
	"github.com/piyingxi/shadowplay-backend/internal/services"
	"github.com/piyingxi/shadowplay-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Tracing
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "shadowplay-backend",
		Environment: logMode,
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Warn("OTel shutdown failed", "error", err)
		}
	}()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	storyRepo := repos.NewStoryRepo(thePG, log)
	characterRepo := repos.NewCharacterRepo(thePG, log)
	moduleRepo := repos.NewLearningModuleRepo(thePG, log)
	quizRepo := repos.NewQuizRepo(thePG, log)
	progressRepo := repos.NewUserProgressRepo(thePG, log)
	ratingRepo := repos.NewRatingRepo(thePG, log)
	commentRepo := repos.NewCommentRepo(thePG, log)
	activityRepo := repos.NewUserActivityRepo(thePG, log)
	viewRepo := repos.NewContentViewRepo(thePG, log)

	// Clients
	log.Info("Setting up clients from main...")
	cache, err := rediscache.New(log)
	if err != nil {
		log.Warn("Redis cache unavailable, continuing without it", "error", err)
	}
	if cache != nil {
		defer cache.Close()
	}
	deepseekClient := deepseek.NewClient(log)

	// Services
	log.Info("Setting up services from main...")
	activityService := services.NewActivityService(thePG, log, activityRepo)
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, activityService, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	userService := services.NewUserService(thePG, log, userRepo, progressRepo)
	storyService := services.NewStoryService(thePG, log, storyRepo, characterRepo, viewRepo, activityService)
	characterService := services.NewCharacterService(thePG, log, characterRepo)
	learningService := services.NewLearningService(thePG, log, moduleRepo, progressRepo, userRepo, viewRepo, activityService)
	quizService := services.NewQuizService(thePG, log, quizRepo, moduleRepo, progressRepo, userRepo, activityService)
	commentService := services.NewCommentService(thePG, log, commentRepo, storyRepo, moduleRepo, userRepo, activityService)
	ratingService := services.NewRatingService(thePG, log, ratingRepo, storyRepo, moduleRepo, activityService)
	recommendationService := services.NewRecommendationService(thePG, log, storyRepo, moduleRepo, ratingRepo, progressRepo, viewRepo, activityRepo, userRepo, deepseekClient)
	analyticsService := services.NewAnalyticsService(thePG, log, userRepo, storyRepo, moduleRepo, commentRepo, ratingRepo, progressRepo, activityRepo, viewRepo, cache)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService, activityService)
	storyHandler := handlers.NewStoryHandler(storyService, ratingService)
	characterHandler := handlers.NewCharacterHandler(characterService)
	learningHandler := handlers.NewLearningHandler(learningService, ratingService)
	quizHandler := handlers.NewQuizHandler(quizService)
	commentHandler := handlers.NewCommentHandler(commentService)
	recommendationHandler := handlers.NewRecommendationHandler(recommendationService)
	statsHandler := handlers.NewStatsHandler(analyticsService, storyService, learningService, characterService)
	adminHandler := handlers.NewAdminHandler(analyticsService, userService, storyService, learningService, characterService, quizService, commentService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	var origins []string
	if raw := utils.GetEnv("CORS_ALLOW_ORIGINS", "", log); raw != "" {
		origins = strings.Split(raw, ",")
	}
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:        authMiddleware,
		AuthHandler:           authHandler,
		UserHandler:           userHandler,
		StoryHandler:          storyHandler,
		CharacterHandler:      characterHandler,
		LearningHandler:       learningHandler,
		QuizHandler:           quizHandler,
		CommentHandler:        commentHandler,
		RecommendationHandler: recommendationHandler,
		StatsHandler:          statsHandler,
		AdminHandler:          adminHandler,
		AllowOrigins:          origins,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
