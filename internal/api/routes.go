package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"gymmanager/workout-app/internal/metadata"
	"gymmanager/workout-app/internal/metrics"
	"gymmanager/workout-app/internal/offline"
	"gymmanager/workout-app/internal/service"
	"gymmanager/workout-app/internal/storage"
)

// Dependencies carries everything the HTTP layer needs.
type Dependencies struct {
	AuthService    service.AuthService
	WorkoutService service.WorkoutService
	Files          storage.FileStorage
	Fetcher        metadata.Fetcher
	Queue          *offline.Queue
	Monitor        *offline.Monitor
	AllowedOrigins []string
	Log            zerolog.Logger
}

// NewRouter builds a gin engine with the standard middleware chain and all routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), metrics.GinMiddleware(), CORS(deps.AllowedOrigins), LoggingMiddleware(deps.Log))
	SetupRoutes(router, deps)
	return router
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	authHandler := NewAuthHandler(deps.AuthService)
	workoutHandler := NewWorkoutHandler(deps.WorkoutService, deps.Log)
	mediaHandler := NewMediaHandler(deps.WorkoutService, deps.Files, deps.Log)
	categoryHandler := NewCategoryHandler(deps.WorkoutService, deps.Log)
	metadataHandler := NewMetadataHandler(deps.Fetcher, deps.Log)
	syncHandler := NewSyncHandler(deps.Queue, deps.Monitor, deps.Log)

	authMiddleware := AuthMiddleware(deps.AuthService)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	// Display URLs from the local blob store resolve here.
	router.GET("/files/*key", mediaHandler.ServeFile)

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		workouts := protected.Group("/workouts")
		{
			workouts.GET("", workoutHandler.ListWorkouts)
			workouts.POST("", workoutHandler.CreateWorkout)
			workouts.GET("/:id", workoutHandler.GetWorkout)
			workouts.PATCH("/:id", workoutHandler.UpdateWorkout)
			workouts.PUT("/:id", workoutHandler.UpdateWorkout)
			workouts.DELETE("/:id", workoutHandler.DeleteWorkout)

			workouts.POST("/:id/media", mediaHandler.AddMedia)
			workouts.DELETE("/:id/media/:mediaId", mediaHandler.RemoveMedia)

			workouts.POST("/:id/links", workoutHandler.AddLink)
			workouts.DELETE("/:id/links/:linkId", workoutHandler.RemoveLink)
		}

		categories := protected.Group("/categories")
		{
			categories.GET("", categoryHandler.ListCategories)
			categories.POST("", categoryHandler.CreateCategory)
			categories.GET("/:name/usage", categoryHandler.CategoryUsage)
			categories.DELETE("/:name", categoryHandler.DeleteCategory)
		}

		protected.POST("/url-metadata", metadataHandler.FetchMetadata)

		syncGroup := protected.Group("/sync")
		{
			syncGroup.GET("/actions", syncHandler.ListActions)
			syncGroup.POST("/actions", syncHandler.EnqueueAction)
			syncGroup.DELETE("/actions", syncHandler.ClearActions)
			syncGroup.DELETE("/actions/:id", syncHandler.RemoveAction)
			syncGroup.POST("/replay", syncHandler.Replay)
			syncGroup.GET("/status", syncHandler.GetStatus)
			syncGroup.PUT("/status", syncHandler.SetStatus)
		}
	}
}
