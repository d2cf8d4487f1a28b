package api

import (
	"alcyxob/workout-journal/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	exerciseService service.ExerciseService,
	workoutService service.WorkoutService,
	dialogService service.DialogService,
) {
	authHandler := NewAuthHandler(authService)
	exerciseHandler := NewExerciseHandler(exerciseService)
	workoutHandler := NewWorkoutHandler(workoutService, dialogService)
	dialogHandler := NewDialogHandler(dialogService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userID, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"userId": userID})
		})

		// --- Exercise Routes ---
		exerciseGroup := protected.Group("/exercises")
		{
			exerciseGroup.GET("", exerciseHandler.ListExercises)
			exerciseGroup.GET("/resolve", exerciseHandler.ResolveExercise)
			exerciseGroup.POST("/synonyms", exerciseHandler.AddSynonym)
		}

		// --- Workout Routes ---
		workoutGroup := protected.Group("/workouts")
		{
			workoutGroup.POST("/capture", workoutHandler.CaptureWorkout)
			workoutGroup.POST("/capture/voice", workoutHandler.CaptureWorkoutVoice)
			workoutGroup.GET("/draft", workoutHandler.GetDraft)
			workoutGroup.GET("/by-date/:date", workoutHandler.GetWorkoutByDate)
			workoutGroup.GET("/lookup", workoutHandler.LookupWorkout)
			workoutGroup.GET("/:workoutId", workoutHandler.GetWorkout)
			workoutGroup.POST("/:workoutId/edit", workoutHandler.EditWorkout)
			workoutGroup.POST("/:workoutId/edit/voice", workoutHandler.EditWorkoutVoice)
		}

		// --- Dialog Routes ---
		dialogGroup := protected.Group("/dialog")
		{
			dialogGroup.GET("", dialogHandler.GetDialog)
			dialogGroup.POST("/choice", dialogHandler.Choose)
			dialogGroup.POST("/review", dialogHandler.Review)
			dialogGroup.POST("/review/voice", dialogHandler.ReviewVoice)
			dialogGroup.DELETE("", dialogHandler.CancelDialog)
		}
	}
}
