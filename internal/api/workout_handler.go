package api

import (
	"alcyxob/workout-journal/internal/domain"
	"alcyxob/workout-journal/internal/nlu"
	"alcyxob/workout-journal/internal/service"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// WorkoutHandler starts capture and edit dialogs and serves stored workouts.
type WorkoutHandler struct {
	workoutService service.WorkoutService
	dialogService  service.DialogService
}

// NewWorkoutHandler creates a new WorkoutHandler.
func NewWorkoutHandler(workoutService service.WorkoutService, dialogService service.DialogService) *WorkoutHandler {
	return &WorkoutHandler{workoutService: workoutService, dialogService: dialogService}
}

// --- Request Structs ---

// CaptureWorkoutRequest carries either free text for the parser or an already parsed workout.
type CaptureWorkoutRequest struct {
	Text   string                `json:"text"`
	Parsed *domain.ParsedWorkout `json:"parsed"`
}

// EditWorkoutRequest carries either free text for the parser or an explicit delta in any of
// the shapes nlu.DecodeEdit accepts.
type EditWorkoutRequest struct {
	Text  string          `json:"text"`
	Delta json.RawMessage `json:"delta"`
}

// --- Handler Methods ---

// CaptureWorkout godoc
// @Summary Start recording a new workout
// @Tags Workouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param workout body CaptureWorkoutRequest true "Workout text or parsed workout"
// @Success 200 {object} service.DialogStep
// @Failure 409 {object} gin.H "Still processing previous request"
// @Failure 422 {object} gin.H "Text could not be parsed"
// @Router /workouts/capture [post]
func (h *WorkoutHandler) CaptureWorkout(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	var req CaptureWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	if strings.TrimSpace(req.Text) == "" && req.Parsed == nil {
		abortWithError(c, http.StatusBadRequest, "Either 'text' or 'parsed' is required")
		return
	}

	step, err := h.dialogService.StartCapture(c.Request.Context(), userID, service.CaptureRequest{Text: req.Text, Parsed: req.Parsed})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

// EditWorkout godoc
// @Summary Start an edit dialog for an owned workout
// @Tags Workouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param workoutId path string true "Workout ID"
// @Param edit body EditWorkoutRequest true "Edit text or delta"
// @Success 200 {object} service.DialogStep
// @Failure 403 {object} gin.H "Workout belongs to another user"
// @Failure 404 {object} gin.H "Workout not found"
// @Router /workouts/{workoutId}/edit [post]
func (h *WorkoutHandler) EditWorkout(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	var req EditWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	in := service.EditRequest{Text: req.Text}
	if len(req.Delta) > 0 && string(req.Delta) != "null" {
		delta, err := nlu.DecodeEdit(req.Delta)
		if err != nil {
			respondError(c, err)
			return
		}
		in.Delta = delta
	} else if strings.TrimSpace(req.Text) == "" {
		abortWithError(c, http.StatusBadRequest, "Either 'text' or 'delta' is required")
		return
	}

	step, err := h.dialogService.StartEdit(c.Request.Context(), userID, c.Param("workoutId"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

// GetWorkout godoc
// @Summary Get an owned workout
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Param workoutId path string true "Workout ID"
// @Success 200 {object} domain.Workout
// @Router /workouts/{workoutId} [get]
func (h *WorkoutHandler) GetWorkout(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	w, err := h.workoutService.GetWorkout(c.Request.Context(), c.Param("workoutId"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// GetDraft godoc
// @Summary Get the caller's current draft
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.Workout
// @Router /workouts/draft [get]
func (h *WorkoutHandler) GetDraft(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	w, err := h.workoutService.GetDraftForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// GetWorkoutByDate godoc
// @Summary Find the caller's workout on a day
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} domain.Workout
// @Router /workouts/by-date/{date} [get]
func (h *WorkoutHandler) GetWorkoutByDate(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	day, err := time.ParseInLocation(domain.DateLayout, c.Param("date"), time.UTC)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Date must be in YYYY-MM-DD format")
		return
	}
	w, err := h.workoutService.FindByDate(c.Request.Context(), userID, day)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// LookupWorkout godoc
// @Summary Find the caller's workout from a phrase naming its day
// @Description Resolves phrases like "вчерашняя тренировка" or "в понедельник" to a date, then
// @Description returns the workout on that day so it can be edited.
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Param phrase query string true "Phrase naming the day"
// @Success 200 {object} domain.Workout
// @Failure 404 {object} gin.H "No workout on that day"
// @Router /workouts/lookup [get]
func (h *WorkoutHandler) LookupWorkout(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	phrase := strings.TrimSpace(c.Query("phrase"))
	if phrase == "" {
		abortWithError(c, http.StatusBadRequest, "Query parameter 'phrase' is required")
		return
	}
	w, err := h.dialogService.FindForEdit(c.Request.Context(), userID, phrase)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}
