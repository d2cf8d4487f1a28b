package api

import (
	"alcyxob/workout-journal/internal/nlu"
	"alcyxob/workout-journal/internal/service"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto HTTP statuses. Unknown errors are logged and hidden.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotAuthorized):
		abortWithError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrWorkoutNotFound),
		errors.Is(err, service.ErrExerciseNotFound),
		errors.Is(err, service.ErrNoActiveDialog):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSessionBusy),
		errors.Is(err, service.ErrInvalidDialogAction),
		errors.Is(err, service.ErrWorkoutNotDraft),
		errors.Is(err, service.ErrUserAlreadyExists):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrValidationFailed):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, nlu.ErrParseFailure):
		abortWithError(c, http.StatusUnprocessableEntity, "Could not understand the workout: "+err.Error())
	case errors.Is(err, service.ErrParserUnavailable),
		errors.Is(err, service.ErrTranscriberUnavailable):
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrAuthenticationFailed):
		abortWithError(c, http.StatusUnauthorized, err.Error())
	default:
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
