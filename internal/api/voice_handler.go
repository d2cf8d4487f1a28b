package api

import (
	"alcyxob/workout-journal/internal/nlu"
	"alcyxob/workout-journal/internal/service"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// audioFormField is the multipart field voice endpoints read the recording from.
const audioFormField = "audio"

const maxVoiceBytes = 25 << 20

// readAudio loads the uploaded recording. It aborts the request and returns nil on failure.
func readAudio(c *gin.Context) *nlu.Audio {
	fh, err := c.FormFile(audioFormField)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Multipart field %q with the recording is required", audioFormField))
		return nil
	}
	if fh.Size > maxVoiceBytes {
		abortWithError(c, http.StatusRequestEntityTooLarge, "Recording is too large")
		return nil
	}
	f, err := fh.Open()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Could not read the recording")
		return nil
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Could not read the recording")
		return nil
	}
	if len(data) == 0 {
		abortWithError(c, http.StatusBadRequest, "Recording is empty")
		return nil
	}
	return &nlu.Audio{Data: data, Filename: fh.Filename}
}

// CaptureWorkoutVoice godoc
// @Summary Start recording a new workout from a voice message
// @Tags Workouts
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param audio formData file true "Voice message (ogg, mp3, m4a, wav)"
// @Success 200 {object} service.DialogStep
// @Failure 422 {object} gin.H "Speech could not be transcribed or parsed"
// @Failure 503 {object} gin.H "Voice input is not configured"
// @Router /workouts/capture/voice [post]
func (h *WorkoutHandler) CaptureWorkoutVoice(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	audio := readAudio(c)
	if audio == nil {
		return
	}
	step, err := h.dialogService.StartCapture(c.Request.Context(), userID, service.CaptureRequest{Audio: audio})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

// EditWorkoutVoice godoc
// @Summary Start an edit dialog from a voice message
// @Tags Workouts
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param workoutId path string true "Workout ID"
// @Param audio formData file true "Voice message"
// @Success 200 {object} service.DialogStep
// @Router /workouts/{workoutId}/edit/voice [post]
func (h *WorkoutHandler) EditWorkoutVoice(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	audio := readAudio(c)
	if audio == nil {
		return
	}
	step, err := h.dialogService.StartEdit(c.Request.Context(), userID, c.Param("workoutId"), service.EditRequest{Audio: audio})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

// ReviewVoice godoc
// @Summary Edit the reviewed workout with a voice message
// @Tags Dialog
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param audio formData file true "Voice message"
// @Success 200 {object} service.DialogStep
// @Failure 409 {object} gin.H "No workout is under review"
// @Router /dialog/review/voice [post]
func (h *DialogHandler) ReviewVoice(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	audio := readAudio(c)
	if audio == nil {
		return
	}
	step, err := h.dialogService.ReviewEdit(c.Request.Context(), userID, service.EditRequest{Audio: audio})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}
