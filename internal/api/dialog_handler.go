package api

import (
	"alcyxob/workout-journal/internal/service"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DialogHandler drives the caller's disambiguation/review dialog one event at a time.
type DialogHandler struct {
	dialogService service.DialogService
}

// NewDialogHandler creates a new DialogHandler.
func NewDialogHandler(dialogService service.DialogService) *DialogHandler {
	return &DialogHandler{dialogService: dialogService}
}

type ChoiceRequest struct {
	Token string `json:"token" binding:"required"`
}

type ReviewRequest struct {
	Action string `json:"action" binding:"required,oneof=approve edit cancel"`
	Text   string `json:"text"`
}

// GetDialog godoc
// @Summary Show the pending prompt or review
// @Tags Dialog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.DialogStep
// @Failure 404 {object} gin.H "No active dialog"
// @Router /dialog [get]
func (h *DialogHandler) GetDialog(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	step, err := h.dialogService.Current(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

// Choose godoc
// @Summary Answer the pending exercise prompt
// @Tags Dialog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param choice body ChoiceRequest true "map:<exerciseId> or new_exercise"
// @Success 200 {object} service.DialogStep
// @Router /dialog/choice [post]
func (h *DialogHandler) Choose(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	var req ChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	step, err := h.dialogService.Choose(c.Request.Context(), userID, req.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

// Review godoc
// @Summary Approve, edit or cancel the reviewed workout
// @Tags Dialog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param review body ReviewRequest true "Review action"
// @Success 200 {object} service.DialogStep
// @Router /dialog/review [post]
func (h *DialogHandler) Review(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	step, err := h.dialogService.Review(c.Request.Context(), userID, req.Action, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

// CancelDialog godoc
// @Summary Cancel the dialog in any state
// @Tags Dialog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.DialogStep
// @Router /dialog [delete]
func (h *DialogHandler) CancelDialog(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	step, err := h.dialogService.Cancel(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}
