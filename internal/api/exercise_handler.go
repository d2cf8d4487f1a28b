package api

import (
	"alcyxob/workout-journal/internal/domain"
	"alcyxob/workout-journal/internal/service"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ExerciseHandler exposes the catalog and the resolution engine.
type ExerciseHandler struct {
	exerciseService service.ExerciseService
}

// NewExerciseHandler creates a new ExerciseHandler.
func NewExerciseHandler(exerciseService service.ExerciseService) *ExerciseHandler {
	return &ExerciseHandler{exerciseService: exerciseService}
}

// --- DTOs ---

// ExerciseResponse is the DTO for returning exercise details.
type ExerciseResponse struct {
	ID            string   `json:"id"`
	CanonicalName string   `json:"canonicalName"`
	DisplayName   string   `json:"displayName"`
	DisplayNameRu string   `json:"displayNameRu,omitempty"`
	DisplayNameEn string   `json:"displayNameEn,omitempty"`
	MuscleGroups  []string `json:"muscleGroups,omitempty"`
	Category      string   `json:"category,omitempty"`
	Global        bool     `json:"global"`
}

// ResolveResponse reports a resolution outcome.
type ResolveResponse struct {
	Status     service.ResolveStatus `json:"status"`
	Exercise   *ExerciseResponse     `json:"exercise,omitempty"`
	Candidates []ExerciseResponse    `json:"candidates,omitempty"`
}

type AddSynonymRequest struct {
	Text       string `json:"text" binding:"required"`
	ExerciseID string `json:"exerciseId" binding:"required"`
}

type SynonymResponse struct {
	ID         string `json:"id"`
	ExerciseID string `json:"exerciseId"`
	Synonym    string `json:"synonym"`
}

// MapExerciseToResponse converts a domain.Exercise to ExerciseResponse DTO.
func MapExerciseToResponse(ex *domain.Exercise) ExerciseResponse {
	if ex == nil {
		return ExerciseResponse{}
	}
	return ExerciseResponse{
		ID:            ex.ID,
		CanonicalName: ex.CanonicalName,
		DisplayName:   ex.DisplayName(),
		DisplayNameRu: ex.DisplayNameRu,
		DisplayNameEn: ex.DisplayNameEn,
		MuscleGroups:  ex.MuscleGroups,
		Category:      ex.Category,
		Global:        ex.IsGlobal(),
	}
}

// MapExercisesToResponse converts a slice of domain.Exercise to a slice of ExerciseResponse DTO.
func MapExercisesToResponse(exercises []domain.Exercise) []ExerciseResponse {
	responses := make([]ExerciseResponse, len(exercises))
	for i := range exercises {
		responses[i] = MapExerciseToResponse(&exercises[i])
	}
	return responses
}

// --- Handler Methods ---

// ListExercises godoc
// @Summary List the global exercise catalog
// @Tags Exercises
// @Produce json
// @Security BearerAuth
// @Success 200 {array} ExerciseResponse
// @Router /exercises [get]
func (h *ExerciseHandler) ListExercises(c *gin.Context) {
	exercises, err := h.exerciseService.ListGlobal(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapExercisesToResponse(exercises))
}

// ResolveExercise godoc
// @Summary Resolve free text to a catalog exercise for the caller
// @Tags Exercises
// @Produce json
// @Security BearerAuth
// @Param text query string true "Exercise mention"
// @Success 200 {object} ResolveResponse
// @Router /exercises/resolve [get]
func (h *ExerciseHandler) ResolveExercise(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	text := strings.TrimSpace(c.Query("text"))
	if text == "" {
		abortWithError(c, http.StatusBadRequest, "Query parameter 'text' is required")
		return
	}

	res, err := h.exerciseService.Resolve(c.Request.Context(), text, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := ResolveResponse{Status: res.Status}
	if res.Exercise != nil {
		ex := MapExerciseToResponse(res.Exercise)
		resp.Exercise = &ex
	}
	if len(res.Candidates) > 0 {
		resp.Candidates = MapExercisesToResponse(res.Candidates)
	}
	c.JSON(http.StatusOK, resp)
}

// AddSynonym godoc
// @Summary Add a synonym visible only to the caller
// @Tags Exercises
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param synonym body AddSynonymRequest true "Synonym"
// @Success 201 {object} SynonymResponse
// @Router /exercises/synonyms [post]
func (h *ExerciseHandler) AddSynonym(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	var req AddSynonymRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	syn, err := h.exerciseService.AddUserSynonym(c.Request.Context(), userID, req.Text, req.ExerciseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, SynonymResponse{ID: syn.ID, ExerciseID: syn.ExerciseID, Synonym: syn.Synonym})
}
