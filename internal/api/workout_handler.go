package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"gymmanager/workout-app/internal/domain"
	"gymmanager/workout-app/internal/service"
)

// WorkoutHandler serves plans and their url links.
type WorkoutHandler struct {
	workoutService service.WorkoutService
	log            zerolog.Logger
}

func NewWorkoutHandler(workoutService service.WorkoutService, log zerolog.Logger) *WorkoutHandler {
	return &WorkoutHandler{workoutService: workoutService, log: log}
}

type AddLinkRequest struct {
	URL string `json:"url" binding:"required"`
}

// ListWorkouts handles GET /workouts, optionally filtered by ?category=.
func (h *WorkoutHandler) ListWorkouts(c *gin.Context) {
	plans, err := h.workoutService.ListByCategory(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

func (h *WorkoutHandler) GetWorkout(c *gin.Context) {
	plan, err := h.workoutService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *WorkoutHandler) CreateWorkout(c *gin.Context) {
	var req domain.NewWorkoutPlan
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	plan, err := h.workoutService.Create(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// UpdateWorkout applies a partial update; omitted fields are left untouched.
func (h *WorkoutHandler) UpdateWorkout(c *gin.Context) {
	var patch domain.WorkoutPlanPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	plan, err := h.workoutService.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *WorkoutHandler) DeleteWorkout(c *gin.Context) {
	if err := h.workoutService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *WorkoutHandler) AddLink(c *gin.Context) {
	var req AddLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	link, err := h.workoutService.AddURLLink(c.Request.Context(), c.Param("id"), req.URL)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

func (h *WorkoutHandler) RemoveLink(c *gin.Context) {
	if err := h.workoutService.RemoveURLLink(c.Request.Context(), c.Param("id"), c.Param("linkId")); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
