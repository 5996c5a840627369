package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"gymmanager/workout-app/internal/service"
)

type CategoryHandler struct {
	workoutService service.WorkoutService
	log            zerolog.Logger
}

func NewCategoryHandler(workoutService service.WorkoutService, log zerolog.Logger) *CategoryHandler {
	return &CategoryHandler{workoutService: workoutService, log: log}
}

type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// ListCategories returns explicit categories, or with ?unique=true the sorted
// union of explicit and in-use category names.
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	if c.Query("unique") == "true" {
		names, err := h.workoutService.UniqueCategories(c.Request.Context())
		if err != nil {
			respondServiceError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, names)
		return
	}

	categories, err := h.workoutService.ListCategories(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	category, err := h.workoutService.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	if err := h.workoutService.DeleteCategory(c.Request.Context(), c.Param("name")); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CategoryUsage handles GET /categories/:name/usage.
func (h *CategoryHandler) CategoryUsage(c *gin.Context) {
	used, err := h.workoutService.IsCategoryUsed(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": c.Param("name"), "used": used})
}
