package api

import (
	"alcyxob/coach-progression/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CatalogHandler holds the catalog service dependency.
type CatalogHandler struct {
	catalogService service.CatalogService
}

func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// CreateExerciseRequest defines the expected JSON for creating an exercise.
type CreateExerciseRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	MuscleGroup string `json:"muscleGroup" binding:"required"` // e.g., "Chest", "Legs"
	Equipment   string `json:"equipment"`
	Difficulty  string `json:"difficulty" binding:"omitempty,oneof=Novice Medium Advanced"`
}

// CreateExercise godoc
// @Summary Add an exercise to the catalog
// @Description The muscle group is what volume charts are grouped by.
// @Tags Catalog
// @Accept json
// @Produce json
// @Param exercise body CreateExerciseRequest true "Exercise"
// @Success 201 {object} domain.Exercise
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 409 {object} gin.H "An exercise with that name exists"
// @Router /coach/catalog [post]
func (h *CatalogHandler) CreateExercise(c *gin.Context) {
	var req CreateExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	exercise, err := h.catalogService.CreateExercise(c.Request.Context(), req.Name, req.Description, req.MuscleGroup, req.Equipment, req.Difficulty)
	if err != nil {
		abortWithServiceError(c, err, "create exercise")
		return
	}
	c.JSON(http.StatusCreated, exercise)
}

func (h *CatalogHandler) GetExercise(c *gin.Context) {
	exercise, err := h.catalogService.GetExerciseByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		abortWithServiceError(c, err, "retrieve exercise")
		return
	}
	c.JSON(http.StatusOK, exercise)
}
