// internal/api/coach_handler.go
package api

import (
	"alcyxob/coach-progression/internal/domain"
	"alcyxob/coach-progression/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CoachHandler struct {
	progressionService service.ProgressionService
	rosterService      service.RosterService
	shareService       service.ShareService
}

func NewCoachHandler(
	progressionService service.ProgressionService,
	rosterService service.RosterService,
	shareService service.ShareService,
) *CoachHandler {
	return &CoachHandler{
		progressionService: progressionService,
		rosterService:      rosterService,
		shareService:       shareService,
	}
}

// --- DTOs ---

type AddClientRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"omitempty,email"`
}

type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email,omitempty"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

// MapUserToResponse converts a domain.User to UserResponse DTO.
func MapUserToResponse(user *domain.User) UserResponse {
	if user == nil {
		return UserResponse{}
	}
	return UserResponse{
		ID:        user.ID.Hex(),
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

type CreateProgramRequest struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	Days        []domain.WorkoutDay `json:"days" binding:"required,min=1"`
}

type CreateAssignmentRequest struct {
	TemplateID    string    `json:"templateId" binding:"required"`
	StartDate     time.Time `json:"startDate"`                             // defaults to now
	DurationWeeks int       `json:"durationWeeks" binding:"required,min=1,max=104"` // e.g. 8
}

type ShareLinkResponse struct {
	Token     string    `json:"token"`
	Path      string    `json:"path"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// --- Roster ---

// AddClient godoc
// @Summary Add a client to the practice
// @Tags Coach
// @Accept json
// @Produce json
// @Param clientRequest body AddClientRequest true "Client"
// @Success 201 {object} UserResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Router /coach/clients [post]
func (h *CoachHandler) AddClient(c *gin.Context) {
	var req AddClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	client, err := h.rosterService.AddClient(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		abortWithServiceError(c, err, "add client")
		return
	}
	c.JSON(http.StatusCreated, MapUserToResponse(client))
}

func (h *CoachHandler) GetClient(c *gin.Context) {
	clientID, err := getClientIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid client ID format.")
		return
	}

	client, err := h.rosterService.GetClient(c.Request.Context(), clientID)
	if err != nil {
		abortWithServiceError(c, err, "retrieve client")
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(client))
}

// CreateProgram godoc
// @Summary Create a reusable program template
// @Description Ids of days, exercises and sets are generated when missing.
// @Tags Coach
// @Accept json
// @Produce json
// @Param program body CreateProgramRequest true "Program template"
// @Success 201 {object} domain.WorkoutProgram
// @Failure 400 {object} gin.H "Invalid input"
// @Router /coach/programs [post]
func (h *CoachHandler) CreateProgram(c *gin.Context) {
	var req CreateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	program, err := h.rosterService.CreateProgram(c.Request.Context(), domain.WorkoutProgram{
		Name:        req.Name,
		Description: req.Description,
		Days:        req.Days,
	})
	if err != nil {
		abortWithServiceError(c, err, "create program")
		return
	}
	c.JSON(http.StatusCreated, program)
}

func (h *CoachHandler) GetProgram(c *gin.Context) {
	programID, err := primitive.ObjectIDFromHex(c.Param("programId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid program ID format.")
		return
	}

	program, err := h.rosterService.GetProgram(c.Request.Context(), programID)
	if err != nil {
		abortWithServiceError(c, err, "retrieve program")
		return
	}
	c.JSON(http.StatusOK, program)
}

// --- Assignment lifecycle ---

// CreateAssignment godoc
// @Summary Assign a program template to a client
// @Description Copies the template into a new assignment. The client's
// @Description previous assignment is deactivated and archived.
// @Tags Coach
// @Accept json
// @Produce json
// @Param clientId path string true "Client ID"
// @Param assignment body CreateAssignmentRequest true "Assignment details"
// @Success 201 {object} domain.ClientWorkoutAssignment
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Client or template not found"
// @Router /coach/clients/{clientId}/assignments [post]
func (h *CoachHandler) CreateAssignment(c *gin.Context) {
	clientID, err := getClientIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid client ID format.")
		return
	}

	var req CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	templateID, err := primitive.ObjectIDFromHex(req.TemplateID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid template ID format.")
		return
	}

	assignment, err := h.progressionService.CreateAssignment(c.Request.Context(), clientID, templateID, req.StartDate, req.DurationWeeks)
	if err != nil {
		abortWithServiceError(c, err, "create assignment")
		return
	}
	c.JSON(http.StatusCreated, assignment)
}

// GetArchiveURL returns a temporary download link for a replaced assignment.
func (h *CoachHandler) GetArchiveURL(c *gin.Context) {
	clientID, err := getClientIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid client ID format.")
		return
	}
	assignmentID, err := primitive.ObjectIDFromHex(c.Param("assignmentId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid assignment ID format.")
		return
	}

	url, err := h.progressionService.ArchiveURL(c.Request.Context(), clientID, assignmentID)
	if err != nil {
		abortWithServiceError(c, err, "generate archive URL")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// CreateShareLink godoc
// @Summary Issue a share link for the client
// @Description The link is the client's only credential; anyone holding it
// @Description can view and record progress until it expires.
// @Tags Coach
// @Produce json
// @Param clientId path string true "Client ID"
// @Success 201 {object} ShareLinkResponse
// @Failure 404 {object} gin.H "Client not found"
// @Router /coach/clients/{clientId}/share-link [post]
func (h *CoachHandler) CreateShareLink(c *gin.Context) {
	clientID, err := getClientIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid client ID format.")
		return
	}

	token, expiresAt, err := h.shareService.CreateLink(c.Request.Context(), clientID)
	if err != nil {
		abortWithServiceError(c, err, "create share link")
		return
	}
	c.JSON(http.StatusCreated, ShareLinkResponse{
		Token:     token,
		Path:      shareBasePath + "/" + token,
		ExpiresAt: expiresAt,
	})
}
