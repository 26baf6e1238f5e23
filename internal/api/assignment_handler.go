package api

import (
	"alcyxob/coach-progression/internal/broadcast"
	"alcyxob/coach-progression/internal/domain"
	"alcyxob/coach-progression/internal/progression"
	"alcyxob/coach-progression/internal/service"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const eventsHeartbeat = 20 * time.Second

// AssignmentHandler serves the routes both sessions share. The client comes
// from the session (path parameter or share token), the role from the route group.
type AssignmentHandler struct {
	progressionService service.ProgressionService
	catalogService     service.CatalogService
}

func NewAssignmentHandler(progressionService service.ProgressionService, catalogService service.CatalogService) *AssignmentHandler {
	return &AssignmentHandler{
		progressionService: progressionService,
		catalogService:     catalogService,
	}
}

// GetAssignment godoc
// @Summary Get the client's active assignment
// @Tags Assignment
// @Produce json
// @Success 200 {object} domain.ClientWorkoutAssignment
// @Failure 404 {object} gin.H "No active assignment"
// @Router /coach/clients/{clientId}/assignment [get]
// @Router /share/{token}/assignment [get]
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	clientID, err := getClientIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client.")
		return
	}

	assignment, err := h.progressionService.GetAssignment(c.Request.Context(), clientID)
	if err != nil {
		abortWithServiceError(c, err, "retrieve assignment")
		return
	}
	c.JSON(http.StatusOK, assignment)
}

// ApplyCommand godoc
// @Summary Apply one command to the client's assignment
// @Description Commits the command under the session's role and returns the
// @Description resulting assignment. A command that changes nothing returns the current state.
// @Tags Assignment
// @Accept json
// @Produce json
// @Param command body CommandRequest true "Command"
// @Success 200 {object} domain.ClientWorkoutAssignment
// @Failure 400 {object} gin.H "Unknown or malformed command"
// @Failure 403 {object} gin.H "Command not available to the session"
// @Failure 404 {object} gin.H "No active assignment"
// @Failure 409 {object} gin.H "Concurrent edits kept winning"
// @Router /coach/clients/{clientId}/assignment/commands [post]
// @Router /share/{token}/assignment/commands [post]
func (h *AssignmentHandler) ApplyCommand(c *gin.Context) {
	clientID, err := getClientIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client.")
		return
	}
	role, err := getRoleFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return
	}

	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	cmd, err := req.Command()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	if !allowedFor(role, cmd) {
		abortWithError(c, http.StatusForbidden, "Command "+cmd.Name()+" is not available to this session.")
		return
	}

	if replace, ok := cmd.(progression.ReplaceExercise); ok {
		// prefer the catalog's copy of the exercise when it has one
		if ex, err := h.catalogService.GetExerciseByName(c.Request.Context(), replace.NewExercise.Name); err == nil {
			replace.NewExercise = domain.RefFromExercise(*ex)
			cmd = replace
		}
	}

	assignment, err := h.progressionService.Mutate(c.Request.Context(), clientID, role, cmd)
	if err != nil {
		abortWithServiceError(c, err, "apply command")
		return
	}
	c.JSON(http.StatusOK, assignment)
}

// GetWeekProgression returns the effective day list of one week.
func (h *AssignmentHandler) GetWeekProgression(c *gin.Context) {
	clientID, err := getClientIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client.")
		return
	}
	week, err := strconv.Atoi(c.Param("week"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid week number.")
		return
	}

	days, err := h.progressionService.GetWeekProgression(c.Request.Context(), clientID, week)
	if err != nil {
		abortWithServiceError(c, err, "retrieve week progression")
		return
	}
	c.JSON(http.StatusOK, gin.H{"weekNumber": week, "days": days})
}

// GetCurrentWeekVolume godoc
// @Summary Training volume of the current week per muscle group
// @Tags Volume
// @Produce json
// @Success 200 {object} volume.WeekVolume
// @Router /coach/clients/{clientId}/volume [get]
// @Router /share/{token}/volume [get]
func (h *AssignmentHandler) GetCurrentWeekVolume(c *gin.Context) {
	clientID, err := getClientIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client.")
		return
	}

	week, err := h.progressionService.GetCurrentWeekVolume(c.Request.Context(), clientID)
	if err != nil {
		abortWithServiceError(c, err, "aggregate volume")
		return
	}
	c.JSON(http.StatusOK, week)
}

// GetVolumeSeries godoc
// @Summary Training volume of every week, for charts
// @Tags Volume
// @Produce json
// @Param maxWeeks query int false "Limit the series to the first maxWeeks weeks"
// @Success 200 {array} volume.WeekVolume
// @Router /coach/clients/{clientId}/volume/series [get]
// @Router /share/{token}/volume/series [get]
func (h *AssignmentHandler) GetVolumeSeries(c *gin.Context) {
	clientID, err := getClientIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client.")
		return
	}
	maxWeeks, err := strconv.Atoi(c.DefaultQuery("maxWeeks", "0"))
	if err != nil || maxWeeks < 0 {
		abortWithError(c, http.StatusBadRequest, "Invalid maxWeeks.")
		return
	}

	series, err := h.progressionService.GetVolumeSeries(c.Request.Context(), clientID, maxWeeks)
	if err != nil {
		abortWithServiceError(c, err, "aggregate volume series")
		return
	}
	c.JSON(http.StatusOK, series)
}

// StreamEvents keeps the session's replica of the assignment current over
// server-sent events. Each "assignment" event carries a strictly newer version
// than the one before it.
func (h *AssignmentHandler) StreamEvents(c *gin.Context) {
	clientID, err := getClientIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client.")
		return
	}
	ctx := c.Request.Context()

	current, err := h.progressionService.GetAssignment(ctx, clientID)
	if err != nil && !errors.Is(err, service.ErrAssignmentNotFound) {
		abortWithServiceError(c, err, "retrieve assignment")
		return
	}

	replica := broadcast.NewReplica(current)
	changed := make(chan struct{}, 1)
	notify := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}
	if current != nil {
		notify()
	}

	sub, err := h.progressionService.OnAssignmentChanged(ctx, clientID, func(update *domain.ClientWorkoutAssignment) {
		if replica.Offer(update) {
			notify()
		}
	})
	if err != nil {
		abortWithServiceError(c, err, "subscribe to assignment")
		return
	}
	defer sub.Unsubscribe()

	logger := log.WithField("client", clientID.Hex())
	logger.Debug("event stream opened")
	defer logger.Debug("event stream closed")

	heartbeat := time.NewTicker(eventsHeartbeat)
	defer heartbeat.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	// headers go out before the first event, which may be a while
	c.Status(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-changed:
			c.SSEvent("assignment", replica.Current())
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"version": replica.Version()})
			return true
		}
	})
}
