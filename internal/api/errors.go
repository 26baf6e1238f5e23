package api

import (
	"alcyxob/coach-progression/internal/service"
	"alcyxob/coach-progression/internal/storage"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// abortWithServiceError maps service sentinel errors to HTTP status codes.
// Anything unknown is logged and reported as "Failed to <action>.".
func abortWithServiceError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, service.ErrClientNotFound),
		errors.Is(err, service.ErrTemplateNotFound),
		errors.Is(err, service.ErrExerciseNotFound),
		errors.Is(err, service.ErrArchiveNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConcurrentEdit),
		errors.Is(err, service.ErrExerciseExists):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCommand),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrValidationFailed),
		errors.Is(err, service.ErrClientNotRole):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrArchiveDisabled):
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	default:
		log.Errorf("failed to %s: %s", action, err)
		abortWithError(c, http.StatusInternalServerError, "Failed to "+action+".")
	}
}
