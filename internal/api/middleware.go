package api

import (
	"alcyxob/coach-progression/internal/domain"
	"alcyxob/coach-progression/internal/metrics"
	"alcyxob/coach-progression/internal/service"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v9"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Constants for context keys
const (
	ContextClientIDKey = "clientID"
	ContextRoleKey     = "sessionRole"
)

// RequestRateLimiter is satisfied by *redis_rate.Limiter.
type RequestRateLimiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// SessionRole tags every request of a route group with the role its
// mutations are committed under.
func SessionRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

// ClientParamMiddleware resolves the :clientId path parameter of coach routes.
func ClientParamMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID, err := primitive.ObjectIDFromHex(c.Param("clientId"))
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid client ID format.")
			return
		}
		c.Set(ContextClientIDKey, clientID)
		c.Next()
	}
}

// ShareTokenMiddleware resolves the :token path parameter of share-link
// routes. The token is the only credential a client session carries.
func ShareTokenMiddleware(shareService service.ShareService) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID, err := shareService.Resolve(c.Param("token"))
		if err != nil {
			if errors.Is(err, service.ErrInvalidShareToken) {
				abortWithError(c, http.StatusUnauthorized, "Invalid or expired share link.")
			} else {
				abortWithError(c, http.StatusInternalServerError, "Failed to resolve share link.")
			}
			return
		}
		c.Set(ContextClientIDKey, clientID)
		c.Next()
	}
}

// RateLimitMiddleware limits each share link to allowedPerMin requests.
func RateLimitMiddleware(rateLimiter RequestRateLimiter, allowedPerMin int) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := rateLimiter.Allow(
			c.Request.Context(),
			"share:"+c.Param("token"),
			redis_rate.PerMinute(allowedPerMin),
		)
		if err != nil {
			log.Errorf("rate limit: %s", err)
			abortWithError(c, http.StatusInternalServerError, "rate limit internal error")
			return
		}

		if res.Allowed > 0 {
			c.Next()
			return
		}

		c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds()+0.5)))
		abortWithError(c, http.StatusTooManyRequests, fmt.Sprintf("retry after %f seconds", res.RetryAfter.Seconds()))
	}
}

// RequestMetrics counts and times every request.
func RequestMetrics(metricsManager *metrics.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metricsManager.HistRequestDuration.Observe(time.Since(start).Seconds())
		metricsManager.CounterRequests.WithLabelValues(c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Helper function to get the session's client from context (used by handlers)
func getClientIDFromContext(c *gin.Context) (primitive.ObjectID, error) {
	idRaw, exists := c.Get(ContextClientIDKey)
	if !exists {
		return primitive.NilObjectID, errors.New("client ID not found in context")
	}
	id, ok := idRaw.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("invalid client ID type in context")
	}
	return id, nil
}

func getRoleFromContext(c *gin.Context) (domain.Role, error) {
	roleRaw, exists := c.Get(ContextRoleKey)
	if !exists {
		return "", errors.New("session role not found in context")
	}
	role, ok := roleRaw.(domain.Role)
	if !ok {
		return "", errors.New("invalid session role type in context")
	}
	return role, nil
}
