package api

import (
	"alcyxob/coach-progression/internal/domain"
	"alcyxob/coach-progression/internal/metrics"
	"alcyxob/coach-progression/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shareBasePath = "/api/v1/share"

// RouteParams carries what SetupRoutes wires into the router.
type RouteParams struct {
	Metrics        *metrics.Manager
	Gatherer       prometheus.Gatherer
	RateLimiter    RequestRateLimiter
	SharePerMinute int

	ProgressionService service.ProgressionService
	RosterService      service.RosterService
	CatalogService     service.CatalogService
	ShareService       service.ShareService
}

func SetupRoutes(router *gin.Engine, p RouteParams) {
	assignmentHandler := NewAssignmentHandler(p.ProgressionService, p.CatalogService)
	coachHandler := NewCoachHandler(p.ProgressionService, p.RosterService, p.ShareService)
	catalogHandler := NewCatalogHandler(p.CatalogService)

	router.Use(RequestMetrics(p.Metrics))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{})))

	apiV1 := router.Group("/api/v1")

	// --- Coach session ---
	coach := apiV1.Group("/coach")
	coach.Use(SessionRole(domain.RoleCoach))
	{
		coach.POST("/clients", coachHandler.AddClient)
		coach.POST("/programs", coachHandler.CreateProgram)
		coach.GET("/programs/:programId", coachHandler.GetProgram)

		coach.POST("/catalog", catalogHandler.CreateExercise)
		coach.GET("/catalog/:name", catalogHandler.GetExercise)

		client := coach.Group("/clients/:clientId")
		client.Use(ClientParamMiddleware())
		{
			client.GET("", coachHandler.GetClient)
			client.POST("/assignments", coachHandler.CreateAssignment)
			client.GET("/archives/:assignmentId", coachHandler.GetArchiveURL)
			client.POST("/share-link", coachHandler.CreateShareLink)
			registerAssignmentRoutes(client, assignmentHandler)
		}
	}

	// --- Share-link session ---
	share := router.Group(shareBasePath + "/:token")
	share.Use(
		RateLimitMiddleware(p.RateLimiter, p.SharePerMinute),
		ShareTokenMiddleware(p.ShareService),
		SessionRole(domain.RoleClient),
	)
	registerAssignmentRoutes(share, assignmentHandler)
}

// registerAssignmentRoutes adds the routes both sessions share.
func registerAssignmentRoutes(group *gin.RouterGroup, h *AssignmentHandler) {
	group.GET("/assignment", h.GetAssignment)
	group.POST("/assignment/commands", h.ApplyCommand)
	group.GET("/assignment/weeks/:week", h.GetWeekProgression)
	group.GET("/volume", h.GetCurrentWeekVolume)
	group.GET("/volume/series", h.GetVolumeSeries)
	group.GET("/events", h.StreamEvents)
}
