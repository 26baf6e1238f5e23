package main

import (
	"alcyxob/coach-progression/internal/api"
	"alcyxob/coach-progression/internal/broadcast"
	"alcyxob/coach-progression/internal/config"
	"alcyxob/coach-progression/internal/logging"
	"alcyxob/coach-progression/internal/metrics"
	"alcyxob/coach-progression/internal/repository/mongo"
	"alcyxob/coach-progression/internal/service"
	"alcyxob/coach-progression/internal/storage"
	"alcyxob/coach-progression/internal/store"
	"alcyxob/coach-progression/internal/volume"
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

// @title Coach Progression API
// @version 1.0
// @description Workout assignment progression and volume sync for coaches and their clients.
// @BasePath /api/v1
func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	// --- Configuration ---
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("could not load config: %s", err)
	}
	if cfg.Share.Secret == "" {
		log.Fatalln("share.secret (SHARE_SECRET) must be set")
	}

	logging.Setup(logging.LoggerSetupParams{
		LogFileName:   cfg.Log.File,
		LogToStdout:   cfg.Log.ToStdout,
		LogLevel:      cfg.Log.Level,
		LogFormatJSON: cfg.Log.JSON,
	})
	log.Infoln("starting coach progression server ...")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("could not connect to mongodb: %s", err)
	}
	defer func() {
		log.Infoln("disconnecting mongodb ...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Errorf("failed to disconnect mongodb: %s", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		mongo.EnsureIndexes(ctx, appDB)
	}()

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Errorf("failed to close redis client: %s", err)
		}
	}()
	if status := rdb.Ping(context.Background()); status.Err() != nil {
		log.Errorf("--> failed to ping redis: %s", status.Err())
	} else {
		log.Debugf("redis ping: %s", status.Val())
	}

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricsManager := metrics.NewManager("coach", "server", reg)

	// --- Archive storage ---
	var archive storage.ArchiveStorage
	if cfg.S3.Disabled {
		log.Warnln("s3 archive disabled, replaced assignments are not archived")
		archive = storage.NewDisabledStorage()
	} else {
		archive, err = storage.NewS3Storage(context.Background(), cfg.S3)
		if err != nil {
			log.Fatalf("failed to initialize s3 storage: %s", err)
		}
	}

	// --- Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	exerciseRepo := mongo.NewMongoExerciseRepository(appDB)
	programRepo := mongo.NewMongoProgramRepository(appDB)
	assignmentRepo := mongo.NewMongoAssignmentRepository(appDB)

	// --- Synchronization channel ---
	var channel broadcast.Channel
	switch cfg.Sync.Transport {
	case config.TransportPush:
		channel = broadcast.NewPushChannel(mongo.NewAssignmentChangeFeed(appDB), cfg.Sync.PollInterval, metricsManager)
	default:
		channel = broadcast.NewPollingChannel(broadcast.NewRedisKeyValue(rdb, cfg.Sync.StateTTL), cfg.Sync.PollInterval, metricsManager)
	}
	log.Infof("sync transport: %s", cfg.Sync.Transport)

	// --- Services ---
	catalogService := service.NewCatalogService(exerciseRepo, cfg.Catalog.CacheMegabytes, cfg.Catalog.CacheTTL, metricsManager)
	aggregator := volume.NewAggregator(catalogService, volume.Observers{
		volume.LogObserver{},
		volume.NewMetricsObserver(metricsManager),
	})
	progressionService := service.NewProgressionService(
		store.NewProgressionStore(assignmentRepo),
		assignmentRepo,
		userRepo,
		programRepo,
		channel,
		aggregator,
		archive,
		metricsManager,
		cfg.Sync.MaxCommitRetries,
	)
	rosterService := service.NewRosterService(userRepo, programRepo, catalogService)
	shareService := service.NewShareService(userRepo, cfg.Share.Secret, cfg.Share.Expiration)

	// --- Gin Engine ---
	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.GinMode != gin.ReleaseMode {
		router.Use(gin.Logger())
	}

	api.SetupRoutes(router, api.RouteParams{
		Metrics:            metricsManager,
		Gatherer:           reg,
		RateLimiter:        redis_rate.NewLimiter(rdb),
		SharePerMinute:     cfg.Share.RatePerMinute,
		ProgressionService: progressionService,
		RosterService:      rosterService,
		CatalogService:     catalogService,
		ShareService:       shareService,
	})

	// --- Start HTTP Server ---
	// request contexts derive from baseCtx so event streams end on shutdown
	baseCtx, cancelBase := context.WithCancel(context.Background())
	server := &http.Server{
		Addr:        cfg.Server.Address,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// no WriteTimeout: event streams stay open
		IdleTimeout: 120 * time.Second,
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(cancelBase)

	go func() {
		log.Infof("server starting on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe error: %s", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infoln("shutting down server ...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Errorf("server forced to shutdown: %s", err)
	}

	log.Infoln("server exiting")
}
