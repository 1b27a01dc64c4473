package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/subvoc/subvoc/internal/cache"
	"github.com/subvoc/subvoc/internal/config"
	"github.com/subvoc/subvoc/internal/database"
	"github.com/subvoc/subvoc/internal/dubbing"
	"github.com/subvoc/subvoc/internal/logging"
	"github.com/subvoc/subvoc/internal/media"
	"github.com/subvoc/subvoc/internal/middleware"
	"github.com/subvoc/subvoc/internal/pipeline"
	"github.com/subvoc/subvoc/internal/queue"
	"github.com/subvoc/subvoc/internal/storage"
	"github.com/subvoc/subvoc/internal/tracing"
	"github.com/subvoc/subvoc/internal/transcribe"
	"github.com/subvoc/subvoc/pkg/models"
)

// broker is the queue surface the handlers use.
type broker interface {
	PublishRequest(ctx context.Context, req *models.ProcessRequest) error
	GetQueueDepth() (int, error)
	GetDeadLetterDepth() (int, error)
}

// API bundles the handler dependencies.
type API struct {
	repo     *database.Repository
	pipeline *pipeline.Service
	queue    broker
	db       *database.DB
	cache    *cache.Cache
	log      *logging.Logger
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewDefaultLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if cfg.Tracing.Enabled {
		_, closer, err := tracing.Init(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
		if err != nil {
			logger.Fatalf("Failed to initialize tracing: %v", err)
		}
		defer closer.Close()
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	repo := database.NewRepository(db)

	stor, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	redisCache, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, running without cache")
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	if err := q.SetupDeadLetterQueue(); err != nil {
		logger.Fatalf("Failed to set up dead letter queue: %v", err)
	}

	ffmpeg := media.NewFFmpeg(cfg.Pipeline.FFmpegPath, cfg.Pipeline.FFprobePath)
	scriber := transcribe.New(cfg.Providers.OpenAIAPIKey, cfg.Providers.TranslationModel, logger)
	dubber := dubbing.New(cfg.Providers.DubbingAPIURL, cfg.Providers.DubbingAPIKey, logger)

	var recordCache pipeline.RecordCache
	if redisCache != nil {
		recordCache = redisCache
	}
	svc, err := pipeline.New(repo, stor, scriber, dubber, ffmpeg, recordCache,
		cfg.Billing, cfg.Pipeline, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize pipeline: %v", err)
	}

	api := &API{
		repo:     repo,
		pipeline: svc,
		queue:    q,
		db:       db,
		cache:    redisCache,
		log:      logger,
	}

	router := setupRouter(api, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped")
}

func setupRouter(api *API, cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(api.log))

	router.GET("/health", api.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.APIKeyAuth(api.repo))
	v1.Use(middleware.RateLimit(limiter))
	{
		v1.GET("/users/me", api.getUsage)

		v1.POST("/videos/upload", api.uploadVideo)
		v1.GET("/videos", api.listVideos)
		v1.GET("/videos/:id", api.getVideo)
		v1.DELETE("/videos/:id", api.deleteVideo)

		v1.POST("/videos/:id/generate_subtitles", api.generateSubtitles)
		v1.POST("/videos/:id/burn_in", api.burnIn)
		v1.GET("/videos/:id/dubbing", api.dubbingStatus)
		v1.GET("/videos/:id/subtitles", api.listSubtitles)

		v1.GET("/queue/depth", api.queueDepth)
	}

	return router
}

func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := api.db.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
