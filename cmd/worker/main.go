package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/subvoc/subvoc/internal/cache"
	"github.com/subvoc/subvoc/internal/config"
	"github.com/subvoc/subvoc/internal/database"
	"github.com/subvoc/subvoc/internal/dubbing"
	"github.com/subvoc/subvoc/internal/logging"
	"github.com/subvoc/subvoc/internal/media"
	"github.com/subvoc/subvoc/internal/pipeline"
	"github.com/subvoc/subvoc/internal/queue"
	"github.com/subvoc/subvoc/internal/storage"
	"github.com/subvoc/subvoc/internal/tracing"
	"github.com/subvoc/subvoc/internal/transcribe"
	"github.com/subvoc/subvoc/pkg/models"
)

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
		_, closer, err := tracing.Init(cfg.Tracing.ServiceName+"-worker", cfg.Tracing.JaegerEndpoint)
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutting down worker")
		cancel()
	}()

	handler := func(req *models.ProcessRequest) error {
		if err := svc.HandleRequest(ctx, req); err != nil {
			reqLog := logger.WithRequestID(req.ID).WithVideoID(req.VideoID).WithError(err)
			if pipeline.IsFatalArtifact(err) {
				reqLog.Error("request failed on corrupt artifact, not retryable")
			} else {
				reqLog.Error("request failed")
			}
			return err
		}
		return nil
	}

	logger.Info("Worker started, waiting for requests")
	if err := q.ConsumeRequests(ctx, handler); err != nil {
		logger.Fatalf("Failed to consume requests: %v", err)
	}

	<-ctx.Done()
	logger.Info("Worker stopped")
}
