// Package pipeline is the video lifecycle controller: it sequences
// upload validation, subtitle generation, dubbing orchestration, and
// burn-in across the record store, object store, and external
// providers, and keeps quota accounting exact along the way.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/subvoc/subvoc/internal/config"
	"github.com/subvoc/subvoc/internal/logging"
	"github.com/subvoc/subvoc/internal/quota"
	"github.com/subvoc/subvoc/internal/style"
	"github.com/subvoc/subvoc/pkg/models"
)

// RecordStore is the persistence surface the controller needs.
// *database.Repository satisfies it.
type RecordStore interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	RecordUsage(ctx context.Context, accountID string, minutes, ratePerMinute float64) (quota.Charge, error)

	CreateVideo(ctx context.Context, video *models.Video) error
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	ListVideosByAccount(ctx context.Context, accountID string) ([]*models.Video, error)
	UpdateVideoStatus(ctx context.Context, id, status string) error
	UpdateVideoDubbing(ctx context.Context, id, dubbingID, dubLanguage, dubbedURL string, isDubbedAudio bool) error
	UpdateVideoBurnedURL(ctx context.Context, id, burnedURL string) error
	DeleteVideo(ctx context.Context, id string) error

	CreateSubtitle(ctx context.Context, subtitle *models.Subtitle) error
	ListSubtitlesByVideo(ctx context.Context, videoID string) ([]*models.Subtitle, error)
}

// ObjectStore is the durable artifact storage surface. *storage.Storage
// satisfies it.
type ObjectStore interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	UploadFile(ctx context.Context, objectName, filePath string) error
	DownloadFile(ctx context.Context, objectName, filePath string) error
	Delete(ctx context.Context, objectName string) error
	PublicURL(objectName string) string
	ObjectKey(rawURL string) (string, error)
}

// Transcriber produces SRT captions and translates them.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
	Translate(ctx context.Context, srtContent, targetLanguage string) (string, error)
}

// DubProvider is the external dubbing job API.
type DubProvider interface {
	CreateJob(ctx context.Context, sourceURL, targetLanguage string) (*models.DubJob, error)
	PollStatus(ctx context.Context, jobID string) (*models.DubStatus, error)
	FetchResult(ctx context.Context, jobID, language, destPath string) error
	DeleteJob(ctx context.Context, jobID string) error
}

// MediaToolkit is the local ffmpeg/ffprobe surface.
type MediaToolkit interface {
	ProbeDurationMinutes(ctx context.Context, path string) (float64, error)
	ProbeResolution(ctx context.Context, path string) (int, int, error)
	ConvertSubtitle(ctx context.Context, inputPath, outputPath string) error
	BurnSubtitles(ctx context.Context, inputPath, assPath, outputPath string) error
}

// RecordCache is the read-path cache for videos and usage summaries.
// *cache.Cache satisfies it; a nil cache disables caching.
type RecordCache interface {
	GetVideo(ctx context.Context, videoID string) (*models.Video, error)
	SetVideo(ctx context.Context, video *models.Video) error
	InvalidateVideo(ctx context.Context, videoID string) error
	GetUsage(ctx context.Context, accountID string) (*models.UsageSummary, error)
	SetUsage(ctx context.Context, accountID string, summary *models.UsageSummary) error
	InvalidateUsage(ctx context.Context, accountID string) error
}

// Service sequences the localization pipeline. All collaborators are
// injected; Service holds no mutable state of its own beyond them.
type Service struct {
	records  RecordStore
	objects  ObjectStore
	scriber  Transcriber
	dubber   DubProvider
	media    MediaToolkit
	cache    RecordCache
	compiler *style.Compiler
	billing  config.BillingConfig
	cfg      config.PipelineConfig
	log      *logging.Logger
}

// New constructs the pipeline service. cache may be nil.
func New(
	records RecordStore,
	objects ObjectStore,
	scriber Transcriber,
	dubber DubProvider,
	media MediaToolkit,
	cache RecordCache,
	billing config.BillingConfig,
	cfg config.PipelineConfig,
	log *logging.Logger,
) (*Service, error) {
	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir %s: %w", cfg.TempDir, err)
	}

	return &Service{
		records:  records,
		objects:  objects,
		scriber:  scriber,
		dubber:   dubber,
		media:    media,
		cache:    cache,
		compiler: style.NewCompiler(cfg.DefaultFontName, log),
		billing:  billing,
		cfg:      cfg,
		log:      log,
	}, nil
}

// workdir creates a per-task scratch directory under the configured
// temp root. The returned cleanup runs on every exit path.
func (s *Service) workdir(prefix string) (string, func(), error) {
	dir, err := os.MkdirTemp(s.cfg.TempDir, prefix+"-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			s.log.LogCleanupFailure(dir, err)
		}
	}
	return dir, cleanup, nil
}

// loadVideo reads a video through the cache when one is configured.
func (s *Service) loadVideo(ctx context.Context, videoID string) (*models.Video, error) {
	if s.cache != nil {
		if video, err := s.cache.GetVideo(ctx, videoID); err == nil && video != nil {
			return video, nil
		}
	}

	video, err := s.records.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetVideo(ctx, video); err != nil {
			s.log.WithError(err).WithVideoID(videoID).Warn("failed to cache video")
		}
	}
	return video, nil
}

// transition persists a status change and invalidates the cached copy.
func (s *Service) transition(ctx context.Context, video *models.Video, to string) error {
	if err := s.records.UpdateVideoStatus(ctx, video.ID, to); err != nil {
		return fmt.Errorf("failed to move video %s to %s: %w", video.ID, to, err)
	}
	s.log.LogStatusTransition(video.ID, video.Status, to)
	video.Status = to
	s.invalidateVideo(ctx, video.ID)
	return nil
}

// markFailed is the failure path for processing tasks. A video that
// was in processing never reverts to queued.
func (s *Service) markFailed(ctx context.Context, video *models.Video) {
	if err := s.transition(ctx, video, models.VideoStatusFailed); err != nil {
		s.log.WithError(err).WithVideoID(video.ID).Error("failed to mark video failed")
	}
}

func (s *Service) invalidateVideo(ctx context.Context, videoID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateVideo(ctx, videoID); err != nil {
		s.log.WithError(err).WithVideoID(videoID).Warn("failed to invalidate cached video")
	}
}

func (s *Service) invalidateUsage(ctx context.Context, accountID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUsage(ctx, accountID); err != nil {
		s.log.WithError(err).WithAccountID(accountID).Warn("failed to invalidate cached usage")
	}
}

// checkQuota is the authoritative affordability gate. It reads the
// account fresh so that free-minute consumption between upload and
// processing start is observed.
func (s *Service) checkQuota(ctx context.Context, accountID string, minutes float64) (*models.Account, error) {
	account, err := s.records.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", accountID, err)
	}

	if !quota.CanAfford(account, minutes, s.billing.RatePerMinute) {
		return nil, &QuotaError{
			RequiredMinutes:  quota.Round2(minutes),
			RemainingMinutes: quota.RemainingFreeMinutes(account),
			AllowedMinutes:   quota.Round2(account.AllowedMinutes),
			EstimatedCost:    quota.EstimateCost(account, minutes, s.billing.RatePerMinute),
		}
	}
	return account, nil
}
