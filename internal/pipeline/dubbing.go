package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/subvoc/subvoc/internal/metrics"
	"github.com/subvoc/subvoc/internal/storage"
	"github.com/subvoc/subvoc/internal/tracing"
	"github.com/subvoc/subvoc/pkg/models"
)

// StartDub creates a provider dubbing job for the video and persists
// the job handle on the record.
func (s *Service) StartDub(ctx context.Context, video *models.Video, language string) (*models.DubJob, error) {
	span, ctx := tracing.StartVideoSpan(ctx, "pipeline.start_dub", video.ID)
	var opErr error
	defer func() { tracing.FinishWithError(span, opErr) }()

	job, err := s.dubber.CreateJob(ctx, video.VideoURL, language)
	if err != nil {
		metrics.DubbingJobsTotal.WithLabelValues("create_failed").Inc()
		opErr = fmt.Errorf("%w: %w", ErrDubCreationFailed, err)
		return nil, opErr
	}

	if err := s.records.UpdateVideoDubbing(ctx, video.ID, job.ID, language, video.DubbedVideoURL, video.IsDubbedAudio); err != nil {
		opErr = fmt.Errorf("failed to persist dubbing job id: %w", err)
		return nil, opErr
	}
	video.DubbingID = job.ID
	video.DubLanguage = language
	s.invalidateVideo(ctx, video.ID)

	metrics.DubbingJobsTotal.WithLabelValues("created").Inc()
	s.log.WithVideoID(video.ID).WithDubbingID(job.ID).
		WithField("expected_duration_sec", job.ExpectedDurationSec).
		Info("dubbing job started")

	return job, nil
}

// PollDub issues a single status poll for the video's dubbing job.
// Stateless; the poll budget lives in WaitForDub.
func (s *Service) PollDub(ctx context.Context, video *models.Video) (*models.DubStatus, error) {
	if video.DubbingID == "" {
		return nil, &InputError{Reason: fmt.Sprintf("video %s has no dubbing job", video.ID)}
	}

	metrics.DubbingPollsTotal.Inc()
	status, err := s.dubber.PollStatus(ctx, video.DubbingID)
	if err != nil {
		return nil, fmt.Errorf("failed to poll dubbing job %s: %w", video.DubbingID, err)
	}
	return status, nil
}

// WaitForDub polls the job until it leaves pending, the poll budget is
// exhausted, or ctx is cancelled. Budget exhaustion is DubTimedOut,
// never DubFailed: the provider may still finish the job later.
func (s *Service) WaitForDub(ctx context.Context, jobID string) (*models.DubStatus, error) {
	started := time.Now()
	defer func() {
		metrics.DubbingWaitDuration.Observe(time.Since(started).Seconds())
	}()

	ticker := time.NewTicker(s.cfg.DubPollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= s.cfg.DubPollAttempts; attempt++ {
		metrics.DubbingPollsTotal.Inc()
		status, err := s.dubber.PollStatus(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("failed to poll dubbing job %s: %w", jobID, err)
		}

		switch status.State {
		case models.DubStateComplete:
			metrics.DubbingJobsTotal.WithLabelValues("success").Inc()
			s.log.WithDubbingID(jobID).WithField("attempts", attempt).Info("dubbing job complete")
			return status, nil
		case models.DubStateFailed:
			metrics.DubbingJobsTotal.WithLabelValues("failed").Inc()
			if status.Error != "" {
				return nil, fmt.Errorf("%w: %s", ErrDubFailed, status.Error)
			}
			return nil, ErrDubFailed
		}

		s.log.WithDubbingID(jobID).WithFields(map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": s.cfg.DubPollAttempts,
		}).Debug("dubbing job still pending")

		if attempt == s.cfg.DubPollAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	metrics.DubbingJobsTotal.WithLabelValues("timeout").Inc()
	return nil, fmt.Errorf("%w after %d polls", ErrDubTimedOut, s.cfg.DubPollAttempts)
}

// CompleteDub fetches the dubbed media for a finished job, stores it
// durably, and caches the URL on the video. Repeat calls short-circuit
// on the cached URL without touching the provider.
//
// The track fetched is the one the job was created for: the language
// recorded by StartDub, never the caller's idea of it. A dub requested
// in a language other than the video's own still resolves correctly.
func (s *Service) CompleteDub(ctx context.Context, video *models.Video) (string, error) {
	span, ctx := tracing.StartVideoSpan(ctx, "pipeline.complete_dub", video.ID)
	var opErr error
	defer func() { tracing.FinishWithError(span, opErr) }()

	if video.DubbedVideoURL != "" {
		return video.DubbedVideoURL, nil
	}
	if video.DubbingID == "" {
		opErr = &InputError{Reason: fmt.Sprintf("video %s has no dubbing job", video.ID)}
		return "", opErr
	}

	language := video.DubLanguage
	if language == "" {
		// Jobs created before the target language was recorded.
		language = video.Language
	}

	status, err := s.PollDub(ctx, video)
	if err != nil {
		opErr = err
		return "", err
	}
	switch status.State {
	case models.DubStateFailed:
		if status.Error != "" {
			opErr = fmt.Errorf("%w: %s", ErrDubFailed, status.Error)
		} else {
			opErr = ErrDubFailed
		}
		return "", opErr
	case models.DubStatePending:
		opErr = fmt.Errorf("%w: job %s is still pending", ErrDubNotReady, video.DubbingID)
		return "", opErr
	}

	dir, cleanup, err := s.workdir("dub")
	if err != nil {
		opErr = err
		return "", err
	}
	defer cleanup()

	localPath := filepath.Join(dir, "dubbed.mp4")
	if err := s.dubber.FetchResult(ctx, video.DubbingID, language, localPath); err != nil {
		opErr = fmt.Errorf("failed to fetch dubbing result: %w", err)
		return "", opErr
	}

	dubbedKey := storage.DubbedKey(video.ID, language)
	if err := s.objects.UploadFile(ctx, dubbedKey, localPath); err != nil {
		opErr = fmt.Errorf("failed to store dubbed video: %w", err)
		return "", opErr
	}

	dubbedURL := s.objects.PublicURL(dubbedKey)
	if err := s.records.UpdateVideoDubbing(ctx, video.ID, video.DubbingID, language, dubbedURL, true); err != nil {
		opErr = fmt.Errorf("failed to persist dubbed video url: %w", err)
		return "", opErr
	}
	video.DubbedVideoURL = dubbedURL
	video.IsDubbedAudio = true
	s.invalidateVideo(ctx, video.ID)

	s.log.WithVideoID(video.ID).WithDubbingID(video.DubbingID).
		WithField("url", dubbedURL).Info("dubbed video stored")

	return dubbedURL, nil
}
