package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/subvoc/subvoc/internal/metrics"
	"github.com/subvoc/subvoc/internal/storage"
	"github.com/subvoc/subvoc/internal/tracing"
	"github.com/subvoc/subvoc/pkg/models"
)

// GenerateSubtitles runs the full caption flow for a video: optional
// dubbing, transcription, translation, artifact upload, and usage
// accounting. It is the processing entry point for generate requests.
//
// The video must be in a status that admits processing; completed
// videos are rejected. Quota is re-checked here against the live
// account state even though upload already estimated it.
func (s *Service) GenerateSubtitles(ctx context.Context, videoID, language string, enableDubbing bool) (*models.Subtitle, error) {
	span, ctx := tracing.StartVideoSpan(ctx, "pipeline.generate_subtitles", videoID)
	var opErr error
	defer func() { tracing.FinishWithError(span, opErr) }()

	started := time.Now()
	video, err := s.loadVideo(ctx, videoID)
	if err != nil {
		opErr = fmt.Errorf("failed to load video %s: %w", videoID, err)
		return nil, opErr
	}

	if language == "" {
		language = video.Language
	}

	if !video.CanStartProcessing() {
		opErr = &InputError{Reason: fmt.Sprintf(
			"video %s has status %q; subtitles can only be generated from queued, uploaded, or failed", videoID, video.Status)}
		return nil, fmt.Errorf("%w: %w", ErrInvalidStatus, opErr)
	}

	account, err := s.checkQuota(ctx, video.AccountID, video.DurationMinutes)
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			metrics.QuotaRejectionsTotal.Inc()
		}
		opErr = err
		return nil, err
	}

	if err := s.transition(ctx, video, models.VideoStatusProcessing); err != nil {
		opErr = err
		return nil, err
	}

	subtitle, err := s.generate(ctx, video, language, enableDubbing)
	if err != nil {
		s.markFailed(ctx, video)
		metrics.SubtitleJobsTotal.WithLabelValues("failed").Inc()
		// Dub outcomes keep their identity; everything else is one
		// aggregate condition.
		if errors.Is(err, ErrDubFailed) || errors.Is(err, ErrDubTimedOut) || errors.Is(err, ErrDubCreationFailed) {
			opErr = err
			return nil, err
		}
		opErr = fmt.Errorf("%w: %w", ErrSubtitleGeneration, err)
		return nil, opErr
	}

	// Billable work is done; charge before declaring success so a
	// completed video always has its usage on the ledger.
	charge, err := s.records.RecordUsage(ctx, account.ID, video.DurationMinutes, s.billing.RatePerMinute)
	if err != nil {
		s.markFailed(ctx, video)
		metrics.SubtitleJobsTotal.WithLabelValues("failed").Inc()
		opErr = fmt.Errorf("failed to record usage: %w", err)
		return nil, opErr
	}
	s.log.LogUsageCharge(account.ID, charge.Minutes, charge.BillableMinutes, charge.Cost)
	s.invalidateUsage(ctx, account.ID)
	metrics.MinutesChargedTotal.Add(charge.Minutes)
	metrics.BillableCostTotal.Add(charge.Cost)

	if err := s.transition(ctx, video, models.VideoStatusCompleted); err != nil {
		opErr = err
		return nil, err
	}

	metrics.SubtitleJobsTotal.WithLabelValues("success").Inc()
	metrics.PipelineJobDuration.WithLabelValues(models.RequestKindSubtitles).Observe(time.Since(started).Seconds())

	return subtitle, nil
}

// generate performs the fallible middle of the flow. The caller owns
// status transitions and accounting.
func (s *Service) generate(ctx context.Context, video *models.Video, language string, enableDubbing bool) (*models.Subtitle, error) {
	dir, cleanup, err := s.workdir("subtitles")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	sourceURL := video.VideoURL
	translated := true

	if enableDubbing {
		dubbedURL, err := s.dubAndFetch(ctx, video, language)
		if err != nil {
			return nil, err
		}
		// Dubbed audio is already in the target language; the
		// transcript comes out localized without a translation pass.
		sourceURL = dubbedURL
		translated = false
	}

	sourceKey, err := s.objects.ObjectKey(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve object key from %s: %w", sourceURL, err)
	}

	localVideo := filepath.Join(dir, "source"+filepath.Ext(video.OriginalName))
	if err := s.objects.DownloadFile(ctx, sourceKey, localVideo); err != nil {
		return nil, fmt.Errorf("failed to download source media: %w", err)
	}

	srt, err := s.scriber.Transcribe(ctx, localVideo)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	if translated && language != "" {
		srt, err = s.scriber.Translate(ctx, srt, language)
		if err != nil {
			return nil, fmt.Errorf("translation failed: %w", err)
		}
	}

	subtitleKey := storage.SubtitleKey(video.ID, language)
	if err := s.objects.Upload(ctx, subtitleKey, strings.NewReader(srt), int64(len(srt)), "text/plain"); err != nil {
		return nil, fmt.Errorf("failed to store subtitles: %w", err)
	}

	subtitle := &models.Subtitle{
		ID:        uuid.New().String(),
		VideoID:   video.ID,
		URL:       s.objects.PublicURL(subtitleKey),
		Format:    models.SubtitleFormatSRT,
		Language:  language,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.records.CreateSubtitle(ctx, subtitle); err != nil {
		if delErr := s.objects.Delete(ctx, subtitleKey); delErr != nil {
			s.log.LogCleanupFailure(subtitleKey, delErr)
		}
		return nil, fmt.Errorf("failed to persist subtitle record: %w", err)
	}

	s.log.WithVideoID(video.ID).WithFields(map[string]interface{}{
		"language": language,
		"url":      subtitle.URL,
		"dubbed":   enableDubbing,
	}).Info("subtitles generated")

	return subtitle, nil
}

// dubAndFetch runs the create/wait/fetch dub sequence and returns the
// durable dubbed video URL.
func (s *Service) dubAndFetch(ctx context.Context, video *models.Video, language string) (string, error) {
	if video.DubbedVideoURL != "" {
		return video.DubbedVideoURL, nil
	}

	job, err := s.StartDub(ctx, video, language)
	if err != nil {
		return "", err
	}

	if _, err := s.WaitForDub(ctx, job.ID); err != nil {
		return "", err
	}

	return s.CompleteDub(ctx, video)
}
