package pipeline

import (
	"context"
	"fmt"

	"github.com/subvoc/subvoc/internal/metrics"
	"github.com/subvoc/subvoc/internal/tracing"
)

// Delete removes a video, its caption artifacts, and every derived
// object. Artifact deletions are collected, never fatal: one failed
// object delete must not leave the record behind. Provider-side job
// cleanup is best-effort.
func (s *Service) Delete(ctx context.Context, videoID string) error {
	span, ctx := tracing.StartVideoSpan(ctx, "pipeline.delete", videoID)
	var opErr error
	defer func() { tracing.FinishWithError(span, opErr) }()

	video, err := s.records.GetVideo(ctx, videoID)
	if err != nil {
		opErr = err
		return err
	}

	if video.DubbingID != "" {
		if err := s.dubber.DeleteJob(ctx, video.DubbingID); err != nil {
			s.log.LogCleanupFailure("dubbing job "+video.DubbingID, err)
		}
	}

	subtitles, err := s.records.ListSubtitlesByVideo(ctx, videoID)
	if err != nil {
		opErr = fmt.Errorf("failed to list subtitles for video %s: %w", videoID, err)
		return opErr
	}

	urls := []string{video.VideoURL, video.DubbedVideoURL, video.BurnedVideoURL}
	for _, sub := range subtitles {
		urls = append(urls, sub.URL)
	}

	for _, url := range urls {
		if url == "" {
			continue
		}
		key, err := s.objects.ObjectKey(url)
		if err != nil {
			s.log.LogCleanupFailure(url, err)
			continue
		}
		if err := s.objects.Delete(ctx, key); err != nil {
			metrics.StorageOperationsTotal.WithLabelValues("delete", "error").Inc()
			s.log.LogCleanupFailure(key, err)
			continue
		}
		metrics.StorageOperationsTotal.WithLabelValues("delete", "success").Inc()
	}

	// Record deletion cascades to subtitle rows. This is the one step
	// that must succeed.
	if err := s.records.DeleteVideo(ctx, videoID); err != nil {
		opErr = fmt.Errorf("failed to delete video record %s: %w", videoID, err)
		return opErr
	}
	s.invalidateVideo(ctx, videoID)

	s.log.WithVideoID(videoID).WithField("artifacts", len(urls)).Info("video deleted")
	return nil
}
