package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/subvoc/subvoc/internal/media"
	"github.com/subvoc/subvoc/internal/metrics"
	"github.com/subvoc/subvoc/internal/storage"
	"github.com/subvoc/subvoc/internal/tracing"
	"github.com/subvoc/subvoc/pkg/models"
)

// BurnIn renders the video's subtitles into its pixels and stores the
// result. It requires a completed video with an existing caption
// artifact in the requested language; when dubbed audio was applied,
// the dubbed video is the burn source.
//
// Structural failures while preparing the styled markup are fatal
// (the artifact is corrupt, there is no fallback); the video is
// marked failed.
func (s *Service) BurnIn(ctx context.Context, videoID, language string) (string, error) {
	span, ctx := tracing.StartVideoSpan(ctx, "pipeline.burn_in", videoID)
	var opErr error
	defer func() { tracing.FinishWithError(span, opErr) }()

	started := time.Now()
	video, err := s.loadVideo(ctx, videoID)
	if err != nil {
		opErr = fmt.Errorf("failed to load video %s: %w", videoID, err)
		return "", opErr
	}

	if language == "" {
		language = video.Language
	}

	if video.Status != models.VideoStatusCompleted {
		opErr = &InputError{Reason: fmt.Sprintf(
			"video %s has status %q; burn-in requires generated subtitles on a completed video", videoID, video.Status)}
		return "", fmt.Errorf("%w: %w", ErrInvalidStatus, opErr)
	}

	subtitle, err := s.findSubtitle(ctx, videoID, language)
	if err != nil {
		opErr = err
		return "", err
	}

	burnedURL, err := s.burn(ctx, video, subtitle, language)
	if err != nil {
		s.markFailed(ctx, video)
		metrics.BurnInJobsTotal.WithLabelValues("failed").Inc()
		opErr = err
		return "", err
	}

	if err := s.records.UpdateVideoBurnedURL(ctx, videoID, burnedURL); err != nil {
		opErr = fmt.Errorf("failed to persist burned video url: %w", err)
		return "", opErr
	}
	video.BurnedVideoURL = burnedURL
	s.invalidateVideo(ctx, videoID)

	metrics.BurnInJobsTotal.WithLabelValues("success").Inc()
	metrics.PipelineJobDuration.WithLabelValues(models.RequestKindBurnIn).Observe(time.Since(started).Seconds())

	s.log.WithVideoID(videoID).WithField("url", burnedURL).Info("subtitles burned in")
	return burnedURL, nil
}

func (s *Service) findSubtitle(ctx context.Context, videoID, language string) (*models.Subtitle, error) {
	subtitles, err := s.records.ListSubtitlesByVideo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subtitles for video %s: %w", videoID, err)
	}
	for _, sub := range subtitles {
		if sub.Language == language {
			return sub, nil
		}
	}
	return nil, &InputError{Reason: fmt.Sprintf(
		"video %s has no %s subtitles; generate them first", videoID, language)}
}

// burn is the fallible middle: download, style, encode, upload.
func (s *Service) burn(ctx context.Context, video *models.Video, subtitle *models.Subtitle, language string) (string, error) {
	dir, cleanup, err := s.workdir("burnin")
	if err != nil {
		return "", err
	}
	defer cleanup()

	// Dubbed audio supersedes the original as the burn source.
	sourceURL := video.VideoURL
	if video.IsDubbedAudio && video.DubbedVideoURL != "" {
		sourceURL = video.DubbedVideoURL
	}

	sourceKey, err := s.objects.ObjectKey(sourceURL)
	if err != nil {
		return "", fmt.Errorf("failed to resolve video object key: %w", err)
	}
	subtitleKey, err := s.objects.ObjectKey(subtitle.URL)
	if err != nil {
		return "", fmt.Errorf("failed to resolve subtitle object key: %w", err)
	}

	localVideo := filepath.Join(dir, "source.mp4")
	if err := s.objects.DownloadFile(ctx, sourceKey, localVideo); err != nil {
		return "", fmt.Errorf("failed to download source video: %w", err)
	}

	localSRT := filepath.Join(dir, "captions.srt")
	if err := s.objects.DownloadFile(ctx, subtitleKey, localSRT); err != nil {
		return "", fmt.Errorf("failed to download subtitles: %w", err)
	}

	_, height, err := s.media.ProbeResolution(ctx, localVideo)
	if err != nil {
		return "", fmt.Errorf("failed to probe video resolution: %w", err)
	}

	rawASS := filepath.Join(dir, "captions.ass")
	if err := s.media.ConvertSubtitle(ctx, localSRT, rawASS); err != nil {
		return "", fmt.Errorf("%w: srt to ass conversion failed: %w", ErrCorruptArtifact, err)
	}

	styledASS, err := s.styleASS(rawASS, video.SubtitleStyle, language, media.DefaultFontSize(height))
	if err != nil {
		return "", err
	}

	output := filepath.Join(dir, "burned.mp4")
	if err := s.media.BurnSubtitles(ctx, localVideo, styledASS, output); err != nil {
		return "", fmt.Errorf("burn-in encode failed: %w", err)
	}

	processedKey := storage.ProcessedKey(video.ID, language)
	if err := s.objects.UploadFile(ctx, processedKey, output); err != nil {
		return "", fmt.Errorf("failed to store burned video: %w", err)
	}

	return s.objects.PublicURL(processedKey), nil
}

// styleASS splices the compiled style block into the converted ASS
// document and writes the result next to the input.
func (s *Service) styleASS(assPath string, spec *models.SubtitleStyle, language string, baseSize float64) (string, error) {
	raw, err := os.ReadFile(assPath)
	if err != nil {
		return "", fmt.Errorf("failed to read converted subtitles: %w", err)
	}

	compiled := s.compiler.Compile(spec, language, baseSize)
	styled, err := media.ReplaceStyleSection(string(raw), compiled.Section())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCorruptArtifact, err)
	}

	styledPath := filepath.Join(filepath.Dir(assPath), "styled.ass")
	if err := os.WriteFile(styledPath, []byte(styled), 0o644); err != nil {
		return "", fmt.Errorf("failed to write styled subtitles: %w", err)
	}
	return styledPath, nil
}

// IsFatalArtifact reports whether err is the non-retryable corrupt
// artifact condition.
func IsFatalArtifact(err error) bool {
	return errors.Is(err, ErrCorruptArtifact)
}
