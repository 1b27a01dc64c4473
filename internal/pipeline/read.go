package pipeline

import (
	"context"
	"fmt"

	"github.com/subvoc/subvoc/internal/quota"
	"github.com/subvoc/subvoc/pkg/models"
)

// GetVideo returns a single video, served from cache when possible.
func (s *Service) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	return s.loadVideo(ctx, videoID)
}

// ListVideos returns all videos for an account with their subtitle
// languages attached.
func (s *Service) ListVideos(ctx context.Context, accountID string) ([]*VideoSummary, error) {
	videos, err := s.records.ListVideosByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}

	summaries := make([]*VideoSummary, 0, len(videos))
	for _, video := range videos {
		subtitles, err := s.records.ListSubtitlesByVideo(ctx, video.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list subtitles for video %s: %w", video.ID, err)
		}
		languages := make([]string, 0, len(subtitles))
		for _, sub := range subtitles {
			languages = append(languages, sub.Language)
		}
		summaries = append(summaries, &VideoSummary{
			Video:             video,
			SubtitleLanguages: languages,
		})
	}
	return summaries, nil
}

// VideoSummary is a video with its derived artifact languages, the
// shape the list endpoint returns.
type VideoSummary struct {
	Video             *models.Video `json:"video"`
	SubtitleLanguages []string      `json:"subtitle_languages"`
}

// ListSubtitles returns the caption artifacts for one video.
func (s *Service) ListSubtitles(ctx context.Context, videoID string) ([]*models.Subtitle, error) {
	return s.records.ListSubtitlesByVideo(ctx, videoID)
}

// Usage returns the account's rounded usage summary, cached between
// charges.
func (s *Service) Usage(ctx context.Context, accountID string) (*models.UsageSummary, error) {
	if s.cache != nil {
		if summary, err := s.cache.GetUsage(ctx, accountID); err == nil && summary != nil {
			return summary, nil
		}
	}

	account, err := s.records.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	summary := quota.Summarize(account, s.billing.RatePerMinute)
	if s.cache != nil {
		if err := s.cache.SetUsage(ctx, accountID, &summary); err != nil {
			s.log.WithError(err).WithAccountID(accountID).Warn("failed to cache usage summary")
		}
	}
	return &summary, nil
}
