package models

import (
	"time"
)

// Video represents an uploaded media asset tracked through its
// localization lifecycle.
type Video struct {
	ID              string         `json:"id" db:"id"`
	AccountID       string         `json:"account_id" db:"account_id"`
	VideoURL        string         `json:"video_url" db:"video_url"`
	OriginalName    string         `json:"original_name" db:"original_name"`
	DurationMinutes float64        `json:"duration_minutes" db:"duration_minutes"`
	Language        string         `json:"language" db:"language"`
	Status          string         `json:"status" db:"status"`
	DubbingID       string         `json:"dubbing_id,omitempty" db:"dubbing_id"`
	DubLanguage     string         `json:"dub_language,omitempty" db:"dub_language"`
	DubbedVideoURL  string         `json:"dubbed_video_url,omitempty" db:"dubbed_video_url"`
	BurnedVideoURL  string         `json:"burned_video_url,omitempty" db:"burned_video_url"`
	IsDubbedAudio   bool           `json:"is_dubbed_audio" db:"is_dubbed_audio"`
	SubtitleStyle   *SubtitleStyle `json:"subtitle_style,omitempty" db:"subtitle_style"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// VideoStatus constants
const (
	VideoStatusQueued     = "queued"
	VideoStatusUploaded   = "uploaded"
	VideoStatusProcessing = "processing"
	VideoStatusCompleted  = "completed"
	VideoStatusFailed     = "failed"
)

// CanStartProcessing reports whether a processing request may be
// accepted in the video's current status. Completed videos are not
// reprocessable; failed ones may be retried.
func (v *Video) CanStartProcessing() bool {
	switch v.Status {
	case VideoStatusQueued, VideoStatusUploaded, VideoStatusFailed:
		return true
	default:
		return false
	}
}
