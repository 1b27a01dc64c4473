package models

import (
	"time"
)

// Subtitle represents a generated caption artifact for one video and
// one language.
type Subtitle struct {
	ID        string    `json:"id" db:"id"`
	VideoID   string    `json:"video_id" db:"video_id"`
	URL       string    `json:"url" db:"url"`
	Format    string    `json:"format" db:"format"`
	Language  string    `json:"language" db:"language"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SubtitleFormatSRT is the only caption format produced today.
const SubtitleFormatSRT = "srt"
