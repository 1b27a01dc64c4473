package models

import (
	"time"
)

// ProcessRequest is a queued unit of processing work for one video.
type ProcessRequest struct {
	ID            string    `json:"id"`
	VideoID       string    `json:"video_id"`
	AccountID     string    `json:"account_id"`
	Kind          string    `json:"kind"`
	Language      string    `json:"language"`
	EnableDubbing bool      `json:"enable_dubbing"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProcessRequest kinds
const (
	RequestKindSubtitles = "generate_subtitles"
	RequestKindBurnIn    = "burn_in"
)
