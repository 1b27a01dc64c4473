package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/subvoc/subvoc/internal/quota"
	"github.com/subvoc/subvoc/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Accounts

// CreateAccount creates a new account record
func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.APIKey == "" {
		account.APIKey = uuid.New().String()
	}

	query := `
		INSERT INTO accounts (id, email, api_key, minutes_consumed, free_minutes_used, total_cost, allowed_minutes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		account.ID, account.Email, account.APIKey, account.MinutesConsumed,
		account.FreeMinutesUsed, account.TotalCost, account.AllowedMinutes, account.IsActive,
	).Scan(&account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetAccount retrieves an account by ID
func (r *Repository) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return r.getAccountBy(ctx, "id", id)
}

// GetAccountByAPIKey retrieves an account by its API key
func (r *Repository) GetAccountByAPIKey(ctx context.Context, apiKey string) (*models.Account, error) {
	return r.getAccountBy(ctx, "api_key", apiKey)
}

func (r *Repository) getAccountBy(ctx context.Context, column, value string) (*models.Account, error) {
	var account models.Account

	query := fmt.Sprintf(`
		SELECT id, email, api_key, minutes_consumed, free_minutes_used, total_cost,
		       allowed_minutes, is_active, created_at, updated_at
		FROM accounts
		WHERE %s = $1
	`, column)

	err := r.db.Pool.QueryRow(ctx, query, value).Scan(
		&account.ID, &account.Email, &account.APIKey, &account.MinutesConsumed,
		&account.FreeMinutesUsed, &account.TotalCost, &account.AllowedMinutes,
		&account.IsActive, &account.CreatedAt, &account.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// RecordUsage charges the given duration against an account inside a
// transaction that locks the account row. The lock serializes
// concurrent read-modify-write cycles so free minutes cannot be
// double-spent.
func (r *Repository) RecordUsage(ctx context.Context, accountID string, minutes, ratePerMinute float64) (quota.Charge, error) {
	if minutes < 0 {
		return quota.Charge{}, quota.ErrNegativeDuration
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return quota.Charge{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var account models.Account
	err = tx.QueryRow(ctx, `
		SELECT id, minutes_consumed, free_minutes_used, total_cost, allowed_minutes
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, accountID).Scan(
		&account.ID, &account.MinutesConsumed, &account.FreeMinutesUsed,
		&account.TotalCost, &account.AllowedMinutes,
	)
	if err == pgx.ErrNoRows {
		return quota.Charge{}, ErrNotFound
	}
	if err != nil {
		return quota.Charge{}, fmt.Errorf("failed to lock account for usage update: %w", err)
	}

	charge, err := quota.Apply(&account, minutes, ratePerMinute)
	if err != nil {
		return quota.Charge{}, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE accounts
		SET minutes_consumed = $2, free_minutes_used = $3, total_cost = $4, updated_at = now()
		WHERE id = $1
	`, account.ID, account.MinutesConsumed, account.FreeMinutesUsed, account.TotalCost)
	if err != nil {
		return quota.Charge{}, fmt.Errorf("failed to update account usage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return quota.Charge{}, fmt.Errorf("failed to commit usage update: %w", err)
	}

	return charge, nil
}

// Videos

// CreateVideo creates a new video record
func (r *Repository) CreateVideo(ctx context.Context, video *models.Video) error {
	if video.ID == "" {
		video.ID = uuid.New().String()
	}

	query := `
		INSERT INTO videos (id, account_id, video_url, original_name, duration_minutes, language,
		                    status, dubbing_id, dub_language, dubbed_video_url, burned_video_url,
		                    is_dubbed_audio, subtitle_style)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		video.ID, video.AccountID, video.VideoURL, video.OriginalName,
		video.DurationMinutes, video.Language, video.Status, video.DubbingID,
		video.DubLanguage, video.DubbedVideoURL, video.BurnedVideoURL,
		video.IsDubbedAudio, video.SubtitleStyle,
	).Scan(&video.CreatedAt, &video.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}

	return nil
}

// GetVideo retrieves a video by ID
func (r *Repository) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	var video models.Video
	video.SubtitleStyle = &models.SubtitleStyle{}

	query := `
		SELECT id, account_id, video_url, original_name, duration_minutes, language,
		       status, dubbing_id, dub_language, dubbed_video_url, burned_video_url,
		       is_dubbed_audio, subtitle_style, created_at, updated_at
		FROM videos
		WHERE id = $1
	`

	var styleRaw []byte
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&video.ID, &video.AccountID, &video.VideoURL, &video.OriginalName,
		&video.DurationMinutes, &video.Language, &video.Status, &video.DubbingID,
		&video.DubLanguage, &video.DubbedVideoURL, &video.BurnedVideoURL,
		&video.IsDubbedAudio, &styleRaw, &video.CreatedAt, &video.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	if styleRaw == nil {
		video.SubtitleStyle = nil
	} else if err := video.SubtitleStyle.Scan(styleRaw); err != nil {
		return nil, fmt.Errorf("failed to decode subtitle style: %w", err)
	}

	return &video, nil
}

// ListVideosByAccount retrieves all videos owned by an account,
// newest first.
func (r *Repository) ListVideosByAccount(ctx context.Context, accountID string) ([]*models.Video, error) {
	query := `
		SELECT id, account_id, video_url, original_name, duration_minutes, language,
		       status, dubbing_id, dub_language, dubbed_video_url, burned_video_url,
		       is_dubbed_audio, subtitle_style, created_at, updated_at
		FROM videos
		WHERE account_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		var video models.Video
		var styleRaw []byte
		err := rows.Scan(
			&video.ID, &video.AccountID, &video.VideoURL, &video.OriginalName,
			&video.DurationMinutes, &video.Language, &video.Status, &video.DubbingID,
			&video.DubLanguage, &video.DubbedVideoURL, &video.BurnedVideoURL,
			&video.IsDubbedAudio, &styleRaw, &video.CreatedAt, &video.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		if styleRaw != nil {
			video.SubtitleStyle = &models.SubtitleStyle{}
			if err := video.SubtitleStyle.Scan(styleRaw); err != nil {
				return nil, fmt.Errorf("failed to decode subtitle style: %w", err)
			}
		}
		videos = append(videos, &video)
	}

	return videos, nil
}

// UpdateVideoStatus updates a video's lifecycle status
func (r *Repository) UpdateVideoStatus(ctx context.Context, id, status string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE videos SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update video status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateVideoDubbing persists dubbing job state on a video. The job's
// target language is stored alongside the job id so completion always
// fetches the track the job was created for.
func (r *Repository) UpdateVideoDubbing(ctx context.Context, id, dubbingID, dubLanguage, dubbedURL string, isDubbedAudio bool) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE videos
		SET dubbing_id = $2, dub_language = $3, dubbed_video_url = $4, is_dubbed_audio = $5, updated_at = now()
		WHERE id = $1
	`, id, dubbingID, dubLanguage, dubbedURL, isDubbedAudio)
	if err != nil {
		return fmt.Errorf("failed to update video dubbing info: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateVideoBurnedURL persists the burned-in artifact URL on a video
func (r *Repository) UpdateVideoBurnedURL(ctx context.Context, id, burnedURL string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE videos SET burned_video_url = $2, updated_at = now() WHERE id = $1
	`, id, burnedURL)
	if err != nil {
		return fmt.Errorf("failed to update burned video URL: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteVideo deletes a video record. Subtitles are removed by the
// ON DELETE CASCADE constraint.
func (r *Repository) DeleteVideo(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Subtitles

// CreateSubtitle creates a new subtitle record
func (r *Repository) CreateSubtitle(ctx context.Context, subtitle *models.Subtitle) error {
	if subtitle.ID == "" {
		subtitle.ID = uuid.New().String()
	}

	query := `
		INSERT INTO subtitles (id, video_id, url, format, language)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		subtitle.ID, subtitle.VideoID, subtitle.URL, subtitle.Format, subtitle.Language,
	).Scan(&subtitle.CreatedAt, &subtitle.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create subtitle: %w", err)
	}

	return nil
}

// GetSubtitle retrieves a subtitle by ID
func (r *Repository) GetSubtitle(ctx context.Context, id string) (*models.Subtitle, error) {
	var subtitle models.Subtitle

	query := `
		SELECT id, video_id, url, format, language, created_at, updated_at
		FROM subtitles
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&subtitle.ID, &subtitle.VideoID, &subtitle.URL, &subtitle.Format,
		&subtitle.Language, &subtitle.CreatedAt, &subtitle.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subtitle: %w", err)
	}

	return &subtitle, nil
}

// ListSubtitlesByVideo retrieves all subtitles belonging to a video
func (r *Repository) ListSubtitlesByVideo(ctx context.Context, videoID string) ([]*models.Subtitle, error) {
	query := `
		SELECT id, video_id, url, format, language, created_at, updated_at
		FROM subtitles
		WHERE video_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subtitles: %w", err)
	}
	defer rows.Close()

	return scanSubtitles(rows)
}

// ListSubtitlesByAccount retrieves all subtitles for an account's videos
func (r *Repository) ListSubtitlesByAccount(ctx context.Context, accountID string) ([]*models.Subtitle, error) {
	query := `
		SELECT s.id, s.video_id, s.url, s.format, s.language, s.created_at, s.updated_at
		FROM subtitles s
		JOIN videos v ON v.id = s.video_id
		WHERE v.account_id = $1
		ORDER BY s.created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subtitles: %w", err)
	}
	defer rows.Close()

	return scanSubtitles(rows)
}

func scanSubtitles(rows pgx.Rows) ([]*models.Subtitle, error) {
	var subtitles []*models.Subtitle
	for rows.Next() {
		var subtitle models.Subtitle
		err := rows.Scan(
			&subtitle.ID, &subtitle.VideoID, &subtitle.URL, &subtitle.Format,
			&subtitle.Language, &subtitle.CreatedAt, &subtitle.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subtitle: %w", err)
		}
		subtitles = append(subtitles, &subtitle)
	}
	return subtitles, nil
}
