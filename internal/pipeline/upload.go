package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/subvoc/subvoc/internal/metrics"
	"github.com/subvoc/subvoc/internal/quota"
	"github.com/subvoc/subvoc/internal/storage"
	"github.com/subvoc/subvoc/internal/tracing"
	"github.com/subvoc/subvoc/pkg/models"
)

// UploadInput is a validated-at-the-edge upload request.
type UploadInput struct {
	AccountID   string
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
	Language    string
	Style       *models.SubtitleStyle
}

// UploadResult carries the stored video plus the informational cost
// estimate shown to the caller. The estimate is not binding; the
// authoritative quota check happens again at processing start.
type UploadResult struct {
	Video                *models.Video
	EstimatedCost        float64
	RemainingFreeMinutes float64
}

// Upload validates the incoming media, probes its duration, checks the
// account can afford it, and persists both the object and its record.
// Validation failures reject before any side effect.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	span, ctx := tracing.StartSpan(ctx, "pipeline.upload")
	var opErr error
	defer func() { tracing.FinishWithError(span, opErr) }()

	if err := s.validateUpload(in); err != nil {
		opErr = err
		return nil, err
	}

	account, err := s.records.GetAccount(ctx, in.AccountID)
	if err != nil {
		opErr = fmt.Errorf("failed to load account: %w", err)
		return nil, opErr
	}

	dir, cleanup, err := s.workdir("upload")
	if err != nil {
		opErr = err
		return nil, err
	}
	defer cleanup()

	// Spool to disk first: duration probing needs a local file, and
	// we refuse to charge for media we could not measure.
	localPath := filepath.Join(dir, "source"+filepath.Ext(in.FileName))
	written, err := spoolUpload(localPath, in.Content, in.Size)
	if err != nil {
		opErr = err
		return nil, opErr
	}

	duration, err := s.media.ProbeDurationMinutes(ctx, localPath)
	if err != nil {
		opErr = &InputError{Reason: fmt.Sprintf("could not determine media duration: %v", err)}
		return nil, opErr
	}
	if duration > s.billing.MaxDurationMinutes {
		opErr = &InputError{Reason: fmt.Sprintf(
			"media is %.1f minutes long, maximum is %.1f", duration, s.billing.MaxDurationMinutes)}
		return nil, opErr
	}

	// Informational affordability check; re-checked authoritatively
	// when processing starts.
	if !quota.CanAfford(account, duration, s.billing.RatePerMinute) {
		metrics.QuotaRejectionsTotal.Inc()
		opErr = &QuotaError{
			RequiredMinutes:  quota.Round2(duration),
			RemainingMinutes: quota.RemainingFreeMinutes(account),
			AllowedMinutes:   quota.Round2(account.AllowedMinutes),
			EstimatedCost:    quota.EstimateCost(account, duration, s.billing.RatePerMinute),
		}
		return nil, opErr
	}

	videoID := uuid.New().String()
	objectKey := storage.VideoKey(videoID, filepath.Ext(in.FileName))

	if err := s.objects.UploadFile(ctx, objectKey, localPath); err != nil {
		metrics.StorageOperationsTotal.WithLabelValues("upload", "error").Inc()
		opErr = fmt.Errorf("failed to store video: %w", err)
		return nil, opErr
	}
	metrics.StorageOperationsTotal.WithLabelValues("upload", "success").Inc()

	video := &models.Video{
		ID:              videoID,
		AccountID:       in.AccountID,
		VideoURL:        s.objects.PublicURL(objectKey),
		OriginalName:    in.FileName,
		DurationMinutes: quota.Round2(duration),
		Language:        in.Language,
		Status:          models.VideoStatusUploaded,
		SubtitleStyle:   in.Style,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}

	if err := s.records.CreateVideo(ctx, video); err != nil {
		// The record is the source of truth; an orphaned object is
		// useless, so take it back out.
		if delErr := s.objects.Delete(ctx, objectKey); delErr != nil {
			s.log.LogCleanupFailure(objectKey, delErr)
		}
		metrics.VideoUploadsTotal.WithLabelValues("error").Inc()
		opErr = fmt.Errorf("failed to persist video record: %w", err)
		return nil, opErr
	}

	metrics.VideoUploadsTotal.WithLabelValues("success").Inc()
	metrics.VideoUploadSizeBytes.Observe(float64(written))

	s.log.WithVideoID(videoID).WithAccountID(in.AccountID).
		WithFields(map[string]interface{}{
			"duration_minutes": video.DurationMinutes,
			"language":         in.Language,
			"size_bytes":       written,
		}).Info("video uploaded")

	return &UploadResult{
		Video:                video,
		EstimatedCost:        quota.EstimateCost(account, duration, s.billing.RatePerMinute),
		RemainingFreeMinutes: quota.RemainingFreeMinutes(account),
	}, nil
}

func (s *Service) validateUpload(in UploadInput) error {
	if in.AccountID == "" {
		return &InputError{Reason: "missing account id"}
	}
	if in.FileName == "" {
		return &InputError{Reason: "missing file name"}
	}
	if in.Language == "" {
		return &InputError{Reason: "missing target language"}
	}
	if in.Size <= 0 {
		return &InputError{Reason: "empty upload"}
	}
	if in.Size > s.billing.MaxUploadBytes {
		return &InputError{Reason: fmt.Sprintf(
			"upload is %d bytes, maximum is %d", in.Size, s.billing.MaxUploadBytes)}
	}

	contentType := strings.ToLower(strings.TrimSpace(in.ContentType))
	for _, allowed := range s.billing.AllowedContentTypes {
		if contentType == allowed {
			return nil
		}
	}
	return &InputError{Reason: fmt.Sprintf("unsupported content type %q", in.ContentType)}
}

// spoolUpload copies the upload body to a local file, enforcing the
// declared size as a hard limit.
func spoolUpload(path string, r io.Reader, declaredSize int64) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create spool file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, io.LimitReader(r, declaredSize+1))
	if err != nil {
		return 0, fmt.Errorf("failed to spool upload: %w", err)
	}
	if written > declaredSize {
		return 0, &InputError{Reason: "upload body exceeds declared size"}
	}
	return written, nil
}
