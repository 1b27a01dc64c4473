package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/subvoc/subvoc/internal/config"
)

// Key namespaces by artifact purpose.
const (
	PrefixVideos    = "videos"
	PrefixSubtitles = "subtitles"
	PrefixDubbed    = "dubbed_videos"
	PrefixProcessed = "processed_videos"
)

const timestampLayout = "20060102_150405"

// Storage provides object storage operations
type Storage struct {
	client        *minio.Client
	bucketName    string
	publicBaseURL string
}

// New creates a new storage client
func New(cfg config.StorageConfig) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	// Ensure bucket exists
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	publicBase := cfg.PublicBaseURL
	if publicBase == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicBase = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.BucketName)
	}

	return &Storage{
		client:        client,
		bucketName:    cfg.BucketName,
		publicBaseURL: strings.TrimRight(publicBase, "/"),
	}, nil
}

// Upload uploads an object from a reader
func (s *Storage) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}

	return nil
}

// UploadFile uploads a file from the local filesystem
func (s *Storage) UploadFile(ctx context.Context, objectName, filePath string) error {
	contentType := getContentType(filePath)

	_, err := s.client.FPutObject(ctx, s.bucketName, objectName, filePath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	return nil
}

// DownloadFile downloads an object to the local filesystem
func (s *Storage) DownloadFile(ctx context.Context, objectName, filePath string) error {
	err := s.client.FGetObject(ctx, s.bucketName, objectName, filePath, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}

	return nil
}

// Delete deletes an object from storage
func (s *Storage) Delete(ctx context.Context, objectName string) error {
	err := s.client.RemoveObject(ctx, s.bucketName, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// PublicURL returns the public URL for an object key
func (s *Storage) PublicURL(objectName string) string {
	return s.publicBaseURL + "/" + objectName
}

// ObjectKey extracts the object key from a public URL: the path
// remainder after the bucket-name segment. This is the inverse of
// PublicURL regardless of the endpoint or path prefix in front of the
// bucket.
func (s *Storage) ObjectKey(rawURL string) (string, error) {
	return objectKeyFromURL(rawURL, s.bucketName)
}

func objectKeyFromURL(rawURL, bucket string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid storage URL %q: %w", rawURL, err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, part := range parts {
		if part == bucket && i+1 < len(parts) {
			return strings.Join(parts[i+1:], "/"), nil
		}
	}

	return "", fmt.Errorf("bucket %q not found in storage URL %q", bucket, rawURL)
}

// VideoKey builds the storage key for an uploaded source video.
func VideoKey(videoID, ext string) string {
	return fmt.Sprintf("%s/%s_%s%s", PrefixVideos, timestamp(), shortID(videoID), ext)
}

// SubtitleKey builds the storage key for a generated caption file.
func SubtitleKey(videoID, language string) string {
	return fmt.Sprintf("%s/%s_%s_%s.srt", PrefixSubtitles, timestamp(), shortID(videoID), language)
}

// DubbedKey builds the storage key for a fetched dubbed video.
func DubbedKey(videoID, language string) string {
	return fmt.Sprintf("%s/%s_%s_dubbed_%s.mp4", PrefixDubbed, timestamp(), shortID(videoID), language)
}

// ProcessedKey builds the storage key for a subtitle-burned video.
func ProcessedKey(videoID, language string) string {
	return fmt.Sprintf("%s/%s_%s_subtitled_%s.mp4", PrefixProcessed, timestamp(), shortID(videoID), language)
}

func timestamp() string {
	return time.Now().Format(timestampLayout)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// getContentType returns the MIME type based on file extension
func getContentType(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".mp4":
		return "video/mp4"
	case ".avi":
		return "video/x-msvideo"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	case ".srt":
		return "application/x-subrip"
	case ".ass":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
