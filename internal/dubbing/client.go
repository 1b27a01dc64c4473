// Package dubbing talks to the external dubbing provider's HTTP API:
// job creation, status polling, result retrieval, and cleanup.
package dubbing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/subvoc/subvoc/internal/logging"
	"github.com/subvoc/subvoc/pkg/models"
)

const authHeader = "xi-api-key"

// Client is an HTTP client for the dubbing provider API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logging.Logger
}

// New creates a dubbing client. baseURL is the provider's dubbing
// endpoint root, e.g. https://api.elevenlabs.io/v1/dubbing.
func New(baseURL, apiKey string, log *logging.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		log:        log,
	}
}

type createResponse struct {
	DubbingID           string  `json:"dubbing_id"`
	ExpectedDurationSec float64 `json:"expected_duration_sec"`
}

type statusResponse struct {
	DubbingID     string `json:"dubbing_id"`
	Status        string `json:"status"`
	Error         string `json:"error"`
	MediaMetadata struct {
		Duration float64 `json:"duration"`
	} `json:"media_metadata"`
}

// CreateJob submits a new dubbing job for the media at sourceURL and
// returns the provider's job handle. A 2xx response without a job id
// is treated as a failure.
func (c *Client) CreateJob(ctx context.Context, sourceURL, targetLanguage string) (*models.DubJob, error) {
	var body strings.Builder
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("source_url", sourceURL); err != nil {
		return nil, fmt.Errorf("failed to build dubbing request: %w", err)
	}
	if err := writer.WriteField("target_lang", targetLanguage); err != nil {
		return nil, fmt.Errorf("failed to build dubbing request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build dubbing request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(body.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to build dubbing request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(authHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dubbing job creation failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("dubbing job creation returned status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	var created createResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode dubbing response: %w", err)
	}
	if created.DubbingID == "" {
		return nil, fmt.Errorf("dubbing provider accepted the job but returned no job id")
	}

	c.log.WithDubbingID(created.DubbingID).Info("dubbing job created")

	return &models.DubJob{
		ID:                  created.DubbingID,
		ExpectedDurationSec: created.ExpectedDurationSec,
	}, nil
}

// PollStatus fetches the current state of a dubbing job. Provider
// statuses are folded into the three internal states; anything
// unrecognized counts as still pending.
func (c *Client) PollStatus(ctx context.Context, jobID string) (*models.DubStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	req.Header.Set(authHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dubbing status poll failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("dubbing status poll returned status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	result := &models.DubStatus{
		JobID:       jobID,
		DurationSec: status.MediaMetadata.Duration,
		Error:       status.Error,
	}

	switch status.Status {
	case "dubbed":
		result.State = models.DubStateComplete
	case "failed":
		result.State = models.DubStateFailed
	case "dubbing":
		result.State = models.DubStatePending
	default:
		c.log.WithDubbingID(jobID).WithField("status", status.Status).Warn("unrecognized dubbing status, treating as pending")
		result.State = models.DubStatePending
	}

	return result, nil
}

// FetchResult streams the dubbed audio/video for a completed job into
// destPath.
func (c *Client) FetchResult(ctx context.Context, jobID, language, destPath string) error {
	url := fmt.Sprintf("%s/%s/audio/%s", c.baseURL, jobID, language)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build result request: %w", err)
	}
	req.Header.Set(authHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dubbing result fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("dubbing result fetch returned status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create result file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to stream dubbing result: %w", err)
	}

	c.log.WithDubbingID(jobID).WithField("bytes", written).Debug("dubbing result downloaded")
	return nil
}

// DeleteJob removes a job from the provider. Callers treat failures
// here as best-effort cleanup, but the error is still reported.
func (c *Client) DeleteJob(ctx context.Context, jobID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/"+jobID, nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	req.Header.Set(authHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dubbing job deletion failed: %w", err)
	}
	defer resp.Body.Close()

	// A job the provider no longer knows about is already deleted.
	if resp.StatusCode != http.StatusNotFound && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return fmt.Errorf("dubbing job deletion returned status %d", resp.StatusCode)
	}

	return nil
}

func readErrorBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
