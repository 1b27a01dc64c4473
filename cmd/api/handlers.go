package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/subvoc/subvoc/internal/database"
	"github.com/subvoc/subvoc/internal/metrics"
	"github.com/subvoc/subvoc/internal/middleware"
	"github.com/subvoc/subvoc/internal/pipeline"
	"github.com/subvoc/subvoc/pkg/models"
)

// writeError maps pipeline errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, pipeline.ErrQuotaExceeded):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrInvalidInput), errors.Is(err, pipeline.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrDubNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrDubFailed), errors.Is(err, pipeline.ErrDubTimedOut):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// ownedVideo loads a video and verifies it belongs to the caller.
// Foreign videos get a 404, not a 403: ids are not enumerable.
func (api *API) ownedVideo(c *gin.Context) (*models.Video, *models.Account, bool) {
	account, ok := middleware.GetAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return nil, nil, false
	}

	video, err := api.pipeline.GetVideo(c.Request.Context(), c.Param("id"))
	if err != nil || video.AccountID != account.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
		return nil, nil, false
	}
	return video, account, true
}

// POST /api/v1/videos/upload
func (api *API) uploadVideo(c *gin.Context) {
	account, ok := middleware.GetAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	file, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no video file provided"})
		return
	}

	var styleSpec *models.SubtitleStyle
	if raw := c.PostForm("subtitle_style"); raw != "" {
		styleSpec = &models.SubtitleStyle{}
		if err := json.Unmarshal([]byte(raw), styleSpec); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed subtitle_style"})
			return
		}
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable video file"})
		return
	}
	defer src.Close()

	result, err := api.pipeline.Upload(c.Request.Context(), pipeline.UploadInput{
		AccountID:   account.ID,
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Content:     src,
		Language:    c.PostForm("language"),
		Style:       styleSpec,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"video":                  result.Video,
		"estimated_cost":         result.EstimatedCost,
		"remaining_free_minutes": result.RemainingFreeMinutes,
	})
}

// GET /api/v1/videos
func (api *API) listVideos(c *gin.Context) {
	account, ok := middleware.GetAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	summaries, err := api.pipeline.ListVideos(c.Request.Context(), account.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": summaries})
}

// GET /api/v1/videos/:id
func (api *API) getVideo(c *gin.Context) {
	video, _, ok := api.ownedVideo(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, video)
}

// DELETE /api/v1/videos/:id
func (api *API) deleteVideo(c *gin.Context) {
	video, _, ok := api.ownedVideo(c)
	if !ok {
		return
	}

	if err := api.pipeline.Delete(c.Request.Context(), video.ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "video deleted"})
}

type processBody struct {
	Language      string `json:"language"`
	EnableDubbing bool   `json:"enable_dubbing"`
}

// enqueue publishes a processing request and answers 202. The worker
// re-validates status and quota when it picks the request up.
func (api *API) enqueue(c *gin.Context, video *models.Video, account *models.Account, kind string, body processBody) {
	language := body.Language
	if language == "" {
		language = video.Language
	}

	req := &models.ProcessRequest{
		ID:            uuid.New().String(),
		VideoID:       video.ID,
		AccountID:     account.ID,
		Kind:          kind,
		Language:      language,
		EnableDubbing: body.EnableDubbing,
		CreatedAt:     time.Now().UTC(),
	}

	if err := api.queue.PublishRequest(c.Request.Context(), req); err != nil {
		api.log.WithError(err).WithVideoID(video.ID).Error("failed to enqueue request")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue request"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"request_id": req.ID,
		"video_id":   video.ID,
		"kind":       kind,
		"language":   language,
	})
}

// POST /api/v1/videos/:id/generate_subtitles
func (api *API) generateSubtitles(c *gin.Context) {
	video, account, ok := api.ownedVideo(c)
	if !ok {
		return
	}

	// Body is optional; defaults fall back to the video's language.
	var body processBody
	_ = c.ShouldBindJSON(&body)

	if !video.CanStartProcessing() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "subtitles can only be generated from queued, uploaded, or failed status",
		})
		return
	}

	api.enqueue(c, video, account, models.RequestKindSubtitles, body)
}

// POST /api/v1/videos/:id/burn_in
func (api *API) burnIn(c *gin.Context) {
	video, account, ok := api.ownedVideo(c)
	if !ok {
		return
	}

	var body processBody
	_ = c.ShouldBindJSON(&body)

	if video.Status != models.VideoStatusCompleted {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "burn-in requires generated subtitles on a completed video",
		})
		return
	}

	api.enqueue(c, video, account, models.RequestKindBurnIn, body)
}

// GET /api/v1/videos/:id/dubbing
//
// Polls the provider once. When the job just completed, the dubbed
// media is fetched and stored as part of answering, so the response
// always carries the durable URL once available.
func (api *API) dubbingStatus(c *gin.Context) {
	video, _, ok := api.ownedVideo(c)
	if !ok {
		return
	}

	if video.DubbedVideoURL != "" {
		c.JSON(http.StatusOK, gin.H{
			"state":            models.DubStateComplete,
			"dubbed_video_url": video.DubbedVideoURL,
		})
		return
	}
	if video.DubbingID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "video has no dubbing job"})
		return
	}

	status, err := api.pipeline.PollDub(c.Request.Context(), video)
	if err != nil {
		writeError(c, err)
		return
	}

	if status.State == models.DubStateComplete {
		url, err := api.pipeline.CompleteDub(c.Request.Context(), video)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"state":            models.DubStateComplete,
			"dubbed_video_url": url,
		})
		return
	}

	resp := gin.H{"state": status.State}
	if status.Error != "" {
		resp["error"] = status.Error
	}
	c.JSON(http.StatusOK, resp)
}

// GET /api/v1/videos/:id/subtitles
func (api *API) listSubtitles(c *gin.Context) {
	video, _, ok := api.ownedVideo(c)
	if !ok {
		return
	}

	subtitles, err := api.pipeline.ListSubtitles(c.Request.Context(), video.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subtitles": subtitles})
}

// GET /api/v1/users/me
func (api *API) getUsage(c *gin.Context) {
	account, ok := middleware.GetAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	summary, err := api.pipeline.Usage(c.Request.Context(), account.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GET /api/v1/queue/depth
func (api *API) queueDepth(c *gin.Context) {
	depth, err := api.queue.GetQueueDepth()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue unavailable"})
		return
	}
	metrics.QueueDepth.Set(float64(depth))

	dlqDepth, err := api.queue.GetDeadLetterDepth()
	if err != nil {
		dlqDepth = -1
	}
	c.JSON(http.StatusOK, gin.H{"depth": depth, "dead_letter_depth": dlqDepth})
}
