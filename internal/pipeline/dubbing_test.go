package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subvoc/subvoc/pkg/models"
)

func TestStartDub(t *testing.T) {
	env := newTestEnv(t)
	env.addAccount("acct-1", 50, 0)
	video := env.addVideo("vid-1", "acct-1", models.VideoStatusProcessing, 10)

	job, err := env.svc.StartDub(context.Background(), video, "es")
	require.NoError(t, err)
	assert.Equal(t, "dub-1", job.ID)
	assert.Equal(t, "dub-1", env.records.videos["vid-1"].DubbingID)
	assert.Equal(t, "es", env.records.videos["vid-1"].DubLanguage)
}

func TestStartDubCreationFailed(t *testing.T) {
	env := newTestEnv(t)
	env.addAccount("acct-1", 50, 0)
	video := env.addVideo("vid-1", "acct-1", models.VideoStatusProcessing, 10)
	env.dubber.createErr = errors.New("provider returned no job id")

	_, err := env.svc.StartDub(context.Background(), video, "es")
	assert.ErrorIs(t, err, ErrDubCreationFailed)
	assert.Empty(t, env.records.videos["vid-1"].DubbingID)
}

func TestWaitForDubCompletes(t *testing.T) {
	env := newTestEnv(t)
	env.dubber.statuses = []models.DubStatus{
		{State: models.DubStatePending},
		{State: models.DubStatePending},
		{State: models.DubStateComplete, DurationSec: 95},
	}

	status, err := env.svc.WaitForDub(context.Background(), "dub-1")
	require.NoError(t, err)
	assert.Equal(t, models.DubStateComplete, status.State)
	assert.Equal(t, float64(95), status.DurationSec)
	assert.Equal(t, 3, env.dubber.polls)
}

func TestWaitForDubTimesOut(t *testing.T) {
	env := newTestEnv(t)
	env.dubber.statuses = []models.DubStatus{{State: models.DubStatePending}}

	_, err := env.svc.WaitForDub(context.Background(), "dub-1")
	require.ErrorIs(t, err, ErrDubTimedOut)
	assert.NotErrorIs(t, err, ErrDubFailed)
	// Budget from config: exactly DubPollAttempts polls, no more.
	assert.Equal(t, 3, env.dubber.polls)
}

func TestWaitForDubFailed(t *testing.T) {
	env := newTestEnv(t)
	env.dubber.statuses = []models.DubStatus{{State: models.DubStateFailed, Error: "audio too short"}}

	_, err := env.svc.WaitForDub(context.Background(), "dub-1")
	require.ErrorIs(t, err, ErrDubFailed)
	assert.NotErrorIs(t, err, ErrDubTimedOut)
	assert.Contains(t, err.Error(), "audio too short")
	assert.Equal(t, 1, env.dubber.polls)
}

func TestWaitForDubCancelled(t *testing.T) {
	env := newTestEnv(t)
	env.dubber.statuses = []models.DubStatus{{State: models.DubStatePending}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.svc.WaitForDub(ctx, "dub-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompleteDubNotReady(t *testing.T) {
	env := newTestEnv(t)
	env.addAccount("acct-1", 50, 0)
	video := env.addVideo("vid-1", "acct-1", models.VideoStatusProcessing, 10)
	video.DubbingID = "dub-1"
	env.records.videos["vid-1"].DubbingID = "dub-1"
	env.dubber.statuses = []models.DubStatus{{State: models.DubStatePending}}

	_, err := env.svc.CompleteDub(context.Background(), video)
	require.ErrorIs(t, err, ErrDubNotReady)
	assert.Zero(t, env.dubber.fetches)
}

func TestCompleteDub(t *testing.T) {
	env := newTestEnv(t)
	env.addAccount("acct-1", 50, 0)
	video := env.addVideo("vid-1", "acct-1", models.VideoStatusProcessing, 10)
	video.DubbingID = "dub-1"
	video.DubLanguage = "es"
	env.records.videos["vid-1"].DubbingID = "dub-1"
	env.records.videos["vid-1"].DubLanguage = "es"

	url, err := env.svc.CompleteDub(context.Background(), video)
	require.NoError(t, err)
	assert.Contains(t, url, "dubbed_videos/")
	assert.Contains(t, url, "_dubbed_es")
	assert.Equal(t, 1, env.dubber.fetches)

	stored := env.records.videos["vid-1"]
	assert.Equal(t, url, stored.DubbedVideoURL)
	assert.True(t, stored.IsDubbedAudio)
}

// A dub requested in a language other than the video's own must be
// fetched and stored under the job's language, regardless of which
// path completes it.
func TestCompleteDubUsesJobLanguage(t *testing.T) {
	env := newTestEnv(t)
	env.addAccount("acct-1", 50, 0)
	video := env.addVideo("vid-1", "acct-1", models.VideoStatusProcessing, 10)
	require.Equal(t, "es", video.Language)

	_, err := env.svc.StartDub(context.Background(), video, "fr")
	require.NoError(t, err)
	assert.Equal(t, "fr", env.records.videos["vid-1"].DubLanguage)

	url, err := env.svc.CompleteDub(context.Background(), video)
	require.NoError(t, err)
	assert.Equal(t, []string{"fr"}, env.dubber.fetchedLangs)
	assert.Contains(t, url, "_dubbed_fr")

	// A fresh load sees the same language, so completing again from a
	// re-read record stays on the job's track.
	reloaded, err := env.records.GetVideo(context.Background(), "vid-1")
	require.NoError(t, err)
	assert.Equal(t, "fr", reloaded.DubLanguage)
	assert.Equal(t, url, reloaded.DubbedVideoURL)
}

func TestCompleteDubIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.addAccount("acct-1", 50, 0)
	video := env.addVideo("vid-1", "acct-1", models.VideoStatusProcessing, 10)
	video.DubbingID = "dub-1"
	video.DubbedVideoURL = fakeBaseURL + "dubbed_videos/cached.mp4"

	url, err := env.svc.CompleteDub(context.Background(), video)
	require.NoError(t, err)
	assert.Equal(t, video.DubbedVideoURL, url)

	// Cached URL short-circuits: the provider is never touched again.
	assert.Zero(t, env.dubber.polls)
	assert.Zero(t, env.dubber.fetches)
}

func TestCompleteDubWithoutJob(t *testing.T) {
	env := newTestEnv(t)
	env.addAccount("acct-1", 50, 0)
	video := env.addVideo("vid-1", "acct-1", models.VideoStatusProcessing, 10)

	_, err := env.svc.CompleteDub(context.Background(), video)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPollDubWithoutJob(t *testing.T) {
	env := newTestEnv(t)
	env.addAccount("acct-1", 50, 0)
	video := env.addVideo("vid-1", "acct-1", models.VideoStatusProcessing, 10)

	_, err := env.svc.PollDub(context.Background(), video)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
