package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subvoc/subvoc/pkg/models"
)

func TestDeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	env.addAccount("acct-1", 50, 0)
	video := env.addVideo("vid-1", "acct-1", models.VideoStatusCompleted, 10)
	env.addSubtitle("vid-1", "es")
	env.addSubtitle("vid-1", "fr")

	dubbedKey := "dubbed_videos/test_vid-1_dubbed_es.mp4"
	burnedKey := "processed_videos/test_vid-1_subtitled_es.mp4"
	env.objects.stored[dubbedKey] = []byte("dubbed")
	env.objects.stored[burnedKey] = []byte("burned")
	video.DubbingID = "dub-9"
	video.DubbedVideoURL = fakeBaseURL + dubbedKey
	video.BurnedVideoURL = fakeBaseURL + burnedKey
	env.records.videos["vid-1"] = video

	require.NoError(t, env.svc.Delete(context.Background(), "vid-1"))

	// Every derived object is gone: source, dubbed, burned, captions.
	assert.Empty(t, env.objects.stored)
	assert.Len(t, env.objects.deleted, 5)

	// Record and subtitle rows removed, provider job cleaned up.
	assert.Equal(t, []string{"vid-1"}, env.records.deletedVideos)
	assert.Empty(t, env.records.subtitles["vid-1"])
	assert.Equal(t, []string{"dub-9"}, env.dubber.deletedJobs)
}

func TestDeleteCollectsObjectFailures(t *testing.T) {
	env := newTestEnv(t)
	env.addAccount("acct-1", 50, 0)
	video := env.addVideo("vid-1", "acct-1", models.VideoStatusCompleted, 10)
	env.addSubtitle("vid-1", "es")

	dubbedKey := "dubbed_videos/test_vid-1_dubbed_es.mp4"
	env.objects.stored[dubbedKey] = []byte("dubbed")
	video.DubbedVideoURL = fakeBaseURL + dubbedKey
	env.records.videos["vid-1"] = video

	// One object refuses to delete; the cascade must carry on and the
	// record must still be removed.
	env.objects.failDeletes[dubbedKey] = true

	require.NoError(t, env.svc.Delete(context.Background(), "vid-1"))
	assert.Equal(t, []string{"vid-1"}, env.records.deletedVideos)
	assert.Len(t, env.objects.deleted, 2)
}

func TestDeleteMissingVideo(t *testing.T) {
	env := newTestEnv(t)
	err := env.svc.Delete(context.Background(), "no-such-video")
	assert.Error(t, err)
}

func TestUsageSummary(t *testing.T) {
	env := newTestEnv(t)
	env.addAccount("acct-1", 50, 20)
	env.records.accounts["acct-1"].MinutesConsumed = 20

	summary, err := env.svc.Usage(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, float64(30), summary.MinutesRemaining)
	assert.Equal(t, float64(50), summary.AllowedMinutes)
	assert.Equal(t, 0.10, summary.CostPerMinute)
}

func TestListVideos(t *testing.T) {
	env := newTestEnv(t)
	env.addAccount("acct-1", 50, 0)
	env.addVideo("vid-1", "acct-1", models.VideoStatusCompleted, 10)
	env.addSubtitle("vid-1", "es")
	env.addSubtitle("vid-1", "de")

	summaries, err := env.svc.ListVideos(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "vid-1", summaries[0].Video.ID)
	assert.ElementsMatch(t, []string{"es", "de"}, summaries[0].SubtitleLanguages)
}
