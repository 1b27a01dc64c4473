package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/subvoc/subvoc/internal/config"
	"github.com/subvoc/subvoc/internal/logging"
	"github.com/subvoc/subvoc/internal/quota"
	"github.com/subvoc/subvoc/pkg/models"
)

const fakeBaseURL = "https://cdn.test/subvoc/"

const fakeASS = `[Script Info]
ScriptType: v4.00+

[V4+ Styles]
Format: Name, Fontname, Fontsize
Style: Default,Arial,16

[Events]
Format: Layer, Start, End, Style, Text
Dialogue: 0,0:00:01.00,0:00:03.00,Default,Hello
`

// fakeRecords is an in-memory RecordStore.
type fakeRecords struct {
	accounts  map[string]*models.Account
	videos    map[string]*models.Video
	subtitles map[string][]*models.Subtitle

	statusLog      []string
	usageMinutes   []float64
	deletedVideos  []string
	recordUsageErr error
	createSubErr   error
	createVideoErr error
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		accounts:  make(map[string]*models.Account),
		videos:    make(map[string]*models.Video),
		subtitles: make(map[string][]*models.Subtitle),
	}
}

func (f *fakeRecords) GetAccount(_ context.Context, id string) (*models.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s not found", id)
	}
	copied := *a
	return &copied, nil
}

func (f *fakeRecords) RecordUsage(_ context.Context, accountID string, minutes, rate float64) (quota.Charge, error) {
	if f.recordUsageErr != nil {
		return quota.Charge{}, f.recordUsageErr
	}
	a, ok := f.accounts[accountID]
	if !ok {
		return quota.Charge{}, fmt.Errorf("account %s not found", accountID)
	}
	charge, err := quota.Apply(a, minutes, rate)
	if err != nil {
		return quota.Charge{}, err
	}
	f.usageMinutes = append(f.usageMinutes, minutes)
	return charge, nil
}

func (f *fakeRecords) CreateVideo(_ context.Context, v *models.Video) error {
	if f.createVideoErr != nil {
		return f.createVideoErr
	}
	copied := *v
	f.videos[v.ID] = &copied
	return nil
}

func (f *fakeRecords) GetVideo(_ context.Context, id string) (*models.Video, error) {
	v, ok := f.videos[id]
	if !ok {
		return nil, fmt.Errorf("video %s not found", id)
	}
	copied := *v
	return &copied, nil
}

func (f *fakeRecords) ListVideosByAccount(_ context.Context, accountID string) ([]*models.Video, error) {
	var out []*models.Video
	for _, v := range f.videos {
		if v.AccountID == accountID {
			copied := *v
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeRecords) UpdateVideoStatus(_ context.Context, id, status string) error {
	v, ok := f.videos[id]
	if !ok {
		return fmt.Errorf("video %s not found", id)
	}
	f.statusLog = append(f.statusLog, status)
	v.Status = status
	return nil
}

func (f *fakeRecords) UpdateVideoDubbing(_ context.Context, id, dubbingID, dubLanguage, dubbedURL string, isDubbed bool) error {
	v, ok := f.videos[id]
	if !ok {
		return fmt.Errorf("video %s not found", id)
	}
	v.DubbingID = dubbingID
	v.DubLanguage = dubLanguage
	v.DubbedVideoURL = dubbedURL
	v.IsDubbedAudio = isDubbed
	return nil
}

func (f *fakeRecords) UpdateVideoBurnedURL(_ context.Context, id, burnedURL string) error {
	v, ok := f.videos[id]
	if !ok {
		return fmt.Errorf("video %s not found", id)
	}
	v.BurnedVideoURL = burnedURL
	return nil
}

func (f *fakeRecords) DeleteVideo(_ context.Context, id string) error {
	if _, ok := f.videos[id]; !ok {
		return fmt.Errorf("video %s not found", id)
	}
	delete(f.videos, id)
	delete(f.subtitles, id)
	f.deletedVideos = append(f.deletedVideos, id)
	return nil
}

func (f *fakeRecords) CreateSubtitle(_ context.Context, s *models.Subtitle) error {
	if f.createSubErr != nil {
		return f.createSubErr
	}
	copied := *s
	f.subtitles[s.VideoID] = append(f.subtitles[s.VideoID], &copied)
	return nil
}

func (f *fakeRecords) ListSubtitlesByVideo(_ context.Context, videoID string) ([]*models.Subtitle, error) {
	return f.subtitles[videoID], nil
}

// fakeObjects is an in-memory ObjectStore keyed by object name.
type fakeObjects struct {
	stored  map[string][]byte
	deleted []string

	uploadErr   error
	downloadErr error
	failDeletes map[string]bool
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{
		stored:      make(map[string][]byte),
		failDeletes: make(map[string]bool),
	}
}

func (f *fakeObjects) Upload(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.stored[objectName] = data
	return nil
}

func (f *fakeObjects) UploadFile(_ context.Context, objectName, filePath string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	f.stored[objectName] = data
	return nil
}

func (f *fakeObjects) DownloadFile(_ context.Context, objectName, filePath string) error {
	if f.downloadErr != nil {
		return f.downloadErr
	}
	data, ok := f.stored[objectName]
	if !ok {
		return fmt.Errorf("object %s not found", objectName)
	}
	return os.WriteFile(filePath, data, 0o644)
}

func (f *fakeObjects) Delete(_ context.Context, objectName string) error {
	if f.failDeletes[objectName] {
		return fmt.Errorf("delete of %s refused", objectName)
	}
	delete(f.stored, objectName)
	f.deleted = append(f.deleted, objectName)
	return nil
}

func (f *fakeObjects) PublicURL(objectName string) string {
	return fakeBaseURL + objectName
}

func (f *fakeObjects) ObjectKey(rawURL string) (string, error) {
	if !strings.HasPrefix(rawURL, fakeBaseURL) {
		return "", fmt.Errorf("unrecognized url %s", rawURL)
	}
	return strings.TrimPrefix(rawURL, fakeBaseURL), nil
}

// fakeScriber is a Transcriber with canned output.
type fakeScriber struct {
	srt           string
	transcribeErr error
	translateErr  error

	transcribed int
	translated  []string
}

func (f *fakeScriber) Transcribe(_ context.Context, _ string) (string, error) {
	f.transcribed++
	if f.transcribeErr != nil {
		return "", f.transcribeErr
	}
	return f.srt, nil
}

func (f *fakeScriber) Translate(_ context.Context, srt, lang string) (string, error) {
	f.translated = append(f.translated, lang)
	if f.translateErr != nil {
		return "", f.translateErr
	}
	return "[" + lang + "] " + srt, nil
}

// fakeDubber is a DubProvider driven by a scripted status sequence.
type fakeDubber struct {
	jobID     string
	createErr error
	statuses  []models.DubStatus
	pollErr   error
	fetchErr  error

	polls        int
	fetches      int
	fetchedLangs []string
	deletedJobs  []string
}

func (f *fakeDubber) CreateJob(_ context.Context, _, _ string) (*models.DubJob, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.DubJob{ID: f.jobID, ExpectedDurationSec: 60}, nil
}

func (f *fakeDubber) PollStatus(_ context.Context, jobID string) (*models.DubStatus, error) {
	f.polls++
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	idx := f.polls - 1
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	status := f.statuses[idx]
	status.JobID = jobID
	return &status, nil
}

func (f *fakeDubber) FetchResult(_ context.Context, _, language, destPath string) error {
	f.fetches++
	f.fetchedLangs = append(f.fetchedLangs, language)
	if f.fetchErr != nil {
		return f.fetchErr
	}
	return os.WriteFile(destPath, []byte("dubbed media"), 0o644)
}

func (f *fakeDubber) DeleteJob(_ context.Context, jobID string) error {
	f.deletedJobs = append(f.deletedJobs, jobID)
	return nil
}

// fakeMedia is a MediaToolkit that fabricates plausible outputs.
type fakeMedia struct {
	duration    float64
	durationErr error
	height      int
	convertErr  error
	burnErr     error
	assContent  string
}

func (f *fakeMedia) ProbeDurationMinutes(_ context.Context, _ string) (float64, error) {
	if f.durationErr != nil {
		return 0, f.durationErr
	}
	return f.duration, nil
}

func (f *fakeMedia) ProbeResolution(_ context.Context, _ string) (int, int, error) {
	return 1920, f.height, nil
}

func (f *fakeMedia) ConvertSubtitle(_ context.Context, _, outputPath string) error {
	if f.convertErr != nil {
		return f.convertErr
	}
	content := f.assContent
	if content == "" {
		content = fakeASS
	}
	return os.WriteFile(outputPath, []byte(content), 0o644)
}

func (f *fakeMedia) BurnSubtitles(_ context.Context, _, _, outputPath string) error {
	if f.burnErr != nil {
		return f.burnErr
	}
	return os.WriteFile(outputPath, []byte("burned media"), 0o644)
}

type testEnv struct {
	svc     *Service
	records *fakeRecords
	objects *fakeObjects
	scriber *fakeScriber
	dubber  *fakeDubber
	media   *fakeMedia
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		records: newFakeRecords(),
		objects: newFakeObjects(),
		scriber: &fakeScriber{srt: "1\n00:00:01,000 --> 00:00:03,000\nHello\n"},
		dubber:  &fakeDubber{jobID: "dub-1", statuses: []models.DubStatus{{State: models.DubStateComplete, DurationSec: 61}}},
		media:   &fakeMedia{duration: 10, height: 1080},
	}

	billing := config.BillingConfig{
		RatePerMinute:         0.10,
		AllowedMinutesDefault: 50,
		MaxDurationMinutes:    120,
		MaxUploadBytes:        1 << 20,
		AllowedContentTypes:   []string{"video/mp4", "video/quicktime"},
	}
	pipeCfg := config.PipelineConfig{
		TempDir:         t.TempDir(),
		DubPollInterval: time.Millisecond,
		DubPollAttempts: 3,
		DefaultFontName: "Arial",
	}

	svc, err := New(env.records, env.objects, env.scriber, env.dubber, env.media, nil,
		billing, pipeCfg, logging.NewNopLogger())
	require.NoError(t, err)
	env.svc = svc
	return env
}

func (e *testEnv) addAccount(id string, allowed, freeUsed float64) *models.Account {
	a := &models.Account{
		ID:              id,
		Email:           id + "@example.com",
		AllowedMinutes:  allowed,
		FreeMinutesUsed: freeUsed,
		IsActive:        true,
	}
	e.records.accounts[id] = a
	return a
}

func (e *testEnv) addVideo(id, accountID, status string, minutes float64) *models.Video {
	key := "videos/test_" + id + ".mp4"
	e.objects.stored[key] = []byte("source media")
	v := &models.Video{
		ID:              id,
		AccountID:       accountID,
		VideoURL:        fakeBaseURL + key,
		OriginalName:    "clip.mp4",
		DurationMinutes: minutes,
		Language:        "es",
		Status:          status,
	}
	e.records.videos[id] = v
	return v
}

func (e *testEnv) addSubtitle(videoID, language string) *models.Subtitle {
	key := "subtitles/test_" + videoID + "_" + language + ".srt"
	e.objects.stored[key] = []byte("1\n00:00:01,000 --> 00:00:03,000\nHola\n")
	s := &models.Subtitle{
		ID:       "sub-" + videoID + "-" + language,
		VideoID:  videoID,
		URL:      fakeBaseURL + key,
		Format:   models.SubtitleFormatSRT,
		Language: language,
	}
	e.records.subtitles[videoID] = append(e.records.subtitles[videoID], s)
	return s
}
