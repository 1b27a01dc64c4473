package dubbing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subvoc/subvoc/internal/logging"
	"github.com/subvoc/subvoc/pkg/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL, "test-key", logging.NewNopLogger())
}

func TestCreateJob(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("xi-api-key"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "https://cdn.example.com/videos/a.mp4", r.FormValue("source_url"))
		assert.Equal(t, "es", r.FormValue("target_lang"))

		fmt.Fprint(w, `{"dubbing_id":"dub-123","expected_duration_sec":95.5}`)
	})

	job, err := client.CreateJob(context.Background(), "https://cdn.example.com/videos/a.mp4", "es")
	require.NoError(t, err)
	assert.Equal(t, "dub-123", job.ID)
	assert.Equal(t, 95.5, job.ExpectedDurationSec)
}

func TestCreateJobMissingID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"expected_duration_sec":10}`)
	})

	_, err := client.CreateJob(context.Background(), "https://example.com/v.mp4", "es")
	assert.ErrorContains(t, err, "no job id")
}

func TestCreateJobHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	})

	_, err := client.CreateJob(context.Background(), "https://example.com/v.mp4", "es")
	assert.ErrorContains(t, err, "402")
}

func TestPollStatus(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantState models.DubState
		wantDur   float64
		wantErr   string
	}{
		{
			name:      "dubbed maps to complete",
			body:      `{"dubbing_id":"dub-1","status":"dubbed","media_metadata":{"duration":120.5}}`,
			wantState: models.DubStateComplete,
			wantDur:   120.5,
		},
		{
			name:      "dubbing maps to pending",
			body:      `{"dubbing_id":"dub-1","status":"dubbing"}`,
			wantState: models.DubStatePending,
		},
		{
			name:      "failed maps to failed",
			body:      `{"dubbing_id":"dub-1","status":"failed","error":"source audio unusable"}`,
			wantState: models.DubStateFailed,
			wantErr:   "source audio unusable",
		},
		{
			name:      "unknown status treated as pending",
			body:      `{"dubbing_id":"dub-1","status":"post_processing"}`,
			wantState: models.DubStatePending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/dub-1", r.URL.Path)
				fmt.Fprint(w, tt.body)
			})

			status, err := client.PollStatus(context.Background(), "dub-1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, status.State)
			assert.Equal(t, tt.wantDur, status.DurationSec)
			assert.Equal(t, tt.wantErr, status.Error)
		})
	}
}

func TestFetchResult(t *testing.T) {
	payload := []byte("dubbed media bytes")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dub-1/audio/es", r.URL.Path)
		w.Write(payload)
	})

	dest := filepath.Join(t.TempDir(), "dubbed.mp4")
	require.NoError(t, client.FetchResult(context.Background(), "dub-1", "es", dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFetchResultHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not ready", http.StatusBadRequest)
	})

	dest := filepath.Join(t.TempDir(), "dubbed.mp4")
	err := client.FetchResult(context.Background(), "dub-1", "es", dest)
	assert.Error(t, err)
	assert.NoFileExists(t, dest)
}

func TestDeleteJob(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/dub-1", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	assert.NoError(t, client.DeleteJob(context.Background(), "dub-1"))
}

func TestDeleteJobNotFoundTolerated(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	assert.NoError(t, client.DeleteJob(context.Background(), "dub-1"))
}
