package models

// DubState is the internal dubbing-job status vocabulary. Provider
// specific statuses are mapped onto these three states at the client
// boundary and never leak past it.
type DubState string

const (
	DubStatePending  DubState = "pending"
	DubStateComplete DubState = "complete"
	DubStateFailed   DubState = "failed"
)

// DubJob is the handle returned when a dubbing job is created with the
// provider. The job itself lives provider-side; only the id is persisted
// (on the owning video).
type DubJob struct {
	ID                  string  `json:"dubbing_id"`
	ExpectedDurationSec float64 `json:"expected_duration_sec"`
}

// DubStatus is a point-in-time view of a provider-side dubbing job.
type DubStatus struct {
	JobID       string   `json:"dubbing_id"`
	State       DubState `json:"state"`
	DurationSec float64  `json:"duration_sec"`
	Error       string   `json:"error,omitempty"`
}
