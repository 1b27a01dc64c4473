package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors at the pipeline boundary. Callers branch on these
// with errors.Is; everything else is a transient processing failure.
var (
	// ErrInvalidInput covers malformed identifiers, unsupported
	// content types, oversize files, and over-long media. Rejected
	// before any side effect.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidStatus is returned when a processing request arrives
	// for a video whose status does not admit it.
	ErrInvalidStatus = errors.New("invalid status for operation")

	// ErrQuotaExceeded rejects a request before processing starts.
	// No usage is charged.
	ErrQuotaExceeded = errors.New("account quota exceeded")

	// ErrSubtitleGeneration aggregates any failure inside the
	// subtitle generation flow.
	ErrSubtitleGeneration = errors.New("subtitle generation failed")

	// ErrDubCreationFailed means the provider did not hand back a
	// usable job.
	ErrDubCreationFailed = errors.New("dubbing job creation failed")

	// ErrDubNotReady guards result retrieval for jobs that have not
	// reported complete.
	ErrDubNotReady = errors.New("dubbing job is not complete")

	// ErrDubFailed is a provider-reported job failure.
	ErrDubFailed = errors.New("dubbing job failed")

	// ErrDubTimedOut means the poll budget ran out while the job was
	// still pending. Distinct from ErrDubFailed: the job may yet
	// finish provider-side.
	ErrDubTimedOut = errors.New("dubbing job did not complete in time")

	// ErrCorruptArtifact marks a structural conversion failure during
	// burn-in. Fatal, never silently recovered.
	ErrCorruptArtifact = errors.New("corrupt subtitle artifact")
)

// QuotaError carries the remediation numbers shown to the user when a
// request is rejected for insufficient quota.
type QuotaError struct {
	RequiredMinutes  float64
	RemainingMinutes float64
	AllowedMinutes   float64
	EstimatedCost    float64
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf(
		"quota exceeded: %.2f minutes requested, %.2f free minutes remaining of %.2f allowed (estimated cost %.2f)",
		e.RequiredMinutes, e.RemainingMinutes, e.AllowedMinutes, e.EstimatedCost)
}

// Is makes errors.Is(err, ErrQuotaExceeded) hold for QuotaError values.
func (e *QuotaError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// InputError wraps a validation failure with the user-facing reason.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Reason
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}
