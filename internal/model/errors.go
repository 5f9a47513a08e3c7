package model

import "errors"

// Failure taxonomy for the audit pipeline and lifecycle operations. Callers
// classify with errors.Is; eris wrapping preserves the chain.
var (
	// ErrValidation marks missing or invalid caller input. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrMalformedUpstream marks a detection payload of an unexpected shape.
	// It propagates like any other upstream failure.
	ErrMalformedUpstream = errors.New("malformed upstream result")

	// ErrUpstream marks a failed or timed-out detection-subsystem call. The
	// whole pipeline run aborts; no partial area is written.
	ErrUpstream = errors.New("upstream service failed")

	// ErrNotFound marks a reference to an unknown area or plot.
	ErrNotFound = errors.New("not found")

	// ErrRecipientMissing marks an action aborted before any mutation because
	// no recipient address could be resolved.
	ErrRecipientMissing = errors.New("recipient missing")

	// ErrPersistence marks a failed write after a successful merge. Resubmission
	// is safe: the merge is idempotent for identical inputs.
	ErrPersistence = errors.New("persistence failed")
)
