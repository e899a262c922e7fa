package vigil

import "errors"

// Common sentinel errors for the vigil package. The detection core itself is
// fail-open (short or unfit state produces a logged no-op and a safe default,
// never an error); these sentinels surface only from the outer collaborator
// surfaces: history store, archive, batch loading, and notification.
var (
	// ErrFitFailed is returned when model fitting fails internally
	// (non-convergence, degenerate series).
	ErrFitFailed = errors.New("model fitting failed")

	// ErrClosed is returned for operations on a closed history store.
	ErrClosed = errors.New("store is closed")

	// ErrNoBaseline is returned when the pipeline has no historical window
	// for a stream and cannot lazily fit a tuner.
	ErrNoBaseline = errors.New("no baseline history for stream")
)
