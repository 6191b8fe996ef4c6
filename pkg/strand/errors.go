package strand

import "errors"

// Sentinel errors for coordinator construction.
var (
	// ErrEngineRequired indicates New was called without an engine.
	ErrEngineRequired = errors.New("engine is required")

	// ErrStoreRequired indicates New was called without a checkpoint store.
	ErrStoreRequired = errors.New("checkpoint store is required")

	// ErrLogRequired indicates New was called without a message log.
	ErrLogRequired = errors.New("message log is required")
)

// Sentinel errors for Run.
var (
	// ErrThreadIDRequired indicates Run was called with an empty thread ID.
	ErrThreadIDRequired = errors.New("thread ID is required")

	// ErrThreadBusy indicates the thread already has an active run.
	// Checkpoint lineage assumes a single writer per thread; callers should
	// retry after the active run finishes.
	ErrThreadBusy = errors.New("thread already has an active run")
)
