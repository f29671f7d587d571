package model

import "errors"

// Sentinel errors for the synchronization core. Callers classify failures
// with errors.Is so the request layer can map them to distinct responses.
var (
	// ErrJobNotFound means the worker service has no record of the job ID.
	// Distinct from ErrWorkerUnavailable so callers can tell "this job never
	// existed" from "try again".
	ErrJobNotFound = errors.New("job not found")

	// ErrWorkerUnavailable covers unreachable, timed-out, or non-success
	// responses from the worker service. Retryable; never recorded as a job
	// failure, since only the worker's own failed state may do that.
	ErrWorkerUnavailable = errors.New("worker service unavailable")

	// ErrStoreWrite is a persistence failure while recording a terminal
	// transition. Surfaced rather than swallowed, because losing that write
	// would silently drift history and metrics apart.
	ErrStoreWrite = errors.New("history store write failed")
)
