package model

// WorkerState is the closed set of job states the front-end understands from
// the worker service. The worker's raw string is converted at the boundary so
// nothing downstream compares against magic literals.
type WorkerState string

const (
	WorkerStateQueued    WorkerState = "queued"
	WorkerStateRunning   WorkerState = "running"
	WorkerStateCompleted WorkerState = "completed"
	WorkerStateFailed    WorkerState = "failed"
	WorkerStateUnknown   WorkerState = "unknown"
)

// IsTerminal returns true when the worker will never change this state again.
func (s WorkerState) IsTerminal() bool {
	return s == WorkerStateCompleted || s == WorkerStateFailed
}

// ParseWorkerState maps the worker's raw state string onto the closed enum.
// Bull reports waiting/delayed/paused before a job is picked up and active
// while it runs; anything unrecognized becomes WorkerStateUnknown and the raw
// value is kept on the view for display.
func ParseWorkerState(raw string) WorkerState {
	switch raw {
	case "queued", "waiting", "delayed", "paused", "waiting-children":
		return WorkerStateQueued
	case "running", "active":
		return WorkerStateRunning
	case "completed":
		return WorkerStateCompleted
	case "failed":
		return WorkerStateFailed
	default:
		return WorkerStateUnknown
	}
}
