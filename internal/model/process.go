package model

import "time"

// SubmitResponse is returned when an upload has been handed to the worker.
type SubmitResponse struct {
	JobID            string       `json:"jobId"`
	Status           RecordStatus `json:"status"`
	OriginalFilename string       `json:"originalFilename"`
	FilterType       string       `json:"filterType"`
	StatusURL        string       `json:"statusUrl"`
}

// JobStatusView is the reconciled view of one job: the worker's current state
// merged with whatever has been persisted locally.
type JobStatusView struct {
	JobID        string      `json:"jobId"`
	State        WorkerState `json:"state"`
	RawState     string      `json:"rawState,omitempty"`
	OutputPath   string      `json:"outputPath,omitempty"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
	CreatedAt    *time.Time  `json:"createdAt,omitempty"`
	CompletedAt  *time.Time  `json:"completedAt,omitempty"`
}

// HistoryQuery holds the parsed query parameters for history browsing.
type HistoryQuery struct {
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=500"`
	Offset int    `query:"offset" validate:"omitempty,min=0"`
	Filter string `query:"filter" validate:"omitempty,max=64"`
}

// HistoryPage is one page of history records, newest first.
type HistoryPage struct {
	Records []ProcessingRecord `json:"records"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

// HistoryStats is an aggregate over the whole history table, computed from a
// single consistent snapshot.
type HistoryStats struct {
	Total     int64            `json:"total"`
	Completed int64            `json:"completed"`
	Failed    int64            `json:"failed"`
	Pending   int64            `json:"pending"`
	ByFilter  map[string]int64 `json:"byFilter"`
}

// PurgeRequest asks for deletion of records older than the given age.
type PurgeRequest struct {
	Days int `json:"days" validate:"required,min=1"`
}

// PurgeResponse reports how many records a purge removed.
type PurgeResponse struct {
	Removed int64 `json:"removed"`
}

// HealthResponse is the liveness probe payload.
type HealthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds float64   `json:"uptimeSeconds"`
}
