package model

import "time"

// RecordStatus is the locally persisted lifecycle stage of a processing job.
type RecordStatus string

const (
	StatusPending   RecordStatus = "pending"
	StatusCompleted RecordStatus = "completed"
	StatusFailed    RecordStatus = "failed"
)

// IsTerminal returns true for statuses that allow no further transition.
func (s RecordStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ProcessingRecord is the durable history row for one job. The job ID is
// assigned by the worker service at submission time and is the only
// external-facing key.
type ProcessingRecord struct {
	ID               uint         `json:"-" gorm:"primaryKey"`
	JobID            string       `json:"jobId" gorm:"uniqueIndex;not null"`
	OriginalFilename string       `json:"originalFilename" gorm:"not null"`
	FilterType       string       `json:"filterType" gorm:"not null"`
	Status           RecordStatus `json:"status" gorm:"not null;default:pending"`
	InputPath        string       `json:"inputPath" gorm:"not null"`
	OutputPath       *string      `json:"outputPath,omitempty"`
	ErrorMessage     *string      `json:"errorMessage,omitempty"`
	CreatedAt        time.Time    `json:"createdAt" gorm:"index"`
	CompletedAt      *time.Time   `json:"completedAt,omitempty"`
}

// TableName keeps the table name the history database has always used.
func (ProcessingRecord) TableName() string {
	return "processing_history"
}
