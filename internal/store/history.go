package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/BitGladiator/image-queue-processor/internal/model"
)

// HistoryStore persists processing records in the history table. It is the
// source of truth for everything except the worker's live job state.
type HistoryStore struct {
	db *gorm.DB
}

// NewHistoryStore creates a GORM-backed history store.
func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Migrate creates the history table and its indexes.
func (s *HistoryStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&model.ProcessingRecord{})
}

// UpsertPending records a freshly submitted job. If the job ID already
// exists the mutable submission fields are overwritten and created_at is
// reset; terminal fields are left alone. This doubles as the self-healing
// path when the insert at submission time was lost. The returned bool is
// true when this call began a new lifecycle (no record existed, or the
// prior one was terminal); a worker that dedupes submissions to an existing
// pending job returns false so callers do not double-count it.
func (s *HistoryStore) UpsertPending(ctx context.Context, jobID, originalFilename, filterType, inputPath string) (bool, error) {
	fresh := false
	now := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.ProcessingRecord
		result := tx.Where("job_id = ?", jobID).First(&existing)

		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			fresh = true
			return tx.Create(&model.ProcessingRecord{
				JobID:            jobID,
				OriginalFilename: originalFilename,
				FilterType:       filterType,
				Status:           model.StatusPending,
				InputPath:        inputPath,
				CreatedAt:        now,
			}).Error
		}
		if result.Error != nil {
			return result.Error
		}

		fresh = existing.Status.IsTerminal()
		return tx.Model(&model.ProcessingRecord{}).
			Where("job_id = ?", jobID).
			Updates(map[string]interface{}{
				"original_filename": originalFilename,
				"filter_type":       filterType,
				"status":            model.StatusPending,
				"input_path":        inputPath,
				"created_at":        now,
			}).Error
	})

	if err != nil {
		return false, err
	}
	return fresh, nil
}

// MarkTerminal records a job's first transition into completed or failed.
// The returned bool reports whether this call performed the transition;
// callers adjust counters only when it did. Calls observing an
// already-terminal record are no-ops. A missing record (lost submission
// write) is healed by inserting it directly in the terminal state.
func (s *HistoryStore) MarkTerminal(ctx context.Context, jobID string, status model.RecordStatus, outputPath, errorMessage string) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("status %q is not terminal", status)
	}

	now := time.Now()
	transitioned := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record model.ProcessingRecord
		result := tx.Where("job_id = ?", jobID).First(&record)

		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			record = model.ProcessingRecord{
				JobID:            jobID,
				OriginalFilename: "unknown",
				FilterType:       "unknown",
				Status:           status,
				CreatedAt:        now,
				CompletedAt:      &now,
			}
			applyTerminalFields(&record, status, outputPath, errorMessage, &now)
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
			transitioned = true
			return nil
		}
		if result.Error != nil {
			return result.Error
		}

		if record.Status.IsTerminal() {
			return nil
		}

		updates := map[string]interface{}{
			"status":       status,
			"completed_at": now,
		}
		if status == model.StatusCompleted {
			updates["output_path"] = outputPath
		} else {
			updates["error_message"] = errorMessage
		}

		// Guarded update: only a row still pending takes the transition, so
		// concurrent reconciliations settle on exactly one winner.
		res := tx.Model(&model.ProcessingRecord{}).
			Where("job_id = ? AND status = ?", jobID, model.StatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		transitioned = res.RowsAffected == 1
		return nil
	})

	if err != nil {
		return false, fmt.Errorf("%w: %v", model.ErrStoreWrite, err)
	}
	return transitioned, nil
}

func applyTerminalFields(record *model.ProcessingRecord, status model.RecordStatus, outputPath, errorMessage string, completedAt *time.Time) {
	record.Status = status
	record.CompletedAt = completedAt
	if status == model.StatusCompleted {
		record.OutputPath = &outputPath
	} else {
		record.ErrorMessage = &errorMessage
	}
}

// Get fetches one record by job ID.
func (s *HistoryStore) Get(ctx context.Context, jobID string) (*model.ProcessingRecord, error) {
	var record model.ProcessingRecord
	err := s.db.WithContext(ctx).Where("job_id = ?", jobID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns records newest first, optionally restricted to one filter type.
func (s *HistoryStore) List(ctx context.Context, limit, offset int, filterType string) ([]model.ProcessingRecord, error) {
	var records []model.ProcessingRecord
	q := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)
	if filterType != "" {
		q = q.Where("filter_type = ?", filterType)
	}
	return records, q.Find(&records).Error
}

// Stats aggregates the history table inside one transaction so every count
// reflects the same snapshot.
func (s *HistoryStore) Stats(ctx context.Context) (*model.HistoryStats, error) {
	stats := &model.HistoryStats{ByFilter: make(map[string]int64)}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.ProcessingRecord{}).Count(&stats.Total).Error; err != nil {
			return err
		}

		type statusCount struct {
			Status model.RecordStatus
			Count  int64
		}
		var byStatus []statusCount
		if err := tx.Model(&model.ProcessingRecord{}).
			Select("status, COUNT(*) as count").
			Group("status").
			Scan(&byStatus).Error; err != nil {
			return err
		}
		for _, sc := range byStatus {
			switch sc.Status {
			case model.StatusCompleted:
				stats.Completed = sc.Count
			case model.StatusFailed:
				stats.Failed = sc.Count
			case model.StatusPending:
				stats.Pending = sc.Count
			}
		}

		type filterCount struct {
			FilterType string
			Count      int64
		}
		var byFilter []filterCount
		if err := tx.Model(&model.ProcessingRecord{}).
			Select("filter_type, COUNT(*) as count").
			Group("filter_type").
			Scan(&byFilter).Error; err != nil {
			return err
		}
		for _, fc := range byFilter {
			stats.ByFilter[fc.FilterType] = fc.Count
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Delete removes one record and reports whether it existed.
func (s *HistoryStore) Delete(ctx context.Context, jobID string) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Delete(&model.ProcessingRecord{})
	return result.RowsAffected > 0, result.Error
}

// PurgeOlderThan deletes records created before now minus age and returns
// how many were removed.
func (s *HistoryStore) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age)
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.ProcessingRecord{})
	return result.RowsAffected, result.Error
}
