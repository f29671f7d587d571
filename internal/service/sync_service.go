package service

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/BitGladiator/image-queue-processor/internal/client"
	"github.com/BitGladiator/image-queue-processor/internal/metrics"
	"github.com/BitGladiator/image-queue-processor/internal/model"
	"github.com/BitGladiator/image-queue-processor/internal/store"
)

// SyncService keeps the local view of job lifecycles in step with the worker
// service: it submits work, reconciles state on demand, persists terminal
// transitions exactly once, and keeps the aggregate counters consistent with
// what it persisted.
type SyncService struct {
	worker     client.JobRunner
	history    *store.HistoryStore
	aggregator *metrics.Aggregator
	resultsDir string

	mu       sync.Mutex
	jobLocks map[string]*sync.Mutex
}

func NewSyncService(worker client.JobRunner, history *store.HistoryStore, aggregator *metrics.Aggregator, resultsDir string) *SyncService {
	return &SyncService{
		worker:     worker,
		history:    history,
		aggregator: aggregator,
		resultsDir: resultsDir,
		jobLocks:   make(map[string]*sync.Mutex),
	}
}

// Submit hands one stored upload to the worker service. The history insert
// is best effort: the worker already holds authoritative state, so a store
// failure here is logged and healed by the upsert on first reconciliation.
func (s *SyncService) Submit(ctx context.Context, originalFilename, filterType, inputPath string) (*model.SubmitResponse, error) {
	jobID, err := s.worker.CreateJob(ctx, inputPath, filterType)
	if err != nil {
		s.aggregator.WorkerError()
		return nil, fmt.Errorf("submitting job: %w", err)
	}

	fresh, err := s.history.UpsertPending(ctx, jobID, originalFilename, filterType, inputPath)
	if err != nil {
		log.Printf("[Sync] job %s: pending record write failed (will self-heal on reconcile): %v", jobID, err)
		// Without a readable record there is no way to tell a duplicate from
		// a new job; count it and let reconciliation settle the books.
		fresh = true
	}
	if fresh {
		s.aggregator.JobSubmitted()
	}

	return &model.SubmitResponse{
		JobID:            jobID,
		Status:           model.StatusPending,
		OriginalFilename: originalFilename,
		FilterType:       filterType,
		StatusURL:        fmt.Sprintf("/api/jobs/%s", jobID),
	}, nil
}

// Reconcile reads the worker's current state for a job and merges it into
// the history store and counters. Safe to call any number of times: the
// terminal side effects run once per job, guarded by a per-job lock around
// the store's check-then-write.
func (s *SyncService) Reconcile(ctx context.Context, jobID string) (*model.JobStatusView, error) {
	lock := s.lockFor(jobID)
	lock.Lock()
	defer lock.Unlock()

	info, err := s.worker.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	switch info.State {
	case model.WorkerStateCompleted:
		outputPath := info.OutputPath
		if outputPath == "" {
			// The worker writes results under a fixed naming convention.
			outputPath = filepath.Join(s.resultsDir, fmt.Sprintf("%s_output.jpg", jobID))
		}
		return s.recordTerminal(ctx, jobID, info, model.StatusCompleted, outputPath, "")

	case model.WorkerStateFailed:
		reason := info.FailedReason
		if reason == "" {
			reason = "processing failed"
		}
		return s.recordTerminal(ctx, jobID, info, model.StatusFailed, "", reason)

	default:
		// Queued, running, or an unrecognized state: nothing to persist.
		return &model.JobStatusView{
			JobID:    jobID,
			State:    info.State,
			RawState: info.RawState,
		}, nil
	}
}

func (s *SyncService) recordTerminal(ctx context.Context, jobID string, info *client.JobInfo, status model.RecordStatus, outputPath, errorMessage string) (*model.JobStatusView, error) {
	transitioned, err := s.history.MarkTerminal(ctx, jobID, status, outputPath, errorMessage)
	if err != nil {
		// A lost terminal write means history and counters drift apart
		// permanently, so this one is surfaced to the caller.
		return nil, err
	}

	if transitioned {
		if status == model.StatusCompleted {
			s.aggregator.JobCompleted()
		} else {
			s.aggregator.JobFailed()
		}
	}

	view := &model.JobStatusView{
		JobID:        jobID,
		State:        info.State,
		RawState:     info.RawState,
		OutputPath:   outputPath,
		ErrorMessage: errorMessage,
	}

	// Load the persisted record so repeated polls carry stable timestamps.
	if record, err := s.history.Get(ctx, jobID); err == nil {
		view.CreatedAt = &record.CreatedAt
		view.CompletedAt = record.CompletedAt
		if record.OutputPath != nil {
			view.OutputPath = *record.OutputPath
		}
		if record.ErrorMessage != nil {
			view.ErrorMessage = *record.ErrorMessage
		}
	}

	return view, nil
}

// lockFor returns the advisory lock serializing reconciliations of one job.
// Lock objects are kept for the life of the process; the set of job IDs a
// single front-end instance sees is small.
func (s *SyncService) lockFor(jobID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.jobLocks[jobID]
	if !ok {
		lock = &sync.Mutex{}
		s.jobLocks[jobID] = lock
	}
	return lock
}
