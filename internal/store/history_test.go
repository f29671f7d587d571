package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/BitGladiator/image-queue-processor/internal/model"
	"github.com/BitGladiator/image-queue-processor/internal/store"
)

func setupTestStore(t *testing.T) *store.HistoryStore {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	s := store.NewHistoryStore(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestUpsertPending_InsertAndFetch(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	fresh, err := s.UpsertPending(ctx, "job-1", "cat.jpg", "grayscale", "uploads/abc.jpg")
	require.NoError(t, err)
	assert.True(t, fresh)

	record, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "cat.jpg", record.OriginalFilename)
	assert.Equal(t, "grayscale", record.FilterType)
	assert.Equal(t, model.StatusPending, record.Status)
	assert.Nil(t, record.OutputPath)
	assert.Nil(t, record.CompletedAt)
}

func TestUpsertPending_DuplicateIsNotFresh(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	fresh, err := s.UpsertPending(ctx, "job-1", "cat.jpg", "grayscale", "uploads/abc.jpg")
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = s.UpsertPending(ctx, "job-1", "cat.jpg", "sepia", "uploads/abc.jpg")
	require.NoError(t, err)
	assert.False(t, fresh)

	record, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "sepia", record.FilterType)
	assert.Equal(t, model.StatusPending, record.Status)
}

func TestUpsertPending_ResubmitAfterTerminalIsFresh(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertPending(ctx, "job-1", "cat.jpg", "grayscale", "uploads/abc.jpg")
	require.NoError(t, err)

	transitioned, err := s.MarkTerminal(ctx, "job-1", model.StatusCompleted, "results/job-1_output.jpg", "")
	require.NoError(t, err)
	assert.True(t, transitioned)

	fresh, err := s.UpsertPending(ctx, "job-1", "cat.jpg", "grayscale", "uploads/def.jpg")
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestMarkTerminal_Completed(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertPending(ctx, "job-1", "cat.jpg", "grayscale", "uploads/abc.jpg")
	require.NoError(t, err)

	transitioned, err := s.MarkTerminal(ctx, "job-1", model.StatusCompleted, "results/job-1_output.jpg", "")
	require.NoError(t, err)
	assert.True(t, transitioned)

	record, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, record.Status)
	require.NotNil(t, record.OutputPath)
	assert.Equal(t, "results/job-1_output.jpg", *record.OutputPath)
	require.NotNil(t, record.CompletedAt)
	assert.Nil(t, record.ErrorMessage)
	assert.False(t, record.CompletedAt.Before(record.CreatedAt))
}

func TestMarkTerminal_Failed(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertPending(ctx, "job-1", "cat.jpg", "grayscale", "uploads/abc.jpg")
	require.NoError(t, err)

	transitioned, err := s.MarkTerminal(ctx, "job-1", model.StatusFailed, "", "decode error")
	require.NoError(t, err)
	assert.True(t, transitioned)

	record, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, record.Status)
	require.NotNil(t, record.ErrorMessage)
	assert.Equal(t, "decode error", *record.ErrorMessage)
	assert.Nil(t, record.OutputPath)
	require.NotNil(t, record.CompletedAt)
}

func TestMarkTerminal_SecondCallIsNoOp(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertPending(ctx, "job-1", "cat.jpg", "grayscale", "uploads/abc.jpg")
	require.NoError(t, err)

	transitioned, err := s.MarkTerminal(ctx, "job-1", model.StatusCompleted, "results/job-1_output.jpg", "")
	require.NoError(t, err)
	assert.True(t, transitioned)

	first, err := s.Get(ctx, "job-1")
	require.NoError(t, err)

	// Repeated terminal writes must not transition again or alter the record,
	// even with a different target status.
	transitioned, err = s.MarkTerminal(ctx, "job-1", model.StatusFailed, "", "late failure")
	require.NoError(t, err)
	assert.False(t, transitioned)

	second, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, second.Status)
	assert.Equal(t, *first.CompletedAt, *second.CompletedAt)
	assert.Nil(t, second.ErrorMessage)
}

func TestMarkTerminal_SelfHealsMissingRecord(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// No pending record exists: the submission-time write was lost.
	transitioned, err := s.MarkTerminal(ctx, "ghost", model.StatusCompleted, "results/ghost_output.jpg", "")
	require.NoError(t, err)
	assert.True(t, transitioned)

	record, err := s.Get(ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, record.Status)
	require.NotNil(t, record.OutputPath)
	assert.Equal(t, "results/ghost_output.jpg", *record.OutputPath)
}

func TestMarkTerminal_RejectsNonTerminalStatus(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.MarkTerminal(context.Background(), "job-1", model.StatusPending, "", "")
	require.Error(t, err)
}

func TestGet_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, model.ErrJobNotFound))
}

func TestList_NewestFirstAndFilter(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for i, tc := range []struct{ id, filter string }{
		{"job-1", "grayscale"},
		{"job-2", "sepia"},
		{"job-3", "grayscale"},
	} {
		_, err := s.UpsertPending(ctx, tc.id, "img.jpg", tc.filter, "uploads/x.jpg")
		require.NoError(t, err)
		// sqlite timestamps need a visible gap to order deterministically
		time.Sleep(time.Duration(i+1) * 5 * time.Millisecond)
	}

	records, err := s.List(ctx, 10, 0, "")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "job-3", records[0].JobID)
	assert.Equal(t, "job-1", records[2].JobID)

	records, err = s.List(ctx, 10, 0, "grayscale")
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, "grayscale", r.FilterType)
	}

	records, err = s.List(ctx, 1, 1, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "job-2", records[0].JobID)
}

func TestStats_TotalEqualsStatusSum(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		_, err := s.UpsertPending(ctx, id, "img.jpg", "grayscale", "uploads/x.jpg")
		require.NoError(t, err)
	}
	_, err := s.UpsertPending(ctx, "e", "img.jpg", "sepia", "uploads/x.jpg")
	require.NoError(t, err)

	_, err = s.MarkTerminal(ctx, "a", model.StatusCompleted, "results/a_output.jpg", "")
	require.NoError(t, err)
	_, err = s.MarkTerminal(ctx, "b", model.StatusFailed, "", "decode error")
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, stats.Total, stats.Completed+stats.Failed+stats.Pending)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(3), stats.Pending)
	assert.Equal(t, int64(4), stats.ByFilter["grayscale"])
	assert.Equal(t, int64(1), stats.ByFilter["sepia"])
}

func TestDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertPending(ctx, "job-1", "img.jpg", "grayscale", "uploads/x.jpg")
	require.NoError(t, err)

	existed, err := s.Delete(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.Delete(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestPurgeOlderThan(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertPending(ctx, "old-1", "img.jpg", "grayscale", "uploads/x.jpg")
	require.NoError(t, err)
	_, err = s.UpsertPending(ctx, "old-2", "img.jpg", "grayscale", "uploads/x.jpg")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	_, err = s.UpsertPending(ctx, "new-1", "img.jpg", "grayscale", "uploads/x.jpg")
	require.NoError(t, err)

	removed, err := s.PurgeOlderThan(ctx, 25*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	records, err := s.List(ctx, 10, 0, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "new-1", records[0].JobID)
}
