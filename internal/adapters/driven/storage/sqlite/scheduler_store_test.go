package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// ==================== SchedulerStore Tests ====================

func TestSchedulerStore_SaveAndGetTask(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	now := time.Date(2026, 4, 2, 9, 30, 0, 123456789, time.UTC)
	task := &domain.ScheduledTask{
		ID:                  domain.TaskIDCatalogSync,
		Name:                "Catalog Sync",
		Interval:            45 * time.Minute,
		LastRun:             now.Add(-30 * time.Minute),
		NextRun:             now.Add(15 * time.Minute),
		LastError:           "marketplace returned 503",
		ConsecutiveFailures: 2,
		Enabled:             true,
	}

	require.NoError(t, schedulerStore.SaveTask(ctx, task))

	retrieved, err := schedulerStore.GetTask(ctx, domain.TaskIDCatalogSync)
	require.NoError(t, err)
	require.NotNil(t, retrieved)

	assert.Equal(t, task.Name, retrieved.Name)
	assert.Equal(t, task.Interval, retrieved.Interval)
	assert.Equal(t, task.LastError, retrieved.LastError)
	assert.Equal(t, 2, retrieved.ConsecutiveFailures)
	assert.True(t, retrieved.Enabled)
	// Sub-second precision survives the round trip.
	assert.True(t, task.LastRun.Equal(retrieved.LastRun))
	assert.True(t, task.NextRun.Equal(retrieved.NextRun))
	assert.True(t, retrieved.LastSuccess.IsZero())
}

func TestSchedulerStore_GetTask_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	task, err := store.SchedulerStore().GetTask(context.Background(), "missing")

	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestSchedulerStore_SaveTask_CompleteCycle(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	start := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	task := &domain.ScheduledTask{ID: domain.TaskIDCatalogSync, Name: "Catalog Sync", Interval: time.Hour, Enabled: true}
	require.NoError(t, schedulerStore.SaveTask(ctx, task))

	task.Complete(&domain.TaskResult{StartedAt: start, EndedAt: start.Add(time.Minute), Outcome: domain.OutcomeFailed, Error: "timeout"})
	require.NoError(t, schedulerStore.SaveTask(ctx, task))

	retrieved, err := schedulerStore.GetTask(ctx, domain.TaskIDCatalogSync)
	require.NoError(t, err)
	assert.Equal(t, 1, retrieved.ConsecutiveFailures)
	assert.Equal(t, "timeout", retrieved.LastError)
	assert.True(t, retrieved.NextRun.Equal(start.Add(time.Minute+domain.MinRetryDelay)))

	task.Complete(&domain.TaskResult{StartedAt: start, EndedAt: start.Add(2 * time.Minute), Outcome: domain.OutcomeSuccess})
	require.NoError(t, schedulerStore.SaveTask(ctx, task))

	retrieved, err = schedulerStore.GetTask(ctx, domain.TaskIDCatalogSync)
	require.NoError(t, err)
	assert.Zero(t, retrieved.ConsecutiveFailures)
	assert.Empty(t, retrieved.LastError)
	assert.True(t, retrieved.LastSuccess.Equal(start.Add(2*time.Minute)))
}

func TestSchedulerStore_SaveTask_Invalid(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	schedulerStore := store.SchedulerStore()

	assert.ErrorIs(t, schedulerStore.SaveTask(context.Background(), nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, schedulerStore.SaveTask(context.Background(), &domain.ScheduledTask{}), domain.ErrInvalidInput)
}

func TestSchedulerStore_ListTasks_OrderedByNextRun(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, schedulerStore.SaveTask(ctx, &domain.ScheduledTask{ID: "late", Name: "Late", Interval: time.Hour, NextRun: now.Add(time.Hour)}))
	require.NoError(t, schedulerStore.SaveTask(ctx, &domain.ScheduledTask{ID: "soon", Name: "Soon", Interval: time.Hour, NextRun: now.Add(time.Minute)}))

	tasks, err := schedulerStore.ListTasks(ctx)

	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "soon", tasks[0].ID)
	assert.Equal(t, "late", tasks[1].ID)
}

func TestSchedulerStore_ListTasks_Empty(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	tasks, err := store.SchedulerStore().ListTasks(context.Background())

	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestSchedulerStore_DeleteTask_RemovesHistory(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	require.NoError(t, schedulerStore.SaveTask(ctx, &domain.ScheduledTask{ID: domain.TaskIDCatalogSync, Name: "Catalog Sync", Interval: time.Hour}))
	require.NoError(t, schedulerStore.RecordResult(ctx, taskResult(domain.TaskIDCatalogSync, time.Now(), domain.OutcomeSuccess)))

	require.NoError(t, schedulerStore.DeleteTask(ctx, domain.TaskIDCatalogSync))

	task, err := schedulerStore.GetTask(ctx, domain.TaskIDCatalogSync)
	require.NoError(t, err)
	assert.Nil(t, task)

	history, err := schedulerStore.GetTaskHistory(ctx, domain.TaskIDCatalogSync, 10)
	require.NoError(t, err)
	assert.Empty(t, history)

	// Deleting again is not an error.
	assert.NoError(t, schedulerStore.DeleteTask(ctx, domain.TaskIDCatalogSync))
}

func TestSchedulerStore_RecordResult(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	started := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	result := &domain.TaskResult{
		TaskID:    domain.TaskIDCatalogSync,
		CycleID:   "cycle-42",
		StartedAt: started,
		EndedAt:   started.Add(90 * time.Second),
		Outcome:   domain.OutcomePartial,
		Error:     "2 items failed",
		Fetched:   1200,
		Submitted: 40,
		Failed:    2,
	}
	require.NoError(t, schedulerStore.RecordResult(ctx, result))

	history, err := schedulerStore.GetTaskHistory(ctx, domain.TaskIDCatalogSync, 10)

	require.NoError(t, err)
	require.Len(t, history, 1)
	got := history[0]
	assert.Equal(t, "cycle-42", got.CycleID)
	assert.Equal(t, domain.OutcomePartial, got.Outcome)
	assert.Equal(t, "2 items failed", got.Error)
	assert.Equal(t, 1200, got.Fetched)
	assert.Equal(t, 40, got.Submitted)
	assert.Equal(t, 2, got.Failed)
	assert.True(t, got.StartedAt.Equal(result.StartedAt))
	assert.True(t, got.EndedAt.Equal(result.EndedAt))
	assert.True(t, got.Succeeded())
}

func TestSchedulerStore_RecordResult_Invalid(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	assert.ErrorIs(t, schedulerStore.RecordResult(ctx, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, schedulerStore.RecordResult(ctx, &domain.TaskResult{TaskID: "x"}), domain.ErrInvalidInput)
}

func TestSchedulerStore_GetTaskHistory_LimitAndOrder(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	base := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		// Results a few milliseconds apart still sort correctly.
		require.NoError(t, schedulerStore.RecordResult(ctx,
			taskResult(domain.TaskIDCatalogSync, base.Add(time.Duration(i)*time.Millisecond), domain.OutcomeSuccess)))
	}

	history, err := schedulerStore.GetTaskHistory(ctx, domain.TaskIDCatalogSync, 3)

	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.True(t, history[0].StartedAt.Equal(base.Add(4*time.Millisecond)))
	assert.True(t, history[2].StartedAt.Equal(base.Add(2*time.Millisecond)))

	none, err := schedulerStore.GetTaskHistory(ctx, domain.TaskIDCatalogSync, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSchedulerStore_PruneHistory(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	base := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		started := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, schedulerStore.RecordResult(ctx, taskResult(domain.TaskIDCatalogSync, started, domain.OutcomeSuccess)))
		require.NoError(t, schedulerStore.RecordResult(ctx, taskResult("other-task", started, domain.OutcomeSkipped)))
	}

	require.NoError(t, schedulerStore.PruneHistory(ctx, 3))

	for _, id := range []string{domain.TaskIDCatalogSync, "other-task"} {
		history, err := schedulerStore.GetTaskHistory(ctx, id, 100)
		require.NoError(t, err)
		require.Len(t, history, 3, id)
		assert.True(t, history[0].StartedAt.Equal(base.Add(9*time.Minute)), id)
	}
}

func TestSchedulerStore_TaskWithZeroTimes(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	require.NoError(t, schedulerStore.SaveTask(ctx, &domain.ScheduledTask{ID: "fresh", Name: "Fresh", Interval: time.Hour, Enabled: true}))

	task, err := schedulerStore.GetTask(ctx, "fresh")

	require.NoError(t, err)
	assert.True(t, task.LastRun.IsZero())
	assert.True(t, task.NextRun.IsZero())
	assert.True(t, task.LastSuccess.IsZero())
	assert.True(t, task.IsDue(time.Now()))
}

func TestFormatNullableTime(t *testing.T) {
	assert.Nil(t, formatNullableTime(time.Time{}))

	ts := time.Date(2026, 1, 2, 3, 4, 5, 6, time.FixedZone("CET", 3600))
	assert.Equal(t, "2026-01-02T02:04:05.000000006Z", formatNullableTime(ts))
	assert.True(t, ts.Equal(parseNullableTime(sql.NullString{String: "2026-01-02T02:04:05.000000006Z", Valid: true})))
	assert.True(t, parseNullableTime(sql.NullString{}).IsZero())
}

func TestNullString(t *testing.T) {
	assert.Nil(t, nullString(""))
	assert.Equal(t, "x", nullString("x"))
	assert.Equal(t, 1, boolToInt(true))
	assert.Equal(t, 0, boolToInt(false))
}

func taskResult(taskID string, started time.Time, outcome domain.TaskOutcome) *domain.TaskResult {
	return &domain.TaskResult{
		TaskID:    taskID,
		CycleID:   fmt.Sprintf("cycle-%d", started.UnixNano()),
		StartedAt: started,
		EndedAt:   started.Add(time.Second),
		Outcome:   outcome,
	}
}
