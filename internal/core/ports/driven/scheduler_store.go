package driven

import (
	"context"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// SchedulerStore keeps the state of recurring tasks across restarts, so a
// restarted daemon resumes the schedule and backoff where it left off.
type SchedulerStore interface {
	// GetTask returns nil and no error for an unknown task.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	// ListTasks returns every task, soonest next run first.
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask upserts by ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	// DeleteTask removes the task together with its run history.
	DeleteTask(ctx context.Context, taskID string) error

	// RecordResult appends one run to the task's history. The result must
	// name its task and outcome.
	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// GetTaskHistory returns up to limit runs, newest first.
	GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// PruneHistory keeps only the newest keep runs of each task.
	PruneHistory(ctx context.Context, keep int) error
}
