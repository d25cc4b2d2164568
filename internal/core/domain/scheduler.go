package domain

import "time"

// TaskIDCatalogSync is the built-in reconciliation task.
const TaskIDCatalogSync = "catalog-sync"

// MinRetryDelay is the first retry delay after a failed run. It doubles with
// each consecutive failure and never exceeds the task interval.
const MinRetryDelay = time.Minute

// TaskOutcome classifies a scheduled run.
type TaskOutcome string

// Task outcomes.
const (
	// OutcomeSuccess is a cycle that finished without errors.
	OutcomeSuccess TaskOutcome = "success"

	// OutcomePartial is a cycle that finished with some errors or failed items.
	OutcomePartial TaskOutcome = "partial"

	// OutcomeFailed is a cycle that could not do any useful work.
	OutcomeFailed TaskOutcome = "failed"

	// OutcomeSkipped is a run that found another cycle holding the lease.
	OutcomeSkipped TaskOutcome = "skipped"
)

// OutcomeForReport maps a cycle report to a task outcome.
func OutcomeForReport(r *CycleReport) TaskOutcome {
	if r == nil {
		return OutcomeFailed
	}
	switch r.Severity() {
	case SeverityError:
		return OutcomeFailed
	case SeverityWarning:
		return OutcomePartial
	default:
		return OutcomeSuccess
	}
}

// ScheduledTask is the persisted state of a recurring task.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	LastRun  time.Time
	NextRun  time.Time

	// LastError holds the error of the last failed run. Cleared on success.
	LastError string

	LastSuccess time.Time

	// ConsecutiveFailures drives the retry backoff.
	ConsecutiveFailures int

	Enabled bool
}

// IsDue reports whether the task should run at now.
func (t *ScheduledTask) IsDue(now time.Time) bool {
	return t.Enabled && !t.NextRun.After(now)
}

// Complete records a finished run and schedules the next one.
// Failures are retried sooner with exponential backoff; a skipped run waits
// a full interval without touching the failure count.
func (t *ScheduledTask) Complete(result *TaskResult) {
	t.LastRun = result.StartedAt

	switch result.Outcome {
	case OutcomeFailed:
		t.ConsecutiveFailures++
		t.LastError = result.Error
		t.NextRun = result.EndedAt.Add(t.RetryDelay())
		return
	case OutcomeSuccess, OutcomePartial:
		t.ConsecutiveFailures = 0
		t.LastError = ""
		t.LastSuccess = result.EndedAt
	}
	t.NextRun = result.EndedAt.Add(t.Interval)
}

// RetryDelay returns the delay before retrying after ConsecutiveFailures
// failed runs, capped at the interval.
func (t *ScheduledTask) RetryDelay() time.Duration {
	if t.ConsecutiveFailures <= 0 {
		return t.Interval
	}
	delay := MinRetryDelay
	for i := 1; i < t.ConsecutiveFailures; i++ {
		delay *= 2
		if t.Interval > 0 && delay >= t.Interval {
			break
		}
	}
	if t.Interval > 0 && delay > t.Interval {
		return t.Interval
	}
	return delay
}

// TaskResult is the history entry of one scheduled run.
type TaskResult struct {
	TaskID string

	// CycleID links the run to its cycle report. Empty for skipped runs.
	CycleID string

	StartedAt time.Time
	EndedAt   time.Time
	Outcome   TaskOutcome
	Error     string

	Fetched   int
	Submitted int
	Failed    int
}

// Succeeded reports whether the run did useful work.
func (r *TaskResult) Succeeded() bool {
	return r.Outcome == OutcomeSuccess || r.Outcome == OutcomePartial
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// TaskConfigs holds per-task configuration.
	TaskConfigs map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// GetTaskConfig returns the configuration for a specific task.
// Returns a zero TaskConfig if the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig polls the marketplace hourly.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]TaskConfig{
			TaskIDCatalogSync: {
				Enabled:  true,
				Interval: time.Hour,
			},
		},
	}
}
