package domain

import (
	"fmt"
	"time"
)

// NotificationType classifies notification events.
type NotificationType string

// Notification types emitted by the engine.
const (
	NotifyFetchCycle    NotificationType = "fetch_cycle"
	NotifyDeletionBatch NotificationType = "deletion_batch"
	NotifyDispatchRun   NotificationType = "dispatch_run"
	NotifyCycleReport   NotificationType = "cycle_report"
)

// Severity is the importance of a notification.
type Severity string

// Severities.
const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a structured, purely observational event.
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Severity  Severity
	Payload   map[string]any
	CreatedAt time.Time
}

// CycleReport is the aggregate outcome of one reconciliation cycle.
type CycleReport struct {
	CycleID   string
	StartedAt time.Time
	EndedAt   time.Time

	// FetchSkipped is true when the cache was fresh and no fetch ran.
	FetchSkipped bool

	// FetchComplete is true when the fetch reached the end of data.
	FetchComplete bool

	Fetched  int
	Inserted int
	Updated  int
	Deleted  int
	Dropped  int

	Unmatched  int
	Candidates int
	Submitted  int
	Failed     int
	Skipped    int

	DryRun bool

	// Errors holds the first N error strings of the cycle.
	Errors []string

	// TotalErrors counts every error, including those not kept in Errors.
	TotalErrors int
}

// AddError records an error, keeping at most limit messages.
func (r *CycleReport) AddError(err error, limit int) {
	if err == nil {
		return
	}
	r.TotalErrors++
	if limit <= 0 || len(r.Errors) < limit {
		r.Errors = append(r.Errors, err.Error())
	}
}

// Severity derives the report severity from its counts.
func (r *CycleReport) Severity() Severity {
	switch {
	case r.TotalErrors > 0 && r.Submitted == 0 && r.Fetched == 0:
		return SeverityError
	case r.TotalErrors > 0 || r.Failed > 0:
		return SeverityWarning
	default:
		return SeveritySuccess
	}
}

// Summary renders a one-line report.
func (r *CycleReport) Summary() string {
	return fmt.Sprintf(
		"fetched %d (inserted %d, updated %d, dropped %d), deleted %d, unmatched %d, "+
			"candidates %d, submitted %d, failed %d, errors %d",
		r.Fetched, r.Inserted, r.Updated, r.Dropped, r.Deleted, r.Unmatched,
		r.Candidates, r.Submitted, r.Failed, r.TotalErrors)
}

// Duration returns how long the cycle ran.
func (r *CycleReport) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}
