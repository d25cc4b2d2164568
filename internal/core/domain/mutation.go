package domain

import (
	"fmt"
	"time"
)

// MutationField names the marketplace attribute a mutation changes.
type MutationField string

// Reconciled fields. FieldOrder is the dispatch order.
const (
	FieldPrice     MutationField = "PRICE"
	FieldInventory MutationField = "INVENTORY"
	FieldName      MutationField = "NAME"
	FieldStatus    MutationField = "STATUS"
)

// FieldOrder is the order in which field passes are dispatched.
var FieldOrder = []MutationField{FieldPrice, FieldInventory, FieldName, FieldStatus}

// ParseMutationField parses a field name.
func ParseMutationField(s string) (MutationField, error) {
	for _, f := range FieldOrder {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown mutation field %q", ErrInvalidInput, s)
}

// MutationState tracks a candidate through dispatch.
//
//	PENDING -> SUBMITTED -> ACKED | FAILED
//	PENDING -> FAILED
type MutationState string

// Mutation states.
const (
	MutationPending   MutationState = "PENDING"
	MutationSubmitted MutationState = "SUBMITTED"
	MutationAcked     MutationState = "ACKED"
	MutationFailed    MutationState = "FAILED"
)

// CanTransition reports whether moving from one state to another is allowed.
func CanTransition(from, to MutationState) bool {
	switch from {
	case MutationPending:
		return to == MutationSubmitted || to == MutationFailed
	case MutationSubmitted:
		return to == MutationAcked || to == MutationFailed
	default:
		return false
	}
}

// MutationCandidate is a proposed marketplace change derived from a diff.
type MutationCandidate struct {
	SKU          string
	ExternalID   string
	Field        MutationField
	CurrentValue string
	DesiredValue string

	// SourceRef points at the local record that motivated the change.
	SourceRef string

	State MutationState

	// FeedID is set once the candidate was accepted as part of a feed.
	FeedID string
}

// Transition moves the candidate to a new state.
func (c *MutationCandidate) Transition(to MutationState) error {
	if !CanTransition(c.State, to) {
		return fmt.Errorf("%w: %s -> %s for %s", ErrInvalidTransition, c.State, to, c.SKU)
	}
	c.State = to
	return nil
}

// FeedSubmission records an asynchronous bulk job accepted by the marketplace.
// Its completion is not observed by the engine; State stays SUBMITTED until
// a caller polls the feed status and records ACKED or FAILED.
type FeedSubmission struct {
	FeedID      string
	Field       MutationField
	SKUs        []string
	SubmittedAt time.Time
	State       MutationState
	UpdatedAt   time.Time
}

// DiffResult is the output of the diff engine.
type DiffResult struct {
	Candidates []MutationCandidate

	// Unmatched lists catalog SKUs with no local counterpart.
	Unmatched []string

	// Compared counts catalog records that had a local match.
	Compared int
}

// DispatchResult aggregates a dispatcher run.
type DispatchResult struct {
	// Submitted counts items accepted by the marketplace (SUBMITTED).
	// Accepted feeds are not confirmed completions.
	Submitted int

	// Failed counts items rejected even after per-item fallback.
	Failed int

	// Skipped counts items not attempted because the run was cancelled or was a dry run.
	Skipped int

	// Fallbacks counts chunks that were retried item by item.
	Fallbacks int

	Errors []error

	// Feeds lists accepted feed submissions.
	Feeds []FeedSubmission

	// Candidates carries every candidate with its final state.
	Candidates []MutationCandidate
}
