package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress indicates a reconciliation cycle is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrFetchIncomplete indicates pagination was aborted before the end of data.
	ErrFetchIncomplete = errors.New("fetch incomplete")

	// ErrMalformedItem indicates a marketplace item is missing identity fields
	// or carries values that cannot be parsed.
	ErrMalformedItem = errors.New("malformed item")

	// ErrUnrecognizedResponse indicates a marketplace response did not match
	// the shape expected for its endpoint.
	ErrUnrecognizedResponse = errors.New("unrecognized response")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuthInvalid indicates the marketplace rejected the credentials.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrLeaseNotHeld indicates a lease release by a holder that does not own it.
	ErrLeaseNotHeld = errors.New("lease not held")

	// ErrInvalidTransition indicates an illegal mutation state change.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// FetchError wraps a page-level failure with its pagination position.
type FetchError struct {
	Endpoint string
	Offset   int
	Cursor   string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Cursor != "" {
		return fmt.Sprintf("fetch %s (cursor %s): %v", e.Endpoint, e.Cursor, e.Err)
	}
	return fmt.Sprintf("fetch %s (offset %d): %v", e.Endpoint, e.Offset, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// MutationError wraps a failed marketplace mutation with its item identity.
type MutationError struct {
	SKU      string
	Field    MutationField
	Endpoint string
	Err      error
}

func (e *MutationError) Error() string {
	if e.SKU == "" {
		return fmt.Sprintf("mutate %s via %s: %v", e.Field, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("mutate %s of %s via %s: %v", e.Field, e.SKU, e.Endpoint, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}
