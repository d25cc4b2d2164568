package driving

import "context"

// Scheduler runs catalog cycles on the configured interval until stopped.
// Failed cycles are retried with backoff; a cycle held by another process
// is skipped.
type Scheduler interface {
	// Start blocks until ctx is done or Stop is called.
	Start(ctx context.Context) error

	// Stop waits for an in-flight cycle to finish.
	Stop() error
}
