package driven

import (
	"context"
	"time"
)

// LeaseStore provides the single-flight guard for reconciliation cycles.
type LeaseStore interface {
	// Acquire atomically takes the named lease for holder if it is free or
	// its previous holder's lease expired. Returns false if another holder
	// owns a live lease.
	Acquire(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)

	// Release frees the lease. Returns domain.ErrLeaseNotHeld if holder does not own it.
	Release(ctx context.Context, name, holder string) error
}
