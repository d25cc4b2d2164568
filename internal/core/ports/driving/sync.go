package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// CatalogSync runs reconciliation cycles against the marketplace.
type CatalogSync interface {
	// RunCycle performs one fetch -> diff -> dispatch pass.
	// A report is returned whenever the cycle started, even on partial failure.
	// Returns domain.ErrSyncInProgress if another cycle holds the guard.
	RunCycle(ctx context.Context, opts CycleOptions) (*domain.CycleReport, error)

	// Status returns the state of the current or last cycle.
	Status(ctx context.Context) (*SyncStatus, error)

	// RefreshSKU re-reads one cached SKU's inventory from the marketplace.
	RefreshSKU(ctx context.Context, sku string) (*domain.CatalogRecord, error)

	// Feeds lists accepted feed submissions. An empty state lists all.
	Feeds(ctx context.Context, state domain.MutationState) ([]domain.FeedSubmission, error)

	// ResolveFeed records the polled outcome (ACKED or FAILED) of a feed.
	ResolveFeed(ctx context.Context, feedID string, state domain.MutationState) error
}

// CycleOptions tunes a single cycle.
type CycleOptions struct {
	// Force refreshes the cache even when it is younger than the TTL.
	Force bool

	// DryRun computes mutations without submitting them.
	DryRun bool

	// Fields restricts dispatch to the listed fields. Empty falls back to the
	// configured sync.fields.
	Fields []domain.MutationField
}

// SyncStatus represents the current state of a reconciliation cycle.
type SyncStatus struct {
	// CycleID identifies the running cycle, if any.
	CycleID string

	// Running indicates if a cycle is currently in progress.
	Running bool

	// Stage names the step the running cycle is in.
	Stage string

	// RecordsFetched is the count of records fetched so far.
	RecordsFetched int

	// ErrorCount is the number of errors encountered.
	ErrorCount int

	// LastReport is the report of the last finished cycle in this process.
	LastReport *domain.CycleReport

	// LastSync is when the cache was last refreshed.
	LastSync time.Time
}
