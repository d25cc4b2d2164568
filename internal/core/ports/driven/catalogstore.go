package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// CatalogStore persists the last-known marketplace record per external id.
type CatalogStore interface {
	// Upsert inserts or fully overwrites a record keyed by ExternalID.
	// LastSyncTime and UpdatedAt are refreshed on every call.
	Upsert(ctx context.Context, record domain.CatalogRecord) (domain.UpsertOutcome, error)

	// GetBySKU returns the record for a SKU, or domain.ErrNotFound.
	GetBySKU(ctx context.Context, sku string) (*domain.CatalogRecord, error)

	// GetBySKUs returns the records matching any of the SKUs. Missing SKUs are skipped.
	GetBySKUs(ctx context.Context, skus []string) ([]domain.CatalogRecord, error)

	// List returns every cached record ordered by SKU.
	List(ctx context.Context) ([]domain.CatalogRecord, error)

	// Count returns the number of cached records.
	Count(ctx context.Context) (int, error)

	// AllIdentities returns the set of cached external ids.
	AllIdentities(ctx context.Context) (map[string]struct{}, error)

	// DeleteWhereIdentityNotIn removes every record whose external id is not in keep.
	// An empty keep set deletes nothing.
	DeleteWhereIdentityNotIn(ctx context.Context, keep map[string]struct{}) (int, error)

	// LatestSyncTime returns the most recent LastSyncTime, or zero time for an empty table.
	LatestSyncTime(ctx context.Context) (time.Time, error)

	// ApplyMutation writes a submitted mutation's desired value into the cached record.
	ApplyMutation(ctx context.Context, candidate domain.MutationCandidate) error
}
