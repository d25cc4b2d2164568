package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LifecycleStatus is the publication state of a product on the marketplace.
type LifecycleStatus string

// Lifecycle statuses reported by the marketplace.
const (
	LifecyclePublished   LifecycleStatus = "PUBLISHED"
	LifecycleUnpublished LifecycleStatus = "UNPUBLISHED"
	LifecycleRetired     LifecycleStatus = "RETIRED"
	LifecycleUnknown     LifecycleStatus = "UNKNOWN"
)

// ParseLifecycleStatus maps a marketplace status string onto a LifecycleStatus.
// Matching is case-insensitive; anything unrecognised is LifecycleUnknown.
func ParseLifecycleStatus(s string) LifecycleStatus {
	switch LifecycleStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case LifecyclePublished:
		return LifecyclePublished
	case LifecycleUnpublished:
		return LifecycleUnpublished
	case LifecycleRetired:
		return LifecycleRetired
	default:
		return LifecycleUnknown
	}
}

// RecordSyncStatus records whether the last sync of a record succeeded.
type RecordSyncStatus string

// Record sync outcomes.
const (
	RecordSyncSuccess RecordSyncStatus = "SUCCESS"
	RecordSyncError   RecordSyncStatus = "ERROR"
)

// CatalogRecord is one marketplace product mirrored into the local cache.
//
// ExternalID is the reconciliation key for deletion; SKU is the key used
// to match against the local commerce store.
type CatalogRecord struct {
	// ExternalID is the marketplace's immutable product identity.
	ExternalID string

	// SKU is the seller-assigned stock-keeping unit.
	SKU string

	// Name is the product title as published.
	Name string

	// Price is the published price.
	Price decimal.Decimal

	// InventoryCount is the published available quantity.
	InventoryCount int

	// LifecycleStatus is the publication state.
	LifecycleStatus LifecycleStatus

	// Category is the marketplace category label.
	Category string

	// LastSyncTime is when the record was last refreshed from the marketplace.
	LastSyncTime time.Time

	// SyncStatus is the outcome of the last refresh or mutation.
	SyncStatus RecordSyncStatus

	// SyncErrorMessage holds the last error for SyncStatus ERROR.
	SyncErrorMessage string

	// CreatedAt is when the row was first inserted into the cache.
	CreatedAt time.Time

	// UpdatedAt is when the row was last written.
	UpdatedAt time.Time
}

// Validate checks the identity and value constraints of a record.
func (r *CatalogRecord) Validate() error {
	if strings.TrimSpace(r.ExternalID) == "" {
		return fmt.Errorf("%w: missing external id", ErrMalformedItem)
	}
	if strings.TrimSpace(r.SKU) == "" {
		return fmt.Errorf("%w: missing sku for %s", ErrMalformedItem, r.ExternalID)
	}
	if r.Price.IsNegative() {
		return fmt.Errorf("%w: negative price for %s", ErrMalformedItem, r.SKU)
	}
	if r.InventoryCount < 0 {
		return fmt.Errorf("%w: negative inventory for %s", ErrMalformedItem, r.SKU)
	}
	return nil
}

// UpsertOutcome reports what a cache upsert did.
type UpsertOutcome int

// Upsert outcomes.
const (
	UpsertInserted UpsertOutcome = iota + 1
	UpsertUpdated
)

// String returns the outcome name.
func (o UpsertOutcome) String() string {
	switch o {
	case UpsertInserted:
		return "inserted"
	case UpsertUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// LocalRecord is a read-only projection of the authoritative commerce store.
type LocalRecord struct {
	// SKU matches CatalogRecord.SKU.
	SKU string

	// ProductID is the local store key.
	ProductID string

	// Price is the desired price.
	Price decimal.Decimal

	// StockQuantity is the desired quantity. Nil when the store does not manage stock.
	StockQuantity *int

	// PublicationStatus is the local publication flag (e.g. "publish", "draft").
	PublicationStatus string

	// Name is the local product title. Optional.
	Name string
}

// DesiredLifecycle maps the local publication flag onto a marketplace lifecycle status.
func (l *LocalRecord) DesiredLifecycle() LifecycleStatus {
	switch strings.ToLower(strings.TrimSpace(l.PublicationStatus)) {
	case "publish", "published", "active":
		return LifecyclePublished
	case "draft", "pending", "private", "unpublished":
		return LifecycleUnpublished
	case "trash", "retired", "archived":
		return LifecycleRetired
	default:
		return LifecycleUnknown
	}
}

// SyncCycleState is the transient state of one pagination loop.
type SyncCycleState struct {
	// Cursor is the continuation token for cursor-style endpoints.
	Cursor string

	// Offset is the next offset for offset-style endpoints.
	Offset int

	// PageSize is the requested page size.
	PageSize int

	// AccumulatedIDs holds every external id seen so far.
	AccumulatedIDs map[string]struct{}

	// HasMore reports whether another page should be requested.
	HasMore bool
}

// NewSyncCycleState starts a pagination loop.
func NewSyncCycleState(pageSize int) *SyncCycleState {
	return &SyncCycleState{
		PageSize:       pageSize,
		AccumulatedIDs: make(map[string]struct{}),
		HasMore:        true,
	}
}

// FetchResult is the outcome of a full remote fetch.
type FetchResult struct {
	// Records holds every valid record in fetch order, deduplicated by external id.
	Records []CatalogRecord

	// Errors holds page-level and item-level problems.
	Errors []error

	// Dropped counts malformed items that were skipped.
	Dropped int

	// Pages counts pages successfully retrieved.
	Pages int

	// SeenIDs holds every external id the marketplace listed, including
	// those of dropped items.
	SeenIDs map[string]struct{}

	// Complete is true only when pagination reached a natural end.
	// An incomplete result must never drive deletion reconciliation.
	Complete bool
}

// Identities returns the set of external ids still listed remotely: every
// valid record plus every dropped item whose id was recovered.
func (r *FetchResult) Identities() map[string]struct{} {
	ids := make(map[string]struct{}, len(r.Records)+len(r.SeenIDs))
	for i := range r.Records {
		ids[r.Records[i].ExternalID] = struct{}{}
	}
	for id := range r.SeenIDs {
		ids[id] = struct{}{}
	}
	return ids
}

// Apply writes a mutation's desired value into the record.
func (r *CatalogRecord) Apply(c MutationCandidate) error {
	switch c.Field {
	case FieldPrice:
		price, err := decimal.NewFromString(c.DesiredValue)
		if err != nil {
			return fmt.Errorf("%w: price %q", ErrInvalidInput, c.DesiredValue)
		}
		r.Price = price
	case FieldInventory:
		qty, err := strconv.Atoi(c.DesiredValue)
		if err != nil || qty < 0 {
			return fmt.Errorf("%w: quantity %q", ErrInvalidInput, c.DesiredValue)
		}
		r.InventoryCount = qty
	case FieldName:
		r.Name = c.DesiredValue
	case FieldStatus:
		r.LifecycleStatus = ParseLifecycleStatus(c.DesiredValue)
	default:
		return fmt.Errorf("%w: field %q", ErrInvalidInput, c.Field)
	}
	r.SyncStatus = RecordSyncSuccess
	r.SyncErrorMessage = ""
	return nil
}
