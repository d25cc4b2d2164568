package driven

import (
	"context"
	"net/url"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// MarketplaceClient is the opaque request function of the marketplace API.
// Implementations own transport, authentication, signing and low-level
// retry/backoff.
type MarketplaceClient interface {
	// Request performs one API call and returns the raw response body.
	// body is JSON-encoded when non-nil. A non-2xx response is an error.
	Request(ctx context.Context, method, endpoint string, query url.Values, body any) ([]byte, error)
}

// CatalogGateway is the typed view of the marketplace endpoints the engine uses.
// Every method decodes its endpoint's response strictly: shapes it does not
// recognise are errors, never successes.
type CatalogGateway interface {
	// ListItems fetches one offset-paginated page of the item listing.
	ListItems(ctx context.Context, offset, limit int) (*ItemsPage, error)

	// ListInventory fetches one cursor-paginated page of bulk inventory.
	// An empty cursor requests the first page.
	ListInventory(ctx context.Context, cursor string, limit int) (*InventoryPage, error)

	// GetInventory fetches the inventory of a single SKU.
	GetInventory(ctx context.Context, sku string) (*InventoryEntry, error)

	// SubmitFeed submits a bulk mutation for one field and returns the feed id.
	SubmitFeed(ctx context.Context, field domain.MutationField, candidates []domain.MutationCandidate) (string, error)

	// MutateItem applies one mutation through the field's single-item endpoint.
	// It returns the feed id when the endpoint answers asynchronously.
	MutateItem(ctx context.Context, candidate domain.MutationCandidate) (string, error)

	// Endpoint names the endpoint used for a field, for error context.
	Endpoint(field domain.MutationField, bulk bool) string
}

// ItemsPage is one decoded page of the item listing.
type ItemsPage struct {
	// Items holds the valid records of the page.
	Items []domain.CatalogRecord

	// Malformed holds one error per dropped item.
	Malformed []error

	// MalformedIDs holds the external ids recovered from dropped items.
	// A dropped item is still listed, so its cached row must survive
	// deletion reconciliation.
	MalformedIDs []string

	// Received counts raw items in the page, valid or not.
	Received int

	// Total is the marketplace's reported total, zero if absent.
	Total int
}

// InventoryEntry is the available quantity of one SKU.
type InventoryEntry struct {
	SKU      string
	Quantity int
}

// InventoryPage is one decoded page of bulk inventory.
type InventoryPage struct {
	Entries   []InventoryEntry
	Malformed []error

	// NextCursor is empty on the last page.
	NextCursor string
}
