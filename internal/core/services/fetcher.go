package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
	"github.com/custodia-labs/marketsync/internal/logger"
)

// Resource names used in fetch error context.
const (
	ResourceItems       = "items"
	ResourceInventories = "inventories"
	ResourceInventory   = "inventory"
)

// InventoryResult is the outcome of a bulk inventory pass.
type InventoryResult struct {
	// Quantities maps SKU to available quantity.
	Quantities map[string]int

	Errors   []error
	Dropped  int
	Pages    int
	Complete bool
}

// CatalogFetcher drives paginated retrieval of the remote catalog.
type CatalogFetcher struct {
	gateway   driven.CatalogGateway
	pageDelay time.Duration
}

// NewCatalogFetcher creates a fetcher that pauses pageDelay between pages.
func NewCatalogFetcher(gateway driven.CatalogGateway, pageDelay time.Duration) *CatalogFetcher {
	return &CatalogFetcher{gateway: gateway, pageDelay: pageDelay}
}

// FetchAll walks the offset-paginated item listing until the end of data.
//
// The loop stops on an empty page or on a page shorter than pageSize.
// A page-level error aborts the walk and leaves the result incomplete;
// malformed items are dropped and counted, but their recovered ids still
// count as listed.
func (f *CatalogFetcher) FetchAll(ctx context.Context, pageSize int) *domain.FetchResult {
	result := &domain.FetchResult{}
	if pageSize <= 0 {
		result.Errors = append(result.Errors, fmt.Errorf("%w: page size %d", domain.ErrInvalidInput, pageSize))
		return result
	}

	state := domain.NewSyncCycleState(pageSize)
	result.SeenIDs = state.AccumulatedIDs
	index := make(map[string]int)
	pacer := newPacer(f.pageDelay)

	for state.HasMore {
		if err := pacer.Wait(ctx); err != nil {
			result.Errors = append(result.Errors, &domain.FetchError{
				Endpoint: ResourceItems, Offset: state.Offset, Err: err,
			})
			return result
		}

		page, err := f.gateway.ListItems(ctx, state.Offset, pageSize)
		if err != nil {
			logger.Warn("Item fetch aborted at offset %d: %v", state.Offset, err)
			result.Errors = append(result.Errors, &domain.FetchError{
				Endpoint: ResourceItems, Offset: state.Offset, Err: err,
			})
			return result
		}
		result.Pages++

		for _, bad := range page.Malformed {
			logger.Warn("Dropping malformed item at offset %d: %v", state.Offset, bad)
			result.Dropped++
			result.Errors = append(result.Errors, bad)
		}
		for _, id := range page.MalformedIDs {
			state.AccumulatedIDs[id] = struct{}{}
		}

		for _, rec := range page.Items {
			if i, seen := index[rec.ExternalID]; seen {
				result.Records[i] = rec
				continue
			}
			index[rec.ExternalID] = len(result.Records)
			state.AccumulatedIDs[rec.ExternalID] = struct{}{}
			result.Records = append(result.Records, rec)
		}

		switch {
		case page.Received == 0:
			state.HasMore = false
		case page.Received < pageSize:
			state.HasMore = false
		default:
			state.Offset += page.Received
		}
		logger.Debug("Fetched items page %d: %d received, %d kept so far", result.Pages, page.Received, len(result.Records))
	}

	result.Complete = true
	return result
}

// FetchInventory walks the cursor-paginated bulk inventory endpoint.
//
// The loop stops on an empty page or when no continuation cursor is returned.
// A cursor that does not advance is treated as a page-level error.
func (f *CatalogFetcher) FetchInventory(ctx context.Context, pageSize int) *InventoryResult {
	result := &InventoryResult{Quantities: make(map[string]int)}
	if pageSize <= 0 {
		result.Errors = append(result.Errors, fmt.Errorf("%w: page size %d", domain.ErrInvalidInput, pageSize))
		return result
	}

	state := domain.NewSyncCycleState(pageSize)
	pacer := newPacer(f.pageDelay)

	for state.HasMore {
		if err := pacer.Wait(ctx); err != nil {
			result.Errors = append(result.Errors, &domain.FetchError{
				Endpoint: ResourceInventories, Cursor: state.Cursor, Err: err,
			})
			return result
		}

		page, err := f.gateway.ListInventory(ctx, state.Cursor, pageSize)
		if err != nil {
			logger.Warn("Inventory fetch aborted: %v", err)
			result.Errors = append(result.Errors, &domain.FetchError{
				Endpoint: ResourceInventories, Cursor: state.Cursor, Err: err,
			})
			return result
		}
		result.Pages++

		for _, bad := range page.Malformed {
			logger.Warn("Dropping malformed inventory entry: %v", bad)
			result.Dropped++
			result.Errors = append(result.Errors, bad)
		}
		for _, e := range page.Entries {
			result.Quantities[e.SKU] = e.Quantity
		}

		switch {
		case len(page.Entries)+len(page.Malformed) == 0:
			state.HasMore = false
		case page.NextCursor == "":
			state.HasMore = false
		case page.NextCursor == state.Cursor:
			result.Errors = append(result.Errors, &domain.FetchError{
				Endpoint: ResourceInventories, Cursor: state.Cursor,
				Err: fmt.Errorf("%w: cursor did not advance", domain.ErrUnrecognizedResponse),
			})
			return result
		default:
			state.Cursor = page.NextCursor
		}
	}

	result.Complete = true
	return result
}

// FetchOne reads the current inventory of a single SKU.
func (f *CatalogFetcher) FetchOne(ctx context.Context, sku string) (*driven.InventoryEntry, error) {
	entry, err := f.gateway.GetInventory(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("fetch %s of %s: %w", ResourceInventory, sku, err)
	}
	return entry, nil
}

// MergeInventory overwrites inventory counts of records whose SKU appears in
// quantities and returns how many records were updated.
func MergeInventory(records []domain.CatalogRecord, quantities map[string]int) int {
	merged := 0
	for i := range records {
		if qty, ok := quantities[records[i].SKU]; ok {
			records[i].InventoryCount = qty
			merged++
		}
	}
	return merged
}
