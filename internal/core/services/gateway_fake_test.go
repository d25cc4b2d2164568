package services

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
)

// --- Fake marketplace gateway shared by service tests ---

var errTransport = errors.New("transport failure")

// fakeGateway serves scripted pages and records every call.
type fakeGateway struct {
	mu sync.Mutex

	// items is the full remote listing, served in offset pages.
	items      []domain.CatalogRecord
	malformed  map[int]int      // offset -> malformed items appended to that page
	droppedIDs map[int][]string // offset -> malformed items with a readable id
	itemErrAt  map[int]error

	// inventory pages keyed by request cursor ("" is the first page).
	inventory map[string]*driven.InventoryPage
	invErr    error
	single    map[string]int

	submitFn func(field domain.MutationField, batch []domain.MutationCandidate) (string, error)
	mutateFn func(c domain.MutationCandidate) (string, error)

	offsets []int
	cursors []string
	submits [][]domain.MutationCandidate
	mutates []domain.MutationCandidate
}

func newFakeGateway(items ...domain.CatalogRecord) *fakeGateway {
	return &fakeGateway{items: items}
}

func (g *fakeGateway) ListItems(_ context.Context, offset, limit int) (*driven.ItemsPage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.offsets = append(g.offsets, offset)

	if err := g.itemErrAt[offset]; err != nil {
		return nil, err
	}
	page := &driven.ItemsPage{Total: len(g.items)}
	if offset < len(g.items) {
		end := offset + limit
		if end > len(g.items) {
			end = len(g.items)
		}
		page.Items = append(page.Items, g.items[offset:end]...)
	}
	for i := 0; i < g.malformed[offset]; i++ {
		page.Malformed = append(page.Malformed, domain.ErrMalformedItem)
	}
	for _, id := range g.droppedIDs[offset] {
		page.Malformed = append(page.Malformed, domain.ErrMalformedItem)
		page.MalformedIDs = append(page.MalformedIDs, id)
	}
	page.Received = len(page.Items) + len(page.Malformed)
	return page, nil
}

func (g *fakeGateway) ListInventory(_ context.Context, cursor string, _ int) (*driven.InventoryPage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cursors = append(g.cursors, cursor)

	if g.invErr != nil {
		return nil, g.invErr
	}
	if page, ok := g.inventory[cursor]; ok {
		return page, nil
	}
	return &driven.InventoryPage{}, nil
}

func (g *fakeGateway) GetInventory(_ context.Context, sku string) (*driven.InventoryEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	qty, ok := g.single[sku]
	if !ok {
		return nil, errTransport
	}
	return &driven.InventoryEntry{SKU: sku, Quantity: qty}, nil
}

func (g *fakeGateway) SubmitFeed(
	_ context.Context, field domain.MutationField, batch []domain.MutationCandidate,
) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submits = append(g.submits, append([]domain.MutationCandidate(nil), batch...))
	if g.submitFn != nil {
		return g.submitFn(field, batch)
	}
	return "feed-" + strconv.Itoa(len(g.submits)), nil
}

func (g *fakeGateway) MutateItem(_ context.Context, c domain.MutationCandidate) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mutates = append(g.mutates, c)
	if g.mutateFn != nil {
		return g.mutateFn(c)
	}
	return "", nil
}

func (g *fakeGateway) Endpoint(field domain.MutationField, bulk bool) string {
	if bulk {
		return "feeds"
	}
	return string(field)
}

var _ driven.CatalogGateway = (*fakeGateway)(nil)

func rec(id, sku, price string, qty int) domain.CatalogRecord {
	return domain.CatalogRecord{
		ExternalID:      id,
		SKU:             sku,
		Price:           decimal.RequireFromString(price),
		InventoryCount:  qty,
		LifecycleStatus: domain.LifecyclePublished,
		SyncStatus:      domain.RecordSyncSuccess,
	}
}

func records(n int) []domain.CatalogRecord {
	out := make([]domain.CatalogRecord, n)
	for i := range out {
		out[i] = rec("W"+strconv.Itoa(i), "SKU"+strconv.Itoa(i), "1.00", 1)
	}
	return out
}

func intPtr(v int) *int { return &v }

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }
