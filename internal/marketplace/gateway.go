package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
)

// Endpoints used by the gateway.
const (
	ItemsEndpoint       = "/v3/items"
	InventoriesEndpoint = "/v3/inventories"
	InventoryEndpoint   = "/v3/inventory"
	PriceEndpoint       = "/v3/price"
	FeedsEndpoint       = "/v3/feeds"
)

// Feed types accepted by the feeds endpoint.
const (
	FeedTypePrice     = "price"
	FeedTypeInventory = "inventory"
	FeedTypeItem      = "item"
)

// DefaultCurrency is used for price payloads when none is configured.
const DefaultCurrency = "USD"

// Ensure Gateway implements the interface.
var _ driven.CatalogGateway = (*Gateway)(nil)

// Gateway maps the engine's typed operations onto marketplace endpoints.
type Gateway struct {
	client   driven.MarketplaceClient
	currency string
}

// NewGateway creates a gateway over a request function.
func NewGateway(client driven.MarketplaceClient, currency string) *Gateway {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Gateway{client: client, currency: currency}
}

// ListItems fetches one page of the item listing.
func (g *Gateway) ListItems(ctx context.Context, offset, limit int) (*driven.ItemsPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	body, err := g.client.Request(ctx, http.MethodGet, ItemsEndpoint, q, nil)
	if err != nil {
		return nil, err
	}
	return DecodeItemsPage(body)
}

// ListInventory fetches one page of bulk inventory.
func (g *Gateway) ListInventory(ctx context.Context, cursor string, limit int) (*driven.InventoryPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("nextCursor", cursor)
	}

	body, err := g.client.Request(ctx, http.MethodGet, InventoriesEndpoint, q, nil)
	if err != nil {
		return nil, err
	}
	return DecodeInventoryPage(body)
}

// GetInventory fetches the inventory of one SKU.
func (g *Gateway) GetInventory(ctx context.Context, sku string) (*driven.InventoryEntry, error) {
	q := url.Values{}
	q.Set("sku", sku)

	body, err := g.client.Request(ctx, http.MethodGet, InventoryEndpoint, q, nil)
	if err != nil {
		return nil, err
	}
	return DecodeInventoryEntry(body, sku)
}

// SubmitFeed submits candidates of one field as a single feed.
func (g *Gateway) SubmitFeed(
	ctx context.Context, field domain.MutationField, candidates []domain.MutationCandidate,
) (string, error) {
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: empty feed", domain.ErrInvalidInput)
	}

	feedType, payload, err := g.feedPayload(field, candidates)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("feedType", feedType)
	body, err := g.client.Request(ctx, http.MethodPost, FeedsEndpoint, q, payload)
	if err != nil {
		return "", err
	}
	return DecodeFeedAck(body)
}

// MutateItem applies one mutation. Price and inventory use their synchronous
// single-item endpoints; name and status go through a one-item feed.
func (g *Gateway) MutateItem(ctx context.Context, c domain.MutationCandidate) (string, error) {
	switch c.Field {
	case domain.FieldPrice:
		amount, err := parsePrice(c)
		if err != nil {
			return "", err
		}
		body, err := g.client.Request(ctx, http.MethodPut, PriceEndpoint, nil, g.priceEntry(c.SKU, amount))
		if err != nil {
			return "", err
		}
		return "", DecodePriceAck(body, c.SKU)

	case domain.FieldInventory:
		qty, err := parseQuantity(c)
		if err != nil {
			return "", err
		}
		q := url.Values{}
		q.Set("sku", c.SKU)
		body, err := g.client.Request(ctx, http.MethodPut, InventoryEndpoint, q, inventoryEntry(c.SKU, qty))
		if err != nil {
			return "", err
		}
		_, err = DecodeInventoryEntry(body, c.SKU)
		return "", err

	case domain.FieldName, domain.FieldStatus:
		return g.SubmitFeed(ctx, c.Field, []domain.MutationCandidate{c})

	default:
		return "", fmt.Errorf("%w: field %q", domain.ErrInvalidInput, c.Field)
	}
}

// Endpoint names the endpoint used for a field.
func (g *Gateway) Endpoint(field domain.MutationField, bulk bool) string {
	if bulk {
		return FeedsEndpoint
	}
	switch field {
	case domain.FieldPrice:
		return PriceEndpoint
	case domain.FieldInventory:
		return InventoryEndpoint
	default:
		return FeedsEndpoint
	}
}

func (g *Gateway) feedPayload(
	field domain.MutationField, candidates []domain.MutationCandidate,
) (string, map[string]any, error) {
	switch field {
	case domain.FieldPrice:
		entries := make([]map[string]any, 0, len(candidates))
		for _, c := range candidates {
			amount, err := parsePrice(c)
			if err != nil {
				return "", nil, err
			}
			entries = append(entries, g.priceEntry(c.SKU, amount))
		}
		return FeedTypePrice, map[string]any{
			"PriceHeader": map[string]any{"version": "1.7"},
			"Price":       entries,
		}, nil

	case domain.FieldInventory:
		entries := make([]map[string]any, 0, len(candidates))
		for _, c := range candidates {
			qty, err := parseQuantity(c)
			if err != nil {
				return "", nil, err
			}
			entries = append(entries, inventoryEntry(c.SKU, qty))
		}
		return FeedTypeInventory, map[string]any{
			"InventoryHeader": map[string]any{"version": "1.4"},
			"Inventory":       entries,
		}, nil

	case domain.FieldName, domain.FieldStatus:
		entries := make([]map[string]any, 0, len(candidates))
		for _, c := range candidates {
			entry := map[string]any{"sku": c.SKU}
			if c.Field != field {
				return "", nil, fmt.Errorf("%w: mixed fields in %s feed", domain.ErrInvalidInput, field)
			}
			if field == domain.FieldName {
				entry["productName"] = c.DesiredValue
			} else {
				entry["lifecycleStatus"] = c.DesiredValue
			}
			entries = append(entries, entry)
		}
		return FeedTypeItem, map[string]any{
			"MPItemFeedHeader": map[string]any{"version": "4.2"},
			"MPItem":           entries,
		}, nil

	default:
		return "", nil, fmt.Errorf("%w: field %q", domain.ErrInvalidInput, field)
	}
}

func (g *Gateway) priceEntry(sku string, amount decimal.Decimal) map[string]any {
	return map[string]any{
		"sku": sku,
		"pricing": []map[string]any{{
			"currentPriceType": "BASE",
			"currentPrice": map[string]any{
				"currency": g.currency,
				"amount":   amount,
			},
		}},
	}
}

func inventoryEntry(sku string, qty int) map[string]any {
	return map[string]any{
		"sku":      sku,
		"quantity": map[string]any{"unit": "EACH", "amount": qty},
	}
}

func parsePrice(c domain.MutationCandidate) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(c.DesiredValue)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: price %q for %s", domain.ErrInvalidInput, c.DesiredValue, c.SKU)
	}
	return amount, nil
}

func parseQuantity(c domain.MutationCandidate) (int, error) {
	qty, err := strconv.Atoi(c.DesiredValue)
	if err != nil || qty < 0 {
		return 0, fmt.Errorf("%w: quantity %q for %s", domain.ErrInvalidInput, c.DesiredValue, c.SKU)
	}
	return qty, nil
}
