package marketplace

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
)

// Wire shapes. Each decoder below requires the envelope of its endpoint and
// fails with domain.ErrUnrecognizedResponse otherwise.

type itemsEnvelope struct {
	ItemResponse *[]json.RawMessage `json:"ItemResponse"`
	TotalItems   int                `json:"totalItems"`
}

type itemPayload struct {
	Wpid            string           `json:"wpid"`
	SKU             string           `json:"sku"`
	ProductName     string           `json:"productName"`
	ProductType     string           `json:"productType"`
	Price           *moneyPayload    `json:"price"`
	PublishedStatus string           `json:"publishedStatus"`
	LifecycleStatus string           `json:"lifecycleStatus"`
	Inventory       *quantityPayload `json:"inventory"`
}

type moneyPayload struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

type quantityPayload struct {
	Unit   string `json:"unit,omitempty"`
	Amount *int   `json:"amount"`
}

type inventoryEnvelope struct {
	Elements *struct {
		Inventories *[]json.RawMessage `json:"inventories"`
	} `json:"elements"`
	Meta struct {
		TotalCount int    `json:"totalCount"`
		NextCursor string `json:"nextCursor"`
	} `json:"meta"`
}

type inventoryNodesPayload struct {
	SKU   string `json:"sku"`
	Nodes *[]struct {
		ShipNode       string          `json:"shipNode"`
		AvailToSellQty quantityPayload `json:"availToSellQty"`
	} `json:"nodes"`
}

type inventoryPayload struct {
	SKU      string           `json:"sku"`
	Quantity *quantityPayload `json:"quantity"`
}

type feedAckPayload struct {
	FeedID string `json:"feedId"`
}

type priceAckPayload struct {
	ItemPriceResponse *struct {
		SKU     string `json:"sku"`
		Message string `json:"message"`
	} `json:"ItemPriceResponse"`
}

func unrecognized(endpoint, reason string) error {
	return fmt.Errorf("%w: %s: %s", domain.ErrUnrecognizedResponse, endpoint, reason)
}

// DecodeItemsPage decodes an item listing page. Items missing identity
// fields or carrying unparsable values are dropped into Malformed, and
// their wpid, when one can be read, into MalformedIDs.
func DecodeItemsPage(body []byte) (*driven.ItemsPage, error) {
	var env itemsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, unrecognized(ItemsEndpoint, err.Error())
	}
	if env.ItemResponse == nil {
		return nil, unrecognized(ItemsEndpoint, "missing ItemResponse")
	}

	raw := *env.ItemResponse
	page := &driven.ItemsPage{
		Items:    make([]domain.CatalogRecord, 0, len(raw)),
		Received: len(raw),
		Total:    env.TotalItems,
	}
	for i, msg := range raw {
		rec, err := decodeItem(msg)
		if err != nil {
			page.Malformed = append(page.Malformed, fmt.Errorf("item %d: %w", i, err))
			if id := recoverWpid(msg); id != "" {
				page.MalformedIDs = append(page.MalformedIDs, id)
			}
			continue
		}
		page.Items = append(page.Items, rec)
	}
	return page, nil
}

func decodeItem(msg json.RawMessage) (domain.CatalogRecord, error) {
	var p itemPayload
	if err := json.Unmarshal(msg, &p); err != nil {
		return domain.CatalogRecord{}, fmt.Errorf("%w: %v", domain.ErrMalformedItem, err)
	}

	rec := domain.CatalogRecord{
		ExternalID:      strings.TrimSpace(p.Wpid),
		SKU:             strings.TrimSpace(p.SKU),
		Name:            p.ProductName,
		Category:        p.ProductType,
		LifecycleStatus: lifecycleOf(p.PublishedStatus, p.LifecycleStatus),
		SyncStatus:      domain.RecordSyncSuccess,
	}
	if p.Price == nil {
		return domain.CatalogRecord{}, fmt.Errorf("%w: missing price for %s", domain.ErrMalformedItem, rec.ExternalID)
	}
	rec.Price = p.Price.Amount
	if p.Inventory != nil && p.Inventory.Amount != nil {
		rec.InventoryCount = *p.Inventory.Amount
	}

	if err := rec.Validate(); err != nil {
		return domain.CatalogRecord{}, err
	}
	return rec, nil
}

// recoverWpid reads only the identity of an item that failed to decode.
func recoverWpid(msg json.RawMessage) string {
	var p struct {
		Wpid string `json:"wpid"`
	}
	if err := json.Unmarshal(msg, &p); err != nil {
		return ""
	}
	return strings.TrimSpace(p.Wpid)
}

// lifecycleOf folds the marketplace's two status fields into one.
func lifecycleOf(published, lifecycle string) domain.LifecycleStatus {
	switch strings.ToUpper(strings.TrimSpace(lifecycle)) {
	case "RETIRED", "ARCHIVED":
		return domain.LifecycleRetired
	}
	return domain.ParseLifecycleStatus(published)
}

// DecodeInventoryPage decodes a cursor-paginated bulk inventory page.
func DecodeInventoryPage(body []byte) (*driven.InventoryPage, error) {
	var env inventoryEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, unrecognized(InventoriesEndpoint, err.Error())
	}
	if env.Elements == nil || env.Elements.Inventories == nil {
		return nil, unrecognized(InventoriesEndpoint, "missing elements.inventories")
	}

	raw := *env.Elements.Inventories
	page := &driven.InventoryPage{
		Entries:    make([]driven.InventoryEntry, 0, len(raw)),
		NextCursor: strings.TrimSpace(env.Meta.NextCursor),
	}
	for i, msg := range raw {
		var p inventoryNodesPayload
		if err := json.Unmarshal(msg, &p); err != nil {
			page.Malformed = append(page.Malformed, fmt.Errorf("inventory %d: %w: %v", i, domain.ErrMalformedItem, err))
			continue
		}
		if strings.TrimSpace(p.SKU) == "" || p.Nodes == nil {
			page.Malformed = append(page.Malformed, fmt.Errorf("inventory %d: %w: missing sku or nodes", i, domain.ErrMalformedItem))
			continue
		}
		total := 0
		for _, n := range *p.Nodes {
			if n.AvailToSellQty.Amount != nil && *n.AvailToSellQty.Amount > 0 {
				total += *n.AvailToSellQty.Amount
			}
		}
		page.Entries = append(page.Entries, driven.InventoryEntry{SKU: strings.TrimSpace(p.SKU), Quantity: total})
	}
	return page, nil
}

// DecodeInventoryEntry decodes the single-item inventory response and
// checks it refers to sku.
func DecodeInventoryEntry(body []byte, sku string) (*driven.InventoryEntry, error) {
	var p inventoryPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, unrecognized(InventoryEndpoint, err.Error())
	}
	if p.Quantity == nil || p.Quantity.Amount == nil {
		return nil, unrecognized(InventoryEndpoint, "missing quantity.amount")
	}
	if p.SKU != sku {
		return nil, unrecognized(InventoryEndpoint, fmt.Sprintf("sku %q does not match %q", p.SKU, sku))
	}
	return &driven.InventoryEntry{SKU: p.SKU, Quantity: *p.Quantity.Amount}, nil
}

// DecodeFeedAck extracts the feed id of an accepted bulk submission.
func DecodeFeedAck(body []byte) (string, error) {
	var p feedAckPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return "", unrecognized(FeedsEndpoint, err.Error())
	}
	if strings.TrimSpace(p.FeedID) == "" {
		return "", unrecognized(FeedsEndpoint, "missing feedId")
	}
	return p.FeedID, nil
}

// DecodePriceAck checks a single-item price update was accepted for sku.
func DecodePriceAck(body []byte, sku string) error {
	var p priceAckPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return unrecognized(PriceEndpoint, err.Error())
	}
	if p.ItemPriceResponse == nil {
		return unrecognized(PriceEndpoint, "missing ItemPriceResponse")
	}
	if p.ItemPriceResponse.SKU != sku {
		return unrecognized(PriceEndpoint, fmt.Sprintf("sku %q does not match %q", p.ItemPriceResponse.SKU, sku))
	}
	return nil
}
