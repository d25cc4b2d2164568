package driven

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// LocalStore is the narrow read contract of the authoritative commerce store.
// The engine never writes to it.
type LocalStore interface {
	// FindBySKU returns the local product for a SKU.
	// Returns nil and no error if no product carries the SKU.
	FindBySKU(ctx context.Context, sku string) (*domain.LocalRecord, error)

	// GetPrice returns the current price of a product.
	GetPrice(ctx context.Context, productID string) (decimal.Decimal, error)

	// GetStock returns the stock quantity of a product.
	// Returns nil when the product does not manage stock.
	GetStock(ctx context.Context, productID string) (*int, error)
}
