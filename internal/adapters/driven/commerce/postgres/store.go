package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
)

// DefaultTablePrefix is the WordPress default table prefix.
const DefaultTablePrefix = "wp_"

// Meta keys read from postmeta.
const (
	metaSKU         = "_sku"
	metaPrice       = "_price"
	metaManageStock = "_manage_stock"
	metaStock       = "_stock"
)

// Ensure Store implements the interface.
var _ driven.LocalStore = (*Store)(nil)

// querier is the subset of pgxpool.Pool the store uses.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a read-only driven.LocalStore over a commerce database.
type Store struct {
	db    querier
	pool  *pgxpool.Pool
	posts string
	meta  string
}

// New connects to the commerce database and verifies the connection.
func New(ctx context.Context, dsn, tablePrefix string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: commerce dsn is empty", domain.ErrInvalidInput)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to commerce database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging commerce database: %w", err)
	}

	s := newStore(pool, tablePrefix)
	s.pool = pool
	return s, nil
}

func newStore(db querier, tablePrefix string) *Store {
	if tablePrefix == "" {
		tablePrefix = DefaultTablePrefix
	}
	return &Store{
		db:    db,
		posts: pgx.Identifier{tablePrefix + "posts"}.Sanitize(),
		meta:  pgx.Identifier{tablePrefix + "postmeta"}.Sanitize(),
	}
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// FindBySKU returns the product carrying sku, or nil when none does.
// Variations are matched as well as simple products.
func (s *Store) FindBySKU(ctx context.Context, sku string) (*domain.LocalRecord, error) {
	q := fmt.Sprintf(`
SELECT p.id, p.post_title, p.post_status
FROM %[1]s p
JOIN %[2]s m ON m.post_id = p.id AND m.meta_key = $1
WHERE m.meta_value = $2
  AND p.post_type IN ('product', 'product_variation')
  AND p.post_status <> 'trash'
ORDER BY p.id
LIMIT 1`, s.posts, s.meta)

	var id int64
	var title, status string
	err := s.db.QueryRow(ctx, q, metaSKU, sku).Scan(&id, &title, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find product by sku %s: %w", sku, err)
	}

	return &domain.LocalRecord{
		SKU:               sku,
		ProductID:         strconv.FormatInt(id, 10),
		Name:              title,
		PublicationStatus: status,
	}, nil
}

// GetPrice returns the active price of a product.
func (s *Store) GetPrice(ctx context.Context, productID string) (decimal.Decimal, error) {
	id, err := parseProductID(productID)
	if err != nil {
		return decimal.Decimal{}, err
	}

	q := fmt.Sprintf(`
SELECT COALESCE(meta_value, '')
FROM %s
WHERE post_id = $1 AND meta_key = $2
ORDER BY meta_id DESC
LIMIT 1`, s.meta)

	var raw string
	err = s.db.QueryRow(ctx, q, id, metaPrice).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Decimal{}, fmt.Errorf("%w: price of product %s", domain.ErrNotFound, productID)
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("get price of product %s: %w", productID, err)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: product %s has no price", domain.ErrNotFound, productID)
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: price %q of product %s", domain.ErrInvalidInput, raw, productID)
	}
	return price, nil
}

// GetStock returns the stock quantity of a product, or nil when the
// product does not manage stock.
func (s *Store) GetStock(ctx context.Context, productID string) (*int, error) {
	id, err := parseProductID(productID)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
SELECT
  EXISTS (SELECT 1 FROM %[1]s WHERE id = $1),
  COALESCE((SELECT meta_value FROM %[2]s WHERE post_id = $1 AND meta_key = $2 ORDER BY meta_id DESC LIMIT 1), ''),
  COALESCE((SELECT meta_value FROM %[2]s WHERE post_id = $1 AND meta_key = $3 ORDER BY meta_id DESC LIMIT 1), '')`,
		s.posts, s.meta)

	var exists bool
	var manage, stock string
	if err := s.db.QueryRow(ctx, q, id, metaManageStock, metaStock).Scan(&exists, &manage, &stock); err != nil {
		return nil, fmt.Errorf("get stock of product %s: %w", productID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, productID)
	}
	if !strings.EqualFold(strings.TrimSpace(manage), "yes") || strings.TrimSpace(stock) == "" {
		return nil, nil
	}

	// Stock is stored as text and may carry a fractional part.
	qty, err := decimal.NewFromString(strings.TrimSpace(stock))
	if err != nil {
		return nil, fmt.Errorf("%w: stock %q of product %s", domain.ErrInvalidInput, stock, productID)
	}
	n := int(qty.IntPart())
	return &n, nil
}

func parseProductID(productID string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(productID), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: product id %q", domain.ErrInvalidInput, productID)
	}
	return id, nil
}
