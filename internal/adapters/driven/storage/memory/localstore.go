package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
)

// Ensure LocalStore implements the interface.
var _ driven.LocalStore = (*LocalStore)(nil)

// LocalStore is an in-memory commerce store keyed by SKU.
type LocalStore struct {
	mu    sync.RWMutex
	bySKU map[string]domain.LocalRecord
	byID  map[string]string // product id -> sku
}

// NewLocalStore creates a local store holding records.
func NewLocalStore(records ...domain.LocalRecord) *LocalStore {
	s := &LocalStore{
		bySKU: make(map[string]domain.LocalRecord),
		byID:  make(map[string]string),
	}
	for _, r := range records {
		s.Put(r)
	}
	return s
}

// Put adds or replaces a local record. ProductID defaults to the SKU.
func (s *LocalStore) Put(r domain.LocalRecord) {
	if r.ProductID == "" {
		r.ProductID = r.SKU
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySKU[r.SKU] = r
	s.byID[r.ProductID] = r.SKU
}

// FindBySKU returns the record for sku, or nil.
func (s *LocalStore) FindBySKU(_ context.Context, sku string) (*domain.LocalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.bySKU[sku]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// GetPrice returns the price of a product.
func (s *LocalStore) GetPrice(_ context.Context, productID string) (decimal.Decimal, error) {
	r, err := s.byProduct(productID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return r.Price, nil
}

// GetStock returns the stock of a product, nil when unmanaged.
func (s *LocalStore) GetStock(_ context.Context, productID string) (*int, error) {
	r, err := s.byProduct(productID)
	if err != nil {
		return nil, err
	}
	if r.StockQuantity == nil {
		return nil, nil
	}
	qty := *r.StockQuantity
	return &qty, nil
}

func (s *LocalStore) byProduct(productID string) (domain.LocalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sku, ok := s.byID[productID]
	if !ok {
		return domain.LocalRecord{}, domain.ErrNotFound
	}
	return s.bySKU[sku], nil
}
