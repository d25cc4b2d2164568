package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
)

// Ensure CatalogStore implements the interface.
var _ driven.CatalogStore = (*CatalogStore)(nil)

// CatalogStore is an in-memory implementation of driven.CatalogStore.
type CatalogStore struct {
	mu      sync.RWMutex
	records map[string]domain.CatalogRecord // keyed by external id
	now     func() time.Time
}

// NewCatalogStore creates a new in-memory catalog store.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		records: make(map[string]domain.CatalogRecord),
		now:     time.Now,
	}
}

// Upsert inserts or overwrites a record keyed by external id.
func (s *CatalogStore) Upsert(_ context.Context, record domain.CatalogRecord) (domain.UpsertOutcome, error) {
	if err := record.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	record.LastSyncTime = now
	record.UpdatedAt = now

	existing, ok := s.records[record.ExternalID]
	if ok {
		record.CreatedAt = existing.CreatedAt
		s.records[record.ExternalID] = record
		return domain.UpsertUpdated, nil
	}
	record.CreatedAt = now
	s.records[record.ExternalID] = record
	return domain.UpsertInserted, nil
}

// GetBySKU returns the record for a SKU.
func (s *CatalogStore) GetBySKU(_ context.Context, sku string) (*domain.CatalogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.SKU == sku {
			rec := r
			return &rec, nil
		}
	}
	return nil, domain.ErrNotFound
}

// GetBySKUs returns the records matching any of the SKUs, ordered by SKU.
func (s *CatalogStore) GetBySKUs(_ context.Context, skus []string) ([]domain.CatalogRecord, error) {
	want := make(map[string]struct{}, len(skus))
	for _, sku := range skus {
		want[sku] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.CatalogRecord
	for _, r := range s.records {
		if _, ok := want[r.SKU]; ok {
			out = append(out, r)
		}
	}
	sortBySKU(out)
	return out, nil
}

// List returns every record ordered by SKU.
func (s *CatalogStore) List(_ context.Context) ([]domain.CatalogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CatalogRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sortBySKU(out)
	return out, nil
}

// Count returns the number of records.
func (s *CatalogStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// AllIdentities returns the set of external ids.
func (s *CatalogStore) AllIdentities(_ context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[string]struct{}, len(s.records))
	for id := range s.records {
		ids[id] = struct{}{}
	}
	return ids, nil
}

// DeleteWhereIdentityNotIn removes records whose external id is not in keep.
// An empty keep set deletes nothing.
func (s *CatalogStore) DeleteWhereIdentityNotIn(_ context.Context, keep map[string]struct{}) (int, error) {
	if len(keep) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id := range s.records {
		if _, ok := keep[id]; !ok {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// LatestSyncTime returns the most recent LastSyncTime.
func (s *CatalogStore) LatestSyncTime(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	for _, r := range s.records {
		if r.LastSyncTime.After(latest) {
			latest = r.LastSyncTime
		}
	}
	return latest, nil
}

// ApplyMutation writes a submitted mutation into the cached record.
func (s *CatalogStore) ApplyMutation(_ context.Context, c domain.MutationCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.ExternalID
	if _, ok := s.records[id]; !ok {
		id = ""
		for extID, r := range s.records {
			if r.SKU == c.SKU {
				id = extID
				break
			}
		}
		if id == "" {
			return domain.ErrNotFound
		}
	}

	rec := s.records[id]
	if err := rec.Apply(c); err != nil {
		return err
	}
	rec.UpdatedAt = s.now()
	s.records[id] = rec
	return nil
}

func sortBySKU(records []domain.CatalogRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].SKU != records[j].SKU {
			return records[i].SKU < records[j].SKU
		}
		return records[i].ExternalID < records[j].ExternalID
	})
}
