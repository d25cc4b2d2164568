package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
)

// Ensure LeaseStore implements the interface.
var _ driven.LeaseStore = (*LeaseStore)(nil)

type lease struct {
	holder    string
	expiresAt time.Time
}

// LeaseStore is an in-memory implementation of driven.LeaseStore.
// It serialises cycles within one process only.
type LeaseStore struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

// NewLeaseStore creates a new in-memory lease store.
func NewLeaseStore() *LeaseStore {
	return &LeaseStore{
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

// Acquire takes the lease if it is free, expired, or already held by holder.
func (s *LeaseStore) Acquire(_ context.Context, name, holder string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if cur, ok := s.leases[name]; ok && cur.holder != holder && now.Before(cur.expiresAt) {
		return false, nil
	}
	s.leases[name] = lease{holder: holder, expiresAt: now.Add(ttl)}
	return true, nil
}

// Release frees the lease held by holder.
func (s *LeaseStore) Release(_ context.Context, name, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.leases[name]
	if !ok || cur.holder != holder {
		return domain.ErrLeaseNotHeld
	}
	delete(s.leases, name)
	return nil
}
