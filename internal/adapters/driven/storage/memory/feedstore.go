package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
)

// Ensure FeedStore implements the interface.
var _ driven.FeedStore = (*FeedStore)(nil)

// FeedStore is an in-memory implementation of driven.FeedStore.
type FeedStore struct {
	mu    sync.RWMutex
	feeds map[string]domain.FeedSubmission
}

// NewFeedStore creates a new in-memory feed store.
func NewFeedStore() *FeedStore {
	return &FeedStore{
		feeds: make(map[string]domain.FeedSubmission),
	}
}

// SaveFeed stores or replaces a feed submission.
func (s *FeedStore) SaveFeed(_ context.Context, feed domain.FeedSubmission) error {
	if feed.FeedID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	feed.SKUs = append([]string(nil), feed.SKUs...)
	s.feeds[feed.FeedID] = feed
	return nil
}

// ListFeeds returns feeds in state, newest first. An empty state lists all.
func (s *FeedStore) ListFeeds(_ context.Context, state domain.MutationState) ([]domain.FeedSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.FeedSubmission
	for _, f := range s.feeds {
		if state == "" || f.State == state {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].FeedID < out[j].FeedID
	})
	return out, nil
}

// UpdateFeedState moves a feed to a final state.
func (s *FeedStore) UpdateFeedState(_ context.Context, feedID string, state domain.MutationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.feeds[feedID]
	if !ok {
		return domain.ErrNotFound
	}
	if !domain.CanTransition(f.State, state) {
		return domain.ErrInvalidTransition
	}
	f.State = state
	f.UpdatedAt = time.Now()
	s.feeds[feedID] = f
	return nil
}
