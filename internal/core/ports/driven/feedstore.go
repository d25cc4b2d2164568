package driven

import (
	"context"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// FeedStore remembers accepted feed submissions so their outcome can be
// reconciled later by polling the marketplace.
type FeedStore interface {
	// SaveFeed stores or replaces a feed submission.
	SaveFeed(ctx context.Context, feed domain.FeedSubmission) error

	// ListFeeds returns feeds in the given state, newest first.
	// An empty state lists every feed.
	ListFeeds(ctx context.Context, state domain.MutationState) ([]domain.FeedSubmission, error)

	// UpdateFeedState moves a feed to ACKED or FAILED.
	UpdateFeedState(ctx context.Context, feedID string, state domain.MutationState) error
}
