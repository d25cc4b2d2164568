package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
	"github.com/custodia-labs/marketsync/internal/logger"
)

// DispatchOptions tunes a dispatcher run.
type DispatchOptions struct {
	// DryRun reports candidates without submitting anything.
	DryRun bool
}

// BatchDispatcher submits mutation candidates to the marketplace in chunks.
//
// Candidates are grouped by field and split into chunks of at most
// chunkSize. A chunk accepted with a feed id moves every item to SUBMITTED.
// A chunk that fails as a whole is retried item by item.
type BatchDispatcher struct {
	gateway    driven.CatalogGateway
	cache      driven.CatalogStore
	feeds      driven.FeedStore
	chunkSize  int
	chunkDelay time.Duration
	now        func() time.Time
}

// NewBatchDispatcher creates a dispatcher. feeds may be nil, in which case
// accepted feed ids are only reported.
func NewBatchDispatcher(
	gateway driven.CatalogGateway,
	cache driven.CatalogStore,
	feeds driven.FeedStore,
	chunkSize int,
	chunkDelay time.Duration,
) *BatchDispatcher {
	if chunkSize <= 0 {
		chunkSize = domain.DefaultChunkSize
	}
	return &BatchDispatcher{
		gateway:    gateway,
		cache:      cache,
		feeds:      feeds,
		chunkSize:  chunkSize,
		chunkDelay: chunkDelay,
		now:        time.Now,
	}
}

// Dispatch submits candidates and returns the aggregate outcome.
//
// Chunks are processed in order; ctx is checked before each chunk and each
// fallback item. A cancelled run keeps what was already submitted and
// reports the rest as skipped.
func (d *BatchDispatcher) Dispatch(
	ctx context.Context, candidates []domain.MutationCandidate, opts DispatchOptions,
) *domain.DispatchResult {
	work := make([]domain.MutationCandidate, len(candidates))
	copy(work, candidates)
	for i := range work {
		if work[i].State == "" {
			work[i].State = domain.MutationPending
		}
	}
	result := &domain.DispatchResult{Candidates: work}

	if opts.DryRun {
		result.Skipped = len(work)
		return result
	}

	pacer := newPacer(d.chunkDelay)
	for _, chunk := range d.chunks(work, result) {
		if err := pacer.Wait(ctx); err != nil {
			logger.Warn("Dispatch stopped: %v", err)
			result.Errors = append(result.Errors, fmt.Errorf("dispatch interrupted: %w", err))
			break
		}
		d.submitChunk(ctx, chunk, result)
	}

	for i := range work {
		if work[i].State == domain.MutationPending {
			result.Skipped++
		}
	}
	return result
}

// chunks groups pending candidates by field in dispatch order and splits
// each group into chunks. Candidates with an unknown field fail immediately.
func (d *BatchDispatcher) chunks(work []domain.MutationCandidate, result *domain.DispatchResult) [][]*domain.MutationCandidate {
	byField := make(map[domain.MutationField][]*domain.MutationCandidate)
	for i := range work {
		c := &work[i]
		if c.State != domain.MutationPending {
			continue
		}
		if fieldRank(c.Field) == len(domain.FieldOrder) {
			d.fail(c, "", fmt.Errorf("%w: unknown field %q", domain.ErrInvalidInput, c.Field), result)
			continue
		}
		byField[c.Field] = append(byField[c.Field], c)
	}

	var out [][]*domain.MutationCandidate
	for _, field := range domain.FieldOrder {
		group := byField[field]
		for start := 0; start < len(group); start += d.chunkSize {
			end := start + d.chunkSize
			if end > len(group) {
				end = len(group)
			}
			out = append(out, group[start:end])
		}
	}
	return out
}

func (d *BatchDispatcher) submitChunk(ctx context.Context, chunk []*domain.MutationCandidate, result *domain.DispatchResult) {
	field := chunk[0].Field
	batch := make([]domain.MutationCandidate, len(chunk))
	for i, c := range chunk {
		batch[i] = *c
	}

	feedID, err := d.gateway.SubmitFeed(ctx, field, batch)
	if err == nil {
		skus := make([]string, 0, len(chunk))
		for _, c := range chunk {
			d.submitted(ctx, c, feedID, result)
			skus = append(skus, c.SKU)
		}
		d.recordFeed(ctx, feedID, field, skus, result)
		logger.Debug("Submitted %s feed %s with %d items", field, feedID, len(chunk))
		return
	}

	logger.Warn("%s chunk of %d failed, retrying item by item: %v", field, len(chunk), err)
	result.Fallbacks++
	result.Errors = append(result.Errors, &domain.MutationError{
		Field: field, Endpoint: d.gateway.Endpoint(field, true), Err: err,
	})

	for _, c := range chunk {
		if ctx.Err() != nil {
			return
		}
		feedID, err := d.gateway.MutateItem(ctx, *c)
		if err != nil {
			d.fail(c, d.gateway.Endpoint(field, false), err, result)
			continue
		}
		d.submitted(ctx, c, feedID, result)
		if feedID != "" {
			d.recordFeed(ctx, feedID, field, []string{c.SKU}, result)
		}
	}
}

func (d *BatchDispatcher) submitted(
	ctx context.Context, c *domain.MutationCandidate, feedID string, result *domain.DispatchResult,
) {
	if err := c.Transition(domain.MutationSubmitted); err != nil {
		result.Errors = append(result.Errors, err)
		return
	}
	c.FeedID = feedID
	result.Submitted++

	if err := d.cache.ApplyMutation(ctx, *c); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("update cache for %s %s: %w", c.SKU, c.Field, err))
	}
}

func (d *BatchDispatcher) fail(c *domain.MutationCandidate, endpoint string, err error, result *domain.DispatchResult) {
	if tErr := c.Transition(domain.MutationFailed); tErr != nil {
		result.Errors = append(result.Errors, tErr)
		return
	}
	result.Failed++
	result.Errors = append(result.Errors, &domain.MutationError{
		SKU: c.SKU, Field: c.Field, Endpoint: endpoint, Err: err,
	})
}

func (d *BatchDispatcher) recordFeed(
	ctx context.Context, feedID string, field domain.MutationField, skus []string, result *domain.DispatchResult,
) {
	now := d.now()
	feed := domain.FeedSubmission{
		FeedID:      feedID,
		Field:       field,
		SKUs:        skus,
		SubmittedAt: now,
		State:       domain.MutationSubmitted,
		UpdatedAt:   now,
	}
	result.Feeds = append(result.Feeds, feed)

	if d.feeds == nil {
		return
	}
	if err := d.feeds.SaveFeed(ctx, feed); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("save feed %s: %w", feedID, err))
	}
}
