package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/marketsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/marketsync/internal/core/domain"
)

func priceCandidates(n int) []domain.MutationCandidate {
	out := make([]domain.MutationCandidate, n)
	for i := range out {
		out[i] = domain.MutationCandidate{
			SKU:          "SKU" + strconv.Itoa(i),
			ExternalID:   "W" + strconv.Itoa(i),
			Field:        domain.FieldPrice,
			CurrentValue: "1",
			DesiredValue: "2",
			State:        domain.MutationPending,
		}
	}
	return out
}

func TestBatchDispatcher_ChunksByFieldAndSize(t *testing.T) {
	gw := newFakeGateway()
	cache := seedCache(t, records(120)...)
	feeds := memory.NewFeedStore()
	d := NewBatchDispatcher(gw, cache, feeds, 50, 0)

	candidates := priceCandidates(120)
	candidates = append(candidates, domain.MutationCandidate{
		SKU: "SKU0", ExternalID: "W0", Field: domain.FieldInventory, DesiredValue: "3",
	})

	result := d.Dispatch(context.Background(), candidates, DispatchOptions{})

	require.Len(t, gw.submits, 4)
	assert.Len(t, gw.submits[0], 50)
	assert.Len(t, gw.submits[1], 50)
	assert.Len(t, gw.submits[2], 20)
	assert.Len(t, gw.submits[3], 1)
	assert.Equal(t, domain.FieldInventory, gw.submits[3][0].Field)
	assert.Equal(t, "SKU0", gw.submits[0][0].SKU, "chunks keep candidate order")

	assert.Equal(t, 121, result.Submitted)
	assert.Zero(t, result.Failed)
	assert.Len(t, result.Feeds, 4)

	stored, err := feeds.ListFeeds(context.Background(), domain.MutationSubmitted)
	require.NoError(t, err)
	assert.Len(t, stored, 4)

	for _, c := range result.Candidates {
		assert.Equal(t, domain.MutationSubmitted, c.State, "accepted feeds are submitted, not confirmed")
		assert.NotEmpty(t, c.FeedID)
	}
}

func TestBatchDispatcher_ChunkFallback(t *testing.T) {
	gw := newFakeGateway()
	gw.submitFn = func(domain.MutationField, []domain.MutationCandidate) (string, error) {
		return "", errTransport
	}
	// Every seventh item is rejected individually.
	gw.mutateFn = func(c domain.MutationCandidate) (string, error) {
		n, _ := strconv.Atoi(c.SKU[3:])
		if n%7 == 0 {
			return "", fmt.Errorf("rejected %s", c.SKU)
		}
		return "", nil
	}
	cache := seedCache(t, records(50)...)
	d := NewBatchDispatcher(gw, cache, nil, 50, 0)

	result := d.Dispatch(context.Background(), priceCandidates(50), DispatchOptions{})

	require.Len(t, gw.submits, 1)
	assert.Len(t, gw.mutates, 50, "one individual submission per item")
	assert.Equal(t, 1, result.Fallbacks)

	wantFailed := 0
	for i := 0; i < 50; i++ {
		if i%7 == 0 {
			wantFailed++
		}
	}
	assert.Equal(t, wantFailed, result.Failed)
	assert.Equal(t, 50-wantFailed, result.Submitted)
	assert.Equal(t, 50, result.Submitted+result.Failed)

	var mErr *domain.MutationError
	require.True(t, errors.As(result.Errors[0], &mErr))
	assert.Empty(t, mErr.SKU, "first error is the chunk failure")
	assert.ErrorIs(t, result.Errors[0], errTransport)
	assert.Len(t, result.Errors, 1+wantFailed)
}

func TestBatchDispatcher_UpdatesCacheOnSubmit(t *testing.T) {
	gw := newFakeGateway()
	cache := seedCache(t, rec("W1", "A", "9.99", 1))
	d := NewBatchDispatcher(gw, cache, nil, 50, 0)

	result := d.Dispatch(context.Background(), []domain.MutationCandidate{{
		SKU: "A", ExternalID: "W1", Field: domain.FieldPrice, CurrentValue: "9.99", DesiredValue: "10.49",
	}}, DispatchOptions{})
	require.Equal(t, 1, result.Submitted)

	got, err := cache.GetBySKU(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "10.49", got.Price.String())
}

func TestBatchDispatcher_CacheFailureKeepsSubmitted(t *testing.T) {
	gw := newFakeGateway()
	cache := memory.NewCatalogStore()
	d := NewBatchDispatcher(gw, cache, nil, 50, 0)

	result := d.Dispatch(context.Background(), []domain.MutationCandidate{{
		SKU: "GHOST", Field: domain.FieldPrice, DesiredValue: "1",
	}}, DispatchOptions{})

	assert.Equal(t, 1, result.Submitted)
	assert.Equal(t, domain.MutationSubmitted, result.Candidates[0].State)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], domain.ErrNotFound)
}

func TestBatchDispatcher_DryRun(t *testing.T) {
	gw := newFakeGateway()
	d := NewBatchDispatcher(gw, memory.NewCatalogStore(), nil, 50, 0)

	result := d.Dispatch(context.Background(), priceCandidates(3), DispatchOptions{DryRun: true})

	assert.Empty(t, gw.submits)
	assert.Equal(t, 3, result.Skipped)
	assert.Zero(t, result.Submitted)
	for _, c := range result.Candidates {
		assert.Equal(t, domain.MutationPending, c.State)
	}
}

func TestBatchDispatcher_CancelBetweenChunks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw := newFakeGateway()
	gw.submitFn = func(_ domain.MutationField, batch []domain.MutationCandidate) (string, error) {
		cancel()
		return "feed-1", nil
	}
	cache := seedCache(t, records(30)...)
	d := NewBatchDispatcher(gw, cache, nil, 10, 0)

	result := d.Dispatch(ctx, priceCandidates(30), DispatchOptions{})

	assert.Len(t, gw.submits, 1)
	assert.Equal(t, 10, result.Submitted, "the submitted chunk is kept")
	assert.Equal(t, 20, result.Skipped)
	assert.Zero(t, result.Failed)
}

func TestBatchDispatcher_ChunkDelay(t *testing.T) {
	gw := newFakeGateway()
	cache := seedCache(t, records(3)...)
	d := NewBatchDispatcher(gw, cache, nil, 1, 30*time.Millisecond)

	start := time.Now()
	result := d.Dispatch(context.Background(), priceCandidates(3), DispatchOptions{})

	assert.Equal(t, 3, result.Submitted)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestBatchDispatcher_UnknownField(t *testing.T) {
	gw := newFakeGateway()
	d := NewBatchDispatcher(gw, memory.NewCatalogStore(), nil, 50, 0)

	result := d.Dispatch(context.Background(), []domain.MutationCandidate{{SKU: "A", Field: "COLOR"}}, DispatchOptions{})

	assert.Empty(t, gw.submits)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, domain.MutationFailed, result.Candidates[0].State)
}

func TestBatchDispatcher_FallbackRecordsAsyncFeeds(t *testing.T) {
	gw := newFakeGateway()
	gw.submitFn = func(domain.MutationField, []domain.MutationCandidate) (string, error) {
		return "", domain.ErrUnrecognizedResponse
	}
	gw.mutateFn = func(c domain.MutationCandidate) (string, error) {
		return "single-" + c.SKU, nil
	}
	cache := seedCache(t, rec("W1", "A", "1", 1))
	feeds := memory.NewFeedStore()
	d := NewBatchDispatcher(gw, cache, feeds, 50, 0)

	result := d.Dispatch(context.Background(), []domain.MutationCandidate{{
		SKU: "A", ExternalID: "W1", Field: domain.FieldName, DesiredValue: "Alpha",
	}}, DispatchOptions{})

	assert.Equal(t, 1, result.Submitted)
	require.Len(t, result.Feeds, 1)
	assert.Equal(t, "single-A", result.Feeds[0].FeedID)

	stored, err := feeds.ListFeeds(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
