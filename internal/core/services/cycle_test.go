package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/marketsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
	"github.com/custodia-labs/marketsync/internal/core/ports/driving"
)

type staticSettings struct {
	settings domain.SyncSettings
}

func (s staticSettings) SyncSettings() domain.SyncSettings { return s.settings }

func testSettings() domain.SyncSettings {
	s := domain.DefaultSyncSettings()
	s.PageDelay = 0
	s.ChunkDelay = 0
	s.InventoryPageSize = 0
	return s
}

type cycleFixture struct {
	gateway *fakeGateway
	cache   *memory.CatalogStore
	local   *memory.LocalStore
	leases  *memory.LeaseStore
	feeds   *memory.FeedStore
	events  *memory.EventLog
	service *CycleService
}

func newCycleFixture(t *testing.T, settings domain.SyncSettings, remote ...domain.CatalogRecord) *cycleFixture {
	t.Helper()
	f := &cycleFixture{
		gateway: newFakeGateway(remote...),
		cache:   memory.NewCatalogStore(),
		local:   memory.NewLocalStore(),
		leases:  memory.NewLeaseStore(),
		feeds:   memory.NewFeedStore(),
		events:  memory.NewEventLog(),
	}
	f.service = NewCycleService(f.gateway, f.cache, f.local, f.leases, f.feeds, f.events, staticSettings{settings})
	return f
}

func TestCycleService_EndToEnd(t *testing.T) {
	f := newCycleFixture(t, testSettings(),
		rec("WA", "A", "9.99", 1),
		rec("WB", "B", "5.00", 1),
	)
	f.local.Put(domain.LocalRecord{SKU: "A", Price: price("10.49")})
	f.local.Put(domain.LocalRecord{SKU: "B", Price: price("5.00")})

	report, err := f.service.RunCycle(context.Background(), driving.CycleOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Fetched)
	assert.Equal(t, 2, report.Inserted)
	assert.True(t, report.FetchComplete)
	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, 1, report.Submitted)
	assert.Zero(t, report.TotalErrors)
	assert.Equal(t, domain.SeveritySuccess, report.Severity())

	require.Len(t, f.gateway.submits, 1)
	chunk := f.gateway.submits[0]
	require.Len(t, chunk, 1)
	assert.Equal(t, "A", chunk[0].SKU)
	assert.Equal(t, domain.FieldPrice, chunk[0].Field)

	a, err := f.cache.GetBySKU(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "10.49", a.Price.String())
	b, err := f.cache.GetBySKU(context.Background(), "B")
	require.NoError(t, err)
	assert.Equal(t, "5", b.Price.String())

	feeds, err := f.feeds.ListFeeds(context.Background(), domain.MutationSubmitted)
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, []string{"A"}, feeds[0].SKUs)

	assert.Len(t, f.events.Events(domain.NotifyFetchCycle), 1)
	assert.Len(t, f.events.Events(domain.NotifyDispatchRun), 1)
	assert.Len(t, f.events.Events(domain.NotifyCycleReport), 1)
}

func TestCycleService_DeletionScenario(t *testing.T) {
	f := newCycleFixture(t, testSettings(), rec("X", "sku-x", "1", 1), rec("Y", "sku-y", "1", 1))
	for _, r := range []domain.CatalogRecord{rec("X", "sku-x", "1", 1), rec("Y", "sku-y", "1", 1), rec("Z", "sku-z", "1", 1)} {
		_, err := f.cache.Upsert(context.Background(), r)
		require.NoError(t, err)
	}

	report, err := f.service.RunCycle(context.Background(), driving.CycleOptions{Force: true})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Deleted)
	ids, err := f.cache.AllIdentities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"X": {}, "Y": {}}, ids)

	deletions := f.events.Events(domain.NotifyDeletionBatch)
	require.Len(t, deletions, 1)
	assert.Equal(t, []string{"sku-z"}, deletions[0].Payload["skus"])

	// The audit event precedes the fetch summary of the same cycle.
	all := f.events.Events()
	assert.Equal(t, domain.NotifyDeletionBatch, all[0].Type)
}

func TestCycleService_DroppedItemSurvivesRefresh(t *testing.T) {
	f := newCycleFixture(t, testSettings(), rec("X", "sku-x", "1", 1))
	f.gateway.droppedIDs = map[int][]string{0: {"Y"}}
	for _, r := range []domain.CatalogRecord{rec("X", "sku-x", "1", 1), rec("Y", "sku-y", "2", 3)} {
		_, err := f.cache.Upsert(context.Background(), r)
		require.NoError(t, err)
	}

	report, err := f.service.RunCycle(context.Background(), driving.CycleOptions{Force: true})
	require.NoError(t, err)

	assert.True(t, report.FetchComplete)
	assert.Equal(t, 1, report.Dropped)
	assert.Zero(t, report.Deleted)
	assert.Empty(t, f.events.Events(domain.NotifyDeletionBatch))

	y, err := f.cache.GetBySKU(context.Background(), "sku-y")
	require.NoError(t, err)
	assert.Equal(t, "2", y.Price.String())
	assert.Equal(t, 3, y.InventoryCount)
}

func TestCycleService_IncompleteFetchSuppressesDeletion(t *testing.T) {
	f := newCycleFixture(t, testSettings(), records(150)...)
	f.gateway.itemErrAt = map[int]error{100: errTransport}
	_, err := f.cache.Upsert(context.Background(), rec("OLD", "old", "1", 1))
	require.NoError(t, err)

	report, err := f.service.RunCycle(context.Background(), driving.CycleOptions{Force: true})
	require.NoError(t, err)

	assert.False(t, report.FetchComplete)
	assert.Equal(t, 100, report.Fetched)
	assert.Zero(t, report.Deleted)
	assert.Empty(t, f.events.Events(domain.NotifyDeletionBatch))

	_, err = f.cache.GetBySKU(context.Background(), "old")
	assert.NoError(t, err, "record survives an aborted fetch")
	assert.GreaterOrEqual(t, report.TotalErrors, 1)
	assert.Equal(t, domain.SeverityWarning, report.Severity())
}

func TestCycleService_FreshCacheSkipsFetch(t *testing.T) {
	f := newCycleFixture(t, testSettings(), rec("W1", "A", "1", 1))
	_, err := f.cache.Upsert(context.Background(), rec("W1", "A", "1", 1))
	require.NoError(t, err)

	report, err := f.service.RunCycle(context.Background(), driving.CycleOptions{})
	require.NoError(t, err)
	assert.True(t, report.FetchSkipped)
	assert.Empty(t, f.gateway.offsets)

	report, err = f.service.RunCycle(context.Background(), driving.CycleOptions{Force: true})
	require.NoError(t, err)
	assert.False(t, report.FetchSkipped)
	assert.NotEmpty(t, f.gateway.offsets)
}

func TestCycleService_SingleFlight(t *testing.T) {
	f := newCycleFixture(t, testSettings())
	ok, err := f.leases.Acquire(context.Background(), CycleLeaseName, "someone-else", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	report, err := f.service.RunCycle(context.Background(), driving.CycleOptions{})
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)
	assert.Nil(t, report)
	assert.Empty(t, f.gateway.offsets, "no fetch starts without the guard")
}

func TestCycleService_ReleasesLease(t *testing.T) {
	f := newCycleFixture(t, testSettings())

	_, err := f.service.RunCycle(context.Background(), driving.CycleOptions{})
	require.NoError(t, err)

	ok, err := f.leases.Acquire(context.Background(), CycleLeaseName, "next", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCycleService_DryRun(t *testing.T) {
	f := newCycleFixture(t, testSettings(), rec("WA", "A", "9.99", 1))
	f.local.Put(domain.LocalRecord{SKU: "A", Price: price("10.49")})

	report, err := f.service.RunCycle(context.Background(), driving.CycleOptions{DryRun: true})
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Submitted)
	assert.Empty(t, f.gateway.submits)

	a, err := f.cache.GetBySKU(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "9.99", a.Price.String())
}

func TestCycleService_InventoryPass(t *testing.T) {
	settings := testSettings()
	settings.InventoryPageSize = 50
	f := newCycleFixture(t, settings, rec("WA", "A", "1", 0), rec("WB", "B", "1", 0))
	f.gateway.inventory = map[string]*driven.InventoryPage{
		"": {Entries: []driven.InventoryEntry{{SKU: "A", Quantity: 7}}},
	}
	f.local.Put(domain.LocalRecord{SKU: "A", Price: price("1"), StockQuantity: intPtr(7)})

	report, err := f.service.RunCycle(context.Background(), driving.CycleOptions{})
	require.NoError(t, err)

	a, err := f.cache.GetBySKU(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, 7, a.InventoryCount)
	assert.Zero(t, report.Candidates, "merged inventory already matches")
}

func TestCycleService_FailedInventoryPassKeepsCachedStock(t *testing.T) {
	settings := testSettings()
	settings.InventoryPageSize = 50
	// The listing carries no stock data, so A decodes with a zero count.
	f := newCycleFixture(t, settings, rec("WA", "A", "1", 0))
	f.gateway.invErr = errTransport
	_, err := f.cache.Upsert(context.Background(), rec("WA", "A", "1", 7))
	require.NoError(t, err)
	f.local.Put(domain.LocalRecord{SKU: "A", Price: price("1"), StockQuantity: intPtr(7)})

	report, err := f.service.RunCycle(context.Background(), driving.CycleOptions{Force: true})
	require.NoError(t, err)

	assert.True(t, report.FetchComplete)
	assert.Zero(t, report.Candidates)
	assert.Zero(t, report.Submitted)
	assert.Empty(t, f.gateway.submits)

	a, err := f.cache.GetBySKU(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, 7, a.InventoryCount)

	fetches := f.events.Events(domain.NotifyFetchCycle)
	require.Len(t, fetches, 1)
	assert.Equal(t, domain.SeverityWarning, fetches[0].Severity)
	assert.Equal(t, false, fetches[0].Payload["inventory_complete"])
}

func TestCycleService_InventoryPassMissingSKUKeepsCachedStock(t *testing.T) {
	settings := testSettings()
	settings.InventoryPageSize = 50
	f := newCycleFixture(t, settings, rec("WA", "A", "1", 0), rec("WB", "B", "1", 0), rec("WC", "C", "1", 0))
	f.gateway.inventory = map[string]*driven.InventoryPage{
		"": {Entries: []driven.InventoryEntry{{SKU: "A", Quantity: 2}}},
	}
	_, err := f.cache.Upsert(context.Background(), rec("WB", "B", "1", 5))
	require.NoError(t, err)

	_, err = f.service.RunCycle(context.Background(), driving.CycleOptions{Force: true})
	require.NoError(t, err)

	want := map[string]int{"A": 2, "B": 5, "C": 0}
	for sku, qty := range want {
		got, err := f.cache.GetBySKU(context.Background(), sku)
		require.NoError(t, err)
		assert.Equal(t, qty, got.InventoryCount, sku)
	}

	fetches := f.events.Events(domain.NotifyFetchCycle)
	require.Len(t, fetches, 1)
	assert.Equal(t, domain.SeveritySuccess, fetches[0].Severity)
}

func TestCycleService_InvalidSettings(t *testing.T) {
	settings := testSettings()
	settings.PageSize = 0
	f := newCycleFixture(t, settings)

	_, err := f.service.RunCycle(context.Background(), driving.CycleOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCycleService_Status(t *testing.T) {
	f := newCycleFixture(t, testSettings(), rec("WA", "A", "1", 1))

	status, err := f.service.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Nil(t, status.LastReport)
	assert.True(t, status.LastSync.IsZero())

	report, err := f.service.RunCycle(context.Background(), driving.CycleOptions{})
	require.NoError(t, err)

	status, err = f.service.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Running)
	require.NotNil(t, status.LastReport)
	assert.Equal(t, report.CycleID, status.LastReport.CycleID)
	assert.False(t, status.LastSync.IsZero())
}

func TestCycleService_RefreshSKU(t *testing.T) {
	f := newCycleFixture(t, testSettings())
	f.gateway.single = map[string]int{"A": 12}
	_, err := f.cache.Upsert(context.Background(), rec("WA", "A", "1", 3))
	require.NoError(t, err)

	before, err := f.cache.GetBySKU(context.Background(), "A")
	require.NoError(t, err)

	got, err := f.service.RefreshSKU(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, 12, got.InventoryCount)
	assert.Equal(t, before.LastSyncTime, got.LastSyncTime, "a single-SKU refresh is not a full sync")

	latest, err := f.cache.LatestSyncTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before.LastSyncTime, latest)

	_, err = f.service.RefreshSKU(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCycleService_Feeds(t *testing.T) {
	f := newCycleFixture(t, testSettings())
	ctx := context.Background()
	require.NoError(t, f.feeds.SaveFeed(ctx, domain.FeedSubmission{
		FeedID: "F1", Field: domain.FieldPrice, State: domain.MutationSubmitted, SubmittedAt: time.Now(),
	}))

	feeds, err := f.service.Feeds(ctx, domain.MutationSubmitted)
	require.NoError(t, err)
	assert.Len(t, feeds, 1)

	require.NoError(t, f.service.ResolveFeed(ctx, "F1", domain.MutationAcked))
	assert.ErrorIs(t, f.service.ResolveFeed(ctx, "F1", domain.MutationPending), domain.ErrInvalidTransition)

	feeds, err = f.service.Feeds(ctx, domain.MutationAcked)
	require.NoError(t, err)
	assert.Len(t, feeds, 1)
}

// failingUpsertStore rejects upserts for one SKU.
type failingUpsertStore struct {
	*memory.CatalogStore
	failSKU string
}

func (s *failingUpsertStore) Upsert(ctx context.Context, r domain.CatalogRecord) (domain.UpsertOutcome, error) {
	if r.SKU == s.failSKU {
		return 0, errors.New("disk full")
	}
	return s.CatalogStore.Upsert(ctx, r)
}

func TestCycleService_UpsertErrorsAreCollected(t *testing.T) {
	gw := newFakeGateway(rec("WA", "A", "1", 1), rec("WB", "B", "1", 1))
	cache := &failingUpsertStore{CatalogStore: memory.NewCatalogStore(), failSKU: "B"}
	svc := NewCycleService(gw, cache, memory.NewLocalStore(), memory.NewLeaseStore(), nil, memory.NewEventLog(),
		staticSettings{testSettings()})

	report, err := svc.RunCycle(context.Background(), driving.CycleOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Fetched)
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, 1, report.TotalErrors)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "B")
}

func TestIsStale(t *testing.T) {
	cache := memory.NewCatalogStore()
	ctx := context.Background()
	now := time.Now()

	stale, err := IsStale(ctx, cache, time.Hour, now)
	require.NoError(t, err)
	assert.True(t, stale, "empty cache is stale")

	_, err = cache.Upsert(ctx, rec("W1", "A", "1", 1))
	require.NoError(t, err)

	stale, err = IsStale(ctx, cache, time.Hour, time.Now())
	require.NoError(t, err)
	assert.False(t, stale)

	stale, err = IsStale(ctx, cache, time.Hour, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, stale)
}
