package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
	"github.com/custodia-labs/marketsync/internal/core/ports/driving"
	"github.com/custodia-labs/marketsync/internal/logger"
)

// CycleLeaseName is the lease that serialises reconciliation cycles.
const CycleLeaseName = "catalog-cycle"

// Cycle stages reported by Status.
const (
	StageFetch     = "fetch"
	StageReconcile = "reconcile"
	StageDiff      = "diff"
	StageDispatch  = "dispatch"
	StageReport    = "report"
)

// Ensure CycleService implements the interface.
var _ driving.CatalogSync = (*CycleService)(nil)

// CycleService coordinates one fetch, reconcile, diff and dispatch pass.
type CycleService struct {
	gateway  driven.CatalogGateway
	cache    driven.CatalogStore
	local    driven.LocalStore
	leases   driven.LeaseStore
	feeds    driven.FeedStore
	sink     driven.NotificationSink
	settings driven.SettingsProvider
	now      func() time.Time

	// Status tracking
	mu      sync.RWMutex
	current *driving.SyncStatus
	last    *domain.CycleReport
}

// NewCycleService creates a cycle service.
// feeds and settings are optional: without a FeedStore accepted feeds are
// only reported, and without a SettingsProvider the defaults apply.
func NewCycleService(
	gateway driven.CatalogGateway,
	cache driven.CatalogStore,
	local driven.LocalStore,
	leases driven.LeaseStore,
	feeds driven.FeedStore,
	sink driven.NotificationSink,
	settings driven.SettingsProvider,
) *CycleService {
	return &CycleService{
		gateway:  gateway,
		cache:    cache,
		local:    local,
		leases:   leases,
		feeds:    feeds,
		sink:     sink,
		settings: settings,
		now:      time.Now,
	}
}

// IsStale reports whether the cache needs a full refresh: it is empty or its
// newest record is at least ttl old.
func IsStale(ctx context.Context, cache driven.CatalogStore, ttl time.Duration, now time.Time) (bool, error) {
	latest, err := cache.LatestSyncTime(ctx)
	if err != nil {
		return true, fmt.Errorf("latest sync time: %w", err)
	}
	if latest.IsZero() || ttl <= 0 {
		return true, nil
	}
	return now.Sub(latest) >= ttl, nil
}

// RunCycle performs one reconciliation cycle.
//
// Only settings and lease failures return early with an error. Once the
// lease is held a report is always returned; stage failures are recorded
// in it.
func (s *CycleService) RunCycle(ctx context.Context, opts driving.CycleOptions) (*domain.CycleReport, error) {
	settings := s.syncSettings()
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("sync settings: %w", err)
	}

	cycleID := uuid.NewString()
	acquired, err := s.leases.Acquire(ctx, CycleLeaseName, cycleID, settings.LeaseTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire cycle lease: %w", err)
	}
	if !acquired {
		return nil, domain.ErrSyncInProgress
	}
	defer func() {
		if err := s.leases.Release(context.WithoutCancel(ctx), CycleLeaseName, cycleID); err != nil {
			logger.Warn("Failed to release cycle lease %s: %v", cycleID, err)
		}
	}()

	report := &domain.CycleReport{
		CycleID:   cycleID,
		StartedAt: s.now(),
		DryRun:    opts.DryRun,
	}
	s.begin(cycleID)
	defer s.finish(report)

	logger.Info("Starting cycle %s", cycleID)
	limit := settings.MaxReportErrors

	stale, err := IsStale(ctx, s.cache, settings.CacheTTL, s.now())
	if err != nil {
		report.AddError(err, limit)
	}
	if opts.Force || stale {
		s.refresh(ctx, settings, report)
	} else {
		report.FetchSkipped = true
		logger.Info("Cache refreshed within %s, skipping fetch", settings.CacheTTL)
	}

	s.reconcileLocal(ctx, settings, opts, report)

	s.setStage(StageReport, report)
	report.EndedAt = s.now()
	s.emit(ctx, domain.Notification{
		Type:     domain.NotifyCycleReport,
		Title:    "Reconciliation cycle finished",
		Message:  report.Summary(),
		Severity: report.Severity(),
		Payload: map[string]any{
			"cycle_id":     report.CycleID,
			"duration_ms":  report.Duration().Milliseconds(),
			"fetched":      report.Fetched,
			"deleted":      report.Deleted,
			"submitted":    report.Submitted,
			"failed":       report.Failed,
			"total_errors": report.TotalErrors,
			"errors":       report.Errors,
			"dry_run":      report.DryRun,
		},
		CreatedAt: report.EndedAt,
	})
	logger.Info("Cycle %s complete: %s", cycleID, report.Summary())

	return report, nil
}

// refresh fetches the remote catalog, upserts it and reconciles deletions.
func (s *CycleService) refresh(ctx context.Context, settings domain.SyncSettings, report *domain.CycleReport) {
	limit := settings.MaxReportErrors
	s.setStage(StageFetch, report)

	fetcher := NewCatalogFetcher(s.gateway, settings.PageDelay)
	fetched := fetcher.FetchAll(ctx, settings.PageSize)
	for _, err := range fetched.Errors {
		report.AddError(err, limit)
	}

	inventoryComplete := true
	if settings.InventoryPageSize > 0 {
		covered := map[string]int{}
		inventoryComplete = false
		if fetched.Complete {
			inv := fetcher.FetchInventory(ctx, settings.InventoryPageSize)
			for _, err := range inv.Errors {
				report.AddError(err, limit)
			}
			covered = inv.Quantities
			inventoryComplete = inv.Complete
			merged := MergeInventory(fetched.Records, covered)
			logger.Debug("Merged inventory for %d of %d records", merged, len(fetched.Records))
		}
		carried, err := s.carryInventory(ctx, fetched.Records, covered)
		if err != nil {
			report.AddError(err, limit)
		}
		if carried > 0 {
			logger.Debug("Kept cached inventory for %d records", carried)
		}
	}

	report.Fetched = len(fetched.Records)
	report.Dropped = fetched.Dropped
	report.FetchComplete = fetched.Complete
	s.addFetched(report.Fetched)

	for i := range fetched.Records {
		outcome, err := s.cache.Upsert(ctx, fetched.Records[i])
		if err != nil {
			report.AddError(fmt.Errorf("cache %s: %w", fetched.Records[i].SKU, err), limit)
			continue
		}
		switch outcome {
		case domain.UpsertInserted:
			report.Inserted++
		case domain.UpsertUpdated:
			report.Updated++
		}
	}

	s.setStage(StageReconcile, report)
	if fetched.Complete {
		deleted, err := NewDeletionReconciler(s.cache, s.sink).ReconcileDeletions(ctx, fetched)
		if err != nil {
			report.AddError(err, limit)
		}
		report.Deleted = deleted
	} else {
		logger.Warn("Fetch incomplete after %d pages, deletion reconciliation suppressed", fetched.Pages)
		report.AddError(domain.ErrFetchIncomplete, limit)
	}

	severity := domain.SeveritySuccess
	if !fetched.Complete {
		severity = domain.SeverityError
	} else if fetched.Dropped > 0 || !inventoryComplete {
		severity = domain.SeverityWarning
	}
	s.emit(ctx, domain.Notification{
		Type:     domain.NotifyFetchCycle,
		Title:    "Catalog fetch",
		Message:  fmt.Sprintf("fetched %d records in %d pages (%d dropped)", report.Fetched, fetched.Pages, fetched.Dropped),
		Severity: severity,
		Payload: map[string]any{
			"fetched":            report.Fetched,
			"inserted":           report.Inserted,
			"updated":            report.Updated,
			"deleted":            report.Deleted,
			"dropped":            fetched.Dropped,
			"pages":              fetched.Pages,
			"complete":           fetched.Complete,
			"inventory_complete": inventoryComplete,
		},
		CreatedAt: s.now(),
	})
}

// carryInventory gives records the inventory pass did not cover their
// cached count, so a listing without stock data never zeroes known stock.
// Records not yet cached keep the listing value.
func (s *CycleService) carryInventory(
	ctx context.Context, records []domain.CatalogRecord, covered map[string]int,
) (int, error) {
	var skus []string
	for i := range records {
		if _, ok := covered[records[i].SKU]; !ok {
			skus = append(skus, records[i].SKU)
		}
	}
	if len(skus) == 0 {
		return 0, nil
	}

	cached, err := s.cache.GetBySKUs(ctx, skus)
	if err != nil {
		return 0, fmt.Errorf("read cached inventory: %w", err)
	}
	known := make(map[string]int, len(cached))
	for i := range cached {
		known[cached[i].ExternalID] = cached[i].InventoryCount
	}

	carried := 0
	for i := range records {
		if _, ok := covered[records[i].SKU]; ok {
			continue
		}
		if qty, ok := known[records[i].ExternalID]; ok {
			records[i].InventoryCount = qty
			carried++
		}
	}
	return carried, nil
}

// reconcileLocal diffs the cache against the local store and dispatches
// the resulting mutations.
func (s *CycleService) reconcileLocal(
	ctx context.Context, settings domain.SyncSettings, opts driving.CycleOptions, report *domain.CycleReport,
) {
	limit := settings.MaxReportErrors
	s.setStage(StageDiff, report)

	records, err := s.cache.List(ctx)
	if err != nil {
		report.AddError(fmt.Errorf("list cache: %w", err), limit)
		return
	}
	skus := make([]string, len(records))
	for i := range records {
		skus[i] = records[i].SKU
	}

	snapshot, errs := LocalSnapshot(ctx, s.local, skus)
	for _, err := range errs {
		report.AddError(err, limit)
	}

	diff := ComputeMutations(records, Lookup(snapshot), DiffOptionsFromSettings(settings, opts.Fields))
	report.Unmatched = len(diff.Unmatched)
	report.Candidates = len(diff.Candidates)
	if len(diff.Unmatched) > 0 {
		logger.Debug("%d marketplace SKUs have no local product", len(diff.Unmatched))
	}
	if len(diff.Candidates) == 0 {
		return
	}

	s.setStage(StageDispatch, report)
	dispatcher := NewBatchDispatcher(s.gateway, s.cache, s.feeds, settings.ChunkSize, settings.ChunkDelay)
	result := dispatcher.Dispatch(ctx, diff.Candidates, DispatchOptions{DryRun: opts.DryRun})

	report.Submitted = result.Submitted
	report.Failed = result.Failed
	report.Skipped = result.Skipped
	for _, err := range result.Errors {
		report.AddError(err, limit)
	}

	feedIDs := make([]string, len(result.Feeds))
	for i := range result.Feeds {
		feedIDs[i] = result.Feeds[i].FeedID
	}
	severity := domain.SeveritySuccess
	if result.Failed > 0 {
		severity = domain.SeverityWarning
	}
	if opts.DryRun {
		severity = domain.SeverityInfo
	}
	s.emit(ctx, domain.Notification{
		Type:  domain.NotifyDispatchRun,
		Title: "Mutation dispatch",
		Message: fmt.Sprintf("%d candidates: %d submitted, %d failed, %d skipped (%d fallbacks)",
			len(diff.Candidates), result.Submitted, result.Failed, result.Skipped, result.Fallbacks),
		Severity: severity,
		Payload: map[string]any{
			"candidates": len(diff.Candidates),
			"submitted":  result.Submitted,
			"failed":     result.Failed,
			"skipped":    result.Skipped,
			"fallbacks":  result.Fallbacks,
			"feed_ids":   feedIDs,
			"dry_run":    opts.DryRun,
		},
		CreatedAt: s.now(),
	})
}

// RefreshSKU re-reads the inventory of one cached SKU and stores it.
// Only the inventory count is written: the record's last sync time still
// reflects the last full refresh, so staleness is unaffected.
func (s *CycleService) RefreshSKU(ctx context.Context, sku string) (*domain.CatalogRecord, error) {
	rec, err := s.cache.GetBySKU(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", sku, err)
	}

	entry, err := NewCatalogFetcher(s.gateway, 0).FetchOne(ctx, sku)
	if err != nil {
		return nil, err
	}

	update := domain.MutationCandidate{
		SKU:          rec.SKU,
		ExternalID:   rec.ExternalID,
		Field:        domain.FieldInventory,
		CurrentValue: strconv.Itoa(rec.InventoryCount),
		DesiredValue: strconv.Itoa(entry.Quantity),
	}
	if err := s.cache.ApplyMutation(ctx, update); err != nil {
		return nil, fmt.Errorf("cache %s: %w", sku, err)
	}
	return s.cache.GetBySKU(ctx, sku)
}

// Feeds lists recorded feed submissions, optionally filtered by state.
func (s *CycleService) Feeds(ctx context.Context, state domain.MutationState) ([]domain.FeedSubmission, error) {
	if s.feeds == nil {
		return nil, nil
	}
	return s.feeds.ListFeeds(ctx, state)
}

// ResolveFeed records the final outcome of a submitted feed.
func (s *CycleService) ResolveFeed(ctx context.Context, feedID string, state domain.MutationState) error {
	if state != domain.MutationAcked && state != domain.MutationFailed {
		return fmt.Errorf("%w: feed state %s", domain.ErrInvalidTransition, state)
	}
	if s.feeds == nil {
		return fmt.Errorf("feed %s: %w", feedID, domain.ErrNotFound)
	}
	return s.feeds.UpdateFeedState(ctx, feedID, state)
}

// Status returns the running cycle, or an idle status with the last report.
func (s *CycleService) Status(ctx context.Context) (*driving.SyncStatus, error) {
	s.mu.RLock()
	var status driving.SyncStatus
	if s.current != nil {
		// Return a copy to avoid race conditions
		status = *s.current
	}
	status.LastReport = s.last
	s.mu.RUnlock()

	latest, err := s.cache.LatestSyncTime(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("latest sync time: %w", err)
	}
	status.LastSync = latest
	return &status, nil
}

func (s *CycleService) syncSettings() domain.SyncSettings {
	if s.settings == nil {
		return domain.DefaultSyncSettings()
	}
	return s.settings.SyncSettings()
}

func (s *CycleService) emit(ctx context.Context, n domain.Notification) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Emit(ctx, n); err != nil {
		logger.Warn("Failed to emit %s notification: %v", n.Type, err)
	}
}

func (s *CycleService) begin(cycleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &driving.SyncStatus{CycleID: cycleID, Running: true}
}

func (s *CycleService) setStage(stage string, report *domain.CycleReport) {
	logger.Section(stage)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Stage = stage
		s.current.ErrorCount = report.TotalErrors
	}
}

func (s *CycleService) addFetched(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.RecordsFetched += n
	}
}

func (s *CycleService) finish(report *domain.CycleReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if report.EndedAt.IsZero() {
		report.EndedAt = s.now()
	}
	s.current = nil
	s.last = report
}
