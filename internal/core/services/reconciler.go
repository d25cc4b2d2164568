package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
	"github.com/custodia-labs/marketsync/internal/logger"
)

// ErrNoAuditSink is returned when deletions are requested without a sink to record them.
var ErrNoAuditSink = errors.New("deletion audit sink not configured")

// DeletionReconciler removes cache rows that no longer exist on the marketplace.
type DeletionReconciler struct {
	cache driven.CatalogStore
	sink  driven.NotificationSink
	now   func() time.Time
}

// NewDeletionReconciler creates a reconciler. The sink receives the audit
// event that precedes every deletion batch.
func NewDeletionReconciler(cache driven.CatalogStore, sink driven.NotificationSink) *DeletionReconciler {
	return &DeletionReconciler{cache: cache, sink: sink, now: time.Now}
}

// ReconcileDeletions deletes cached records absent from a completed fetch.
//
// It does nothing when the fetch is incomplete or returned no identities.
// The audit event naming every doomed SKU is emitted before the delete; if
// it cannot be recorded, nothing is deleted.
func (r *DeletionReconciler) ReconcileDeletions(ctx context.Context, fetched *domain.FetchResult) (int, error) {
	if fetched == nil || !fetched.Complete {
		logger.Debug("Skipping deletion reconciliation: fetch incomplete")
		return 0, nil
	}
	remote := fetched.Identities()
	if len(remote) == 0 {
		logger.Debug("Skipping deletion reconciliation: empty remote set")
		return 0, nil
	}

	cached, err := r.cache.AllIdentities(ctx)
	if err != nil {
		return 0, fmt.Errorf("list cached identities: %w", err)
	}
	stale := 0
	for id := range cached {
		if _, ok := remote[id]; !ok {
			stale++
		}
	}
	if stale == 0 {
		return 0, nil
	}

	doomed, err := r.doomedRecords(ctx, remote)
	if err != nil {
		return 0, err
	}
	if err := r.audit(ctx, doomed); err != nil {
		return 0, fmt.Errorf("record deletion audit: %w", err)
	}

	deleted, err := r.cache.DeleteWhereIdentityNotIn(ctx, remote)
	if err != nil {
		return 0, fmt.Errorf("delete stale records: %w", err)
	}
	logger.Info("Removed %d records no longer on the marketplace", deleted)
	return deleted, nil
}

func (r *DeletionReconciler) doomedRecords(
	ctx context.Context, remote map[string]struct{},
) ([]domain.CatalogRecord, error) {
	all, err := r.cache.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cached records: %w", err)
	}
	var doomed []domain.CatalogRecord
	for i := range all {
		if _, ok := remote[all[i].ExternalID]; !ok {
			doomed = append(doomed, all[i])
		}
	}
	sort.Slice(doomed, func(i, j int) bool { return doomed[i].SKU < doomed[j].SKU })
	return doomed, nil
}

func (r *DeletionReconciler) audit(ctx context.Context, doomed []domain.CatalogRecord) error {
	if r.sink == nil {
		return ErrNoAuditSink
	}

	skus := make([]string, len(doomed))
	ids := make([]string, len(doomed))
	for i := range doomed {
		skus[i] = doomed[i].SKU
		ids[i] = doomed[i].ExternalID
	}

	return r.sink.Emit(ctx, domain.Notification{
		Type:     domain.NotifyDeletionBatch,
		Title:    "Catalog deletions",
		Message:  fmt.Sprintf("%d records no longer listed: %s", len(skus), strings.Join(skus, ", ")),
		Severity: domain.SeverityWarning,
		Payload: map[string]any{
			"skus":         skus,
			"external_ids": ids,
			"count":        len(skus),
		},
		CreatedAt: r.now(),
	})
}
