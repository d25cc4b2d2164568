package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
)

// LocalLookup resolves a SKU to its local record, or nil when unmatched.
type LocalLookup func(sku string) *domain.LocalRecord

// DiffOptions tunes mutation detection.
type DiffOptions struct {
	// Tolerance is the price band inside which prices count as equal.
	Tolerance decimal.Decimal

	// Names enables NAME candidates.
	Names bool

	// Status enables STATUS candidates.
	Status bool

	// Fields restricts output to the listed fields. Empty means no restriction.
	Fields []domain.MutationField
}

// DiffOptionsFromSettings derives diff options from sync settings. Fields
// requested for a single run take precedence over the configured default.
func DiffOptionsFromSettings(s domain.SyncSettings, fields []domain.MutationField) DiffOptions {
	if len(fields) == 0 {
		fields = s.Fields
	}
	return DiffOptions{
		Tolerance: s.PriceTolerance,
		Names:     s.ReconcileNames,
		Status:    s.ReconcileStatus,
		Fields:    fields,
	}
}

func (o DiffOptions) allows(f domain.MutationField) bool {
	switch f {
	case domain.FieldName:
		if !o.Names {
			return false
		}
	case domain.FieldStatus:
		if !o.Status {
			return false
		}
	}
	if len(o.Fields) == 0 {
		return true
	}
	for _, allowed := range o.Fields {
		if allowed == f {
			return true
		}
	}
	return false
}

// ComputeMutations compares cached marketplace records with their local
// counterparts and proposes corrective mutations. It never modifies its
// inputs and its output is sorted by field order, then SKU.
func ComputeMutations(catalog []domain.CatalogRecord, lookup LocalLookup, opts DiffOptions) domain.DiffResult {
	var result domain.DiffResult
	seenUnmatched := make(map[string]struct{})

	for i := range catalog {
		rec := &catalog[i]
		local := lookup(rec.SKU)
		if local == nil {
			if _, dup := seenUnmatched[rec.SKU]; !dup {
				seenUnmatched[rec.SKU] = struct{}{}
				result.Unmatched = append(result.Unmatched, rec.SKU)
			}
			continue
		}
		result.Compared++

		candidate := func(field domain.MutationField, current, desired string) domain.MutationCandidate {
			return domain.MutationCandidate{
				SKU:          rec.SKU,
				ExternalID:   rec.ExternalID,
				Field:        field,
				CurrentValue: current,
				DesiredValue: desired,
				SourceRef:    local.ProductID,
				State:        domain.MutationPending,
			}
		}

		if opts.allows(domain.FieldPrice) && local.Price.Sub(rec.Price).Abs().GreaterThan(opts.Tolerance) {
			result.Candidates = append(result.Candidates,
				candidate(domain.FieldPrice, rec.Price.String(), local.Price.String()))
		}

		if opts.allows(domain.FieldInventory) && local.StockQuantity != nil {
			desired := *local.StockQuantity
			if desired < 0 {
				desired = 0
			}
			if desired != rec.InventoryCount {
				result.Candidates = append(result.Candidates,
					candidate(domain.FieldInventory, strconv.Itoa(rec.InventoryCount), strconv.Itoa(desired)))
			}
		}

		if opts.allows(domain.FieldName) {
			name := strings.TrimSpace(local.Name)
			if name != "" && name != rec.Name {
				result.Candidates = append(result.Candidates, candidate(domain.FieldName, rec.Name, name))
			}
		}

		if opts.allows(domain.FieldStatus) {
			desired := local.DesiredLifecycle()
			if desired != domain.LifecycleUnknown && desired != rec.LifecycleStatus {
				result.Candidates = append(result.Candidates,
					candidate(domain.FieldStatus, string(rec.LifecycleStatus), string(desired)))
			}
		}
	}

	sortCandidates(result.Candidates)
	return result
}

func fieldRank(f domain.MutationField) int {
	for i, ff := range domain.FieldOrder {
		if ff == f {
			return i
		}
	}
	return len(domain.FieldOrder)
}

func sortCandidates(c []domain.MutationCandidate) {
	sort.SliceStable(c, func(i, j int) bool {
		ri, rj := fieldRank(c[i].Field), fieldRank(c[j].Field)
		if ri != rj {
			return ri < rj
		}
		if c[i].SKU != c[j].SKU {
			return c[i].SKU < c[j].SKU
		}
		return c[i].ExternalID < c[j].ExternalID
	})
}

// LocalSnapshot reads the local records for skus once, so the diff runs
// over a fixed snapshot. Lookup failures are collected per SKU and the
// affected SKUs are left out of the snapshot.
func LocalSnapshot(
	ctx context.Context, store driven.LocalStore, skus []string,
) (map[string]*domain.LocalRecord, []error) {
	snapshot := make(map[string]*domain.LocalRecord, len(skus))
	var errs []error

	for _, sku := range skus {
		if _, done := snapshot[sku]; done {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("local snapshot: %w", err))
			return snapshot, errs
		}

		rec, err := store.FindBySKU(ctx, sku)
		if err != nil {
			errs = append(errs, fmt.Errorf("local lookup %s: %w", sku, err))
			continue
		}
		if rec == nil {
			continue
		}

		price, err := store.GetPrice(ctx, rec.ProductID)
		if err != nil {
			errs = append(errs, fmt.Errorf("local price %s: %w", sku, err))
			continue
		}
		stock, err := store.GetStock(ctx, rec.ProductID)
		if err != nil {
			errs = append(errs, fmt.Errorf("local stock %s: %w", sku, err))
			continue
		}

		snap := *rec
		snap.Price = price
		snap.StockQuantity = stock
		snapshot[sku] = &snap
	}

	return snapshot, errs
}

// Lookup adapts a snapshot map to a LocalLookup.
func Lookup(snapshot map[string]*domain.LocalRecord) LocalLookup {
	return func(sku string) *domain.LocalRecord {
		return snapshot[sku]
	}
}
