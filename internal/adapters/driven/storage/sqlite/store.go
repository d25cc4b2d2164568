package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/marketsync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// deleteBatchSize bounds the number of placeholders per DELETE statement.
const deleteBatchSize = 500

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.marketsync/data/catalog.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".marketsync", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "catalog.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CatalogStore returns a CatalogStore interface backed by this store.
func (s *Store) CatalogStore() driven.CatalogStore {
	return &catalogStore{store: s}
}

// LeaseStore returns a LeaseStore interface backed by this store.
// Leases live in the database, so they serialise cycles across processes
// sharing the same data directory.
func (s *Store) LeaseStore() driven.LeaseStore {
	return &leaseStore{store: s}
}

// FeedStore returns a FeedStore interface backed by this store.
func (s *Store) FeedStore() driven.FeedStore {
	return &feedStore{store: s}
}

// EventStore returns the persistent notification log.
func (s *Store) EventStore() *EventStore {
	return &EventStore{store: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Catalog Store ====================

// catalogStore implements driven.CatalogStore.
type catalogStore struct {
	store *Store
}

var _ driven.CatalogStore = (*catalogStore)(nil)

const catalogColumns = `external_id, sku, name, price, inventory_count, lifecycle_status, category,
	last_sync_time, sync_status, sync_error_message, created_at, updated_at`

// Upsert inserts or fully overwrites a record keyed by external id.
func (s *catalogStore) Upsert(ctx context.Context, record domain.CatalogRecord) (domain.UpsertOutcome, error) {
	if err := record.Validate(); err != nil {
		return 0, err
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := s.store.now().UTC()
	record.LastSyncTime = now
	record.UpdatedAt = now

	outcome := domain.UpsertUpdated
	var createdAt string
	err = tx.QueryRowContext(ctx,
		"SELECT created_at FROM catalog_records WHERE external_id = ?", record.ExternalID,
	).Scan(&createdAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		outcome = domain.UpsertInserted
		record.CreatedAt = now
	case err != nil:
		return 0, fmt.Errorf("reading catalog record: %w", err)
	default:
		record.CreatedAt = parseTime(createdAt)
	}

	if record.SyncStatus == "" {
		record.SyncStatus = domain.RecordSyncSuccess
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO catalog_records (`+catalogColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			sku = excluded.sku,
			name = excluded.name,
			price = excluded.price,
			inventory_count = excluded.inventory_count,
			lifecycle_status = excluded.lifecycle_status,
			category = excluded.category,
			last_sync_time = excluded.last_sync_time,
			sync_status = excluded.sync_status,
			sync_error_message = excluded.sync_error_message,
			updated_at = excluded.updated_at
	`, catalogArgs(&record)...); err != nil {
		return 0, fmt.Errorf("saving catalog record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return outcome, nil
}

// GetBySKU returns the record for a SKU.
func (s *catalogStore) GetBySKU(ctx context.Context, sku string) (*domain.CatalogRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+catalogColumns+`
		FROM catalog_records WHERE sku = ?
		ORDER BY external_id LIMIT 1
	`, sku)

	rec, err := scanCatalogRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetBySKUs returns the records matching any of the SKUs, ordered by SKU.
func (s *catalogStore) GetBySKUs(ctx context.Context, skus []string) ([]domain.CatalogRecord, error) {
	if len(skus) == 0 {
		return nil, nil
	}

	var out []domain.CatalogRecord
	for start := 0; start < len(skus); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(skus))
		batch := skus[start:end]

		recs, err := s.query(ctx, `
			SELECT `+catalogColumns+`
			FROM catalog_records WHERE sku IN (`+placeholders(len(batch))+`)
		`, stringArgs(batch)...)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SKU != out[j].SKU {
			return out[i].SKU < out[j].SKU
		}
		return out[i].ExternalID < out[j].ExternalID
	})
	return out, nil
}

// List returns every record ordered by SKU.
func (s *catalogStore) List(ctx context.Context) ([]domain.CatalogRecord, error) {
	return s.query(ctx, `
		SELECT `+catalogColumns+`
		FROM catalog_records
		ORDER BY sku, external_id
	`)
}

// Count returns the number of cached records.
func (s *catalogStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM catalog_records").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting catalog records: %w", err)
	}
	return n, nil
}

// AllIdentities returns the set of cached external ids.
func (s *catalogStore) AllIdentities(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT external_id FROM catalog_records")
	if err != nil {
		return nil, fmt.Errorf("querying identities: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning identity: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating identities: %w", err)
	}
	return ids, nil
}

// DeleteWhereIdentityNotIn removes records whose external id is not in keep.
// An empty keep set deletes nothing.
func (s *catalogStore) DeleteWhereIdentityNotIn(ctx context.Context, keep map[string]struct{}) (int, error) {
	if len(keep) == 0 {
		return 0, nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, "SELECT external_id FROM catalog_records")
	if err != nil {
		return 0, fmt.Errorf("querying identities: %w", err)
	}
	var doomed []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning identity: %w", err)
		}
		if _, ok := keep[id]; !ok {
			doomed = append(doomed, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterating identities: %w", err)
	}

	deleted := 0
	for start := 0; start < len(doomed); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(doomed))
		batch := doomed[start:end]

		res, err := tx.ExecContext(ctx,
			"DELETE FROM catalog_records WHERE external_id IN ("+placeholders(len(batch))+")",
			stringArgs(batch)...)
		if err != nil {
			return 0, fmt.Errorf("deleting catalog records: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("counting deleted records: %w", err)
		}
		deleted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return deleted, nil
}

// LatestSyncTime returns the most recent LastSyncTime, or zero time for an empty table.
func (s *catalogStore) LatestSyncTime(ctx context.Context) (time.Time, error) {
	var latest sql.NullString
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT MAX(last_sync_time) FROM catalog_records",
	).Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("reading latest sync time: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return parseTime(latest.String), nil
}

// ApplyMutation writes a submitted mutation into the cached record.
// The record is located by external id, falling back to SKU.
func (s *catalogStore) ApplyMutation(ctx context.Context, c domain.MutationCandidate) error {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+catalogColumns+`
		FROM catalog_records
		WHERE external_id = ? OR sku = ?
		ORDER BY external_id = ? DESC, external_id
		LIMIT 1
	`, c.ExternalID, c.SKU, c.ExternalID)

	rec, err := scanCatalogRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}

	if err := rec.Apply(c); err != nil {
		return err
	}
	rec.UpdatedAt = s.store.now().UTC()

	if _, err := s.store.db.ExecContext(ctx, `
		UPDATE catalog_records SET
			name = ?, price = ?, inventory_count = ?, lifecycle_status = ?,
			sync_status = ?, sync_error_message = ?, updated_at = ?
		WHERE external_id = ?
	`, rec.Name, rec.Price.String(), rec.InventoryCount, string(rec.LifecycleStatus),
		string(rec.SyncStatus), nullString(rec.SyncErrorMessage), formatTime(rec.UpdatedAt),
		rec.ExternalID); err != nil {
		return fmt.Errorf("applying mutation: %w", err)
	}
	return nil
}

func (s *catalogStore) query(ctx context.Context, query string, args ...any) ([]domain.CatalogRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog records: %w", err)
	}
	defer rows.Close()

	var out []domain.CatalogRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		rec, err := scanCatalogRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating catalog records: %w", err)
	}
	return out, nil
}

// ==================== Lease Store ====================

// leaseStore implements driven.LeaseStore.
type leaseStore struct {
	store *Store
}

var _ driven.LeaseStore = (*leaseStore)(nil)

// Acquire takes the lease in one statement: the upsert only overwrites a
// row that is expired or already owned by holder.
func (s *leaseStore) Acquire(ctx context.Context, name, holder string, ttl time.Duration) (bool, error) {
	now := s.store.now()
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO cycle_leases (name, holder, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			holder = excluded.holder,
			expires_at = excluded.expires_at
		WHERE cycle_leases.expires_at <= ? OR cycle_leases.holder = excluded.holder
	`, name, holder, now.Add(ttl).UnixNano(), now.UnixNano())
	if err != nil {
		return false, fmt.Errorf("acquiring lease %s: %w", name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquiring lease %s: %w", name, err)
	}
	return n > 0, nil
}

// Release frees the lease held by holder.
func (s *leaseStore) Release(ctx context.Context, name, holder string) error {
	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM cycle_leases WHERE name = ? AND holder = ?", name, holder)
	if err != nil {
		return fmt.Errorf("releasing lease %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("releasing lease %s: %w", name, err)
	}
	if n == 0 {
		return domain.ErrLeaseNotHeld
	}
	return nil
}

// ==================== Feed Store ====================

// feedStore implements driven.FeedStore.
type feedStore struct {
	store *Store
}

var _ driven.FeedStore = (*feedStore)(nil)

// SaveFeed stores or replaces a feed submission.
func (s *feedStore) SaveFeed(ctx context.Context, feed domain.FeedSubmission) error {
	if feed.FeedID == "" {
		return domain.ErrInvalidInput
	}

	skus := feed.SKUs
	if skus == nil {
		skus = []string{}
	}
	skusJSON, err := json.Marshal(skus)
	if err != nil {
		return fmt.Errorf("marshalling skus: %w", err)
	}

	if feed.SubmittedAt.IsZero() {
		feed.SubmittedAt = s.store.now()
	}
	if feed.UpdatedAt.IsZero() {
		feed.UpdatedAt = feed.SubmittedAt
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO feed_submissions (feed_id, field, skus, state, submitted_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(feed_id) DO UPDATE SET
			field = excluded.field,
			skus = excluded.skus,
			state = excluded.state,
			submitted_at = excluded.submitted_at,
			updated_at = excluded.updated_at
	`, feed.FeedID, string(feed.Field), string(skusJSON), string(feed.State),
		formatTime(feed.SubmittedAt), formatTime(feed.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving feed: %w", err)
	}
	return nil
}

// ListFeeds returns feeds in state, newest first. An empty state lists all.
func (s *feedStore) ListFeeds(ctx context.Context, state domain.MutationState) ([]domain.FeedSubmission, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT feed_id, field, skus, state, submitted_at, updated_at
		FROM feed_submissions
		WHERE ? = '' OR state = ?
		ORDER BY submitted_at DESC, feed_id
	`, string(state), string(state))
	if err != nil {
		return nil, fmt.Errorf("querying feeds: %w", err)
	}
	defer rows.Close()

	var feeds []domain.FeedSubmission //nolint:prealloc // size unknown from query
	for rows.Next() {
		var f domain.FeedSubmission
		var field, skusJSON, st, submittedAt, updatedAt string
		if err := rows.Scan(&f.FeedID, &field, &skusJSON, &st, &submittedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning feed: %w", err)
		}
		if skusJSON != "" && skusJSON != jsonNull {
			if err := json.Unmarshal([]byte(skusJSON), &f.SKUs); err != nil {
				return nil, fmt.Errorf("unmarshalling skus: %w", err)
			}
		}
		f.Field = domain.MutationField(field)
		f.State = domain.MutationState(st)
		f.SubmittedAt = parseTime(submittedAt)
		f.UpdatedAt = parseTime(updatedAt)
		feeds = append(feeds, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating feeds: %w", err)
	}
	return feeds, nil
}

// UpdateFeedState moves a feed to ACKED or FAILED.
func (s *feedStore) UpdateFeedState(ctx context.Context, feedID string, state domain.MutationState) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var current string
	err = tx.QueryRowContext(ctx,
		"SELECT state FROM feed_submissions WHERE feed_id = ?", feedID,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading feed: %w", err)
	}

	if !domain.CanTransition(domain.MutationState(current), state) {
		return domain.ErrInvalidTransition
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE feed_submissions SET state = ?, updated_at = ? WHERE feed_id = ?",
		string(state), formatTime(s.store.now()), feedID,
	); err != nil {
		return fmt.Errorf("updating feed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ==================== Event Store ====================

// EventStore persists notifications so past cycles can be inspected.
type EventStore struct {
	store *Store
}

var _ driven.NotificationSink = (*EventStore)(nil)

// Emit records a notification.
func (s *EventStore) Emit(ctx context.Context, n domain.Notification) error {
	var payload any
	if n.Payload != nil {
		data, err := json.Marshal(n.Payload)
		if err != nil {
			return fmt.Errorf("marshalling payload: %w", err)
		}
		payload = string(data)
	}

	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.store.now()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_events (type, title, message, severity, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(n.Type), n.Title, n.Message, string(n.Severity), payload, formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

// Recent returns the latest notifications, newest first, optionally
// filtered by type.
func (s *EventStore) Recent(
	ctx context.Context, limit int, types ...domain.NotificationType,
) ([]domain.Notification, error) {
	query := "SELECT type, title, message, severity, payload, created_at FROM sync_events"
	args := make([]any, 0, len(types)+1)
	if len(types) > 0 {
		query += " WHERE type IN (" + placeholders(len(types)) + ")"
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []domain.Notification //nolint:prealloc // size unknown from query
	for rows.Next() {
		var n domain.Notification
		var typ, severity, createdAt string
		var payload sql.NullString
		if err := rows.Scan(&typ, &n.Title, &n.Message, &severity, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		if payload.Valid && payload.String != jsonNull {
			if err := json.Unmarshal([]byte(payload.String), &n.Payload); err != nil {
				return nil, fmt.Errorf("unmarshalling payload: %w", err)
			}
		}
		n.Type = domain.NotificationType(typ)
		n.Severity = domain.Severity(severity)
		n.CreatedAt = parseTime(createdAt)
		events = append(events, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}

// ==================== Helper Functions ====================

type rowScanner interface {
	Scan(dest ...any) error
}

// scanCatalogRecord scans a catalog row from *sql.Row or *sql.Rows.
// sql.ErrNoRows is returned unwrapped.
func scanCatalogRecord(row rowScanner) (*domain.CatalogRecord, error) {
	var rec domain.CatalogRecord
	var price, lifecycle, syncStatus, lastSync, createdAt, updatedAt string
	var syncErr sql.NullString

	if err := row.Scan(&rec.ExternalID, &rec.SKU, &rec.Name, &price, &rec.InventoryCount,
		&lifecycle, &rec.Category, &lastSync, &syncStatus, &syncErr, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning catalog record: %w", err)
	}

	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parsing price of %s: %w", rec.ExternalID, err)
	}
	rec.Price = p
	rec.LifecycleStatus = domain.LifecycleStatus(lifecycle)
	rec.SyncStatus = domain.RecordSyncStatus(syncStatus)
	if syncErr.Valid {
		rec.SyncErrorMessage = syncErr.String
	}
	rec.LastSyncTime = parseTime(lastSync)
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)

	return &rec, nil
}

func catalogArgs(r *domain.CatalogRecord) []any {
	return []any{
		r.ExternalID, r.SKU, r.Name, r.Price.String(), r.InventoryCount,
		string(r.LifecycleStatus), r.Category, formatTime(r.LastSyncTime),
		string(r.SyncStatus), nullString(r.SyncErrorMessage),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime returns zero time for values it cannot parse.
func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, s); err != nil {
			return time.Time{}
		}
	}
	return t.UTC()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
