// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - CatalogStore: Marketplace catalog cache keyed by external id
//   - LeaseStore: Single-flight guard for reconciliation cycles
//   - FeedStore: Accepted feed submissions awaiting confirmation
//   - EventStore: Persistent log of cycle notifications
//   - SchedulerStore: Scheduled task state and history
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// Prices are stored as decimal strings and timestamps as fixed-width UTC
// strings, so MAX(last_sync_time) is the latest sync.
//
// # Data Location
//
// By default, the database is stored at ~/.marketsync/data/catalog.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. Leases are rows in the database, so two processes sharing
// a data directory never run overlapping cycles.
package sqlite
