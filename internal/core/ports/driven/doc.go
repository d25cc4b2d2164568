// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - MarketplaceClient: Opaque marketplace request function
//   - CatalogStore: Cache of marketplace records
//   - LocalStore: Read access to the commerce store
//   - LeaseStore: Single-flight guard for cycles
//   - SettingsProvider: Sync settings
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - NotificationSink: Observational events. Without it, deletion audits are only logged.
//   - FeedStore: Accepted feed bookkeeping.
//   - SchedulerStore: Scheduler state for the polling daemon.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or marketplace package
package driven
