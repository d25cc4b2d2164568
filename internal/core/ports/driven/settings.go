package driven

import "github.com/custodia-labs/marketsync/internal/core/domain"

// SettingsProvider supplies the sync settings in force for the next cycle.
// Implementations may reload settings between cycles.
type SettingsProvider interface {
	SyncSettings() domain.SyncSettings
}
