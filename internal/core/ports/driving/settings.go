package driving

import "github.com/custodia-labs/marketsync/internal/core/domain"

// SettingsService reads and edits the persisted configuration.
type SettingsService interface {
	// Get returns the effective settings, defaults filled in.
	Get() (*domain.AppSettings, error)

	// Save rejects unusable sync settings before writing anything.
	Save(settings *domain.AppSettings) error

	// Validate reports whether a cycle could run with the current
	// settings, naming the first missing or invalid value.
	Validate() error

	GetDefaults() domain.AppSettings

	// GetSchedulerConfig returns the polling schedule.
	GetSchedulerConfig() domain.SchedulerConfig
}
