package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
	"github.com/custodia-labs/marketsync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interfaces.
var (
	_ driving.SettingsService = (*SettingsService)(nil)
	_ driven.SettingsProvider = (*SettingsService)(nil)
)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyPageSize          = "sync.page_size"
	keyInventoryPageSize = "sync.inventory_page_size"
	keyChunkSize         = "sync.chunk_size"
	keyPageDelay         = "sync.page_delay"
	keyChunkDelay        = "sync.chunk_delay"
	keyCacheTTL          = "sync.cache_ttl"
	keyLeaseTTL          = "sync.lease_ttl"
	keyPriceTolerance    = "sync.price_tolerance"
	keyMaxReportErrors   = "sync.max_report_errors"
	keyReconcileNames    = "sync.reconcile_names"
	keyReconcileStatus   = "sync.reconcile_status"
	keySyncFields        = "sync.fields"

	keyMarketBaseURL      = "marketplace.base_url"
	keyMarketClientID     = "marketplace.client_id"
	keyMarketClientSecret = "marketplace.client_secret"
	keyMarketTokenURL     = "marketplace.token_url"
	keyMarketAPIKey       = "marketplace.api_key"
	keyMarketCurrency     = "marketplace.currency"
	keyMarketRPS          = "marketplace.requests_per_second"
	keyMarketTimeout      = "marketplace.timeout"

	keyCommerceDSN    = "commerce.dsn"
	keyCommercePrefix = "commerce.table_prefix"
)

// ErrMarketplaceNotConfigured indicates the marketplace section is incomplete.
var ErrMarketplaceNotConfigured = errors.New("marketplace not configured")

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Sync: s.SyncSettings(),
		Marketplace: domain.MarketplaceSettings{
			BaseURL:           s.configStore.GetString(keyMarketBaseURL),
			ClientID:          s.configStore.GetString(keyMarketClientID),
			ClientSecret:      s.configStore.GetString(keyMarketClientSecret),
			TokenURL:          s.configStore.GetString(keyMarketTokenURL),
			APIKey:            s.configStore.GetString(keyMarketAPIKey),
			Currency:          s.getString(keyMarketCurrency, defaults.Marketplace.Currency),
			RequestsPerSecond: s.getFloat(keyMarketRPS, 0),
			Timeout:           s.getDuration(keyMarketTimeout, 0),
		},
		Commerce: domain.CommerceSettings{
			DSN:         s.configStore.GetString(keyCommerceDSN),
			TablePrefix: s.getString(keyCommercePrefix, defaults.Commerce.TablePrefix),
		},
	}

	return settings, nil
}

// SyncSettings returns the sync settings currently configured, with
// defaults for anything unset or unparsable.
func (s *SettingsService) SyncSettings() domain.SyncSettings {
	d := domain.DefaultSyncSettings()

	return domain.SyncSettings{
		PageSize:          s.getInt(keyPageSize, d.PageSize),
		InventoryPageSize: s.getInt(keyInventoryPageSize, d.InventoryPageSize),
		ChunkSize:         s.getInt(keyChunkSize, d.ChunkSize),
		PageDelay:         s.getDuration(keyPageDelay, d.PageDelay),
		ChunkDelay:        s.getDuration(keyChunkDelay, d.ChunkDelay),
		CacheTTL:          s.getDuration(keyCacheTTL, d.CacheTTL),
		LeaseTTL:          s.getDuration(keyLeaseTTL, d.LeaseTTL),
		PriceTolerance:    s.getDecimal(keyPriceTolerance, d.PriceTolerance),
		MaxReportErrors:   s.getInt(keyMaxReportErrors, d.MaxReportErrors),
		ReconcileNames:    s.getBool(keyReconcileNames, d.ReconcileNames),
		ReconcileStatus:   s.getBool(keyReconcileStatus, d.ReconcileStatus),
		Fields:            s.getFields(keySyncFields),
	}
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if settings == nil {
		return domain.ErrInvalidInput
	}
	if err := settings.Sync.Validate(); err != nil {
		return err
	}

	values := []struct {
		key   string
		value any
	}{
		{keyPageSize, settings.Sync.PageSize},
		{keyInventoryPageSize, settings.Sync.InventoryPageSize},
		{keyChunkSize, settings.Sync.ChunkSize},
		{keyPageDelay, settings.Sync.PageDelay.String()},
		{keyChunkDelay, settings.Sync.ChunkDelay.String()},
		{keyCacheTTL, settings.Sync.CacheTTL.String()},
		{keyLeaseTTL, settings.Sync.LeaseTTL.String()},
		{keyPriceTolerance, settings.Sync.PriceTolerance.String()},
		{keyMaxReportErrors, settings.Sync.MaxReportErrors},
		{keyReconcileNames, settings.Sync.ReconcileNames},
		{keyReconcileStatus, settings.Sync.ReconcileStatus},
		{keySyncFields, fieldNames(settings.Sync.Fields)},
		{keyMarketBaseURL, settings.Marketplace.BaseURL},
		{keyMarketClientID, settings.Marketplace.ClientID},
		{keyMarketClientSecret, settings.Marketplace.ClientSecret},
		{keyMarketTokenURL, settings.Marketplace.TokenURL},
		{keyMarketAPIKey, settings.Marketplace.APIKey},
		{keyMarketCurrency, settings.Marketplace.Currency},
		{keyMarketRPS, settings.Marketplace.RequestsPerSecond},
		{keyMarketTimeout, settings.Marketplace.Timeout.String()},
		{keyCommerceDSN, settings.Commerce.DSN},
		{keyCommercePrefix, settings.Commerce.TablePrefix},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	return s.configStore.Save()
}

// Validate checks the settings needed to run a cycle.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := settings.Sync.Validate(); err != nil {
		return err
	}
	if settings.Marketplace.BaseURL == "" {
		return fmt.Errorf("%w: %s is required", ErrMarketplaceNotConfigured, keyMarketBaseURL)
	}
	if !settings.Marketplace.HasCredentials() {
		return fmt.Errorf("%w: client credentials or api key required", ErrMarketplaceNotConfigured)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getInt treats an explicit zero as a value, so options like
// sync.inventory_page_size = 0 can switch features off.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

// getFields ignores unknown field names.
func (s *SettingsService) getFields(key string) []domain.MutationField {
	var fields []domain.MutationField
	for _, name := range s.configStore.GetStringSlice(key) {
		f, err := domain.ParseMutationField(strings.ToUpper(strings.TrimSpace(name)))
		if err != nil {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

func fieldNames(fields []domain.MutationField) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, string(f))
	}
	return names
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return defaultVal
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal
	}
	d, err := s.parseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getDecimal(key string, defaultVal decimal.Decimal) decimal.Decimal {
	val, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := val.(type) {
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(v)
	case int64:
		return decimal.NewFromInt(v)
	case int:
		return decimal.NewFromInt(int64(v))
	}
	return defaultVal
}

// GetSchedulerConfig returns the scheduler configuration.
// Returns default configuration if nothing is configured.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	defaults := domain.DefaultSchedulerConfig()

	// Master switch
	if _, exists := s.configStore.Get("scheduler.enabled"); exists {
		defaults.Enabled = s.configStore.GetBool("scheduler.enabled")
	}

	// Map from task ID to config key (underscore version for TOML)
	taskKeys := map[string]string{
		domain.TaskIDCatalogSync: "catalog_sync",
	}

	for taskID, configKey := range taskKeys {
		prefix := "scheduler." + configKey + "."

		taskCfg := defaults.TaskConfigs[taskID]

		if _, exists := s.configStore.Get(prefix + "enabled"); exists {
			taskCfg.Enabled = s.configStore.GetBool(prefix + "enabled")
		}

		// Duration string like "45m", "1h"
		if interval := s.configStore.GetString(prefix + "interval"); interval != "" {
			if d, err := s.parseDuration(interval); err == nil && d > 0 {
				taskCfg.Interval = d
			}
		}

		defaults.TaskConfigs[taskID] = taskCfg
	}

	return defaults
}

// parseDuration parses a duration string.
func (s *SettingsService) parseDuration(str string) (time.Duration, error) {
	return time.ParseDuration(str)
}
