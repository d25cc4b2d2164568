package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Default sync settings.
const (
	DefaultPageSize          = 100
	DefaultInventoryPageSize = 50
	DefaultChunkSize         = 50
	DefaultPageDelay         = 200 * time.Millisecond
	DefaultChunkDelay        = 500 * time.Millisecond
	DefaultCacheTTL          = 24 * time.Hour
	DefaultLeaseTTL          = 30 * time.Minute
	DefaultMaxReportErrors   = 10
)

// DefaultPriceTolerance is the monetary band inside which prices are considered equal.
var DefaultPriceTolerance = decimal.NewFromFloat(0.01)

// SyncSettings holds reconciliation cycle configuration.
type SyncSettings struct {
	// PageSize is the item listing page size.
	PageSize int

	// InventoryPageSize is the cursor inventory page size.
	// Zero disables the inventory pass.
	InventoryPageSize int

	// ChunkSize is the marketplace batch limit.
	ChunkSize int

	// PageDelay is the pause between successful page fetches.
	PageDelay time.Duration

	// ChunkDelay is the pause between chunk submissions.
	ChunkDelay time.Duration

	// CacheTTL is how long a full refresh stays fresh.
	CacheTTL time.Duration

	// LeaseTTL bounds how long a crashed cycle can block the next one.
	LeaseTTL time.Duration

	// PriceTolerance is the band for price equality.
	PriceTolerance decimal.Decimal

	// MaxReportErrors caps the error strings kept in a cycle report.
	MaxReportErrors int

	// ReconcileNames enables NAME mutations.
	ReconcileNames bool

	// ReconcileStatus enables STATUS mutations.
	ReconcileStatus bool

	// Fields limits every cycle to these fields unless a run names its own.
	// Empty reconciles all enabled fields.
	Fields []MutationField
}

// DefaultSyncSettings returns sensible defaults.
func DefaultSyncSettings() SyncSettings {
	return SyncSettings{
		PageSize:          DefaultPageSize,
		InventoryPageSize: DefaultInventoryPageSize,
		ChunkSize:         DefaultChunkSize,
		PageDelay:         DefaultPageDelay,
		ChunkDelay:        DefaultChunkDelay,
		CacheTTL:          DefaultCacheTTL,
		LeaseTTL:          DefaultLeaseTTL,
		PriceTolerance:    DefaultPriceTolerance,
		MaxReportErrors:   DefaultMaxReportErrors,
	}
}

// Validate checks the settings are usable.
func (s *SyncSettings) Validate() error {
	if s.PageSize <= 0 {
		return fmt.Errorf("%w: page size must be positive", ErrInvalidInput)
	}
	if s.InventoryPageSize < 0 {
		return fmt.Errorf("%w: inventory page size must not be negative", ErrInvalidInput)
	}
	if s.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidInput)
	}
	if s.PageDelay < 0 || s.ChunkDelay < 0 {
		return fmt.Errorf("%w: delays must not be negative", ErrInvalidInput)
	}
	if s.LeaseTTL <= 0 {
		return fmt.Errorf("%w: lease ttl must be positive", ErrInvalidInput)
	}
	if s.PriceTolerance.IsNegative() {
		return fmt.Errorf("%w: price tolerance must not be negative", ErrInvalidInput)
	}
	return nil
}

// MarketplaceSettings holds marketplace API connection settings.
type MarketplaceSettings struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	TokenURL     string
	APIKey       string

	// Currency is used in price payloads.
	Currency string

	// RequestsPerSecond caps proactive request rate. Zero uses the client default.
	RequestsPerSecond float64

	// Timeout is the per-request timeout. Zero uses the client default.
	Timeout time.Duration
}

// HasCredentials reports whether any authentication method is configured.
func (m *MarketplaceSettings) HasCredentials() bool {
	return (m.ClientID != "" && m.ClientSecret != "") || m.APIKey != ""
}

// CommerceSettings locates the authoritative local commerce store.
type CommerceSettings struct {
	// DSN is the PostgreSQL connection string. Empty disables the store.
	DSN string

	// TablePrefix is prepended to commerce table names.
	TablePrefix string
}

// AppSettings is the complete application configuration.
type AppSettings struct {
	Sync        SyncSettings
	Marketplace MarketplaceSettings
	Commerce    CommerceSettings
}

// DefaultAppSettings returns the default configuration.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Sync:        DefaultSyncSettings(),
		Marketplace: MarketplaceSettings{Currency: "USD"},
		Commerce:    CommerceSettings{TablePrefix: "wp_"},
	}
}
