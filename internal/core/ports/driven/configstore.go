package driven

// ConfigStore is a flat key/value view over the settings file.
//
// Keys are dotted paths such as "sync.chunk_size" or
// "marketplace.api_key". Typed getters never fail: a missing or mistyped
// value reads as the zero value, and callers that need to tell the two
// apart use Get. Implementations may let the environment override stored
// values; overrides are visible to every getter but are never written back.
type ConfigStore interface {
	// Get returns the raw value and whether the key is set.
	Get(key string) (any, bool)

	GetString(key string) string

	// GetInt also accepts numeric strings.
	GetInt(key string) int

	// GetBool also accepts "true" and "false" strings.
	GetBool(key string) bool

	// GetStringSlice reads a list such as sync.fields. Nil if unset.
	GetStringSlice(key string) []string

	// Set updates a value and persists it.
	Set(key string, value any) error

	// Save writes every value to storage.
	Save() error

	// Load discards in-memory values and rereads storage.
	Load() error

	// Path locates the backing file, for display.
	Path() string
}
