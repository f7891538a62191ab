package driven

// ConfigStore provides typed access to persisted configuration.
type ConfigStore interface {
	// Get retrieves a raw configuration value by key.
	Get(key string) (any, bool)

	// GetString retrieves a string value, "" when absent.
	GetString(key string) string

	// GetInt retrieves an integer value, 0 when absent.
	GetInt(key string) int

	// GetFloat retrieves a float value, 0 when absent.
	GetFloat(key string) float64

	// GetBool retrieves a boolean value, false when absent.
	GetBool(key string) bool

	// Set stores a configuration value and persists it.
	Set(key string, value any) error

	// Load re-reads configuration from the backing file.
	Load() error
}
