package driven

import "time"

// ConfigStore provides access to application configuration.
// Keys use dot notation ("server.addr", "llm.timeout").
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString retrieves a string value, or "" if missing or mistyped.
	GetString(key string) string

	// GetInt retrieves an integer value, or 0 if missing or mistyped.
	GetInt(key string) int

	// GetFloat retrieves a float value, or 0 if missing or mistyped.
	// Integers are widened.
	GetFloat(key string) float64

	// GetBool retrieves a boolean value, or false if missing or mistyped.
	GetBool(key string) bool

	// GetDuration parses a duration string ("30s", "2m").
	// Returns 0 if the key is missing or unparsable.
	GetDuration(key string) time.Duration

	// GetStringSlice retrieves a string slice, or nil if missing or mistyped.
	GetStringSlice(key string) []string

	// Set stores a configuration value and persists it immediately.
	Set(key string, value any) error

	// Save persists the current configuration to storage.
	Save() error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
