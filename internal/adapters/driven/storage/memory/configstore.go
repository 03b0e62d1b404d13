package memory

import (
	"maps"
	"sync"
	"time"

	"github.com/pulseiq/pulseiq-rag/internal/adapters/driven/config"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore is an in-memory driven.ConfigStore. Save and Load are no-ops.
type ConfigStore struct {
	mu     sync.RWMutex
	values config.Values
}

// NewConfigStore creates a config store seeded with a copy of values.
// Keys use dot notation.
func NewConfigStore(values map[string]any) *ConfigStore {
	seeded := make(config.Values, len(values))
	maps.Copy(seeded, values)
	return &ConfigStore{values: seeded}
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

func (s *ConfigStore) read(fn func(config.Values)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.values)
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) (out string) {
	s.read(func(v config.Values) { out = v.String(key) })
	return out
}

// GetInt retrieves an integer configuration value.
func (s *ConfigStore) GetInt(key string) (out int) {
	s.read(func(v config.Values) { out = v.Int(key) })
	return out
}

// GetFloat retrieves a float configuration value.
func (s *ConfigStore) GetFloat(key string) (out float64) {
	s.read(func(v config.Values) { out = v.Float(key) })
	return out
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) (out bool) {
	s.read(func(v config.Values) { out = v.Bool(key) })
	return out
}

// GetDuration retrieves a duration configuration value.
func (s *ConfigStore) GetDuration(key string) (out time.Duration) {
	s.read(func(v config.Values) { out = v.Duration(key) })
	return out
}

// GetStringSlice retrieves a string slice configuration value.
func (s *ConfigStore) GetStringSlice(key string) (out []string) {
	s.read(func(v config.Values) { out = v.StringSlice(key) })
	return out
}

// Set stores a configuration value.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Save is a no-op.
func (s *ConfigStore) Save() error { return nil }

// Load is a no-op.
func (s *ConfigStore) Load() error { return nil }

// Path returns ":memory:".
func (s *ConfigStore) Path() string { return ":memory:" }
