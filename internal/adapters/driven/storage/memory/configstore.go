package memory

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigPath is reported as the location of an in-memory configuration.
const ConfigPath = ":memory:"

// ConfigStore keeps configuration for a single run. tldr falls back to it
// when the config directory cannot be used; nothing outlives the process.
// Keys are dot paths and are matched case-insensitively, like the TOML store
// after flattening.
type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
	seed   map[string]any
}

// NewConfigStore creates a config store holding a copy of seed.
// Load restores the seed values.
func NewConfigStore(seed ...map[string]any) *ConfigStore {
	s := &ConfigStore{seed: make(map[string]any)}
	for _, m := range seed {
		for k, v := range m {
			s.seed[normaliseKey(k)] = v
		}
	}
	s.values = maps.Clone(s.seed)
	return s
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[normaliseKey(key)]
	return val, ok
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	str, _ := lookup[string](s, key)
	return str
}

// GetInt retrieves an integer configuration value.
// Whole floats are accepted since parsed numbers may arrive as float64.
func (s *ConfigStore) GetInt(key string) int {
	val, _ := s.Get(key)
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
	}
	return 0
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) bool {
	b, _ := lookup[bool](s, key)
	return b
}

// GetStringSlice retrieves a copy of a string slice configuration value.
func (s *ConfigStore) GetStringSlice(key string) []string {
	val, _ := s.Get(key)
	switch v := val.(type) {
	case []string:
		return slices.Clone(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Set stores a configuration value for the rest of the run.
func (s *ConfigStore) Set(key string, value any) error {
	k := normaliseKey(key)
	if k == "" || strings.HasPrefix(k, ".") || strings.HasSuffix(k, ".") {
		return fmt.Errorf("%w: invalid config key %q", domain.ErrInvalidInput, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[k] = value
	return nil
}

// Save is a no-op; values already live in memory.
func (s *ConfigStore) Save() error {
	return nil
}

// Load discards changes and restores the seed values.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = maps.Clone(s.seed)
	return nil
}

// Keys returns all configured keys in order.
func (s *ConfigStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.values))
}

// Path returns ConfigPath.
func (s *ConfigStore) Path() string {
	return ConfigPath
}

func lookup[T any](s *ConfigStore, key string) (T, bool) {
	val, _ := s.Get(key)
	v, ok := val.(T)
	return v, ok
}

func normaliseKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
