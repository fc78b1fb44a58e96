package config

import (
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
)

// ConfigKeyInfo contains metadata about a known configuration key.
type ConfigKeyInfo struct {
	Key         string   // Full key path, e.g. "auth.loginUrl".
	Description string   // What the key controls.
	Type        string   // Type hint: "string", "int", "bool", "duration".
	Default     any      // Optional default value.
	Options     []string // Allowed values, if the key is an enumeration.
	Deprecated  bool
	ReplacedBy  string
}

var (
	registry   = make(map[string]ConfigKeyInfo)
	registryMu sync.RWMutex
)

// RegisterConfigKeys records metadata for known configuration keys.
func RegisterConfigKeys(infos ...ConfigKeyInfo) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, info := range infos {
		registry[info.Key] = info
	}
}

// RegisterDeprecatedKey records that oldKey has been replaced by newKey.
func RegisterDeprecatedKey(oldKey, newKey string) {
	RegisterConfigKeys(ConfigKeyInfo{Key: oldKey, Deprecated: true, ReplacedBy: newKey})
}

// LookupConfigKey returns metadata for a registered config key.
func LookupConfigKey(key string) (ConfigKeyInfo, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, exists := registry[key]
	return info, exists
}

// AllRegisteredKeys returns all registered config keys sorted alphabetically.
func AllRegisteredKeys() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultConfigs returns the registered keys that carry a default value.
func DefaultConfigs() map[string]any {
	registryMu.RLock()
	defer registryMu.RUnlock()

	defaults := make(map[string]any)
	for key, info := range registry {
		if info.Default != nil {
			defaults[key] = info.Default
		}
	}
	return defaults
}

// FindSimilarKeys returns up to maxResults registered keys within a small
// edit distance of key, closest first. Keys sharing key's namespace get a one
// point bonus.
func FindSimilarKeys(key string, maxResults int) []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	type scored struct {
		key   string
		score int
	}

	var candidates []scored
	prefix := namespace(key)
	for registered := range registry {
		if registered == key {
			continue
		}
		score := levenshtein.ComputeDistance(key, registered)
		if prefix != "" && prefix == namespace(registered) && score > 0 {
			score--
		}
		if score <= 3 {
			candidates = append(candidates, scored{registered, score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score == candidates[j].score {
			return candidates[i].key < candidates[j].key
		}
		return candidates[i].score < candidates[j].score
	})

	result := make([]string, 0, maxResults)
	for i := 0; i < len(candidates) && i < maxResults; i++ {
		result = append(result, candidates[i].key)
	}
	return result
}

// namespace returns "auth" for "auth.loginUrl".
func namespace(key string) string {
	if i := strings.LastIndex(key, "."); i != -1 {
		return key[:i]
	}
	return ""
}

func hasRegisteredPrefix(key string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()

	parts := strings.Split(key, ".")
	for i := len(parts) - 1; i > 0; i-- {
		if _, exists := registry[strings.Join(parts[:i], ".")]; exists {
			return true
		}
	}
	return false
}
