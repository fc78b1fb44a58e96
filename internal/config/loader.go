package config

import (
	"github.com/knadh/koanf/v2"
)

// ApplyDefaults sets registered defaults for keys that k does not already
// hold. It is safe to call more than once, keys registered after the first
// call are picked up by the next.
func ApplyDefaults(k *koanf.Koanf) error {
	for key, val := range DefaultConfigs() {
		if k.Exists(key) {
			continue
		}
		if err := k.Set(key, val); err != nil {
			return err
		}
	}
	return nil
}
