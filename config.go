package dashboard

import (
	"time"

	"github.com/danieldean2000/oscorm-dashboard/internal/config"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Filename of the standard configuration file.
const ConfigFile = "dashboard.yaml"

// ConfigKeyInfo contains metadata about a known configuration key.
type ConfigKeyInfo = config.ConfigKeyInfo

// ValidationWarning describes a problem with a loaded configuration key.
type ValidationWarning = config.ValidationWarning

// Config is a global koanf instance used to access application level
// configuration options.
//
// Config is loaded in the following order, later sources override earlier:
//  1. Auto-discovered dashboard.yaml, searched for from the working directory up
//  2. Environment variables with the DASH__ prefix
//  3. Sources loaded via LoadConfigFile or LoadConfigDefaults
//  4. Registered defaults, for keys that are still unset when an App is built
//
// Environment variables map as DASH__AUTH__LOGIN_URL → auth.loginUrl.
var Config = koanf.New(".")

func init() {
	registerCoreConfigKeys()

	if cfg := config.SearchForConfig(ConfigFile, "."); cfg != "" {
		if err := Config.Load(file.Provider(cfg), yaml.Parser()); err != nil {
			panic("error loading config: " + err.Error())
		}
	}

	if err := Config.Load(env.Provider(config.EnvPrefix, ".", config.TransformEnv), nil); err != nil {
		panic("error loading env config: " + err.Error())
	}
}

// RegisterConfigKeys documents configuration keys used by a component. Keys
// with a Default are filled in when an App is built.
func RegisterConfigKeys(infos ...ConfigKeyInfo) {
	config.RegisterConfigKeys(infos...)
}

// RegisterDeprecatedKey registers a deprecated configuration key and its
// replacement.
func RegisterDeprecatedKey(oldKey, newKey string) {
	config.RegisterDeprecatedKey(oldKey, newKey)
}

// ConfigKeys returns every registered key, sorted.
func ConfigKeys() []ConfigKeyInfo {
	var infos []ConfigKeyInfo
	for _, key := range config.AllRegisteredKeys() {
		info, _ := config.LookupConfigKey(key)
		infos = append(infos, info)
	}
	return infos
}

// LoadConfigFile merges a YAML file into the global Config.
func LoadConfigFile(path string) error {
	return Config.Load(file.Provider(path), yaml.Parser())
}

// LoadConfigDefaults merges values into the global Config. They override
// earlier sources.
func LoadConfigDefaults(defaults map[string]any) error {
	return Config.Load(confmap.Provider(defaults, "."), nil)
}

// ApplyConfigDefaults fills registered defaults into Config for keys that are
// still unset.
func ApplyConfigDefaults() error {
	return config.ApplyDefaults(Config)
}

// ValidateConfig checks loaded keys against the registered ones.
func ValidateConfig() []ValidationWarning {
	return config.ValidateConfigKeys(Config)
}

// FormatValidationWarnings renders warnings for display.
func FormatValidationWarnings(warnings []ValidationWarning) string {
	return config.FormatValidationWarnings(warnings)
}

// ConfigString returns the string value for the given key.
func ConfigString(key string) string {
	return Config.String(key)
}

// ConfigInt returns the int value for the given key.
func ConfigInt(key string) int {
	return Config.Int(key)
}

// ConfigBool returns the bool value for the given key.
func ConfigBool(key string) bool {
	return Config.Bool(key)
}

// ConfigDuration returns the duration value for the given key.
// Duration strings like "5m", "1h", "30s" are parsed automatically.
func ConfigDuration(key string) time.Duration {
	return Config.Duration(key)
}

// ConfigExists checks if the given key exists in the configuration.
func ConfigExists(key string) bool {
	return Config.Exists(key)
}

// ConfigAll returns all configuration as a map.
func ConfigAll() map[string]any {
	return Config.All()
}

func registerCoreConfigKeys() {
	config.RegisterConfigKeys(
		ConfigKeyInfo{
			Key:         "name",
			Description: "User-facing name of the dashboard",
			Type:        "string",
			Default:     "Blog Dashboard",
		},
		ConfigKeyInfo{
			Key:         "auth.loginUrl",
			Description: "URL of the backend login endpoint",
			Type:        "string",
			Default:     "http://localhost:5000/api/auth/login",
		},
		ConfigKeyInfo{
			Key:         "auth.timeout",
			Description: "Maximum time to wait for the login endpoint",
			Type:        "duration",
			Default:     "30s",
		},
		ConfigKeyInfo{
			Key:         "auth.requestIds",
			Description: "Send an X-Request-Id header with login requests",
			Type:        "bool",
			Default:     true,
		},
		ConfigKeyInfo{
			Key:         "session.key",
			Description: "Storage key the signed-in identity is kept under",
			Type:        "string",
			Default:     "user",
		},
		ConfigKeyInfo{
			Key:         "storage.driver",
			Description: "Durable storage backend",
			Type:        "string",
			Default:     "sqlite",
			Options:     []string{"memory", "sqlite", "postgres"},
		},
		ConfigKeyInfo{
			Key:         "storage.dsn",
			Description: "Data source name for the sqlite or postgres driver",
			Type:        "string",
			Default:     "file:dashboard.s3db",
		},
		ConfigKeyInfo{
			Key:         "storage.prefix",
			Description: "Prefix for storage table names",
			Type:        "string",
			Default:     "dashboard_",
		},
		ConfigKeyInfo{
			Key:         "logging.format",
			Description: "Log output format",
			Type:        "string",
			Default:     "prod",
			Options:     []string{"dev", "prod"},
		},
		ConfigKeyInfo{
			Key:         "fakeBackend.address",
			Description: "Listen address for the development login backend",
			Type:        "string",
			Default:     "localhost:5000",
		},
	)
}
