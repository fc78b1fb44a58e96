package dashboard

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/danieldean2000/oscorm-dashboard/errors"
)

// ConfigMustString returns the string value for the given key.
// It panics if the key doesn't exist or the value is empty.
func ConfigMustString(key, helpMsg string) string {
	if !Config.Exists(key) {
		panic(fmt.Sprintf("required config '%s' not set: %s", key, helpMsg))
	}
	value := Config.String(key)
	if value == "" {
		panic(fmt.Sprintf("required config '%s' is empty: %s", key, helpMsg))
	}
	return value
}

// ConfigMustDurationRange returns the duration value for the given key with
// range validation. It panics if the key doesn't exist or the value is outside
// the given range.
func ConfigMustDurationRange(key string, minVal, maxVal time.Duration) time.Duration {
	if !Config.Exists(key) {
		panic(fmt.Sprintf("required config '%s' not set (expected %s-%s)", key, minVal, maxVal))
	}
	value := Config.Duration(key)
	if err := ValidateDurationRange(value, minVal, maxVal); err != nil {
		panic(fmt.Sprintf("config '%s': %v", key, err))
	}
	return value
}

// ValidateDurationRange validates that a duration is within the given range (inclusive).
func ValidateDurationRange(value, minVal, maxVal time.Duration) error {
	if value < minVal || value > maxVal {
		return errors.Errorf("must be between %s and %s, got: %s", minVal, maxVal, value)
	}
	return nil
}

// ValidateURL validates that a string is an absolute http or https URL.
func ValidateURL(urlStr string) error {
	if urlStr == "" {
		return errors.New("URL cannot be empty")
	}
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return errors.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("URL must have a scheme (http:// or https://)")
	}
	if parsed.Host == "" {
		return errors.New("URL must have a host")
	}
	return nil
}

// ValidateListenAddress validates a host:port pair with a usable port.
func ValidateListenAddress(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return errors.Errorf("invalid address: %w", err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got: %s", port)
	}
	return nil
}

// ValidateNonEmpty validates that a string is not empty.
func ValidateNonEmpty(value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New("cannot be empty")
	}
	return nil
}

// ValidationError represents an invalid configuration value.
type ValidationError struct {
	Key     string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Message)
}

// ValidateConfigValues checks the values of the core keys. Unlike
// ValidateConfig, which only warns about unknown keys, any error here stops
// the app from initializing.
func ValidateConfigValues() []ValidationError {
	var errs []ValidationError
	check := func(key string, err error) {
		if err != nil {
			errs = append(errs, ValidationError{Key: key, Message: err.Error()})
		}
	}

	check("auth.loginUrl", ValidateURL(Config.String("auth.loginUrl")))
	if Config.Exists("auth.timeout") {
		check("auth.timeout", ValidateDurationRange(Config.Duration("auth.timeout"), time.Second, 5*time.Minute))
	}
	check("session.key", ValidateNonEmpty(Config.String("session.key")))
	if Config.String("storage.driver") != "memory" {
		check("storage.dsn", ValidateNonEmpty(Config.String("storage.dsn")))
	}
	if Config.Exists("fakeBackend.address") {
		check("fakeBackend.address", ValidateListenAddress(Config.String("fakeBackend.address")))
	}
	return errs
}

// FormatValidationErrors formats validation errors into a readable message.
func FormatValidationErrors(errs []ValidationError) string {
	if len(errs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range errs {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	sb.WriteString("\nFix these errors in " + ConfigFile + " or DASH__ environment variables and try again.")
	return sb.String()
}
