package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/knadh/koanf/v2"
)

// ValidationWarning describes an unknown, deprecated or out of range key.
type ValidationWarning struct {
	Key         string
	Suggestions []string
	Message     string
}

func (w ValidationWarning) String() string {
	if w.Message != "" {
		return fmt.Sprintf("'%s' %s", w.Key, w.Message)
	}
	msg := fmt.Sprintf("'%s' is not a known config key", w.Key)
	switch len(w.Suggestions) {
	case 0:
	case 1:
		msg += fmt.Sprintf(". Did you mean '%s'?", w.Suggestions[0])
	default:
		msg += ". Did you mean one of these?\n"
		for _, s := range w.Suggestions {
			msg += fmt.Sprintf("    - %s\n", s)
		}
	}
	return msg
}

// ValidateConfigKeys checks every loaded key against the registry. Unknown
// keys get spelling suggestions, deprecated keys point at their replacement
// and enumerated keys must hold one of their options.
func ValidateConfigKeys(k *koanf.Koanf) []ValidationWarning {
	var warnings []ValidationWarning

	for _, key := range k.Keys() {
		info, exists := LookupConfigKey(key)
		switch {
		case exists && info.Deprecated:
			warnings = append(warnings, ValidationWarning{
				Key:     key,
				Message: fmt.Sprintf("is deprecated, use '%s' instead", info.ReplacedBy),
			})
		case exists && len(info.Options) > 0:
			if v := k.String(key); !slices.Contains(info.Options, v) {
				warnings = append(warnings, ValidationWarning{
					Key:     key,
					Message: fmt.Sprintf("has value %q, expected one of %s", v, strings.Join(info.Options, ", ")),
				})
			}
		case exists, hasRegisteredPrefix(key):
		default:
			warnings = append(warnings, ValidationWarning{
				Key:         key,
				Suggestions: FindSimilarKeys(key, 3),
			})
		}
	}

	return warnings
}

// FormatValidationWarnings renders warnings as an indented list.
func FormatValidationWarnings(warnings []ValidationWarning) string {
	if len(warnings) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration warnings detected:\n")
	for _, warning := range warnings {
		for i, line := range strings.Split(warning.String(), "\n") {
			if line == "" {
				continue
			}
			if i == 0 {
				fmt.Fprintf(&sb, "  - %s\n", line)
			} else {
				fmt.Fprintf(&sb, "    %s\n", line)
			}
		}
	}
	return sb.String()
}
