package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/iancoleman/strcase"
)

// EnvPrefix marks environment variables that feed the dashboard config.
const EnvPrefix = "DASH__"

// SearchForConfig looks for filename in startDir and each of its parents,
// returning the first match or "".
func SearchForConfig(filename string, startDir string) string {
	d, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}
	for {
		p := filepath.Join(d, filename)
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(d)
		if parent == d {
			return ""
		}
		d = parent
	}
}

// TransformEnv maps DASH__AUTH__LOGIN_URL to auth.loginUrl. Double
// underscores separate segments and single underscores within a segment
// become camelCase.
func TransformEnv(s string) string {
	segments := strings.Split(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__")
	for i, segment := range segments {
		segments[i] = strcase.ToLowerCamel(segment)
	}
	return strings.Join(segments, ".")
}
