package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withRegistry swaps in an empty registry for the duration of a test.
func withRegistry(t *testing.T, infos ...ConfigKeyInfo) {
	t.Helper()
	registryMu.Lock()
	original := registry
	registry = make(map[string]ConfigKeyInfo)
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		registry = original
		registryMu.Unlock()
	})
	RegisterConfigKeys(infos...)
}

func TestTransformEnv(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "DASH__AUTH__LOGIN_URL", want: "auth.loginUrl"},
		{input: "DASH__NAME", want: "name"},
		{input: "DASH__FAKE_BACKEND__ADDRESS", want: "fakeBackend.address"},
		{input: "DASH__AUTH__REQUEST_IDS", want: "auth.requestIds"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, TransformEnv(tt.input))
		})
	}
}

func TestSearchForConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dashboard.yaml"), []byte("name: x\n"), 0o600))

	assert.Equal(t, filepath.Join(root, "dashboard.yaml"), SearchForConfig("dashboard.yaml", nested))
	assert.Empty(t, SearchForConfig("dashboard-missing-8812.yaml", nested))
}

func TestApplyDefaults(t *testing.T) {
	withRegistry(t,
		ConfigKeyInfo{Key: "session.key", Default: "user"},
		ConfigKeyInfo{Key: "auth.timeout", Default: "30s"},
		ConfigKeyInfo{Key: "auth.loginUrl"},
	)

	k := koanf.New(".")
	require.NoError(t, k.Set("auth.timeout", "5s"))
	require.NoError(t, ApplyDefaults(k))

	assert.Equal(t, "user", k.String("session.key"))
	assert.Equal(t, "5s", k.String("auth.timeout"), "existing values win over defaults")
	assert.False(t, k.Exists("auth.loginUrl"))
}

func TestFindSimilarKeys(t *testing.T) {
	withRegistry(t,
		ConfigKeyInfo{Key: "auth.loginUrl"},
		ConfigKeyInfo{Key: "auth.timeout"},
		ConfigKeyInfo{Key: "storage.driver"},
	)

	assert.Equal(t, []string{"auth.loginUrl"}, FindSimilarKeys("auth.loginURL", 3))
	assert.Contains(t, FindSimilarKeys("storage.drivr", 3), "storage.driver")
	assert.Empty(t, FindSimilarKeys("completely.unrelated", 3))
}

func TestValidateConfigKeys(t *testing.T) {
	withRegistry(t,
		ConfigKeyInfo{Key: "auth.loginUrl"},
		ConfigKeyInfo{Key: "storage.driver", Options: []string{"memory", "sqlite", "postgres"}},
		ConfigKeyInfo{Key: "logging.format", Options: []string{"dev", "prod"}},
		ConfigKeyInfo{Key: "myapp"},
	)
	RegisterDeprecatedKey("auth.url", "auth.loginUrl")

	k := koanf.New(".")
	require.NoError(t, k.Load(confmap.Provider(map[string]any{
		"auth.loginUrl":   "http://localhost:5000/api/auth/login",
		"auth.url":        "http://old",
		"auth.loginUrll":  "typo",
		"storage.driver":  "mysql",
		"logging.format":  "dev",
		"myapp.anything":  true,
		"totally.unknown": 1,
	}, "."), nil))

	byKey := map[string]ValidationWarning{}
	for _, w := range ValidateConfigKeys(k) {
		byKey[w.Key] = w
	}

	assert.Len(t, byKey, 4)
	assert.Contains(t, byKey["auth.url"].String(), "use 'auth.loginUrl' instead")
	assert.Equal(t, []string{"auth.loginUrl"}, byKey["auth.loginUrll"].Suggestions)
	assert.Contains(t, byKey["storage.driver"].String(), `"mysql"`)
	assert.Contains(t, byKey, "totally.unknown")
	assert.NotContains(t, byKey, "myapp.anything")
	assert.NotContains(t, byKey, "logging.format")
}

func TestValidationWarningString(t *testing.T) {
	assert.Equal(t, "'a.b' is not a known config key",
		ValidationWarning{Key: "a.b"}.String())
	assert.Equal(t, "'a.b' is not a known config key. Did you mean 'a.c'?",
		ValidationWarning{Key: "a.b", Suggestions: []string{"a.c"}}.String())
	assert.Contains(t,
		ValidationWarning{Key: "a.b", Suggestions: []string{"a.c", "a.d"}}.String(),
		"Did you mean one of these?")
}

func TestFormatValidationWarnings(t *testing.T) {
	assert.Empty(t, FormatValidationWarnings(nil))

	out := FormatValidationWarnings([]ValidationWarning{
		{Key: "a.b", Suggestions: []string{"a.c", "a.d"}},
	})
	assert.Contains(t, out, "  - 'a.b' is not a known config key")
	assert.Contains(t, out, "        - a.c")
}
