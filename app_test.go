package dashboard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danieldean2000/oscorm-dashboard/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewAppliesDefaults(t *testing.T) {
	New(WithLogger(logging.NewNopLogger()))

	assert.Equal(t, "user", ConfigString("session.key"))
	assert.Equal(t, "http://localhost:5000/api/auth/login", ConfigString("auth.loginUrl"))
	assert.Equal(t, "30s", ConfigDuration("auth.timeout").String())
	assert.True(t, ConfigBool("auth.requestIds"))
}

func TestAppContextCarriesLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	app := New(WithLogger(logging.NewZapLogger(zap.New(core))))

	logging.Info(app.Context(), "hello")
	assert.Equal(t, 1, logs.FilterMessage("hello").Len())
}

func TestAppInitAndShutdown(t *testing.T) {
	var got []string
	app := New(
		WithLogger(logging.NewNopLogger()),
		WithPlugin(&testPlugin{name: "auth", deps: []string{"storage"}, recorder: &got}),
		WithPlugin(&testPlugin{name: "storage", recorder: &got}),
	)

	require.NoError(t, app.Init())
	require.NoError(t, app.Shutdown(t.Context()))
	assert.Equal(t, []string{"init:storage", "init:auth", "shutdown:auth", "shutdown:storage"}, got)
	assert.NotNil(t, app.Registry().Get("auth"))
}

func TestAppInitFailure(t *testing.T) {
	var got []string
	app := New(
		WithLogger(logging.NewNopLogger()),
		WithPlugin(&testPlugin{name: "auth", deps: []string{"storage"}, recorder: &got}),
	)
	err := app.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dashboard: init failed")
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: Staging Dashboard\n"), 0o600))

	original := ConfigString("name")
	t.Cleanup(func() { _ = LoadConfigDefaults(map[string]any{"name": original}) })

	require.NoError(t, LoadConfigFile(path))
	assert.Equal(t, "Staging Dashboard", ConfigString("name"))
	assert.Error(t, LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestConfigKeysRegistered(t *testing.T) {
	keys := map[string]ConfigKeyInfo{}
	for _, info := range ConfigKeys() {
		keys[info.Key] = info
	}
	for _, k := range []string{"name", "auth.loginUrl", "auth.timeout", "session.key", "storage.driver", "logging.format"} {
		assert.Contains(t, keys, k)
	}
	assert.Equal(t, []string{"memory", "sqlite", "postgres"}, keys["storage.driver"].Options)
}
