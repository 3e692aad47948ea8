package environment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.BackendURL)
	assert.Equal(t, []string{"taskeval-backend"}, cfg.BackendCmd)
	assert.Equal(t, "live", cfg.UI)
	assert.Equal(t, "all", cfg.CacheMode)
}

func TestLoadConfigFile(t *testing.T) {
	confHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", confHome)

	dir := filepath.Join(confHome, appName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(
		"backend_url = \"nats://10.0.0.5:4222\"\nbackend_cmd = [\"eval-backend\", \"--quiet\"]\nui = \"print\"\n",
	), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "nats://10.0.0.5:4222", cfg.BackendURL)
	assert.Equal(t, []string{"eval-backend", "--quiet"}, cfg.BackendCmd)
	assert.Equal(t, "print", cfg.UI)
	assert.Equal(t, "all", cfg.CacheMode)
}

func TestEnvOverridesConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("TASKEVAL_BACKEND_URL", "nats://envhost:4222")
	t.Setenv("TASKEVAL_BACKEND_CMD", "custom-backend --cores 2")
	t.Setenv("TASKEVAL_NUM_CORES", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "nats://envhost:4222", cfg.BackendURL)
	assert.Equal(t, []string{"custom-backend", "--cores", "2"}, cfg.BackendCmd)
	assert.Equal(t, 8, cfg.NumCores)
}
