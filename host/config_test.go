package host

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigDerivesDirs(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ".", cfg.BaseDir)
	assert.Equal(t, filepath.Join(".", "extensions"), cfg.ExtensionsDir)
	assert.Equal(t, filepath.Join(".", "configs"), cfg.ConfigsDir)
	assert.Equal(t, filepath.Join(".", "data"), cfg.DataDir)
	assert.Equal(t, filepath.Join(".", "logs"), cfg.LogsDir)
	assert.Equal(t, filepath.Join(".", "cache"), cfg.CacheDir)
	assert.Zero(t, cfg.MemoryLimitPages)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_dir: /opt/plug
logs_dir: /var/log/plug
memory_limit_pages: 512
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/plug", cfg.BaseDir)
	// Explicit value wins over derivation.
	assert.Equal(t, "/var/log/plug", cfg.LogsDir)
	// Unset dirs derive from base_dir.
	assert.Equal(t, filepath.Join("/opt/plug", "extensions"), cfg.ExtensionsDir)
	assert.Equal(t, filepath.Join("/opt/plug", "cache"), cfg.CacheDir)
	assert.Equal(t, uint32(512), cfg.MemoryLimitPages)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}
