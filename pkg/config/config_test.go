package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "modules", cfg.ModulesRoot)
	assert.Equal(t, "storage", cfg.StorageRoot)
	assert.Equal(t, "python3", cfg.Python)
	assert.Equal(t, ":8000", cfg.API.Addr)
	assert.Equal(t, 1, cfg.Engine.Workers)
	assert.Equal(t, 2*time.Second, cfg.Engine.PollInterval)
	assert.Equal(t, 600*time.Second, cfg.Engine.TaskTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recomp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
modules_root: /srv/modules
python: python3.11
api:
  addr: ":9001"
engine:
  workers: 4
  poll_interval: 500ms
log:
  level: debug
  json: true
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/modules", cfg.ModulesRoot)
	assert.Equal(t, "python3.11", cfg.Python)
	assert.Equal(t, ":9001", cfg.API.Addr)
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.Engine.PollInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)

	// Untouched values keep their defaults
	assert.Equal(t, "storage", cfg.StorageRoot)
	assert.Equal(t, 600*time.Second, cfg.Engine.TaskTimeout)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recomp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("modules_root: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadClampsWorkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recomp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  workers: 0\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Engine.Workers)
}

func TestAbsolutize(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Absolutize())
	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.True(t, filepath.IsAbs(cfg.ModulesRoot))
	assert.True(t, filepath.IsAbs(cfg.StorageRoot))
}
