package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
http:
  port: 8080
  timeout: 5s
log:
  level: debug
  file: ./logs/flatprice.log
ml:
  model_type: linear
  model_path: ./models/linear.json
  cache_size: 0
journal:
  path: ./data/journal.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Http.Port)
	assert.Equal(t, 5*time.Second, cfg.Http.Timeout)
	assert.Equal(t, int64(1<<20), cfg.Http.MaxBodyBytes)
	assert.Equal(t, []string{"*"}, cfg.Http.AllowedOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "linear", cfg.ML.ModelType)
	assert.Equal(t, 0, cfg.ML.CacheSize)
	assert.Equal(t, "./data/journal.db", cfg.Journal.Path)
}

func TestLoadKeepsDefaultsForMissingSections(t *testing.T) {
	cfg, err := Load(writeConfig(t, "log:\n  level: warn\n"))
	require.NoError(t, err)
	assert.Equal(t, 1702, cfg.Http.Port)
	assert.Equal(t, "tree_ensemble", cfg.ML.ModelType)
	assert.Equal(t, 1024, cfg.ML.CacheSize)
	assert.Empty(t, cfg.Journal.Path)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "http: [1, 2"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "http:\n  port: 70000\n"))
	assert.Error(t, err)
}

func TestPath(t *testing.T) {
	t.Setenv(EnvPath, "")
	assert.Equal(t, "config.yaml", Path("config.yaml"))

	t.Setenv(EnvPath, "/etc/flatprice.yaml")
	assert.Equal(t, "/etc/flatprice.yaml", Path("config.yaml"))
}
