package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, BackendLocal, cfg.Storage.Backend)
	assert.Equal(t, "local_storage", cfg.Storage.LocalPath)
	assert.Equal(t, 8, cfg.Ingest.Workers)
	assert.Equal(t, 30, cfg.RefServer.TimeoutSeconds)
	assert.Empty(t, cfg.Cities)
}

func TestLoad_fullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: "9090"
refServer:
  url: http://ref.internal:8080
  timeoutSeconds: 5
storage:
  backend: gcs
  bucket: bus-blobs
  prefix: daily
ingest:
  workers: 4
cities:
  - id: 0
    name: Paris
    country: France
  - id: 1
    name: Berlin
    country: Germany
`))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "http://ref.internal:8080", cfg.RefServer.URL)
	assert.Equal(t, BackendGCS, cfg.Storage.Backend)
	assert.Equal(t, "bus-blobs", cfg.Storage.Bucket)
	assert.Equal(t, "daily", cfg.Storage.Prefix)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	require.Len(t, cfg.Cities, 2)
	assert.Equal(t, "France", cfg.Cities[0].Country)
}

func TestLoad_rejectsUnknownBackend(t *testing.T) {
	_, err := Load(writeConfig(t, "storage:\n  backend: ftp\n"))
	assert.Error(t, err)
}

func TestLoad_gcsRequiresBucket(t *testing.T) {
	_, err := Load(writeConfig(t, "storage:\n  backend: gcs\n"))
	assert.Error(t, err)
}
