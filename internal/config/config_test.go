package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.NotEqual(t, uuid.Nil, cfg.NodeID)
	assert.False(t, cfg.EnforceContentType)
	assert.Equal(t, "data/cluster.json", cfg.Store.ClusterFile)
	assert.Equal(t, "*", cfg.CORS.AllowOrigins)
}

func TestLoadConfigFile(t *testing.T) {
	id := uuid.New()
	file := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  port: 9000
  node_id: `+id.String()+`
  enforce_content_type: true
store:
  cluster_file: /var/lib/cluster.json
  watch: true
blueprint:
  rules:
    - replicas >= 1
cors:
  enabled: true
  max_age: 60
`), 0644))

	cfg, err := LoadConfig(file)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, id, cfg.NodeID)
	assert.True(t, cfg.EnforceContentType)
	assert.Equal(t, "/var/lib/cluster.json", cfg.Store.ClusterFile)
	assert.Equal(t, "data/auth.json", cfg.Store.AuthFile)
	assert.True(t, cfg.Store.Watch)
	assert.Equal(t, []string{"replicas >= 1"}, cfg.BlueprintRules)
	assert.True(t, cfg.CORS.Enabled)
	assert.Equal(t, 60, cfg.CORS.MaxAge)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("server:\n  node_id: nope\n"), 0644))
	_, err = LoadConfig(bad)
	assert.Error(t, err)
}

func TestSaveDefaultConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, SaveDefaultConfig(file))

	first, err := LoadConfig(file)
	require.NoError(t, err)
	second, err := LoadConfig(file)
	require.NoError(t, err)

	assert.Equal(t, first.NodeID, second.NodeID, "node id is stable across loads")
	assert.True(t, first.EnforceContentType)
}

func TestOverrides(t *testing.T) {
	cfg := Default()
	id := uuid.New()

	require.NoError(t, Overrides{Port: 1234, NodeID: id.String(), AuthFile: "a.json"}.Apply(cfg))
	assert.Equal(t, 1234, cfg.Port)
	assert.Equal(t, id, cfg.NodeID)
	assert.Equal(t, "a.json", cfg.Store.AuthFile)
	assert.Equal(t, "data/cluster.json", cfg.Store.ClusterFile)

	assert.Error(t, Overrides{NodeID: "bad"}.Apply(cfg))
}
