package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Storage.PresignTTL)
	assert.Equal(t, "file", cfg.Queue.Slot)
	assert.Equal(t, "offline-pending-actions", cfg.Queue.Key)
	assert.Equal(t, 100*time.Millisecond, cfg.Queue.ReplaySpacing)
	assert.Equal(t, 2*time.Second, cfg.Sync.StabilizeDelay)
	assert.Equal(t, 10*time.Second, cfg.Metadata.Timeout)
	assert.Equal(t, 5, cfg.Metadata.MaxRedirects)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  address: ":9090"
database:
  driver: mongo
  name: gym_test
sync:
  stabilize_delay: 500ms
jwt:
  expiration: 90m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("DATABASE_NAME", "from_env")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "mongo", cfg.Database.Driver)
	assert.Equal(t, "from_env", cfg.Database.Name)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.StabilizeDelay)
	assert.Equal(t, 90*time.Minute, cfg.JWT.Expiration)
}

func TestLoadConfigMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0o644))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}
