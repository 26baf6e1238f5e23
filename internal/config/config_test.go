package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "coach_progression", cfg.Database.Name)
	assert.Equal(t, TransportPoll, cfg.Sync.Transport)
	assert.Equal(t, 2*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, 3, cfg.Sync.MaxCommitRetries)
	assert.Equal(t, 720*time.Hour, cfg.Share.Expiration)
	assert.Equal(t, 120, cfg.Share.RatePerMinute)
	assert.Equal(t, 16, cfg.Catalog.CacheMegabytes)
	assert.Equal(t, 10*time.Minute, cfg.Catalog.CacheTTL)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  address: ":9090"
sync:
  transport: push
  poll_interval: 500ms
share:
  secret: from-file
log:
  level: debug
  json: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("SHARE_SECRET", "from-env")
	t.Setenv("SYNC_MAX_COMMIT_RETRIES", "5")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, TransportPush, cfg.Sync.Transport)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.PollInterval)
	assert.Equal(t, 5, cfg.Sync.MaxCommitRetries)
	assert.Equal(t, "from-env", cfg.Share.Secret)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
}

func TestLoadConfig_BadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0o600))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}
