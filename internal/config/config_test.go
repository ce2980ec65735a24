package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "ws://kq.local:12749", cfg.Feed.Address)
	assert.Equal(t, 30*time.Second, cfg.Feed.ReadTimeout)
	assert.Equal(t, ":8000", cfg.Server.Address)
	assert.Equal(t, 256, cfg.Server.SendBuffer)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
feed:
  address: ws://10.0.0.5:12749
  read_timeout: 5s
server:
  address: 127.0.0.1:9000
logging:
  level: debug
  format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://10.0.0.5:12749", cfg.Feed.Address)
	assert.Equal(t, 5*time.Second, cfg.Feed.ReadTimeout)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
	assert.Equal(t, 256, cfg.Server.SendBuffer)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("KQSTATS_FEED_ADDRESS", "ws://cabinet:12749")
	t.Setenv("KQSTATS_SERVER_SEND_BUFFER", "32")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ws://cabinet:12749", cfg.Feed.Address)
	assert.Equal(t, 32, cfg.Server.SendBuffer)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Feed:   FeedConfig{Address: ""},
		Server: ServerConfig{Address: ":8000", SendBuffer: 0},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed.address is required")
	assert.Contains(t, err.Error(), "server.send_buffer must be positive")
}
