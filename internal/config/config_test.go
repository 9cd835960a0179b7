package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lsweb.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8089, cfg.Server.Port)
	assert.True(t, cfg.Upstream.ProxyAPI)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config should be written")

	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lsweb.yaml")
	content := `
server:
  port: 9000
  public_origin: https://share.example.com
upstream:
  base_url: https://10.0.0.7:53317
  timeout: 15s
  proxy_api: false
pages:
  max_age: 10m
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "https://share.example.com", cfg.Server.PublicOrigin)
	assert.Equal(t, "https://10.0.0.7:53317", cfg.Upstream.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Upstream.Timeout)
	assert.False(t, cfg.Upstream.ProxyAPI)
	assert.Equal(t, 10*time.Minute, cfg.Pages.MaxAge)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// unset keys keep their defaults
	assert.Equal(t, 1000, cfg.Pages.MaxPages)
	assert.Equal(t, int64(8<<20), cfg.Upstream.MaxManifestBytes)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "7001")
	t.Setenv("UPSTREAM_URL", "http://peer.local:53317")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "lsweb.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Server.Port)
	assert.Equal(t, "http://peer.local:53317", cfg.Upstream.BaseURL)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "0.0.0.0:7001", cfg.GetServerAddr())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *AppConfig)
	}{
		{"bad port", func(c *AppConfig) { c.Server.Port = 0 }},
		{"relative upstream", func(c *AppConfig) { c.Upstream.BaseURL = "/api" }},
		{"bad public origin", func(c *AppConfig) { c.Server.PublicOrigin = "example.com" }},
		{"zero manifest limit", func(c *AppConfig) { c.Upstream.MaxManifestBytes = 0 }},
		{"zero max pages", func(c *AppConfig) { c.Pages.MaxPages = 0 }},
		{"zero cleanup interval", func(c *AppConfig) { c.Pages.CleanupInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lsweb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
