package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CASCADE_CONFIG", "CASCADE_API_URL", "CASCADE_REQUEST_TIMEOUT",
		"CASCADE_UI_HOST", "CASCADE_UI_PORT", "CASCADE_SHUTDOWN_TIMEOUT",
		"CASCADE_CACHE_PATH", "CASCADE_CACHE_MAX_AGE", "CASCADE_VERSION_TTL",
		"CASCADE_LOG_LEVEL", "CASCADE_LOG_FORMAT", "CASCADE_DEFAULT_FIELDS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.APIURL)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.Equal(t, []string{"slug", "created_at", "saved_at"}, cfg.DefaultFields)
	assert.False(t, cfg.JSONLogs())
}

func TestFileThenEnvPrecedence(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "cascade.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_url: http://tracker:9000
port: 9090
request_timeout: 5s
log_format: json
default_fields: [slug, accuracy]
`), 0o644))

	t.Setenv("CASCADE_UI_PORT", "7070")
	t.Setenv("CASCADE_DEFAULT_FIELDS", "slug, loss ,")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://tracker:9000", cfg.APIURL)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.JSONLogs())
	assert.Equal(t, []string{"slug", "loss"}, cfg.DefaultFields)
}

func TestCacheCanBeDisabled(t *testing.T) {
	clearEnv(t)
	t.Setenv("CASCADE_CACHE_PATH", "off")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.CachePath)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad url", func(c *Config) { c.APIURL = "localhost:8000" }},
		{"port", func(c *Config) { c.Port = 0 }},
		{"timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"shutdown", func(c *Config) { c.ShutdownTimeout = -time.Second }},
		{"format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
