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
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
api_url = "https://api.test.local"
refresh_token = "file-token"
debug = true
rate_limit = 2.5
rate_burst = 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.test.local", cfg.APIURL)
	assert.Equal(t, "file-token", cfg.RefreshToken)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, 4, cfg.RateBurst)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `refresh_token = "file-token"`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, defaultAPIURL, cfg.APIURL)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 5.0, cfg.RateLimit)
	assert.Equal(t, 10, cfg.RateBurst)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("ATLAS_REFRESH_TOKEN", "env-token")
	t.Setenv("ATLAS_API_URL", "https://env.test.local")

	path := writeConfig(t, `
api_url = "https://api.test.local"
refresh_token = "file-token"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.RefreshToken)
	assert.Equal(t, "https://env.test.local", cfg.APIURL)
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("ATLAS_REFRESH_TOKEN", "env-token")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.RefreshToken)
	assert.Equal(t, defaultAPIURL, cfg.APIURL)
}

func TestLoadMissingToken(t *testing.T) {
	path := writeConfig(t, `api_url = "https://api.test.local"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh token")
}
