package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Defaults(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()

	require.NoError(t, Init(filepath.Join(dir, "config.toml")))

	assert.Equal(t, dir, GetConfigDir())
	assert.Equal(t, filepath.Join(dir, "credentials"), GetCredentialsPath())
	assert.Equal(t, 10, GetInt("feed.page_size"))
	assert.Equal(t, 2000, GetInt("comments.max_length"))
	assert.Equal(t, 5*time.Minute, GetDuration("cache.ttl"))
	assert.Equal(t, "memory", GetString("cache.backend"))
}

func TestInit_EnvOverride(t *testing.T) {
	viper.Reset()
	t.Setenv("VAULTFEED_FEED_PAGE_SIZE", "3")
	t.Setenv("VAULTFEED_API_BASE_URL", "http://example.test")

	require.NoError(t, Init(filepath.Join(t.TempDir(), "config.toml")))

	assert.Equal(t, 3, GetInt("feed.page_size"))
	assert.Equal(t, "http://example.test", GetString("api.base_url"))
}

func TestSetString_Persists(t *testing.T) {
	viper.Reset()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, Init(path))

	require.NoError(t, SetString("auth.login_url", "http://example.test/login"))

	viper.Reset()
	require.NoError(t, Init(path))
	assert.Equal(t, "http://example.test/login", GetString("auth.login_url"))
}

func TestExpandPath(t *testing.T) {
	assert.Equal(t, "/var/log/x.log", expandPath("/var/log/x.log"))
	assert.NotEqual(t, "~/x.log", expandPath("~/x.log"))
}
