package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, DefaultMirrors, config.Mirrors.Endpoints)
	assert.Equal(t, 6, config.Assets.ConcurrentDownloads)
	assert.Equal(t, 700*time.Millisecond, config.Pacing.MinDelay)
	assert.Equal(t, 1500*time.Millisecond, config.Pacing.MaxDelay)
	assert.Equal(t, "logs/success.jsonl", config.Store.SuccessLog)
	assert.NoError(t, config.Validate())

	// Defaults must not alias the package level mirror list
	config.Mirrors.Endpoints[0] = "https://changed.example"
	assert.Equal(t, "https://nitter.tiekoetter.com", DefaultMirrors[0])
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FOLLOWSYNC_MIRRORS", "https://a.example, https://b.example,,")
	t.Setenv("FOLLOWSYNC_MIRROR_TIMEOUT", "3s")
	t.Setenv("FOLLOWSYNC_INPUT", "/tmp/following.js")
	t.Setenv("FOLLOWSYNC_CONCURRENT_DOWNLOADS", "4")
	t.Setenv("FOLLOWSYNC_LATEST_ALIAS", "copy")
	t.Setenv("FOLLOWSYNC_LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, config.Mirrors.Endpoints)
	assert.Equal(t, 3*time.Second, config.Mirrors.Timeout)
	assert.Equal(t, "/tmp/following.js", config.Input.FollowingFile)
	assert.Equal(t, 4, config.Assets.ConcurrentDownloads)
	assert.Equal(t, "copy", config.Assets.LatestAlias)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFromEnvInvalidTimeout(t *testing.T) {
	t.Setenv("FOLLOWSYNC_MIRROR_TIMEOUT", "soon")

	config := DefaultConfig()
	assert.Error(t, config.LoadFromEnv())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError bool
	}{
		{
			name:      "valid config",
			mutate:    func(c *Config) {},
			wantError: false,
		},
		{
			name:      "no mirrors",
			mutate:    func(c *Config) { c.Mirrors.Endpoints = nil },
			wantError: true,
		},
		{
			name:      "mirror without scheme",
			mutate:    func(c *Config) { c.Mirrors.Endpoints = []string{"nitter.example"} },
			wantError: true,
		},
		{
			name:      "zero workers",
			mutate:    func(c *Config) { c.Assets.ConcurrentDownloads = 0 },
			wantError: true,
		},
		{
			name: "inverted pacing",
			mutate: func(c *Config) {
				c.Pacing.MinDelay = 2 * time.Second
				c.Pacing.MaxDelay = time.Second
			},
			wantError: true,
		},
		{
			name:      "unknown alias strategy",
			mutate:    func(c *Config) { c.Assets.LatestAlias = "hardlink" },
			wantError: true,
		},
		{
			name:      "alias strategy in any case",
			mutate:    func(c *Config) { c.Assets.LatestAlias = "Copy" },
			wantError: false,
		},
		{
			name:      "invalid log level",
			mutate:    func(c *Config) { c.Logging.Level = "chatty" },
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
mirrors:
  endpoints:
    - https://one.example
    - https://two.example
  timeout: 4s
assets:
  concurrent_downloads: 2
  latest_alias: symlink
pacing:
  min_delay: 100ms
  max_delay: 200ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(path))

	assert.Equal(t, []string{"https://one.example", "https://two.example"}, config.Mirrors.Endpoints)
	assert.Equal(t, 4*time.Second, config.Mirrors.Timeout)
	assert.Equal(t, 2, config.Assets.ConcurrentDownloads)
	assert.Equal(t, "symlink", config.Assets.LatestAlias)
	assert.Equal(t, 100*time.Millisecond, config.Pacing.MinDelay)
	// Unset sections keep their defaults
	assert.Equal(t, "pbs.twimg.com", config.Canonical.OriginHost)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("assets:\n  concurrent_downloads: 2\nlogging:\n  level: warn\n"), 0644))

	t.Setenv("FOLLOWSYNC_CONCURRENT_DOWNLOADS", "3")
	t.Setenv("FOLLOWSYNC_LOG_LEVEL", "")

	config, err := Load(path, map[string]interface{}{"concurrent": 5})
	require.NoError(t, err)

	assert.Equal(t, 5, config.Assets.ConcurrentDownloads)
	assert.Equal(t, "warn", config.Logging.Level)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	config := DefaultConfig()
	config.Mirrors.Endpoints = []string{"https://only.example"}
	require.NoError(t, config.Save(path))

	reloaded := DefaultConfig()
	require.NoError(t, reloaded.LoadFromFile(path))
	assert.Equal(t, config.Mirrors.Endpoints, reloaded.Mirrors.Endpoints)
	assert.Equal(t, config.Pacing, reloaded.Pacing)
}
