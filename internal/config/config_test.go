package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "http://localhost:5001", cfg.API.BaseURL)
	assert.Equal(t, 30, cfg.API.RequestTimeoutSeconds)
	assert.False(t, cfg.Observe.Enabled)
	assert.Equal(t, "ideafeed-cli", cfg.Observe.ServiceName)
}

func TestLoad_BaseURLFromEnvironment(t *testing.T) {
	t.Setenv("IDEAFEED_API_URL", "https://api.example.com")

	cfg, err := Load(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
}

func TestLoad_PollOverrides(t *testing.T) {
	t.Setenv("IDEAFEED_POLL_MEME_INTERVAL_MS", "250")

	cfg, err := Load(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 250, cfg.Poll.MemeIntervalMillis)
	assert.Zero(t, cfg.Poll.ArticleIntervalMillis)
}

func TestLoad_ProfileSelection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	contents := "default:\n  url: https://api.ideafeed.app\nstaging:\n  url: https://staging.api.ideafeed.app\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	t.Setenv("IDEAFEED_PROFILE", "staging")
	t.Setenv("IDEAFEED_PROFILES_FILE", path)

	cfg, err := Load(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "https://staging.api.ideafeed.app", cfg.API.BaseURL)
}

func TestLoad_ProfileMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default:\n  url: https://api.ideafeed.app\n"), 0o600))

	t.Setenv("IDEAFEED_PROFILE", "production")
	t.Setenv("IDEAFEED_PROFILES_FILE", path)

	_, err := Load(context.Background())
	assert.ErrorContains(t, err, `profile "production" not defined`)
}

func TestLoadProfiles_FileAbsent(t *testing.T) {
	_, err := LoadProfiles(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "does not exist")
}
