package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()

	require.NoError(t, config.Validate())
	assert.Equal(t, SourceGitHub, config.Definitions.Source)
	assert.Equal(t, "Badaro/MTGOFormatData", config.Definitions.Repository)
	assert.Equal(t, 24*time.Hour, config.GetMaxAge())
	assert.Equal(t, 100*time.Millisecond, config.GetRateLimit())
	assert.Equal(t, 30*time.Second, config.GetRequestTimeout())
	assert.Zero(t, config.GetPollInterval())
	assert.Equal(t, 4, config.Classifier.Workers)
	assert.True(t, config.Database.AutoMigrate)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[definitions]
source = "dir"
dir = "/srv/MTGOFormatData/Formats"
watch = true
poll_interval = "5m"

[classifier]
workers = 8
strategy = "fuzzy"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, SourceDir, config.Definitions.Source)
	assert.Equal(t, "/srv/MTGOFormatData/Formats", config.Definitions.Dir)
	assert.True(t, config.Definitions.Watch)
	assert.Equal(t, 5*time.Minute, config.GetPollInterval())
	assert.Equal(t, 8, config.Classifier.Workers)
	assert.Equal(t, "fuzzy", config.Classifier.Strategy)

	// Untouched keys keep their defaults.
	assert.Equal(t, "24h", config.Definitions.MaxAge)
	assert.True(t, config.Database.Enabled)
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[definitions\nsource = "), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ARCHETYPES_SOURCE", "dir")
	t.Setenv("ARCHETYPES_DEFINITIONS_DIR", "/data/formats")
	t.Setenv("ARCHETYPES_GITHUB_TOKEN", "secret")
	t.Setenv("ARCHETYPES_WORKERS", "2")
	t.Setenv("ARCHETYPES_PRELOAD", "Modern,Legacy")
	t.Setenv("ARCHETYPES_DEBUG", "true")

	config, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, SourceDir, config.Definitions.Source)
	assert.Equal(t, "/data/formats", config.Definitions.Dir)
	assert.Equal(t, "secret", config.Definitions.Token)
	assert.Equal(t, 2, config.Classifier.Workers)
	assert.Equal(t, []string{"Modern", "Legacy"}, config.Definitions.Preload)
	assert.True(t, config.App.DebugMode)
}

func TestLoadEnvInvalidValue(t *testing.T) {
	t.Setenv("ARCHETYPES_WORKERS", "many")

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestSaveRoundTripOmitsToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	config := DefaultConfig()
	config.Definitions.Token = "secret"
	config.Classifier.Workers = 12
	require.NoError(t, config.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, loaded.Classifier.Workers)
	assert.Empty(t, loaded.Definitions.Token)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown source",
			modify:  func(c *Config) { c.Definitions.Source = "ftp" },
			wantErr: "unknown definitions source",
		},
		{
			name:    "dir source without dir",
			modify:  func(c *Config) { c.Definitions.Source = SourceDir },
			wantErr: "definitions dir is required",
		},
		{
			name:    "github source without repository",
			modify:  func(c *Config) { c.Definitions.Repository = "" },
			wantErr: "definitions repository is required",
		},
		{
			name:    "bad duration",
			modify:  func(c *Config) { c.Definitions.MaxAge = "a day" },
			wantErr: "invalid max age",
		},
		{
			name:    "negative duration",
			modify:  func(c *Config) { c.Definitions.PollInterval = "-1s" },
			wantErr: "poll interval cannot be negative",
		},
		{
			name:    "negative workers",
			modify:  func(c *Config) { c.Classifier.Workers = -1 },
			wantErr: "workers cannot be negative",
		},
		{
			name:    "unknown strategy",
			modify:  func(c *Config) { c.Classifier.Strategy = "loose" },
			wantErr: "unknown matching strategy",
		},
		{
			name:    "database without path",
			modify:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database path is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)

			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
