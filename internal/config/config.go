// Package config loads archetyper settings from a TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/ramonehamilton/mtg-archetypes/internal/archetype"
)

// Definition sources.
const (
	SourceDir    = "dir"
	SourceGitHub = "github"
)

// Config represents the application configuration.
type Config struct {
	Definitions DefinitionsConfig `toml:"definitions"`
	Database    DatabaseConfig    `toml:"database"`
	Classifier  ClassifierConfig  `toml:"classifier"`
	App         AppConfig         `toml:"app"`
}

// DefinitionsConfig selects where archetype definitions come from.
type DefinitionsConfig struct {
	Source         string   `toml:"source" env:"ARCHETYPES_SOURCE"`                   // "dir" or "github"
	Dir            string   `toml:"dir" env:"ARCHETYPES_DEFINITIONS_DIR"`             // checkout of MTGOFormatData/Formats
	Repository     string   `toml:"repository" env:"ARCHETYPES_REPOSITORY"`           // owner/name on GitHub
	BaseURL        string   `toml:"base_url" env:"ARCHETYPES_GITHUB_URL"`             // GitHub API root
	Token          string   `toml:"-" env:"ARCHETYPES_GITHUB_TOKEN"`                  // never written to disk
	CacheDir       string   `toml:"cache_dir" env:"ARCHETYPES_CACHE_DIR"`             // GitHub snapshots
	MaxAge         string   `toml:"max_age" env:"ARCHETYPES_MAX_AGE"`                 // e.g. "24h"
	RateLimit      string   `toml:"rate_limit" env:"ARCHETYPES_RATE_LIMIT"`           // delay between requests
	RequestTimeout string   `toml:"request_timeout" env:"ARCHETYPES_REQUEST_TIMEOUT"` // per request
	Watch          bool     `toml:"watch" env:"ARCHETYPES_WATCH"`
	PollInterval   string   `toml:"poll_interval" env:"ARCHETYPES_POLL_INTERVAL"` // "" or "0s" disables polling
	Preload        []string `toml:"preload" env:"ARCHETYPES_PRELOAD" envSeparator:","`
}

// DatabaseConfig contains result storage settings.
type DatabaseConfig struct {
	Enabled     bool   `toml:"enabled" env:"ARCHETYPES_DB_ENABLED"`
	Path        string `toml:"path" env:"ARCHETYPES_DB_PATH"`
	AutoMigrate bool   `toml:"auto_migrate" env:"ARCHETYPES_DB_AUTO_MIGRATE"`
}

// ClassifierConfig tunes classification runs.
type ClassifierConfig struct {
	Workers        int    `toml:"workers" env:"ARCHETYPES_WORKERS"`
	PrefetchColors bool   `toml:"prefetch_colors" env:"ARCHETYPES_PREFETCH_COLORS"`
	ScryfallURL    string `toml:"scryfall_url" env:"ARCHETYPES_SCRYFALL_URL"`
	Strategy       string `toml:"strategy" env:"ARCHETYPES_STRATEGY"` // overrides format.toml when set
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool `toml:"debug_mode" env:"ARCHETYPES_DEBUG"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Definitions: DefinitionsConfig{
			Source:         SourceGitHub,
			Dir:            "",
			Repository:     "Badaro/MTGOFormatData",
			BaseURL:        "https://api.github.com",
			CacheDir:       filepath.Join(dataDir, "formats"),
			MaxAge:         "24h",
			RateLimit:      "100ms",
			RequestTimeout: "30s",
			Watch:          false,
			PollInterval:   "",
		},
		Database: DatabaseConfig{
			Enabled:     true,
			Path:        filepath.Join(dataDir, "archetypes.db"),
			AutoMigrate: true,
		},
		Classifier: ClassifierConfig{
			Workers:        4,
			PrefetchColors: false,
			ScryfallURL:    "https://api.scryfall.com",
			Strategy:       "",
		},
		App: AppConfig{
			DebugMode: false,
		},
	}
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".mtg-archetypes"
	}
	return filepath.Join(homeDir, ".mtg-archetypes")
}

// DefaultPath returns the configuration file used when none is given.
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.toml")
}

// Load reads the configuration at path, or DefaultPath when path is empty,
// then applies environment overrides. A missing file yields the defaults.
// Keys absent from the file keep their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides config with any ARCHETYPES_* variables that are set.
func ApplyEnv(config *Config) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Save writes the configuration to path, or DefaultPath when path is empty.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	switch c.Definitions.Source {
	case SourceDir:
		if c.Definitions.Dir == "" {
			return errors.New("definitions dir is required when source is \"dir\"")
		}
	case SourceGitHub:
		if c.Definitions.Repository == "" {
			return errors.New("definitions repository is required when source is \"github\"")
		}
	default:
		return fmt.Errorf("unknown definitions source %q", c.Definitions.Source)
	}

	durations := map[string]string{
		"max age":         c.Definitions.MaxAge,
		"rate limit":      c.Definitions.RateLimit,
		"request timeout": c.Definitions.RequestTimeout,
		"poll interval":   c.Definitions.PollInterval,
	}
	for name, value := range durations {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
		if d < 0 {
			return fmt.Errorf("%s cannot be negative: %s", name, value)
		}
	}

	if c.Classifier.Workers < 0 {
		return fmt.Errorf("workers cannot be negative: %d", c.Classifier.Workers)
	}
	if c.Classifier.Strategy != "" {
		if _, err := archetype.ParseStrategy(c.Classifier.Strategy); err != nil {
			return err
		}
	}

	if c.Database.Enabled && c.Database.Path == "" {
		return errors.New("database path is required when the database is enabled")
	}

	return nil
}

func parseDuration(value string) time.Duration {
	if value == "" {
		return 0
	}
	d, _ := time.ParseDuration(value)
	return d
}

// GetMaxAge returns the snapshot max age. Call Validate first.
func (c *Config) GetMaxAge() time.Duration {
	return parseDuration(c.Definitions.MaxAge)
}

// GetRateLimit returns the delay between remote requests.
func (c *Config) GetRateLimit() time.Duration {
	return parseDuration(c.Definitions.RateLimit)
}

// GetRequestTimeout returns the per-request timeout.
func (c *Config) GetRequestTimeout() time.Duration {
	return parseDuration(c.Definitions.RequestTimeout)
}

// GetPollInterval returns the watcher poll interval, zero when disabled.
func (c *Config) GetPollInterval() time.Duration {
	return parseDuration(c.Definitions.PollInterval)
}
