package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ramonehamilton/mtg-archetypes/internal/cards/scryfall"
	"github.com/ramonehamilton/mtg-archetypes/internal/config"
	"github.com/ramonehamilton/mtg-archetypes/internal/formatdata"
	"github.com/ramonehamilton/mtg-archetypes/internal/remote"
	"github.com/ramonehamilton/mtg-archetypes/internal/storage"
	"github.com/ramonehamilton/mtg-archetypes/internal/version"
)

func userAgent() string {
	return "archetyper/" + version.GetVersion()
}

func remoteOptions(c *config.Config, log *zap.Logger) remote.Options {
	return remote.Options{
		UserAgent:      userAgent(),
		RateLimitDelay: c.GetRateLimit(),
		RequestTimeout: c.GetRequestTimeout(),
		Logger:         log,
	}
}

// newLoader builds the definitions loader selected by the config.
func newLoader(c *config.Config, log *zap.Logger) formatdata.Loader {
	if c.Definitions.Source == config.SourceDir {
		return formatdata.NewDirLoader(c.Definitions.Dir)
	}
	return formatdata.NewGitHubLoader(formatdata.GitHubConfig{
		BaseURL:    c.Definitions.BaseURL,
		Repository: c.Definitions.Repository,
		Token:      c.Definitions.Token,
		CacheDir:   c.Definitions.CacheDir,
		MaxAge:     c.GetMaxAge(),
		Remote:     remoteOptions(c, log),
		Logger:     log,
	})
}

// newColorIndex returns a Scryfall-backed color index, or nil when color
// prefetching is disabled.
func newColorIndex(c *config.Config, log *zap.Logger) *scryfall.ColorIndex {
	if !c.Classifier.PrefetchColors {
		return nil
	}
	client := scryfall.NewClient(c.Classifier.ScryfallURL, remoteOptions(c, log))
	return scryfall.NewColorIndex(client, log)
}

// openDB opens the results database, or returns nil when storage is disabled.
func openDB(c *config.Config) (*storage.DB, error) {
	if !c.Database.Enabled {
		return nil, nil
	}
	dbConfig := storage.DefaultConfig(c.Database.Path)
	dbConfig.AutoMigrate = c.Database.AutoMigrate

	db, err := storage.Open(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}
	return db, nil
}
