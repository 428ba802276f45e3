package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramonehamilton/mtg-archetypes/internal/archetype"
	"github.com/ramonehamilton/mtg-archetypes/internal/config"
	"github.com/ramonehamilton/mtg-archetypes/internal/formatdata"
	"github.com/ramonehamilton/mtg-archetypes/internal/storage/repository"
)

var watchCmd = &cobra.Command{
	Use:   "watch [formats...]",
	Short: "Reload definitions whenever files in the definitions directory change",
	Long: `Loads the given formats (or the configured preload list) from the
definitions directory and reloads a format each time one of its files changes.
Each reload is logged and, when storage is enabled, recorded. Runs until
interrupted.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if cfg.Definitions.Source != config.SourceDir {
		return errors.New("watch needs a definitions directory; pass --definitions or set source = \"dir\"")
	}

	// Watching runs until interrupted, so --timeout does not apply.
	ctx, stop := signalContext(cmd)
	defer stop()

	var history repository.RefreshRepository
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		history = repository.NewRefreshRepository(db.Conn())
	}

	cache := formatdata.NewCache(newLoader(cfg, logger), logger)
	formats := args
	if len(formats) == 0 {
		formats = cfg.Definitions.Preload
	}
	if err := cache.Preload(ctx, formats...); err != nil {
		logger.Warn("Some formats failed to load", zap.Error(err))
	}

	out := cmd.OutOrStdout()
	watcher := formatdata.NewWatcher(cache, formatdata.WatcherConfig{
		Root:         cfg.Definitions.Dir,
		PollInterval: cfg.GetPollInterval(),
		Logger:       logger,
		OnRefresh: func(format string, set *archetype.DefinitionSet, err error) {
			recordRefresh(ctx, history, format, set, err)
			if err != nil {
				fmt.Fprintf(out, "%s: reload failed: %v\n", format, err)
				return
			}
			fmt.Fprintf(out, "%s: reloaded %d archetypes\n", format, len(set.Archetypes))
		},
	})

	logger.Info("Loaded formats", zap.Strings("formats", cache.Loaded()))
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
