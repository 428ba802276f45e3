package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramonehamilton/mtg-archetypes/internal/archetype"
	"github.com/ramonehamilton/mtg-archetypes/internal/formatdata"
	"github.com/ramonehamilton/mtg-archetypes/internal/storage/models"
	"github.com/ramonehamilton/mtg-archetypes/internal/storage/repository"
)

var refreshAll bool

var refreshCmd = &cobra.Command{
	Use:   "refresh [formats...]",
	Short: "Fetch definitions again, bypassing cached snapshots",
	RunE:  runRefresh,
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshAll, "all", false, "Refresh every available format")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	loader := newLoader(cfg, logger)
	formats := args
	if refreshAll {
		all, err := loader.Formats(ctx)
		if err != nil {
			return fmt.Errorf("failed to list formats: %w", err)
		}
		formats = all
	}
	if len(formats) == 0 {
		return errors.New("name at least one format, or pass --all")
	}

	var history repository.RefreshRepository
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		history = repository.NewRefreshRepository(db.Conn())
	}

	cache := formatdata.NewCache(loader, logger)
	out := cmd.OutOrStdout()

	var errs []error
	for _, format := range formats {
		set, err := cache.Refresh(ctx, format)
		recordRefresh(ctx, history, format, set, err)
		if err != nil {
			fmt.Fprintf(out, "%s: failed: %v\n", format, err)
			errs = append(errs, fmt.Errorf("%s: %w", format, err))
			continue
		}
		stats := set.Stats()
		fmt.Fprintf(out, "%s: %d archetypes, %d fallbacks\n", format, stats.ArchetypeCount, stats.FallbackCount)
	}
	return errors.Join(errs...)
}

// recordRefresh stores a refresh attempt. Failures to record are logged only.
func recordRefresh(ctx context.Context, history repository.RefreshRepository, format string, set *archetype.DefinitionSet, refreshErr error) {
	if history == nil {
		return
	}

	entry := &models.DefinitionRefresh{
		Format:      format,
		Source:      cfg.Definitions.Source,
		Strategy:    string(archetype.StrategyExact),
		RefreshedAt: time.Now().UTC(),
	}
	if set != nil {
		stats := set.Stats()
		entry.Format = stats.Format
		entry.ArchetypesCount = stats.ArchetypeCount
		entry.FallbacksCount = stats.FallbackCount
		entry.OverridesCount = stats.OverrideCount
		entry.Strategy = string(stats.Strategy)
	}
	if refreshErr != nil {
		entry.Error = refreshErr.Error()
	}

	if err := history.Record(ctx, entry); err != nil {
		logger.Warn("Failed to record refresh", zap.String("format", format), zap.Error(err))
	}
}
