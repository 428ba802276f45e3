package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramonehamilton/mtg-archetypes/internal/archetype"
	"github.com/ramonehamilton/mtg-archetypes/internal/formatdata"
)

var formatsStats bool

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the formats with archetype definitions",
	Args:  cobra.NoArgs,
	RunE:  runFormats,
}

func init() {
	formatsCmd.Flags().BoolVar(&formatsStats, "stats", false, "Load every format and print definition counts")
}

func runFormats(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	loader := newLoader(cfg, logger)
	formats, err := loader.Formats(ctx)
	if err != nil {
		return fmt.Errorf("failed to list formats: %w", err)
	}

	out := cmd.OutOrStdout()
	if !formatsStats {
		for _, f := range formats {
			fmt.Fprintln(out, f)
		}
		return nil
	}

	cache := formatdata.NewCache(loader, logger)
	if err := cache.Preload(ctx, formats...); err != nil {
		logger.Warn("Some formats failed to load", zap.Error(err))
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FORMAT\tSTRATEGY\tARCHETYPES\tFALLBACKS\tOVERRIDES")
	for _, f := range formats {
		set := cache.Definitions(f)
		if set == nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\n", f)
			continue
		}
		stats := set.Stats()
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", f, stats.Strategy, stats.ArchetypeCount, stats.FallbackCount, stats.OverrideCount)
	}
	return tw.Flush()
}

var validateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate <format>",
	Short: "Report definitions that will behave surprisingly",
	Long: `Loads a format and lists definitions that can never match, match every
deck, or are otherwise malformed. Issues are warnings; the command fails only
if the format cannot be loaded.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Print issues as JSON")
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	set, err := newLoader(cfg, logger).Load(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], err)
	}
	issues := set.Validate()

	out := cmd.OutOrStdout()
	if validateJSON {
		if issues == nil {
			issues = []archetype.ValidationIssue{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(issues)
	}

	stats := set.Stats()
	fmt.Fprintf(out, "%s: %d archetypes, %d fallbacks, %d color overrides (%s matching)\n",
		stats.Format, stats.ArchetypeCount, stats.FallbackCount, stats.OverrideCount, stats.Strategy)
	if len(issues) == 0 {
		fmt.Fprintln(out, "No issues found.")
		return nil
	}
	for _, issue := range issues {
		fmt.Fprintf(out, "  - %s\n", issue)
	}
	return nil
}
