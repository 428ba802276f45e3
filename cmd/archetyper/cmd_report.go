package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramonehamilton/mtg-archetypes/internal/archetype"
	"github.com/ramonehamilton/mtg-archetypes/internal/charts"
	"github.com/ramonehamilton/mtg-archetypes/internal/storage/models"
	"github.com/ramonehamilton/mtg-archetypes/internal/storage/repository"
)

var (
	reportOut       string
	reportOpen      bool
	reportJSON      bool
	reportMaxSlices int
)

var reportCmd = &cobra.Command{
	Use:   "report <format>",
	Short: "Summarize stored classifications of a format",
	Long: `Prints the share of each archetype among the stored classifications of a
format. With --out the shares are also rendered as an HTML chart.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "Write an HTML chart to this file")
	reportCmd.Flags().BoolVar(&reportOpen, "open", false, "Open the chart in a browser")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Print shares as JSON")
	reportCmd.Flags().IntVar(&reportMaxSlices, "top", charts.DefaultChartConfig().MaxSlices, "Archetypes charted before grouping the rest")
}

type reportJSONOutput struct {
	Format string                   `json:"format"`
	Kinds  map[string]int           `json:"kinds"`
	Shares []*models.ArchetypeShare `json:"shares"`
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	format := args[0]
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	if db == nil {
		return errors.New("reports need the results database; enable [database] in the config")
	}
	defer db.Close()

	repo := repository.NewClassificationRepository(db.Conn())
	shares, err := repo.ArchetypeShares(ctx, format)
	if err != nil {
		return err
	}
	kinds, err := repo.CountByKind(ctx, format)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if reportJSON {
		byName := make(map[string]int, len(kinds))
		for kind, n := range kinds {
			byName[kind.String()] = n
		}
		if shares == nil {
			shares = []*models.ArchetypeShare{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reportJSONOutput{Format: format, Kinds: byName, Shares: shares}); err != nil {
			return err
		}
	} else {
		if err := writeShareTable(out, format, shares, kinds); err != nil {
			return err
		}
	}

	if reportOut == "" {
		return nil
	}
	chartConfig := charts.DefaultChartConfig()
	chartConfig.MaxSlices = reportMaxSlices
	if err := charts.WriteShareReport(reportOut, format, shares, chartConfig); err != nil {
		return err
	}
	logger.Info("Wrote report", zap.String("path", reportOut))

	if reportOpen {
		return charts.OpenInBrowser(reportOut)
	}
	return nil
}

func writeShareTable(w io.Writer, format string, shares []*models.ArchetypeShare, kinds map[archetype.Kind]int) error {
	if len(shares) == 0 {
		_, err := fmt.Fprintf(w, "No classifications stored for %s.\n", format)
		return err
	}

	total := 0
	for _, s := range shares {
		total += s.Count
	}
	fmt.Fprintf(w, "%s: %d decks (%d archetype, %d fallback, %d color only, %d unknown)\n\n",
		format, total,
		kinds[archetype.KindArchetype], kinds[archetype.KindFallback],
		kinds[archetype.KindColorOnly], kinds[archetype.KindUnknown])

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ARCHETYPE\tDECKS\tSHARE")
	for _, s := range shares {
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\n", s.ArchetypeName, s.Count, s.Share*100)
	}
	return tw.Flush()
}
