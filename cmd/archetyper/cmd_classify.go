package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramonehamilton/mtg-archetypes/internal/archetype"
	"github.com/ramonehamilton/mtg-archetypes/internal/deckimport"
	"github.com/ramonehamilton/mtg-archetypes/internal/formatdata"
	"github.com/ramonehamilton/mtg-archetypes/internal/ingest"
	"github.com/ramonehamilton/mtg-archetypes/internal/storage/repository"
)

var (
	classifyFormat   string
	classifyStrategy string
	classifyJSON     bool
	classifyNoStore  bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify <deck files...>",
	Short: "Classify decklists",
	Long: `Reads decks from files and prints the archetype of each one.

YAML files hold a list of decks, JSON files one deck or an array of decks, and
any other file a single Arena export or plain text decklist. Use "-" to read
a decklist from standard input.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyFormat, "format", "f", "", "Format for decks that do not name one")
	classifyCmd.Flags().StringVar(&classifyStrategy, "strategy", "", "Matching strategy for every format: exact or fuzzy")
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "Print results as JSON")
	classifyCmd.Flags().BoolVar(&classifyNoStore, "no-store", false, "Do not save results to the database")
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	var items []ingest.Item
	for _, path := range args {
		decks, err := readDecks(cmd.InOrStdin(), path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		for _, d := range decks {
			for _, w := range d.Warnings {
				logger.Warn("Deck parse warning", zap.String("file", path), zap.String("deck", d.Name), zap.String("warning", w))
			}
		}
		items = append(items, ingest.ItemsFromFile(path, decks)...)
	}
	if len(items) == 0 {
		return fmt.Errorf("no decks found")
	}

	strategy := cfg.Classifier.Strategy
	if classifyStrategy != "" {
		strategy = classifyStrategy
	}
	var override archetype.Strategy
	if strategy != "" {
		parsed, err := archetype.ParseStrategy(strategy)
		if err != nil {
			return err
		}
		override = parsed
	}

	opts := ingest.Options{
		Workers:       cfg.Classifier.Workers,
		DefaultFormat: classifyFormat,
		Strategy:      override,
		Logger:        logger,
	}
	if colors := newColorIndex(cfg, logger); colors != nil {
		opts.Colors = colors
	}
	if !classifyNoStore {
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
			opts.Repository = repository.NewClassificationRepository(db.Conn())
		}
	}

	cache := formatdata.NewCache(newLoader(cfg, logger), logger)
	pipeline := ingest.New(cache, opts)

	outcomes, err := pipeline.Run(ctx, items)
	if err != nil {
		return err
	}

	if classifyJSON {
		return writeOutcomesJSON(cmd.OutOrStdout(), outcomes)
	}
	return writeOutcomesTable(cmd.OutOrStdout(), outcomes)
}

// readDecks reads path, or a single decklist from stdin when path is "-".
func readDecks(stdin io.Reader, path string) ([]deckimport.NamedDeck, error) {
	if path != "-" {
		return deckimport.ReadFile(path)
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, err
	}
	parsed, err := deckimport.Parse(string(data))
	if err != nil {
		return nil, err
	}
	return []deckimport.NamedDeck{{
		Name:     "stdin",
		Deck:     parsed.Deck(),
		Warnings: parsed.Warnings,
	}}, nil
}

type outcomeJSON struct {
	Source string                          `json:"source"`
	Deck   string                          `json:"deck"`
	Format string                          `json:"format"`
	ID     string                          `json:"id,omitempty"`
	Result *archetype.ClassificationResult `json:"result"`
}

func writeOutcomesJSON(w io.Writer, outcomes []ingest.Outcome) error {
	out := make([]outcomeJSON, len(outcomes))
	for i, o := range outcomes {
		out[i] = outcomeJSON{Source: o.Source, Deck: o.Name, Format: o.Format, ID: o.RecordID, Result: o.Result}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeOutcomesTable(w io.Writer, outcomes []ingest.Outcome) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DECK\tFORMAT\tARCHETYPE\tKIND\tCONFIDENCE\tMISSING")
	for _, o := range outcomes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.0f\t%s\n",
			o.Name,
			o.Format,
			o.Result.ArchetypeName,
			o.Result.Kind,
			o.Result.Confidence,
			strings.Join(o.Result.MissingCards, ", "),
		)
	}
	return tw.Flush()
}
