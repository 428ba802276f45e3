// Package ingest classifies batches of decks and records the results.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ramonehamilton/mtg-archetypes/internal/archetype"
	"github.com/ramonehamilton/mtg-archetypes/internal/deckimport"
	"github.com/ramonehamilton/mtg-archetypes/internal/formatdata"
	"github.com/ramonehamilton/mtg-archetypes/internal/metrics"
	"github.com/ramonehamilton/mtg-archetypes/internal/storage/models"
	"github.com/ramonehamilton/mtg-archetypes/internal/storage/repository"
)

// DefaultWorkers is used when Options.Workers is zero.
const DefaultWorkers = 4

// ColorSource resolves card colors and can be filled ahead of a run.
type ColorSource interface {
	archetype.ColorLookup
	Prefetch(ctx context.Context, names []string) error
}

// Item is one deck to classify.
type Item struct {
	Source string // file the deck was read from
	Name   string
	Format string
	Deck   *archetype.Deck
}

// ItemsFromFile wraps decks read from one file.
func ItemsFromFile(source string, decks []deckimport.NamedDeck) []Item {
	items := make([]Item, len(decks))
	for i, d := range decks {
		items[i] = Item{Source: source, Name: d.Name, Format: d.Format, Deck: d.Deck}
	}
	return items
}

// Outcome pairs an item with its result.
type Outcome struct {
	Item
	Result   *archetype.ClassificationResult
	RecordID string // set when the result was stored
}

// Options configures a Pipeline. Everything but the cache is optional.
type Options struct {
	// Workers bounds concurrent classifications.
	Workers int

	// DefaultFormat applies to items without a format.
	DefaultFormat string

	// Strategy overrides the matching strategy of every format when set.
	Strategy archetype.Strategy

	Colors     ColorSource
	Repository repository.ClassificationRepository
	Metrics    *metrics.ClassificationMetrics
	Logger     *zap.Logger
}

// Pipeline loads definitions, classifies decks concurrently and stores results.
type Pipeline struct {
	cache      *formatdata.Cache
	colors     ColorSource
	repository repository.ClassificationRepository
	metrics    *metrics.ClassificationMetrics
	logger     *zap.Logger

	workers       int
	defaultFormat string
	strategy      archetype.Strategy
}

// New creates a pipeline reading definitions from cache.
func New(cache *formatdata.Cache, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewClassificationMetrics()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Pipeline{
		cache:         cache,
		colors:        opts.Colors,
		repository:    opts.Repository,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		workers:       opts.Workers,
		defaultFormat: opts.DefaultFormat,
		strategy:      opts.Strategy,
	}
}

// Metrics returns the collector the pipeline records into.
func (p *Pipeline) Metrics() *metrics.ClassificationMetrics {
	return p.metrics
}

// Run classifies items and returns their outcomes in input order.
//
// Formats whose definitions fail to load classify as Unknown, and a failed
// color prefetch only narrows color detection. A storage error stops the run.
func (p *Pipeline) Run(ctx context.Context, items []Item) ([]Outcome, error) {
	outcomes := make([]Outcome, len(items))
	for i, item := range items {
		if item.Format == "" {
			item.Format = p.defaultFormat
		}
		if item.Deck == nil {
			item.Deck = archetype.NewDeck()
		}
		outcomes[i].Item = item
	}

	p.warm(ctx, outcomes)
	p.prefetchColors(ctx, outcomes)

	var lookup archetype.ColorLookup
	if p.colors != nil {
		lookup = p.colors
	}
	classifier := archetype.NewClassifier(p.provider(), p.logger, lookup)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range outcomes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return p.classify(ctx, classifier, &outcomes[i])
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}

	p.logger.Info("Classified decks",
		zap.Int("decks", len(outcomes)),
		zap.Bool("stored", p.repository != nil))
	return outcomes, nil
}

func (p *Pipeline) classify(ctx context.Context, classifier *archetype.Classifier, out *Outcome) error {
	start := time.Now()
	out.Result = classifier.Classify(out.Deck, out.Format)
	p.metrics.RecordClassification(out.Result.Kind, time.Since(start))

	p.logger.Debug("Classified deck",
		zap.String("deck", out.Name),
		zap.String("format", out.Format),
		zap.String("archetype", out.Result.ArchetypeName),
		zap.Stringer("kind", out.Result.Kind),
		zap.Float64("confidence", out.Result.Confidence))

	if p.repository == nil {
		return nil
	}
	record := models.NewClassification(out.Name, out.Format, out.Source, out.Result)
	if err := p.repository.Save(ctx, record); err != nil {
		p.metrics.IncrementPersistErrors()
		return fmt.Errorf("store classification of %q: %w", out.Name, err)
	}
	out.RecordID = record.ID
	return nil
}

// warm loads the definitions of every format in the batch once.
func (p *Pipeline) warm(ctx context.Context, outcomes []Outcome) {
	seen := make(map[string]bool)
	var formats []string
	for _, o := range outcomes {
		key := strings.ToLower(o.Format)
		if o.Format == "" || seen[key] {
			continue
		}
		seen[key] = true
		formats = append(formats, o.Format)
	}

	var g errgroup.Group
	for _, format := range formats {
		g.Go(func() error {
			start := time.Now()
			_, err := p.cache.Get(ctx, format)
			p.metrics.RecordLoad(time.Since(start), err)
			if err != nil {
				p.logger.Warn("Failed to load definitions; decks will classify as Unknown",
					zap.String("format", format),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Pipeline) prefetchColors(ctx context.Context, outcomes []Outcome) {
	if p.colors == nil {
		return
	}

	seen := make(map[string]bool)
	var names []string
	for _, o := range outcomes {
		for _, name := range o.Deck.CardNames() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	if len(names) == 0 {
		return
	}

	if err := p.colors.Prefetch(ctx, names); err != nil {
		p.logger.Warn("Card color prefetch failed", zap.Int("cards", len(names)), zap.Error(err))
	}
}

func (p *Pipeline) provider() archetype.DefinitionProvider {
	if p.strategy == "" {
		return p.cache
	}
	return strategyOverride{provider: p.cache, strategy: p.strategy}
}

// strategyOverride serves copies of the provider's sets with a fixed strategy.
type strategyOverride struct {
	provider archetype.DefinitionProvider
	strategy archetype.Strategy
}

func (s strategyOverride) Definitions(format string) *archetype.DefinitionSet {
	set := s.provider.Definitions(format)
	if set == nil || set.Strategy == s.strategy {
		return set
	}
	override := *set
	override.Strategy = s.strategy
	return &override
}
