package archetype

import (
	"strings"

	"go.uber.org/zap"
)

// DefinitionProvider returns the loaded definitions for a format, or nil if
// none are loaded. It must not block on I/O.
type DefinitionProvider interface {
	Definitions(format string) *DefinitionSet
}

// StaticProvider serves fixed definition sets keyed by format name.
type StaticProvider map[string]*DefinitionSet

// Definitions implements DefinitionProvider. Format names match case-insensitively.
func (p StaticProvider) Definitions(format string) *DefinitionSet {
	if set, ok := p[format]; ok {
		return set
	}
	for name, set := range p {
		if strings.EqualFold(name, format) {
			return set
		}
	}
	return nil
}

// Classifier labels decks using the definitions of their format.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	provider DefinitionProvider
	logger   *zap.Logger
	colors   ColorLookup
	exact    Matcher
	fuzzy    Matcher
}

// NewClassifier creates a classifier. logger and colors may be nil.
func NewClassifier(provider DefinitionProvider, logger *zap.Logger, colors ColorLookup) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{
		provider: provider,
		logger:   logger,
		colors:   colors,
		exact:    MatcherFor(StrategyExact, logger, colors),
		fuzzy:    MatcherFor(StrategyFuzzy, logger, colors),
	}
}

// Classify labels deck with the definitions provider holds for format.
func Classify(deck *Deck, format string, provider DefinitionProvider) *ClassificationResult {
	return NewClassifier(provider, nil, nil).Classify(deck, format)
}

// Classify runs the classification stages in order and returns the first
// that produces a label: archetype, fallback, color only, unknown.
// It never fails for data reasons; a nil deck is a programming error.
func (c *Classifier) Classify(deck *Deck, format string) *ClassificationResult {
	if deck == nil {
		panic("archetype: Classify called with nil deck")
	}

	var set *DefinitionSet
	if c.provider != nil {
		set = c.provider.Definitions(format)
	}
	if set.IsEmpty() {
		c.logger.Debug("No definitions loaded for format", zap.String("format", format))
		return unknownResult("")
	}

	if result, ok := c.matcherFor(set.Strategy).Match(deck, set); ok {
		return result
	}

	if result, ok := matchFallback(deck, set, c.colors); ok {
		return result
	}

	colors := extractColors(deck.CardNames(), set.ColorOverrides, c.colors)
	if colors == "" {
		return unknownResult("")
	}
	label := ColorLabel(colors)
	return &ClassificationResult{
		ArchetypeName:     label,
		BaseArchetypeName: label,
		ColorIdentity:     colors,
		Kind:              KindColorOnly,
		Confidence:        ColorOnlyConfidence,
		MatchedConditions: []string{"Color classification fallback"},
		MissingCards:      []string{},
	}
}

func (c *Classifier) matcherFor(strategy Strategy) Matcher {
	if strategy == StrategyFuzzy {
		return c.fuzzy
	}
	return c.exact
}
