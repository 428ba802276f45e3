package archetype

import "go.uber.org/zap"

// Matcher finds the archetype of a deck within a definition set.
// Implementations are pure and safe for concurrent use.
type Matcher interface {
	Match(deck *Deck, set *DefinitionSet) (*ClassificationResult, bool)
}

// MatcherFor returns the matcher implementing strategy.
func MatcherFor(strategy Strategy, logger *zap.Logger, lookup ColorLookup) Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strategy == StrategyFuzzy {
		return &FuzzyMatcher{Logger: logger, Colors: lookup, Threshold: FuzzyThreshold}
	}
	return &ExactMatcher{Logger: logger, Colors: lookup}
}

// ExactMatcher returns the first archetype, in definition order, whose
// conditions all hold. It is not a best-score ranking.
type ExactMatcher struct {
	Logger *zap.Logger
	Colors ColorLookup
}

// Match implements Matcher.
func (m *ExactMatcher) Match(deck *Deck, set *DefinitionSet) (*ClassificationResult, bool) {
	if set == nil {
		return nil, false
	}

	for i := range set.Archetypes {
		def := &set.Archetypes[i]
		if !evaluateAll(def.Conditions, deck, m.Logger) {
			continue
		}

		matched := describeConditions("Archetype: "+def.Name, def.Conditions)
		variant := ""
		for j := range def.Variants {
			v := &def.Variants[j]
			if evaluateAll(v.Conditions, deck, m.Logger) {
				variant = v.Name
				matched = append(matched, describeConditions("Variant: "+v.Name, v.Conditions)...)
				break
			}
		}

		colors := extractColors(deck.CardNames(), set.ColorOverrides, m.Colors)
		result := &ClassificationResult{
			ArchetypeName:     displayName(def.Name, variant, colors, def.IncludeColorInName),
			BaseArchetypeName: def.Name,
			ColorIdentity:     colors,
			Kind:              KindArchetype,
			Confidence:        ExactConfidence,
			MatchedConditions: matched,
			MissingCards:      []string{},
		}
		if variant != "" {
			result.VariantName = &variant
		}
		return result, true
	}

	return nil, false
}

func describeConditions(header string, conds []Condition) []string {
	out := make([]string, 0, len(conds)+1)
	out = append(out, header)
	for _, c := range conds {
		out = append(out, c.String())
	}
	return out
}
