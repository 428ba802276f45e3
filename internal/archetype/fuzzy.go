package archetype

import "go.uber.org/zap"

// Fuzzy scoring weights.
const (
	FuzzyThreshold     = 50.0
	FuzzyMaxConfidence = 90.0

	fuzzyConditionWeight = 40.0
	fuzzyCoverageWeight  = 30.0
	fuzzyAbsencePenalty  = 20.0
	fuzzyVariantBonus    = 20.0
	fuzzyMinSatisfied    = 0.5
)

// FuzzyMatcher ranks archetypes by how much of their definition a deck
// satisfies. Formats whose definitions are too strict for noisy decklists
// opt into it; it never reports more than FuzzyMaxConfidence.
type FuzzyMatcher struct {
	Logger    *zap.Logger
	Colors    ColorLookup
	Threshold float64
}

type fuzzyScore struct {
	def     *ArchetypeDefinition
	score   float64
	variant string
	matched []string
	missing []string
}

// Match implements Matcher.
func (m *FuzzyMatcher) Match(deck *Deck, set *DefinitionSet) (*ClassificationResult, bool) {
	if set == nil {
		return nil, false
	}

	var best *fuzzyScore
	for i := range set.Archetypes {
		s := m.score(&set.Archetypes[i], deck)
		if s == nil {
			continue
		}
		if best == nil || s.score > best.score {
			best = s
		}
	}

	threshold := m.Threshold
	if threshold <= 0 {
		threshold = FuzzyThreshold
	}
	if best == nil || best.score < threshold {
		return nil, false
	}

	colors := extractColors(deck.CardNames(), set.ColorOverrides, m.Colors)
	result := &ClassificationResult{
		ArchetypeName:     displayName(best.def.Name, best.variant, colors, best.def.IncludeColorInName),
		BaseArchetypeName: best.def.Name,
		ColorIdentity:     colors,
		Kind:              KindArchetype,
		Confidence:        min(best.score, FuzzyMaxConfidence),
		MatchedConditions: best.matched,
		MissingCards:      best.missing,
	}
	if best.variant != "" {
		variant := best.variant
		result.VariantName = &variant
	}
	return result, true
}

// score returns nil for archetypes that carry no presence signal or satisfy
// fewer than half of their presence conditions.
func (m *FuzzyMatcher) score(def *ArchetypeDefinition, deck *Deck) *fuzzyScore {
	var (
		presence, satisfied int
		violations          int
		listed              = make(map[string]bool)
		s                   = &fuzzyScore{def: def, matched: []string{}, missing: []string{}}
	)

	for _, cond := range def.Conditions {
		if cond.Malformed() != "" {
			evaluate(cond, deck, m.Logger) // logs, never holds
			continue
		}
		ok := evaluate(cond, deck, m.Logger)
		if cond.Kind.IsAbsence() {
			if !ok {
				violations++
			}
			continue
		}

		presence++
		if ok {
			satisfied++
			s.matched = append(s.matched, cond.String())
		}
		_, z, _ := cond.Kind.shape()
		for _, card := range cond.Cards {
			if _, done := listed[card]; done {
				continue
			}
			listed[card] = inZone(deck, card, z)
		}
	}

	if presence == 0 {
		return nil
	}
	ratio := float64(satisfied) / float64(presence)
	if ratio < fuzzyMinSatisfied {
		return nil
	}

	present := 0
	for _, cond := range def.Conditions {
		if cond.Kind.IsAbsence() {
			continue
		}
		for _, card := range cond.Cards {
			if found, ok := listed[card]; ok {
				if found {
					present++
				} else {
					s.missing = append(s.missing, card)
				}
				delete(listed, card)
			}
		}
	}
	total := present + len(s.missing)

	s.score = fuzzyConditionWeight * ratio
	if total > 0 {
		s.score += fuzzyCoverageWeight * float64(present) / float64(total)
	}
	s.score -= fuzzyAbsencePenalty * float64(violations)

	for _, v := range def.Variants {
		if evaluateAll(v.Conditions, deck, m.Logger) {
			s.variant = v.Name
			s.score += fuzzyVariantBonus
			s.matched = append(s.matched, "Variant: "+v.Name)
			break
		}
	}

	s.score = max(0, s.score)
	return s
}
