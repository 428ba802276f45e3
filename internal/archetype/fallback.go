package archetype

import "fmt"

// MatchFallback scores the set's fallback definitions against the deck.
// The fallback with the most common cards present wins among those whose
// match ratio reaches their minimum; earlier definitions win ties.
func MatchFallback(deck *Deck, set *DefinitionSet) (*ClassificationResult, bool) {
	return matchFallback(deck, set, nil)
}

func matchFallback(deck *Deck, set *DefinitionSet, lookup ColorLookup) (*ClassificationResult, bool) {
	if set == nil {
		return nil, false
	}

	var (
		best      *FallbackDefinition
		bestCount int
	)
	for i := range set.Fallbacks {
		fb := &set.Fallbacks[i]
		count, ok := fallbackOverlap(fb, deck)
		if !ok {
			continue
		}
		// Strictly greater keeps the earlier definition on ties.
		if best == nil || count > bestCount {
			best = fb
			bestCount = count
		}
	}
	if best == nil {
		return nil, false
	}

	colors := extractColors(deck.CardNames(), set.ColorOverrides, lookup)
	return &ClassificationResult{
		ArchetypeName:     displayName(best.Name, "", colors, best.IncludeColorInName),
		BaseArchetypeName: best.Name,
		ColorIdentity:     colors,
		Kind:              KindFallback,
		Confidence:        FallbackConfidence(bestCount),
		MatchedConditions: []string{fmt.Sprintf("Fallback: %d of %d common cards", bestCount, len(best.CommonCards))},
		MissingCards:      missingCommonCards(best, deck),
	}, true
}

// FallbackConfidence is 60 plus 2 per matched card, clamped to 0-100.
func FallbackConfidence(matchCount int) float64 {
	return clamp(FallbackBase+FallbackPerCard*float64(matchCount), 0, 100)
}

// fallbackOverlap counts the fallback's common cards present anywhere in
// the deck. ok is false when the ratio misses the minimum or there are no
// common cards to compare against.
func fallbackOverlap(fb *FallbackDefinition, deck *Deck) (count int, ok bool) {
	if len(fb.CommonCards) == 0 {
		return 0, false
	}
	for _, card := range fb.CommonCards {
		if deck.InAny(card) {
			count++
		}
	}
	minRatio := fb.MinMatchRatio
	if minRatio <= 0 {
		minRatio = DefaultMinMatchRatio
	}
	ratio := float64(count) / float64(len(fb.CommonCards))
	return count, count > 0 && ratio >= minRatio
}

func missingCommonCards(fb *FallbackDefinition, deck *Deck) []string {
	missing := []string{}
	for _, card := range fb.CommonCards {
		if !deck.InAny(card) {
			missing = append(missing, card)
		}
	}
	return missing
}
