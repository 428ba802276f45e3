package archetype

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Strategy selects how archetype definitions are matched for a format.
type Strategy string

const (
	// StrategyExact is first-match-wins over full condition matches.
	StrategyExact Strategy = "exact"

	// StrategyFuzzy ranks archetypes by a weighted partial-match score.
	StrategyFuzzy Strategy = "fuzzy"
)

// ParseStrategy maps a configuration value to a strategy. Empty selects exact.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyExact:
		return StrategyExact, nil
	case StrategyFuzzy:
		return StrategyFuzzy, nil
	default:
		return StrategyExact, fmt.Errorf("unknown matching strategy %q", s)
	}
}

// Variant is a more specific label under an archetype.
type Variant struct {
	Name       string      `json:"name"`
	Conditions []Condition `json:"conditions"`
}

// ArchetypeDefinition is a named rule set. All conditions must hold.
type ArchetypeDefinition struct {
	Name               string      `json:"name"`
	IncludeColorInName bool        `json:"include_color_in_name"`
	Conditions         []Condition `json:"conditions"`
	Variants           []Variant   `json:"variants,omitempty"`
}

// DefaultMinMatchRatio is the minimum share of a fallback's common cards a
// deck must contain when the definition file does not say otherwise.
const DefaultMinMatchRatio = 0.1

// FallbackDefinition is an approximate "goodstuff" label scored by overlap
// with a reference card list.
type FallbackDefinition struct {
	Name               string   `json:"name"`
	IncludeColorInName bool     `json:"include_color_in_name"`
	CommonCards        []string `json:"common_cards"`
	MinMatchRatio      float64  `json:"min_match_ratio"`
}

// ColorOverrides maps a card name to the color letters it contributes.
type ColorOverrides map[string]string

// DefinitionSet holds everything needed to classify decks of one format.
// A set is never modified after it is built; refreshes replace it whole.
type DefinitionSet struct {
	Format         string
	Archetypes     []ArchetypeDefinition
	Fallbacks      []FallbackDefinition
	ColorOverrides ColorOverrides
	Strategy       Strategy
	LoadedAt       time.Time

	// LoadIssues lists definition files that were skipped while loading.
	LoadIssues []ValidationIssue
}

// IsEmpty reports whether the set has no rules at all.
func (s *DefinitionSet) IsEmpty() bool {
	return s == nil || (len(s.Archetypes) == 0 && len(s.Fallbacks) == 0)
}

// FormatStats summarizes a definition set.
type FormatStats struct {
	Format         string   `json:"format"`
	ArchetypeCount int      `json:"archetypes_count"`
	FallbackCount  int      `json:"fallbacks_count"`
	OverrideCount  int      `json:"overrides_count"`
	ArchetypeNames []string `json:"archetype_names"`
	FallbackNames  []string `json:"fallback_names"`
	Strategy       Strategy `json:"strategy"`
}

// Stats returns counts and names of the set's definitions.
func (s *DefinitionSet) Stats() FormatStats {
	stats := FormatStats{
		Format:         s.Format,
		ArchetypeCount: len(s.Archetypes),
		FallbackCount:  len(s.Fallbacks),
		OverrideCount:  len(s.ColorOverrides),
		ArchetypeNames: make([]string, 0, len(s.Archetypes)),
		FallbackNames:  make([]string, 0, len(s.Fallbacks)),
		Strategy:       s.Strategy,
	}
	for _, a := range s.Archetypes {
		stats.ArchetypeNames = append(stats.ArchetypeNames, a.Name)
	}
	for _, f := range s.Fallbacks {
		stats.FallbackNames = append(stats.FallbackNames, f.Name)
	}
	return stats
}

// ValidationIssue describes a suspicious definition. Issues are warnings:
// definitions come from a trusted upstream and are never rejected.
type ValidationIssue struct {
	Definition string `json:"definition"`
	Message    string `json:"message"`
}

func (i ValidationIssue) String() string {
	return i.Definition + ": " + i.Message
}

// Validate reports definitions that will behave surprisingly at match time.
func (s *DefinitionSet) Validate() []ValidationIssue {
	issues := append([]ValidationIssue(nil), s.LoadIssues...)
	add := func(def, format string, args ...any) {
		issues = append(issues, ValidationIssue{Definition: def, Message: fmt.Sprintf(format, args...)})
	}

	seen := make(map[string]bool, len(s.Archetypes))
	for _, a := range s.Archetypes {
		if seen[a.Name] {
			add(a.Name, "duplicate archetype name; only the first can ever match")
		}
		seen[a.Name] = true

		if len(a.Conditions) == 0 {
			add(a.Name, "archetype has no conditions and matches every deck")
		}
		for i, c := range a.Conditions {
			if reason := c.Malformed(); reason != "" {
				add(a.Name, "condition %d: %s", i, reason)
			}
		}
		for _, v := range a.Variants {
			name := a.Name + " - " + v.Name
			if len(v.Conditions) == 0 {
				add(name, "variant has no conditions and always matches")
			}
			for i, c := range v.Conditions {
				if reason := c.Malformed(); reason != "" {
					add(name, "condition %d: %s", i, reason)
				}
			}
		}
	}

	for _, f := range s.Fallbacks {
		if len(f.CommonCards) == 0 {
			add(f.Name, "fallback has no common cards and can never match")
		}
		if f.MinMatchRatio <= 0 || f.MinMatchRatio > 1 {
			add(f.Name, "minimum match ratio %.2f outside (0,1]", f.MinMatchRatio)
		}
	}

	cards := make([]string, 0, len(s.ColorOverrides))
	for card := range s.ColorOverrides {
		cards = append(cards, card)
	}
	sort.Strings(cards)
	for _, card := range cards {
		if code := s.ColorOverrides[card]; strings.Trim(code, ColorOrder) != "" {
			add(card, "color override %q contains letters outside %s", code, ColorOrder)
		}
	}

	return issues
}
