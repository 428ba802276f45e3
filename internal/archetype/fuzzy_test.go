package archetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func controlDefinitions() *DefinitionSet {
	return &DefinitionSet{
		Format:   "Modern",
		Strategy: StrategyFuzzy,
		Archetypes: []ArchetypeDefinition{{
			Name: "UW Control",
			Conditions: []Condition{
				NewCondition(InMainboard, "Counterspell", "Wrath of God"),
				NewCondition(OneOrMoreInMainboard, "Teferi, Hero of Dominaria", "Cryptic Command", "Supreme Verdict"),
				NewCondition(DoesNotContain, "Lightning Bolt", "Tarmogoyf"),
			},
			Variants: []Variant{
				{Name: "Verdict", Conditions: []Condition{NewCondition(InMainboard, "Supreme Verdict")}},
			},
		}},
	}
}

func TestFuzzyMatcher(t *testing.T) {
	tests := []struct {
		name        string
		main        CardMultiset
		wantMatch   bool
		wantConf    float64
		wantVariant string
		wantMissing []string
	}{
		{
			name:        "strong partial match",
			main:        CardMultiset{"Counterspell": 4, "Wrath of God": 2, "Teferi, Hero of Dominaria": 2, "Cryptic Command": 3},
			wantMatch:   true,
			wantConf:    64,
			wantMissing: []string{"Supreme Verdict"},
		},
		{
			name:      "fewer than half the conditions",
			main:      CardMultiset{"Counterspell": 4},
			wantMatch: false,
		},
		{
			name:      "forbidden card drags the score down",
			main:      CardMultiset{"Counterspell": 4, "Wrath of God": 2, "Lightning Bolt": 4},
			wantMatch: false,
		},
		{
			name:        "variant bonus lifts a half match",
			main:        CardMultiset{"Counterspell": 4, "Teferi, Hero of Dominaria": 2, "Cryptic Command": 2, "Supreme Verdict": 3},
			wantMatch:   true,
			wantConf:    64,
			wantVariant: "Verdict",
			wantMissing: []string{"Wrath of God"},
		},
	}

	matcher := MatcherFor(StrategyFuzzy, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := matcher.Match(deckOf(tt.main, nil), controlDefinitions())
			require.Equal(t, tt.wantMatch, ok)
			if !ok {
				return
			}
			assert.Equal(t, KindArchetype, result.Kind)
			assert.InDelta(t, tt.wantConf, result.Confidence, 0.001)
			assert.Equal(t, tt.wantVariant, result.Variant())
			assert.Equal(t, tt.wantMissing, result.MissingCards)
		})
	}
}

func TestFuzzyMatcher_HighestScoreWins(t *testing.T) {
	set := &DefinitionSet{
		Strategy: StrategyFuzzy,
		Archetypes: []ArchetypeDefinition{
			{Name: "Weak", Conditions: []Condition{
				NewCondition(InMainboard, "Lightning Bolt"),
				NewCondition(InMainboard, "Lava Spike"),
			}},
			{Name: "Strong", Conditions: []Condition{
				NewCondition(InMainboard, "Lightning Bolt"),
				NewCondition(InMainboard, "Goblin Guide"),
			}},
		},
	}
	deck := deckOf(CardMultiset{"Lightning Bolt": 4, "Goblin Guide": 4}, nil)

	result, ok := MatcherFor(StrategyFuzzy, nil, nil).Match(deck, set)
	require.True(t, ok)
	assert.Equal(t, "Strong", result.BaseArchetypeName)
	assert.InDelta(t, 70.0, result.Confidence, 0.001)
	assert.Less(t, result.Confidence, ExactConfidence)
}

func TestClassify_FuzzyStrategySelectedPerFormat(t *testing.T) {
	set := controlDefinitions()
	deck := deckOf(CardMultiset{"Counterspell": 4, "Wrath of God": 2, "Teferi, Hero of Dominaria": 2, "Cryptic Command": 3}, nil)

	fuzzy := Classify(deck, "Modern", StaticProvider{"Modern": set})
	assert.Equal(t, KindArchetype, fuzzy.Kind)

	exactSet := *set
	exactSet.Strategy = StrategyExact
	exact := Classify(deck, "Modern", StaticProvider{"Modern": &exactSet})
	assert.Equal(t, KindArchetype, exact.Kind, "deck satisfies every condition, so exact matches too")
	assert.Equal(t, ExactConfidence, exact.Confidence)
}

func TestFuzzyMatcher_IgnoresArchetypesWithoutPresenceConditions(t *testing.T) {
	set := &DefinitionSet{
		Strategy:   StrategyFuzzy,
		Archetypes: []ArchetypeDefinition{{Name: "Nothing"}, {Name: "OnlyAbsence", Conditions: []Condition{NewCondition(DoesNotContain, "Island")}}},
	}
	_, ok := MatcherFor(StrategyFuzzy, nil, nil).Match(NewDeck(), set)
	assert.False(t, ok)
}
