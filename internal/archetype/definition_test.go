package archetype

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyExact, false},
		{"exact", StrategyExact, false},
		{" Fuzzy ", StrategyFuzzy, false},
		{"weighted", StrategyExact, true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStrategy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefinitionSet_Validate(t *testing.T) {
	set := &DefinitionSet{
		Archetypes: []ArchetypeDefinition{
			{Name: "Burn", Conditions: []Condition{NewCondition(InMainboard, "Lightning Bolt")}},
			{Name: "Burn", Conditions: []Condition{NewCondition(InMainboard, "Lava Spike")}},
			{Name: "Pile"},
			{
				Name:       "Broken",
				Conditions: []Condition{{Kind: ConditionUnknown, Cards: []string{"Island"}}, {Kind: InSideboard}},
				Variants:   []Variant{{Name: "Empty"}},
			},
		},
		Fallbacks: []FallbackDefinition{
			{Name: "Nothing", MinMatchRatio: 0.1},
			{Name: "Greedy", CommonCards: []string{"Tarmogoyf"}, MinMatchRatio: 1.5},
		},
		ColorOverrides: ColorOverrides{"Mox Opal": "C", "Blood Crypt": "BR"},
	}

	issues := set.Validate()
	var messages []string
	for _, issue := range issues {
		messages = append(messages, issue.String())
	}
	joined := strings.Join(messages, "\n")

	assert.Len(t, issues, 8, joined)
	assert.Contains(t, joined, "Burn: duplicate archetype name")
	assert.Contains(t, joined, "Pile: archetype has no conditions")
	assert.Contains(t, joined, "Broken: condition 0: unknown condition kind")
	assert.Contains(t, joined, "Broken: condition 1: empty card list")
	assert.Contains(t, joined, "Broken - Empty: variant has no conditions")
	assert.Contains(t, joined, "Nothing: fallback has no common cards")
	assert.Contains(t, joined, "Greedy: minimum match ratio 1.50")
	assert.Contains(t, joined, `Mox Opal: color override "C"`)
}

func TestDefinitionSet_ValidateIncludesLoadIssues(t *testing.T) {
	set := &DefinitionSet{
		Archetypes: []ArchetypeDefinition{{Name: "Burn", Conditions: []Condition{NewCondition(InMainboard, "Lightning Bolt")}}},
		LoadIssues: []ValidationIssue{{Definition: "Archetypes/Zzz", Message: "failed to parse archetype"}},
	}

	issues := set.Validate()
	assert.Equal(t, set.LoadIssues, issues)

	issues[0].Message = "changed"
	assert.Equal(t, "failed to parse archetype", set.LoadIssues[0].Message, "set is not modified")
}

func TestDefinitionSet_Stats(t *testing.T) {
	set := controlDefinitions()
	set.Fallbacks = []FallbackDefinition{{Name: "Goodstuff", CommonCards: []string{"A"}, MinMatchRatio: 0.1}}

	stats := set.Stats()
	assert.Equal(t, 1, stats.ArchetypeCount)
	assert.Equal(t, 1, stats.FallbackCount)
	assert.Equal(t, []string{"UW Control"}, stats.ArchetypeNames)
	assert.Equal(t, []string{"Goodstuff"}, stats.FallbackNames)
	assert.Equal(t, StrategyFuzzy, stats.Strategy)
}

func TestDefinitionSet_IsEmpty(t *testing.T) {
	var nilSet *DefinitionSet
	assert.True(t, nilSet.IsEmpty())
	assert.True(t, (&DefinitionSet{}).IsEmpty())
	assert.False(t, (&DefinitionSet{Fallbacks: []FallbackDefinition{{Name: "x"}}}).IsEmpty())
}
