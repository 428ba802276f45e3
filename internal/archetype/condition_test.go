package archetype

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseConditionKind(t *testing.T) {
	for _, kind := range ConditionKinds {
		t.Run(kind.String(), func(t *testing.T) {
			if got := ParseConditionKind(kind.String()); got != kind {
				t.Errorf("ParseConditionKind(%q) = %v, want %v", kind.String(), got, kind)
			}
		})
	}

	if got := ParseConditionKind("InGraveyard"); got != ConditionUnknown {
		t.Errorf("ParseConditionKind(InGraveyard) = %v, want ConditionUnknown", got)
	}
	if len(ConditionKinds) != 12 {
		t.Errorf("expected 12 condition kinds, got %d", len(ConditionKinds))
	}
}

func TestEvaluate(t *testing.T) {
	main := CardMultiset{"Lightning Bolt": 4, "Goblin Guide": 4, "Mountain": 18}
	side := CardMultiset{"Smash to Smithereens": 2, "Path to Exile": 3}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"in mainboard all present", NewCondition(InMainboard, "Lightning Bolt", "Goblin Guide"), true},
		{"in mainboard one missing", NewCondition(InMainboard, "Lightning Bolt", "Lava Spike"), false},
		{"in mainboard card only in sideboard", NewCondition(InMainboard, "Path to Exile"), false},
		{"in sideboard", NewCondition(InSideboard, "Path to Exile"), true},
		{"in sideboard card only in main", NewCondition(InSideboard, "Lightning Bolt"), false},
		{"in main or side spans zones", NewCondition(InMainOrSideboard, "Lightning Bolt", "Path to Exile"), true},
		{"in main or side missing", NewCondition(InMainOrSideboard, "Lightning Bolt", "Thoughtseize"), false},
		{"one or more in main", NewCondition(OneOrMoreInMainboard, "Thoughtseize", "Goblin Guide"), true},
		{"one or more in main none", NewCondition(OneOrMoreInMainboard, "Thoughtseize", "Path to Exile"), false},
		{"one or more in side", NewCondition(OneOrMoreInSideboard, "Thoughtseize", "Path to Exile"), true},
		{"one or more in main or side", NewCondition(OneOrMoreInMainOrSideboard, "Path to Exile"), true},
		{"two or more in main", NewCondition(TwoOrMoreInMainboard, "Lightning Bolt", "Goblin Guide", "Lava Spike"), true},
		{"two or more in main only one", NewCondition(TwoOrMoreInMainboard, "Lightning Bolt", "Lava Spike"), false},
		{"two or more in side", NewCondition(TwoOrMoreInSideboard, "Path to Exile", "Smash to Smithereens"), true},
		{"two or more in side only one", NewCondition(TwoOrMoreInSideboard, "Path to Exile", "Lightning Bolt"), false},
		{"two or more across zones", NewCondition(TwoOrMoreInMainOrSideboard, "Lightning Bolt", "Path to Exile"), true},
		{"does not contain holds", NewCondition(DoesNotContain, "Thoughtseize"), true},
		{"does not contain sees sideboard", NewCondition(DoesNotContain, "Path to Exile"), false},
		{"does not contain mainboard ignores side", NewCondition(DoesNotContainMainboard, "Path to Exile"), true},
		{"does not contain mainboard", NewCondition(DoesNotContainMainboard, "Mountain"), false},
		{"does not contain sideboard ignores main", NewCondition(DoesNotContainSideboard, "Mountain"), true},
		{"does not contain sideboard", NewCondition(DoesNotContainSideboard, "Path to Exile"), false},
		{"unknown kind never holds", Condition{Kind: ConditionUnknown, Cards: []string{"Mountain"}}, false},
		{"empty card list never holds", Condition{Kind: DoesNotContain}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.cond, main, side); got != tt.want {
				t.Errorf("Evaluate(%v) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}
}

func TestEvaluate_CountsDistinctCardsNotCopies(t *testing.T) {
	main := CardMultiset{"Lightning Bolt": 4}
	cond := NewCondition(TwoOrMoreInMainboard, "Lightning Bolt", "Lightning Bolt", "Lava Spike")

	if len(cond.Cards) != 2 {
		t.Fatalf("NewCondition should drop duplicates, got %v", cond.Cards)
	}
	if Evaluate(cond, main, nil) {
		t.Error("four copies of one card must not satisfy a two-or-more condition")
	}
}

func TestEvaluate_ZeroCountIsAbsent(t *testing.T) {
	main := CardMultiset{"Lightning Bolt": 0}
	if Evaluate(NewCondition(InMainboard, "Lightning Bolt"), main, nil) {
		t.Error("a zero count should be treated as absent")
	}
}

func TestEvaluate_LogsMalformedCondition(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	deck := NewDeck()

	if evaluate(Condition{Kind: ConditionKind(99), Cards: []string{"Island"}}, deck, zap.New(core)) {
		t.Fatal("malformed condition should not hold")
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["reason"]; got != "unknown condition kind" {
		t.Errorf("reason = %v", got)
	}
}

func TestEvaluate_LogsToGlobalLogger(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	if Evaluate(Condition{Kind: InMainboard}, CardMultiset{"Island": 1}, nil) {
		t.Fatal("condition without cards should not hold")
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["reason"]; got != "empty card list" {
		t.Errorf("reason = %v", got)
	}
}

func TestCondition_JSONUsesKindNames(t *testing.T) {
	data, err := json.Marshal(NewCondition(TwoOrMoreInSideboard, "Pyroblast", "Red Elemental Blast"))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"kind":"TwoOrMoreInSideboard","cards":["Pyroblast","Red Elemental Blast"]}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}

	var c Condition
	if err := json.Unmarshal([]byte(`{"kind":"DoesNotContainMainboard","cards":["Thoughtseize"]}`), &c); err != nil {
		t.Fatal(err)
	}
	if c.Kind != DoesNotContainMainboard {
		t.Errorf("kind = %v", c.Kind)
	}

	if err := json.Unmarshal([]byte(`{"kind":"ThreeOrMore","cards":[]}`), &c); err == nil {
		t.Error("expected an error for an unknown kind")
	}
}

func TestConditionKind_IsAbsence(t *testing.T) {
	absence := map[ConditionKind]bool{
		DoesNotContain:          true,
		DoesNotContainMainboard: true,
		DoesNotContainSideboard: true,
	}
	for _, kind := range ConditionKinds {
		if kind.IsAbsence() != absence[kind] {
			t.Errorf("%v.IsAbsence() = %v", kind, kind.IsAbsence())
		}
	}
	if ConditionUnknown.IsAbsence() {
		t.Error("unknown kind should not be an absence kind")
	}
}
