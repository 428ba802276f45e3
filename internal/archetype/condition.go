package archetype

import (
	"fmt"

	"go.uber.org/zap"
)

// ConditionKind identifies one of the rule operators used by archetype definitions.
type ConditionKind int

const (
	ConditionUnknown ConditionKind = iota
	InMainboard
	InSideboard
	InMainOrSideboard
	OneOrMoreInMainboard
	OneOrMoreInSideboard
	OneOrMoreInMainOrSideboard
	TwoOrMoreInMainboard
	TwoOrMoreInSideboard
	TwoOrMoreInMainOrSideboard
	DoesNotContain
	DoesNotContainMainboard
	DoesNotContainSideboard
)

var conditionKindNames = map[ConditionKind]string{
	InMainboard:                "InMainboard",
	InSideboard:                "InSideboard",
	InMainOrSideboard:          "InMainOrSideboard",
	OneOrMoreInMainboard:       "OneOrMoreInMainboard",
	OneOrMoreInSideboard:       "OneOrMoreInSideboard",
	OneOrMoreInMainOrSideboard: "OneOrMoreInMainOrSideboard",
	TwoOrMoreInMainboard:       "TwoOrMoreInMainboard",
	TwoOrMoreInSideboard:       "TwoOrMoreInSideboard",
	TwoOrMoreInMainOrSideboard: "TwoOrMoreInMainOrSideboard",
	DoesNotContain:             "DoesNotContain",
	DoesNotContainMainboard:    "DoesNotContainMainboard",
	DoesNotContainSideboard:    "DoesNotContainSideboard",
}

// ConditionKinds lists every known kind in declaration order.
var ConditionKinds = []ConditionKind{
	InMainboard, InSideboard, InMainOrSideboard,
	OneOrMoreInMainboard, OneOrMoreInSideboard, OneOrMoreInMainOrSideboard,
	TwoOrMoreInMainboard, TwoOrMoreInSideboard, TwoOrMoreInMainOrSideboard,
	DoesNotContain, DoesNotContainMainboard, DoesNotContainSideboard,
}

// ParseConditionKind maps the literal definition-file name to a kind.
// Unrecognized names return ConditionUnknown.
func ParseConditionKind(s string) ConditionKind {
	for kind, name := range conditionKindNames {
		if name == s {
			return kind
		}
	}
	return ConditionUnknown
}

func (k ConditionKind) String() string {
	if name, ok := conditionKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ConditionKind(%d)", int(k))
}

// MarshalText writes the definition-file name of the kind.
func (k ConditionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText reads a definition-file name. Unrecognized names are an error.
func (k *ConditionKind) UnmarshalText(text []byte) error {
	kind := ParseConditionKind(string(text))
	if kind == ConditionUnknown {
		return fmt.Errorf("unknown condition kind %q", text)
	}
	*k = kind
	return nil
}

// Known reports whether k is one of the twelve defined operators.
func (k ConditionKind) Known() bool {
	_, ok := conditionKindNames[k]
	return ok
}

// zone is the part of the deck a condition inspects.
type zone int

const (
	zoneMain zone = iota
	zoneSide
	zoneAny
)

// family groups kinds by how the intersection with the zone is judged.
type family int

const (
	familyAll family = iota
	familyAtLeastOne
	familyAtLeastTwo
	familyNone
)

func (k ConditionKind) shape() (family, zone, bool) {
	switch k {
	case InMainboard:
		return familyAll, zoneMain, true
	case InSideboard:
		return familyAll, zoneSide, true
	case InMainOrSideboard:
		return familyAll, zoneAny, true
	case OneOrMoreInMainboard:
		return familyAtLeastOne, zoneMain, true
	case OneOrMoreInSideboard:
		return familyAtLeastOne, zoneSide, true
	case OneOrMoreInMainOrSideboard:
		return familyAtLeastOne, zoneAny, true
	case TwoOrMoreInMainboard:
		return familyAtLeastTwo, zoneMain, true
	case TwoOrMoreInSideboard:
		return familyAtLeastTwo, zoneSide, true
	case TwoOrMoreInMainOrSideboard:
		return familyAtLeastTwo, zoneAny, true
	case DoesNotContain:
		return familyNone, zoneAny, true
	case DoesNotContainMainboard:
		return familyNone, zoneMain, true
	case DoesNotContainSideboard:
		return familyNone, zoneSide, true
	default:
		return 0, 0, false
	}
}

// IsAbsence reports whether the kind forbids cards rather than requiring them.
func (k ConditionKind) IsAbsence() bool {
	f, _, ok := k.shape()
	return ok && f == familyNone
}

// Condition is a single rule over a set of card names.
type Condition struct {
	Kind  ConditionKind `json:"kind"`
	Cards []string      `json:"cards"`
}

// NewCondition builds a condition, dropping duplicate and empty card names
// while keeping the first-seen order.
func NewCondition(kind ConditionKind, cards ...string) Condition {
	seen := make(map[string]struct{}, len(cards))
	unique := make([]string, 0, len(cards))
	for _, c := range cards {
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		unique = append(unique, c)
	}
	return Condition{Kind: kind, Cards: unique}
}

func (c Condition) String() string {
	return fmt.Sprintf("%s%v", c.Kind, c.Cards)
}

// Malformed reports why the condition cannot be evaluated, or "" if it can.
func (c Condition) Malformed() string {
	if !c.Kind.Known() {
		return "unknown condition kind"
	}
	if len(c.Cards) == 0 {
		return "empty card list"
	}
	return ""
}

// Evaluate reports whether the condition holds for the given zones.
// Malformed conditions never hold and are logged to the global zap logger.
func Evaluate(cond Condition, mainboard, sideboard CardMultiset) bool {
	return evaluate(cond, &Deck{Mainboard: mainboard, Sideboard: sideboard}, zap.L())
}

func evaluate(cond Condition, deck *Deck, logger *zap.Logger) bool {
	if reason := cond.Malformed(); reason != "" {
		if logger != nil {
			logger.Warn("Skipping malformed condition",
				zap.String("kind", cond.Kind.String()),
				zap.Strings("cards", cond.Cards),
				zap.String("reason", reason))
		}
		return false
	}

	fam, z, _ := cond.Kind.shape()
	present := countPresent(cond.Cards, deck, z)

	switch fam {
	case familyAll:
		return present == len(cond.Cards)
	case familyAtLeastOne:
		return present >= 1
	case familyAtLeastTwo:
		return present >= 2
	case familyNone:
		return present == 0
	}
	return false
}

// countPresent counts the distinct listed cards found in zone z.
func countPresent(cards []string, deck *Deck, z zone) int {
	n := 0
	for _, card := range cards {
		if inZone(deck, card, z) {
			n++
		}
	}
	return n
}

func inZone(deck *Deck, card string, z zone) bool {
	switch z {
	case zoneMain:
		return deck.InMain(card)
	case zoneSide:
		return deck.InSide(card)
	default:
		return deck.InAny(card)
	}
}

// evaluateAll ANDs the conditions, stopping at the first that fails.
func evaluateAll(conds []Condition, deck *Deck, logger *zap.Logger) bool {
	for _, cond := range conds {
		if !evaluate(cond, deck, logger) {
			return false
		}
	}
	return true
}
