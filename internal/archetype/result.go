package archetype

import (
	"encoding/json"
	"fmt"
)

// Kind records which stage of classification produced a result.
type Kind int

const (
	KindUnknown Kind = iota
	KindArchetype
	KindFallback
	KindColorOnly
)

var kindNames = [...]string{
	KindUnknown:   "unknown",
	KindArchetype: "archetype",
	KindFallback:  "fallback",
	KindColorOnly: "color_only",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown classification kind %q", s)
}

// MarshalJSON encodes the kind by name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind name.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Confidence values on the 0-100 scale.
const (
	ExactConfidence     = 95.0
	FallbackBase        = 60.0
	FallbackPerCard     = 2.0
	ColorOnlyConfidence = 30.0
	UnknownConfidence   = 0.0
)

// UnknownName labels decks nothing could be said about.
const UnknownName = "Unknown"

// ClassificationResult is the label assigned to one deck.
type ClassificationResult struct {
	ArchetypeName     string   `json:"archetype_name"`
	BaseArchetypeName string   `json:"base_archetype_name"`
	VariantName       *string  `json:"variant_name,omitempty"`
	ColorIdentity     string   `json:"color_identity"`
	Kind              Kind     `json:"classification_kind"`
	Confidence        float64  `json:"confidence"`
	MatchedConditions []string `json:"matched_conditions"`
	MissingCards      []string `json:"missing_cards"`
}

// Variant returns the variant name, or "" when none matched.
func (r *ClassificationResult) Variant() string {
	if r.VariantName == nil {
		return ""
	}
	return *r.VariantName
}

func unknownResult(colors string) *ClassificationResult {
	return &ClassificationResult{
		ArchetypeName:     UnknownName,
		BaseArchetypeName: UnknownName,
		ColorIdentity:     colors,
		Kind:              KindUnknown,
		Confidence:        UnknownConfidence,
		MatchedConditions: []string{},
		MissingCards:      []string{},
	}
}

// displayName builds "{colors} {base}[ - variant]".
func displayName(base, variant, colors string, includeColors bool) string {
	name := base
	if variant != "" {
		name += " - " + variant
	}
	if includeColors && colors != "" {
		name = colors + " " + name
	}
	return name
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
