package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ramonehamilton/mtg-archetypes/internal/archetype"
)

// Classification is a stored classification of one deck.
type Classification struct {
	ID                string
	DeckName          string
	Format            string
	ArchetypeName     string
	BaseArchetypeName string
	VariantName       string
	ColorIdentity     string
	Kind              archetype.Kind
	Confidence        float64
	MatchedConditions []string
	MissingCards      []string
	Source            string // file or feed the deck came from
	ClassifiedAt      time.Time
}

// NewClassification builds a record for result with a fresh ID.
func NewClassification(deckName, format, source string, result *archetype.ClassificationResult) *Classification {
	return &Classification{
		ID:                uuid.NewString(),
		DeckName:          deckName,
		Format:            format,
		ArchetypeName:     result.ArchetypeName,
		BaseArchetypeName: result.BaseArchetypeName,
		VariantName:       result.Variant(),
		ColorIdentity:     result.ColorIdentity,
		Kind:              result.Kind,
		Confidence:        result.Confidence,
		MatchedConditions: result.MatchedConditions,
		MissingCards:      result.MissingCards,
		Source:            source,
		ClassifiedAt:      time.Now().UTC(),
	}
}

// ArchetypeShare is how often an archetype appears in a format.
type ArchetypeShare struct {
	ArchetypeName string  `json:"archetype"`
	Count         int     `json:"count"`
	Share         float64 `json:"share"` // fraction of the format's classifications, 0..1
}

// DefinitionRefresh records one attempt to reload a format's definitions.
type DefinitionRefresh struct {
	ID              int64
	Format          string
	Source          string // "dir" or "github"
	ArchetypesCount int
	FallbacksCount  int
	OverridesCount  int
	Strategy        string
	Error           string
	RefreshedAt     time.Time
}
