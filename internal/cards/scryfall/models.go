package scryfall

import (
	"strings"

	"github.com/ramonehamilton/mtg-archetypes/internal/archetype"
)

// Card is the subset of a Scryfall card object needed for color lookups.
type Card struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Layout        string     `json:"layout"`
	ManaCost      string     `json:"mana_cost,omitempty"`
	TypeLine      string     `json:"type_line"`
	Colors        []string   `json:"colors,omitempty"`
	ColorIdentity []string   `json:"color_identity"`
	CardFaces     []CardFace `json:"card_faces,omitempty"`
}

// CardFace represents one face of a multi-faced card.
type CardFace struct {
	Name     string   `json:"name"`
	ManaCost string   `json:"mana_cost,omitempty"`
	TypeLine string   `json:"type_line"`
	Colors   []string `json:"colors,omitempty"`
}

// IsLand reports whether the front face is a land.
func (c *Card) IsLand() bool {
	typeLine := c.TypeLine
	if len(c.CardFaces) > 0 && c.CardFaces[0].TypeLine != "" {
		typeLine = c.CardFaces[0].TypeLine
	}
	return strings.Contains(typeLine, "Land")
}

// ColorCode returns the colors the card contributes to a deck, in WUBRG
// order. Lands contribute their color identity because they have no colors
// of their own; spells contribute the colors of all faces.
func (c *Card) ColorCode() string {
	var letters strings.Builder
	if c.IsLand() {
		letters.WriteString(strings.Join(c.ColorIdentity, ""))
	} else {
		letters.WriteString(strings.Join(c.Colors, ""))
		for _, face := range c.CardFaces {
			letters.WriteString(strings.Join(face.Colors, ""))
		}
	}
	return archetype.NormalizeColors(letters.String())
}

// CardIdentifier identifies a card for the /cards/collection endpoint.
type CardIdentifier struct {
	Name string `json:"name,omitempty"`
}

// CollectionRequest is the request body for /cards/collection.
type CollectionRequest struct {
	Identifiers []CardIdentifier `json:"identifiers"`
}

// CollectionResponse is the response from /cards/collection.
type CollectionResponse struct {
	Object   string           `json:"object"`
	NotFound []CardIdentifier `json:"not_found"`
	Data     []Card           `json:"data"`
}
