// Package archetype classifies tournament decklists into named archetypes.
//
// A deck is evaluated against the ordered archetype definitions of its format.
// The first archetype whose conditions all hold wins; when none does, the
// format's fallback ("goodstuff") definitions are scored, and as a last resort
// the deck is labelled by its color identity alone.
package archetype

import "sort"

// CardMultiset maps a card name to the number of copies in a zone.
// A missing name means zero copies.
type CardMultiset map[string]int

// Has reports whether at least one copy of name is present.
func (m CardMultiset) Has(name string) bool {
	return m[name] > 0
}

// Names returns the card names present in the zone, sorted.
func (m CardMultiset) Names() []string {
	names := make([]string, 0, len(m))
	for name, count := range m {
		if count > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Total returns the number of cards in the zone, counting copies.
func (m CardMultiset) Total() int {
	total := 0
	for _, count := range m {
		if count > 0 {
			total += count
		}
	}
	return total
}

// Deck is a decklist split into its two zones.
type Deck struct {
	Mainboard CardMultiset `json:"mainboard" yaml:"mainboard"`
	Sideboard CardMultiset `json:"sideboard" yaml:"sideboard"`
}

// NewDeck creates an empty deck.
func NewDeck() *Deck {
	return &Deck{
		Mainboard: make(CardMultiset),
		Sideboard: make(CardMultiset),
	}
}

// InMain reports whether name is in the mainboard.
func (d *Deck) InMain(name string) bool {
	return d.Mainboard.Has(name)
}

// InSide reports whether name is in the sideboard.
func (d *Deck) InSide(name string) bool {
	return d.Sideboard.Has(name)
}

// InAny reports whether name is in either zone.
func (d *Deck) InAny(name string) bool {
	return d.Mainboard.Has(name) || d.Sideboard.Has(name)
}

// CardNames returns the distinct names across both zones, sorted.
func (d *Deck) CardNames() []string {
	seen := make(map[string]struct{}, len(d.Mainboard)+len(d.Sideboard))
	for _, zone := range []CardMultiset{d.Mainboard, d.Sideboard} {
		for name, count := range zone {
			if count > 0 {
				seen[name] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsEmpty reports whether the deck has no cards at all.
func (d *Deck) IsEmpty() bool {
	return d.Mainboard.Total() == 0 && d.Sideboard.Total() == 0
}
