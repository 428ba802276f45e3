package deckimport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ramonehamilton/mtg-archetypes/internal/archetype"
)

// NamedDeck is one deck read from a file.
type NamedDeck struct {
	Name     string
	Format   string
	Deck     *archetype.Deck
	Warnings []string
}

// DeckFile is the YAML deck file layout.
type DeckFile struct {
	Decks []DeckEntry `yaml:"decks"`
}

// DeckEntry is a single deck in a YAML file.
type DeckEntry struct {
	Name      string      `yaml:"name"`
	Format    string      `yaml:"format"`
	Mainboard []CardEntry `yaml:"mainboard"`
	Sideboard []CardEntry `yaml:"sideboard"`
}

// CardEntry is a card and its count.
type CardEntry struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

// jsonDeck is the JSON deck layout: boards map card names to counts.
type jsonDeck struct {
	Name      string         `json:"name"`
	Format    string         `json:"format"`
	Mainboard map[string]int `json:"mainboard"`
	Sideboard map[string]int `json:"sideboard"`
}

// ReadFile reads every deck in path. The extension picks the layout: .yaml
// and .yml hold a deck list, .json one deck or an array of decks, anything
// else is a text decklist named after the file.
func ReadFile(path string) ([]NamedDeck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".json":
		return ParseJSON(data)
	default:
		parsed, err := Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		deck := parsed.Deck()
		return []NamedDeck{{Name: name, Deck: deck, Warnings: parsed.Warnings}}, nil
	}
}

// ParseYAML parses a YAML deck file.
func ParseYAML(data []byte) ([]NamedDeck, error) {
	var df DeckFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("parse deck YAML: %w", err)
	}
	if len(df.Decks) == 0 {
		return nil, fmt.Errorf("no decks in file")
	}

	decks := make([]NamedDeck, 0, len(df.Decks))
	for i, entry := range df.Decks {
		nd := NamedDeck{Name: entry.Name, Format: entry.Format, Deck: archetype.NewDeck()}
		if nd.Name == "" {
			nd.Name = fmt.Sprintf("deck %d", i+1)
		}
		nd.Warnings = append(nd.Warnings, addEntries(nd.Deck.Mainboard, entry.Mainboard)...)
		nd.Warnings = append(nd.Warnings, addEntries(nd.Deck.Sideboard, entry.Sideboard)...)
		decks = append(decks, nd)
	}
	return decks, nil
}

func addEntries(into archetype.CardMultiset, entries []CardEntry) []string {
	var warnings []string
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			warnings = append(warnings, "Ignoring card entry without a name")
			continue
		}
		if e.Count <= 0 {
			warnings = append(warnings, fmt.Sprintf("Ignoring %s with count %d", name, e.Count))
			continue
		}
		into[name] += e.Count
	}
	return warnings
}

// ParseJSON parses one JSON deck object or an array of them.
func ParseJSON(data []byte) ([]NamedDeck, error) {
	var raw []jsonDeck
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("parse deck JSON: %w", err)
		}
	} else {
		var single jsonDeck
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, fmt.Errorf("parse deck JSON: %w", err)
		}
		raw = []jsonDeck{single}
	}

	decks := make([]NamedDeck, 0, len(raw))
	for i, d := range raw {
		nd := NamedDeck{Name: d.Name, Format: d.Format, Deck: archetype.NewDeck()}
		if nd.Name == "" {
			nd.Name = fmt.Sprintf("deck %d", i+1)
		}
		nd.Warnings = append(nd.Warnings, addCounts(nd.Deck.Mainboard, d.Mainboard)...)
		nd.Warnings = append(nd.Warnings, addCounts(nd.Deck.Sideboard, d.Sideboard)...)
		decks = append(decks, nd)
	}
	return decks, nil
}

func addCounts(into archetype.CardMultiset, counts map[string]int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]CardEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, CardEntry{Name: name, Count: counts[name]})
	}
	return addEntries(into, entries)
}
