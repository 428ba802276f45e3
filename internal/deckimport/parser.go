// Package deckimport reads decklists from Arena exports, plain text, YAML and
// JSON into decks the classifier can label.
package deckimport

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ramonehamilton/mtg-archetypes/internal/archetype"
)

// Board names a deck section.
type Board string

const (
	BoardMain Board = "main"
	BoardSide Board = "sideboard"
)

// ParsedCard represents a single card line in a deck import.
type ParsedCard struct {
	Quantity int
	Name     string
	SetCode  string // Optional, extracted from formats like "4 Lightning Bolt (M21) 123"
	Board    Board
}

// ParsedDeck represents a deck parsed from an import.
type ParsedDeck struct {
	Name      string
	Format    string
	Mainboard []*ParsedCard
	Sideboard []*ParsedCard
	ParsedOK  bool
	Errors    []string
	Warnings  []string
}

func newParsedDeck() *ParsedDeck {
	return &ParsedDeck{
		Mainboard: make([]*ParsedCard, 0),
		Sideboard: make([]*ParsedCard, 0),
		ParsedOK:  true,
		Errors:    make([]string, 0),
		Warnings:  make([]string, 0),
	}
}

func (d *ParsedDeck) add(card *ParsedCard) {
	if card.Board == BoardSide {
		d.Sideboard = append(d.Sideboard, card)
	} else {
		d.Mainboard = append(d.Mainboard, card)
	}
}

func (d *ParsedDeck) finish() {
	if len(d.Mainboard) == 0 && len(d.Sideboard) == 0 {
		d.ParsedOK = false
		d.Errors = append(d.Errors, "No cards found in import")
	}
}

// Deck converts the parsed lines to a classifier deck. Repeated lines add
// up; lines with a non-positive quantity are dropped with a warning.
func (d *ParsedDeck) Deck() *archetype.Deck {
	deck := archetype.NewDeck()
	addAll := func(into archetype.CardMultiset, cards []*ParsedCard) {
		for _, c := range cards {
			if c.Quantity <= 0 {
				d.Warnings = append(d.Warnings, fmt.Sprintf("Ignoring %s with quantity %d", c.Name, c.Quantity))
				continue
			}
			into[c.Name] += c.Quantity
		}
	}
	addAll(deck.Mainboard, d.Mainboard)
	addAll(deck.Sideboard, d.Sideboard)
	return deck
}

var (
	// "4 Lightning Bolt (M21) 123" or "4 Lightning Bolt"
	// Group 1: quantity, Group 2: card name, Group 3: set code (optional), Group 4: collector number (optional)
	arenaRegex = regexp.MustCompile(`^(\d+)\s+([^(]+?)(?:\s+\(([A-Z0-9]+)\)(?:\s+(\S+))?)?$`)

	// "4 Card Name" or "4x Card Name"
	quantityFirst = regexp.MustCompile(`^(\d+)x?\s+(.+)$`)
	// "Card Name x4"
	quantityLast = regexp.MustCompile(`^(.+?)\s+x(\d+)$`)
)

// Parse tries the Arena format first, then plain text.
func Parse(input string) (*ParsedDeck, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty import string")
	}

	if deck := ParseArenaFormat(input); deck.ParsedOK && len(deck.Warnings) == 0 {
		return deck, nil
	}
	if deck := ParsePlainText(input); deck.ParsedOK {
		return deck, nil
	}
	return nil, fmt.Errorf("unable to parse deck format")
}

// ParseArenaFormat parses MTGA Arena deck export format.
// Format example:
//
//	Deck
//	4 Lightning Bolt (M21) 123
//	2 Shock (M21) 124
//
//	Sideboard
//	2 Duress (M21) 95
//
// A "Sideboard" header or the first empty line after cards separates the
// mainboard from the sideboard.
func ParseArenaFormat(input string) *ParsedDeck {
	deck := newParsedDeck()
	board := BoardMain
	seenCard := false

	for i, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)

		switch strings.ToLower(line) {
		case "deck", "companion", "commander":
			continue
		case "sideboard":
			board = BoardSide
			continue
		case "":
			if seenCard {
				board = BoardSide
			}
			continue
		}

		matches := arenaRegex.FindStringSubmatch(line)
		if matches == nil {
			deck.Warnings = append(deck.Warnings, fmt.Sprintf("Line %d: Could not parse '%s'", i+1, line))
			continue
		}

		quantity, err := strconv.Atoi(matches[1])
		if err != nil {
			deck.Errors = append(deck.Errors, fmt.Sprintf("Line %d: Invalid quantity '%s'", i+1, matches[1]))
			deck.ParsedOK = false
			continue
		}

		seenCard = true
		deck.add(&ParsedCard{
			Quantity: quantity,
			Name:     strings.TrimSpace(matches[2]),
			SetCode:  matches[3],
			Board:    board,
		})
	}

	deck.finish()
	return deck
}

// ParsePlainText parses simple text card lists.
// Format examples:
//   - "4 Lightning Bolt"
//   - "4x Lightning Bolt"
//   - "Lightning Bolt x4"
//
// A line starting with "sideboard" switches to the sideboard.
func ParsePlainText(input string) *ParsedDeck {
	deck := newParsedDeck()
	board := BoardMain

	for i, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(strings.ToLower(line), "sideboard") {
			board = BoardSide
			continue
		}

		quantity, name, ok := parsePlainLine(line)
		if !ok {
			deck.Warnings = append(deck.Warnings, fmt.Sprintf("Line %d: Could not parse '%s'", i+1, line))
			continue
		}

		deck.add(&ParsedCard{Quantity: quantity, Name: name, Board: board})
	}

	deck.finish()
	return deck
}

func parsePlainLine(line string) (int, string, bool) {
	if m := quantityFirst.FindStringSubmatch(line); m != nil {
		if q, err := strconv.Atoi(m[1]); err == nil {
			return q, strings.TrimSpace(m[2]), true
		}
	}
	if m := quantityLast.FindStringSubmatch(line); m != nil {
		if q, err := strconv.Atoi(m[2]); err == nil {
			return q, strings.TrimSpace(m[1]), true
		}
	}
	return 0, "", false
}
