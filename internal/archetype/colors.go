package archetype

import "strings"

// ColorOrder is the canonical rendering order of color letters.
const ColorOrder = "WUBRG"

var colorNames = map[byte]string{
	'W': "White",
	'U': "Blue",
	'B': "Black",
	'R': "Red",
	'G': "Green",
}

// ColorName returns the full name for a single color letter.
func ColorName(letter byte) string {
	if name, ok := colorNames[letter]; ok {
		return name
	}
	return string(letter)
}

// ColorLookup resolves a card name to its color letters. Implementations
// must answer from memory; classification never waits on I/O.
type ColorLookup interface {
	CardColors(name string) (string, bool)
}

// builtinColors approximates colors for staples when neither the format
// overrides nor an injected lookup know the card.
var builtinColors = map[string]string{
	// Basic lands
	"Plains":   "W",
	"Island":   "U",
	"Swamp":    "B",
	"Mountain": "R",
	"Forest":   "G",

	// Shock lands
	"Hallowed Fountain": "WU",
	"Watery Grave":      "UB",
	"Blood Crypt":       "BR",
	"Stomping Ground":   "RG",
	"Temple Garden":     "GW",
	"Godless Shrine":    "WB",
	"Steam Vents":       "UR",
	"Overgrown Tomb":    "BG",
	"Sacred Foundry":    "RW",
	"Breeding Pool":     "GU",

	// Original duals
	"Tundra":          "WU",
	"Underground Sea": "UB",
	"Badlands":        "BR",
	"Taiga":           "RG",
	"Savannah":        "GW",
	"Scrubland":       "WB",
	"Volcanic Island": "UR",
	"Bayou":           "BG",
	"Plateau":         "RW",
	"Tropical Island": "GU",

	// Iconic spells
	"Lightning Bolt":            "R",
	"Goblin Guide":              "R",
	"Monastery Swiftspear":      "R",
	"Lava Spike":                "R",
	"Lightning Strike":          "R",
	"Counterspell":              "U",
	"Cryptic Command":           "U",
	"Force of Negation":         "U",
	"Force of Will":             "U",
	"Brainstorm":                "U",
	"Lord of Atlantis":          "U",
	"Swords to Plowshares":      "W",
	"Wrath of God":              "W",
	"Dark Ritual":               "B",
	"Thoughtseize":              "B",
	"Inquisition of Kozilek":    "B",
	"Liliana of the Veil":       "B",
	"Vraska's Contempt":         "B",
	"Llanowar Elves":            "G",
	"Giant Growth":              "G",
	"Tarmogoyf":                 "G",
	"Primeval Titan":            "G",
	"Supreme Verdict":           "WU",
	"Teferi, Hero of Dominaria": "WU",
	"Boros Charm":               "RW",
	"Bloodbraid Elf":            "RG",
}

// BuiltinColors returns the built-in color for a well-known card.
func BuiltinColors(name string) (string, bool) {
	colors, ok := builtinColors[name]
	return colors, ok
}

// ExtractColors returns the color identity of cards in WUBRG order.
// Overrides take precedence over the built-in table; unknown cards
// contribute nothing.
func ExtractColors(cards []string, overrides ColorOverrides) string {
	return extractColors(cards, overrides, nil)
}

func extractColors(cards []string, overrides ColorOverrides, lookup ColorLookup) string {
	var seen [len(ColorOrder)]bool
	for _, card := range cards {
		for _, letter := range cardColors(card, overrides, lookup) {
			if i := strings.IndexRune(ColorOrder, letter); i >= 0 {
				seen[i] = true
			}
		}
	}

	var identity strings.Builder
	for i := range ColorOrder {
		if seen[i] {
			identity.WriteByte(ColorOrder[i])
		}
	}
	return identity.String()
}

func cardColors(card string, overrides ColorOverrides, lookup ColorLookup) string {
	if colors, ok := overrides[card]; ok {
		return colors
	}
	if lookup != nil {
		if colors, ok := lookup.CardColors(card); ok {
			return colors
		}
	}
	return builtinColors[card]
}

// ColorLabel renders the synthetic name used when only colors are known:
// "Mono Red" for one color, "BR Deck" otherwise.
func ColorLabel(identity string) string {
	switch len(identity) {
	case 0:
		return ""
	case 1:
		return "Mono " + ColorName(identity[0])
	default:
		return identity + " Deck"
	}
}

// NormalizeColors upper-cases a color code and renders it in WUBRG order,
// dropping anything that is not a color letter.
func NormalizeColors(code string) string {
	return extractColors([]string{"x"}, ColorOverrides{"x": strings.ToUpper(code)}, nil)
}
