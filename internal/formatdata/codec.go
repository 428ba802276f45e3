// Package formatdata loads archetype definitions in the MTGOFormatData
// layout from disk or GitHub and keeps them in a refreshable cache.
package formatdata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ramonehamilton/mtg-archetypes/internal/archetype"
)

// File is one definition file: its name without extension and its raw JSON.
type File struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// RawFormat is the undecoded contents of one format directory. Loaders
// produce it and the disk snapshot stores it.
type RawFormat struct {
	Format         string          `json:"format"`
	Archetypes     []File          `json:"archetypes"`
	Fallbacks      []File          `json:"fallbacks"`
	ColorOverrides json.RawMessage `json:"color_overrides,omitempty"`
	Strategy       string          `json:"strategy,omitempty"`
	FetchedAt      time.Time       `json:"fetched_at"`
}

type conditionFile struct {
	Type  string   `json:"Type"`
	Cards []string `json:"Cards"`
}

type archetypeFile struct {
	Name               string          `json:"Name"`
	IncludeColorInName bool            `json:"IncludeColorInName"`
	Conditions         []conditionFile `json:"Conditions"`
	Variants           json.RawMessage `json:"Variants"`
}

type variantFile struct {
	Conditions []conditionFile `json:"Conditions"`
}

type fallbackFile struct {
	Name               string   `json:"Name"`
	IncludeColorInName *bool    `json:"IncludeColorInName"`
	CommonCards        []string `json:"CommonCards"`
	MinMatchRatio      float64  `json:"MinMatchRatio"`
}

type overrideEntry struct {
	Name  string `json:"Name"`
	Color string `json:"Color"`
}

// Decode turns a raw format into a definition set. Files are taken in name
// order. A file that cannot be parsed is skipped and an unknown strategy
// falls back to exact; both are recorded in the set's LoadIssues.
func Decode(raw *RawFormat) (*archetype.DefinitionSet, error) {
	set := &archetype.DefinitionSet{
		Format:   raw.Format,
		Strategy: archetype.StrategyExact,
		LoadedAt: raw.FetchedAt,
	}
	skip := func(def string, err error) {
		set.LoadIssues = append(set.LoadIssues, archetype.ValidationIssue{Definition: def, Message: err.Error()})
	}

	strategy, err := archetype.ParseStrategy(raw.Strategy)
	if err != nil {
		skip(formatSettingsFile, fmt.Errorf("%w; using %s", err, archetype.StrategyExact))
	} else {
		set.Strategy = strategy
	}

	for _, f := range sortedFiles(raw.Archetypes) {
		def, err := DecodeArchetype(f.Name, f.Data)
		if err != nil {
			skip(archetypesDir+"/"+f.Name, err)
			continue
		}
		set.Archetypes = append(set.Archetypes, *def)
	}

	for _, f := range sortedFiles(raw.Fallbacks) {
		def, err := DecodeFallback(f.Name, f.Data)
		if err != nil {
			skip(fallbacksDir+"/"+f.Name, err)
			continue
		}
		set.Fallbacks = append(set.Fallbacks, *def)
	}

	if len(raw.ColorOverrides) > 0 {
		overrides, err := DecodeColorOverrides(raw.ColorOverrides)
		if err != nil {
			skip(colorOverridesFile, err)
		} else {
			set.ColorOverrides = overrides
		}
	}

	return set, nil
}

func sortedFiles(files []File) []File {
	out := make([]File, len(files))
	copy(out, files)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DecodeArchetype parses one archetype file. The file's own Name wins over
// the file name.
func DecodeArchetype(fileName string, data []byte) (*archetype.ArchetypeDefinition, error) {
	var f archetypeFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse archetype: %w", err)
	}

	def := &archetype.ArchetypeDefinition{
		Name:               firstNonEmpty(f.Name, fileName),
		IncludeColorInName: f.IncludeColorInName,
		Conditions:         decodeConditions(f.Conditions),
	}

	variants, err := decodeVariants(f.Variants)
	if err != nil {
		return nil, err
	}
	def.Variants = variants

	return def, nil
}

// decodeVariants reads the Variants object key by key so variants keep the
// order they were written in.
func decodeVariants(data json.RawMessage) ([]archetype.Variant, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to parse variants: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("variants must be an object")
	}

	var variants []archetype.Variant
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse variants: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected variant key %v", tok)
		}

		var v variantFile
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("variant %s: %w", name, err)
		}
		variants = append(variants, archetype.Variant{
			Name:       name,
			Conditions: decodeConditions(v.Conditions),
		})
	}

	return variants, nil
}

// decodeConditions keeps unknown condition types as ConditionUnknown so the
// classifier can report and skip them.
func decodeConditions(in []conditionFile) []archetype.Condition {
	out := make([]archetype.Condition, 0, len(in))
	for _, c := range in {
		out = append(out, archetype.NewCondition(archetype.ParseConditionKind(c.Type), c.Cards...))
	}
	return out
}

// DecodeFallback parses one fallback file. IncludeColorInName defaults to
// true and MinMatchRatio to archetype.DefaultMinMatchRatio.
func DecodeFallback(fileName string, data []byte) (*archetype.FallbackDefinition, error) {
	var f fallbackFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fallback: %w", err)
	}

	def := &archetype.FallbackDefinition{
		Name:               firstNonEmpty(f.Name, fileName),
		IncludeColorInName: true,
		CommonCards:        dedupe(f.CommonCards),
		MinMatchRatio:      f.MinMatchRatio,
	}
	if f.IncludeColorInName != nil {
		def.IncludeColorInName = *f.IncludeColorInName
	}
	if def.MinMatchRatio <= 0 {
		def.MinMatchRatio = archetype.DefaultMinMatchRatio
	}
	return def, nil
}

// DecodeColorOverrides flattens the Lands and NonLands sections. Each section
// may be an object keyed by card name or a list of {Name, Color} entries.
// Lands win when a card appears in both.
func DecodeColorOverrides(data []byte) (archetype.ColorOverrides, error) {
	var sections struct {
		Lands    json.RawMessage `json:"Lands"`
		NonLands json.RawMessage `json:"NonLands"`
	}
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("failed to parse color overrides: %w", err)
	}

	overrides := make(archetype.ColorOverrides)
	for _, section := range []json.RawMessage{sections.NonLands, sections.Lands} {
		entries, err := decodeOverrideSection(section)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			overrides[e.Name] = archetype.NormalizeColors(e.Color)
		}
	}
	return overrides, nil
}

func decodeOverrideSection(data json.RawMessage) ([]overrideEntry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	if data[0] == '[' {
		var list []overrideEntry
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("failed to parse override list: %w", err)
		}
		out := list[:0]
		for _, e := range list {
			if strings.TrimSpace(e.Name) != "" {
				out = append(out, e)
			}
		}
		return out, nil
	}

	var byName map[string]overrideEntry
	if err := json.Unmarshal(data, &byName); err != nil {
		return nil, fmt.Errorf("failed to parse override map: %w", err)
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]overrideEntry, 0, len(names))
	for _, name := range names {
		out = append(out, overrideEntry{Name: name, Color: byName[name].Color})
	}
	return out, nil
}

func dedupe(cards []string) []string {
	seen := make(map[string]bool, len(cards))
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
