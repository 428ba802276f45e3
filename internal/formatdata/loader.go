package formatdata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ramonehamilton/mtg-archetypes/internal/archetype"
)

// ErrFormatNotFound is returned when a loader has no data for a format.
var ErrFormatNotFound = errors.New("format not found")

// Loader produces definition sets for formats.
type Loader interface {
	// Load returns the definitions for format, from a local copy when one exists.
	Load(ctx context.Context, format string) (*archetype.DefinitionSet, error)

	// Refresh bypasses any local copy and fetches the format again.
	Refresh(ctx context.Context, format string) (*archetype.DefinitionSet, error)

	// Formats lists the formats the loader can serve.
	Formats(ctx context.Context) ([]string, error)
}

const (
	archetypesDir      = "Archetypes"
	fallbacksDir       = "Fallbacks"
	colorOverridesFile = "color_overrides.json"
	formatSettingsFile = "format.toml"
)

// formatSettings holds local per-format options that are not part of the
// upstream data.
type formatSettings struct {
	Strategy string `toml:"strategy"`
}

// DirLoader reads definitions from a local checkout laid out as
// <root>/<Format>/Archetypes/*.json, <root>/<Format>/Fallbacks/*.json and
// <root>/<Format>/color_overrides.json.
type DirLoader struct {
	Root string
}

// NewDirLoader creates a loader rooted at dir.
func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{Root: dir}
}

// Load reads one format directory.
func (l *DirLoader) Load(ctx context.Context, format string) (*archetype.DefinitionSet, error) {
	raw, err := l.ReadRaw(ctx, format)
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}

// Refresh is Load: the directory is always the source of truth.
func (l *DirLoader) Refresh(ctx context.Context, format string) (*archetype.DefinitionSet, error) {
	return l.Load(ctx, format)
}

// Formats lists the subdirectories of the root.
func (l *DirLoader) Formats(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions root: %w", err)
	}

	var formats []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			formats = append(formats, e.Name())
		}
	}
	sort.Strings(formats)
	return formats, nil
}

// ReadRaw reads the undecoded files of a format. The format name is matched
// case-insensitively against the directory names.
func (l *DirLoader) ReadRaw(ctx context.Context, format string) (*RawFormat, error) {
	dir, err := l.formatDir(format)
	if err != nil {
		return nil, err
	}

	raw := &RawFormat{Format: filepath.Base(dir), FetchedAt: time.Now()}

	if raw.Archetypes, err = readJSONDir(ctx, filepath.Join(dir, archetypesDir)); err != nil {
		return nil, err
	}
	if raw.Fallbacks, err = readJSONDir(ctx, filepath.Join(dir, fallbacksDir)); err != nil {
		return nil, err
	}

	overrides, err := os.ReadFile(filepath.Join(dir, colorOverridesFile))
	switch {
	case err == nil:
		raw.ColorOverrides = overrides
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read color overrides: %w", err)
	}

	settings, err := os.ReadFile(filepath.Join(dir, formatSettingsFile))
	switch {
	case err == nil:
		var s formatSettings
		if err := toml.Unmarshal(settings, &s); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", formatSettingsFile, err)
		}
		raw.Strategy = s.Strategy
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read %s: %w", formatSettingsFile, err)
	}

	return raw, nil
}

func (l *DirLoader) formatDir(format string) (string, error) {
	exact := filepath.Join(l.Root, format)
	if info, err := os.Stat(exact); err == nil && info.IsDir() {
		return exact, nil
	}

	entries, err := os.ReadDir(l.Root)
	if err != nil {
		return "", fmt.Errorf("failed to read definitions root: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() && strings.EqualFold(e.Name(), format) {
			return filepath.Join(l.Root, e.Name()), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrFormatNotFound, format)
}

// readJSONDir returns every *.json file in dir. A missing directory is empty.
func readJSONDir(ctx context.Context, dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var files []File
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		files = append(files, File{Name: strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())), Data: data})
	}
	return files, nil
}
