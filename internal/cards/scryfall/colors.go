package scryfall

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// CardFetcher is the part of Client that ColorIndex needs.
type CardFetcher interface {
	CardsByNames(ctx context.Context, names []string) ([]Card, []string, error)
}

// ColorIndex maps card names to color codes. It is filled ahead of time by
// Prefetch and read by the classifier without blocking on the network.
type ColorIndex struct {
	fetcher CardFetcher
	logger  *zap.Logger

	mu     sync.RWMutex
	colors map[string]string
}

// NewColorIndex creates an empty index backed by fetcher.
func NewColorIndex(fetcher CardFetcher, logger *zap.Logger) *ColorIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ColorIndex{
		fetcher: fetcher,
		logger:  logger,
		colors:  make(map[string]string),
	}
}

// CardColors implements archetype.ColorLookup. Cards that resolved to no
// colors report false so other color sources can still apply.
func (x *ColorIndex) CardColors(name string) (string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	code, ok := x.colors[name]
	if !ok || code == "" {
		return "", false
	}
	return code, true
}

// Set records a color code for a card.
func (x *ColorIndex) Set(name, code string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.colors[name] = code
}

// Len returns the number of cards known to the index, colorless ones included.
func (x *ColorIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.colors)
}

// Prefetch resolves every name not already in the index. Names Scryfall does
// not know are remembered as colorless so they are not requested again.
func (x *ColorIndex) Prefetch(ctx context.Context, names []string) error {
	missing := x.unknown(names)
	if len(missing) == 0 {
		return nil
	}

	cards, notFound, err := x.fetcher.CardsByNames(ctx, missing)
	if err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	for _, card := range cards {
		code := card.ColorCode()
		x.colors[card.Name] = code
		// Split and double-faced cards are listed under their full name;
		// decklists often use the front face only.
		if front, _, ok := strings.Cut(card.Name, " // "); ok {
			x.colors[front] = code
		}
	}
	for _, name := range notFound {
		x.colors[name] = ""
	}
	// Names Scryfall matched under a different spelling.
	for _, name := range missing {
		if _, ok := x.colors[name]; !ok {
			x.colors[name] = ""
		}
	}

	x.logger.Debug("Prefetched card colors",
		zap.Int("requested", len(missing)),
		zap.Int("found", len(cards)),
		zap.Int("not_found", len(notFound)))
	return nil
}

func (x *ColorIndex) unknown(names []string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	seen := make(map[string]bool, len(names))
	var missing []string
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := x.colors[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
