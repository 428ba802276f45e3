package formatdata

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ramonehamilton/mtg-archetypes/internal/archetype"
)

// Cache holds the current definition set per format. Concurrent loads of the
// same format share one call to the loader, and a refresh swaps the whole set
// at once so readers never see a partial update.
type Cache struct {
	loader Loader
	logger *zap.Logger
	group  singleflight.Group

	mu   sync.RWMutex
	sets map[string]*atomic.Pointer[archetype.DefinitionSet]
}

// NewCache creates an empty cache over loader.
func NewCache(loader Loader, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		loader: loader,
		logger: logger,
		sets:   make(map[string]*atomic.Pointer[archetype.DefinitionSet]),
	}
}

func cacheKey(format string) string {
	return strings.ToLower(strings.TrimSpace(format))
}

func (c *Cache) slot(format string) *atomic.Pointer[archetype.DefinitionSet] {
	key := cacheKey(format)

	c.mu.RLock()
	p, ok := c.sets[key]
	c.mu.RUnlock()
	if ok {
		return p
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok = c.sets[key]; !ok {
		p = new(atomic.Pointer[archetype.DefinitionSet])
		c.sets[key] = p
	}
	return p
}

// Definitions returns the loaded set for format, or nil. It never blocks on
// the loader.
func (c *Cache) Definitions(format string) *archetype.DefinitionSet {
	c.mu.RLock()
	p, ok := c.sets[cacheKey(format)]
	c.mu.RUnlock()
	if !ok {
		return nil
	}
	return p.Load()
}

// Get returns the set for format, loading it on first use.
func (c *Cache) Get(ctx context.Context, format string) (*archetype.DefinitionSet, error) {
	if set := c.Definitions(format); set != nil {
		return set, nil
	}

	key := cacheKey(format)
	v, err, _ := c.group.Do("load:"+key, func() (interface{}, error) {
		if set := c.Definitions(format); set != nil {
			return set, nil
		}
		set, err := c.loader.Load(ctx, format)
		if err != nil {
			return nil, err
		}
		// A refresh that finished while this load ran holds newer data.
		slot := c.slot(format)
		if !slot.CompareAndSwap(nil, set) {
			return slot.Load(), nil
		}
		c.logLoaded("Loaded format definitions", format, set)
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*archetype.DefinitionSet), nil
}

// Refresh reloads format from its source. On failure the previous set stays
// in place and the error is returned.
func (c *Cache) Refresh(ctx context.Context, format string) (*archetype.DefinitionSet, error) {
	key := cacheKey(format)
	v, err, _ := c.group.Do("refresh:"+key, func() (interface{}, error) {
		set, err := c.loader.Refresh(ctx, format)
		if err != nil {
			c.logger.Warn("Refresh failed, keeping previous definitions",
				zap.String("format", format),
				zap.Bool("has_previous", c.Definitions(format) != nil),
				zap.Error(err))
			return nil, err
		}
		c.slot(format).Store(set)
		c.logLoaded("Refreshed format definitions", format, set)
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*archetype.DefinitionSet), nil
}

// Preload loads several formats concurrently. Every format is attempted; the
// returned error joins the individual failures.
func (c *Cache) Preload(ctx context.Context, formats ...string) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, format := range formats {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Get(ctx, format); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Loaded lists the formats that currently have a set, lowercased.
func (c *Cache) Loaded() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var formats []string
	for key, p := range c.sets {
		if p.Load() != nil {
			formats = append(formats, key)
		}
	}
	sort.Strings(formats)
	return formats
}

// Store installs set for its format directly, replacing any previous one.
func (c *Cache) Store(set *archetype.DefinitionSet) {
	c.slot(set.Format).Store(set)
}

// Provider returns a DefinitionProvider that loads missing formats with ctx.
// Load failures are logged and classify as having no definitions.
func (c *Cache) Provider(ctx context.Context) archetype.DefinitionProvider {
	return lazyProvider{cache: c, ctx: ctx}
}

type lazyProvider struct {
	cache *Cache
	ctx   context.Context
}

func (p lazyProvider) Definitions(format string) *archetype.DefinitionSet {
	set, err := p.cache.Get(p.ctx, format)
	if err != nil {
		p.cache.logger.Warn("No definitions available", zap.String("format", format), zap.Error(err))
		return nil
	}
	return set
}

func (c *Cache) logLoaded(msg, format string, set *archetype.DefinitionSet) {
	c.logger.Info(msg,
		zap.String("format", format),
		zap.Int("archetypes", len(set.Archetypes)),
		zap.Int("fallbacks", len(set.Fallbacks)),
		zap.Int("color_overrides", len(set.ColorOverrides)),
		zap.String("strategy", string(set.Strategy)))

	for _, issue := range set.Validate() {
		c.logger.Warn("Suspicious definition",
			zap.String("format", format),
			zap.String("definition", issue.Definition),
			zap.String("issue", issue.Message))
	}
}
