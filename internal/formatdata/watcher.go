package formatdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ramonehamilton/mtg-archetypes/internal/archetype"
)

const DefaultDebounce = 250 * time.Millisecond

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// Root is the definitions directory, one subdirectory per format.
	Root string

	// Debounce is how long to wait after the last change before refreshing.
	Debounce time.Duration

	// PollInterval refreshes every loaded format periodically in case file
	// events are missed. Zero disables polling.
	PollInterval time.Duration

	// OnRefresh is called after every refresh attempt.
	OnRefresh func(format string, set *archetype.DefinitionSet, err error)

	Logger *zap.Logger
}

// Watcher refreshes a Cache when definition files under a directory change.
type Watcher struct {
	cache  *Cache
	config WatcherConfig
	logger *zap.Logger
}

// NewWatcher creates a watcher feeding cache.
func NewWatcher(cache *Cache, config WatcherConfig) *Watcher {
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{cache: cache, config: config, logger: logger}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) (err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := w.addTree(watcher, w.config.Root); err != nil {
		return err
	}
	w.logger.Info("Watching definitions", zap.String("root", w.config.Root))

	pending := make(map[string]bool)
	debounce := time.NewTimer(w.config.Debounce)
	debounce.Stop()
	defer debounce.Stop()

	var poll <-chan time.Time
	if w.config.PollInterval > 0 {
		ticker := time.NewTicker(w.config.PollInterval)
		defer ticker.Stop()
		poll = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					if addErr := w.addTree(watcher, event.Name); addErr != nil {
						w.logger.Warn("Failed to watch new directory", zap.String("path", event.Name), zap.Error(addErr))
					}
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if format := w.formatOf(event.Name); format != "" {
				pending[format] = true
				debounce.Reset(w.config.Debounce)
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", zap.Error(watchErr))
		case <-debounce.C:
			for format := range pending {
				w.refresh(ctx, format)
			}
			clear(pending)
		case <-poll:
			for _, format := range w.cache.Loaded() {
				w.refresh(ctx, format)
			}
		}
	}
}

func (w *Watcher) refresh(ctx context.Context, format string) {
	set, err := w.cache.Refresh(ctx, format)
	if err == nil {
		w.logger.Debug("Definitions changed on disk", zap.String("format", format))
	}
	if w.config.OnRefresh != nil {
		w.config.OnRefresh(format, set, err)
	}
}

// formatOf returns the format directory a path belongs to.
func (w *Watcher) formatOf(path string) string {
	rel, err := filepath.Rel(w.config.Root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	format := strings.Split(filepath.ToSlash(rel), "/")[0]
	if strings.HasPrefix(format, ".") {
		return ""
	}
	return format
}

// addTree watches dir and every directory below it; fsnotify is not recursive.
func (w *Watcher) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
