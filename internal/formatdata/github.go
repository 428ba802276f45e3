package formatdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ramonehamilton/mtg-archetypes/internal/archetype"
	"github.com/ramonehamilton/mtg-archetypes/internal/remote"
)

const (
	DefaultGitHubAPI   = "https://api.github.com"
	DefaultRepository  = "Badaro/MTGOFormatData"
	DefaultConcurrency = 4

	githubJSON = "application/vnd.github+json"
)

// GitHubConfig configures a GitHubLoader.
type GitHubConfig struct {
	BaseURL    string
	Repository string

	// Token is sent as a bearer token when set.
	Token string

	// CacheDir holds one JSON snapshot per format. Empty disables snapshots.
	CacheDir string

	// MaxAge is how long a snapshot is served before Load refetches it.
	// Zero serves snapshots until Refresh is called.
	MaxAge time.Duration

	// Concurrency bounds parallel file downloads per directory.
	Concurrency int

	Remote remote.Options
	Logger *zap.Logger
}

// GitHubLoader downloads definitions through the GitHub contents API.
type GitHubLoader struct {
	client      *remote.Client
	baseURL     string
	repository  string
	cacheDir    string
	maxAge      time.Duration
	concurrency int
	logger      *zap.Logger
	now         func() time.Time

	snapshotMu sync.Mutex
}

// contentEntry is one item of a contents API directory listing.
type contentEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	DownloadURL string `json:"download_url"`
}

// NewGitHubLoader creates a loader for cfg.
func NewGitHubLoader(cfg GitHubConfig) *GitHubLoader {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGitHubAPI
	}
	if cfg.Repository == "" {
		cfg.Repository = DefaultRepository
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	opts := cfg.Remote
	if opts.UserAgent == "" {
		opts.UserAgent = "mtg-archetypes"
	}
	if cfg.Token != "" {
		opts.Header = opts.Header.Clone()
		if opts.Header == nil {
			opts.Header = http.Header{}
		}
		opts.Header.Set("Authorization", "Bearer "+cfg.Token)
	}
	opts.Logger = cfg.Logger

	return &GitHubLoader{
		client:      remote.NewClient(opts),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		repository:  cfg.Repository,
		cacheDir:    cfg.CacheDir,
		maxAge:      cfg.MaxAge,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
		now:         time.Now,
	}
}

// Load serves a fresh snapshot when one exists, otherwise downloads the
// format. A failed download falls back to a stale snapshot.
func (l *GitHubLoader) Load(ctx context.Context, format string) (*archetype.DefinitionSet, error) {
	snapshot, err := l.readSnapshot(format)
	if err != nil {
		l.logger.Warn("Ignoring unreadable snapshot", zap.String("format", format), zap.Error(err))
	}
	if snapshot != nil && !l.stale(snapshot) {
		return Decode(snapshot)
	}

	set, fetchErr := l.Refresh(ctx, format)
	if fetchErr == nil {
		return set, nil
	}
	if snapshot != nil && !errors.Is(fetchErr, ErrFormatNotFound) {
		l.logger.Warn("Download failed, serving stale snapshot",
			zap.String("format", format),
			zap.Time("fetched_at", snapshot.FetchedAt),
			zap.Error(fetchErr))
		return Decode(snapshot)
	}
	return nil, fetchErr
}

// Refresh downloads the format and rewrites its snapshot.
func (l *GitHubLoader) Refresh(ctx context.Context, format string) (*archetype.DefinitionSet, error) {
	raw, err := l.Fetch(ctx, format)
	if err != nil {
		return nil, err
	}

	set, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	if err := l.writeSnapshot(raw); err != nil {
		l.logger.Warn("Failed to write snapshot", zap.String("format", format), zap.Error(err))
	}
	return set, nil
}

// Formats lists the directories under Formats/ in the repository.
func (l *GitHubLoader) Formats(ctx context.Context) ([]string, error) {
	entries, err := l.list(ctx, "Formats")
	if err != nil {
		return nil, fmt.Errorf("failed to list formats: %w", err)
	}

	var formats []string
	for _, e := range entries {
		if e.Type == "dir" {
			formats = append(formats, e.Name)
		}
	}
	sort.Strings(formats)
	return formats, nil
}

// Fetch downloads the raw files of one format.
func (l *GitHubLoader) Fetch(ctx context.Context, format string) (*RawFormat, error) {
	formatName, err := l.resolveFormat(ctx, format)
	if err != nil {
		return nil, err
	}

	root := "Formats/" + formatName
	entries, err := l.list(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}

	raw := &RawFormat{Format: formatName, FetchedAt: l.now()}

	g, gctx := errgroup.WithContext(ctx)
	for _, e := range entries {
		switch {
		case e.Type == "dir" && e.Name == archetypesDir:
			g.Go(func() error {
				files, err := l.downloadDir(gctx, root+"/"+archetypesDir)
				raw.Archetypes = files
				return err
			})
		case e.Type == "dir" && e.Name == fallbacksDir:
			g.Go(func() error {
				files, err := l.downloadDir(gctx, root+"/"+fallbacksDir)
				raw.Fallbacks = files
				return err
			})
		case e.Type == "file" && e.Name == colorOverridesFile:
			g.Go(func() error {
				data, err := l.client.Get(gctx, e.DownloadURL, "")
				if err != nil {
					return fmt.Errorf("failed to download %s: %w", e.Path, err)
				}
				raw.ColorOverrides = data
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.logger.Info("Downloaded format definitions",
		zap.String("format", formatName),
		zap.Int("archetypes", len(raw.Archetypes)),
		zap.Int("fallbacks", len(raw.Fallbacks)))

	return raw, nil
}

// resolveFormat maps a format name to the repository's spelling of it.
func (l *GitHubLoader) resolveFormat(ctx context.Context, format string) (string, error) {
	formats, err := l.Formats(ctx)
	if err != nil {
		return "", err
	}
	for _, f := range formats {
		if strings.EqualFold(f, format) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrFormatNotFound, format)
}

func (l *GitHubLoader) downloadDir(ctx context.Context, path string) ([]File, error) {
	entries, err := l.list(ctx, path)
	if remote.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}

	var jsonEntries []contentEntry
	for _, e := range entries {
		if e.Type == "file" && strings.EqualFold(filepath.Ext(e.Name), ".json") {
			jsonEntries = append(jsonEntries, e)
		}
	}

	files := make([]File, len(jsonEntries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, e := range jsonEntries {
		g.Go(func() error {
			data, err := l.client.Get(gctx, e.DownloadURL, "")
			if err != nil {
				return fmt.Errorf("failed to download %s: %w", e.Path, err)
			}
			files[i] = File{Name: strings.TrimSuffix(e.Name, filepath.Ext(e.Name)), Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func (l *GitHubLoader) list(ctx context.Context, path string) ([]contentEntry, error) {
	u := fmt.Sprintf("%s/repos/%s/contents/%s", l.baseURL, l.repository, escapePath(path))
	body, err := l.client.Get(ctx, u, githubJSON)
	if err != nil {
		return nil, err
	}

	var entries []contentEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse directory listing: %w", err)
	}
	return entries, nil
}

func escapePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func (l *GitHubLoader) stale(raw *RawFormat) bool {
	return l.maxAge > 0 && l.now().Sub(raw.FetchedAt) > l.maxAge
}

func (l *GitHubLoader) snapshotPath(format string) string {
	return filepath.Join(l.cacheDir, strings.ToLower(format)+".json")
}

func (l *GitHubLoader) readSnapshot(format string) (*RawFormat, error) {
	if l.cacheDir == "" {
		return nil, nil
	}

	l.snapshotMu.Lock()
	defer l.snapshotMu.Unlock()

	data, err := os.ReadFile(l.snapshotPath(format))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var raw RawFormat
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &raw, nil
}

func (l *GitHubLoader) writeSnapshot(raw *RawFormat) error {
	if l.cacheDir == "" {
		return nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	l.snapshotMu.Lock()
	defer l.snapshotMu.Unlock()

	if err := os.MkdirAll(l.cacheDir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	path := l.snapshotPath(raw.Format)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}
