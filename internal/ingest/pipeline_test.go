package ingest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ramonehamilton/mtg-archetypes/internal/archetype"
	"github.com/ramonehamilton/mtg-archetypes/internal/deckimport"
	"github.com/ramonehamilton/mtg-archetypes/internal/formatdata"
	"github.com/ramonehamilton/mtg-archetypes/internal/storage"
	"github.com/ramonehamilton/mtg-archetypes/internal/storage/models"
	"github.com/ramonehamilton/mtg-archetypes/internal/storage/repository"
)

type fakeLoader struct {
	sets map[string]*archetype.DefinitionSet
}

func (f *fakeLoader) Load(ctx context.Context, format string) (*archetype.DefinitionSet, error) {
	if set, ok := f.sets[format]; ok {
		return set, nil
	}
	return nil, formatdata.ErrFormatNotFound
}

func (f *fakeLoader) Refresh(ctx context.Context, format string) (*archetype.DefinitionSet, error) {
	return f.Load(ctx, format)
}

func (f *fakeLoader) Formats(ctx context.Context) ([]string, error) {
	var formats []string
	for name := range f.sets {
		formats = append(formats, name)
	}
	sort.Strings(formats)
	return formats, nil
}

func modernSet() *archetype.DefinitionSet {
	return &archetype.DefinitionSet{
		Format: "Modern",
		Archetypes: []archetype.ArchetypeDefinition{{
			Name:       "Burn",
			Conditions: []archetype.Condition{archetype.NewCondition(archetype.InMainboard, "Lightning Bolt")},
		}},
		Strategy: archetype.StrategyExact,
	}
}

type fakeColors struct {
	mu        sync.Mutex
	colors    map[string]string
	requested []string
	err       error
}

func (f *fakeColors) CardColors(name string) (string, bool) {
	code, ok := f.colors[name]
	return code, ok && code != ""
}

func (f *fakeColors) Prefetch(ctx context.Context, names []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, names...)
	return f.err
}

func deck(main map[string]int) *archetype.Deck {
	d := archetype.NewDeck()
	for name, n := range main {
		d.Mainboard[name] = n
	}
	return d
}

func newTestCache(t *testing.T) *formatdata.Cache {
	loader := &fakeLoader{sets: map[string]*archetype.DefinitionSet{"Modern": modernSet()}}
	return formatdata.NewCache(loader, zaptest.NewLogger(t))
}

func TestPipeline_RunClassifiesInOrder(t *testing.T) {
	colors := &fakeColors{colors: map[string]string{"Counterspell": "U"}}
	p := New(newTestCache(t), Options{
		Workers:       2,
		DefaultFormat: "Modern",
		Colors:        colors,
		Logger:        zaptest.NewLogger(t),
	})

	items := []Item{
		{Name: "burn", Format: "Modern", Deck: deck(map[string]int{"Lightning Bolt": 4, "Mountain": 16})},
		{Name: "control", Deck: deck(map[string]int{"Counterspell": 4})},
		{Name: "legacy", Format: "Legacy", Deck: deck(map[string]int{"Brainstorm": 4})},
		{Name: "empty", Format: "Modern"},
	}

	outcomes, err := p.Run(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, outcomes, 4)

	assert.Equal(t, "burn", outcomes[0].Name)
	assert.Equal(t, "Burn", outcomes[0].Result.ArchetypeName)
	assert.Equal(t, archetype.KindArchetype, outcomes[0].Result.Kind)

	assert.Equal(t, "Modern", outcomes[1].Format, "default format applied")
	assert.Equal(t, archetype.KindColorOnly, outcomes[1].Result.Kind)
	assert.Equal(t, "U", outcomes[1].Result.ColorIdentity)

	assert.Equal(t, archetype.KindUnknown, outcomes[2].Result.Kind)
	assert.Equal(t, archetype.UnknownName, outcomes[2].Result.ArchetypeName)

	require.NotNil(t, outcomes[3].Deck)
	assert.Equal(t, archetype.KindUnknown, outcomes[3].Result.Kind)

	for _, o := range outcomes {
		assert.Empty(t, o.RecordID, "nothing is stored without a repository")
	}

	assert.ElementsMatch(t,
		[]string{"Lightning Bolt", "Mountain", "Counterspell", "Brainstorm"},
		colors.requested)

	stats := p.Metrics().Snapshot()
	assert.Equal(t, uint64(4), stats.DecksClassified)
	assert.Equal(t, uint64(1), stats.LoadErrors)
	assert.Equal(t, 2, stats.LoadLatency.Count)
}

func TestPipeline_RunStoresResults(t *testing.T) {
	config := storage.DefaultConfig(":memory:")
	config.AutoMigrate = true
	db, err := storage.Open(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := repository.NewClassificationRepository(db.Conn())
	p := New(newTestCache(t), Options{Repository: repo, Logger: zaptest.NewLogger(t)})

	decks := []deckimport.NamedDeck{
		{Name: "a", Format: "Modern", Deck: deck(map[string]int{"Lightning Bolt": 4})},
		{Name: "b", Format: "Modern", Deck: deck(map[string]int{"Lightning Bolt": 3})},
		{Name: "c", Format: "Modern", Deck: deck(map[string]int{"Tarmogoyf": 4})},
	}

	ctx := context.Background()
	outcomes, err := p.Run(ctx, ItemsFromFile("league.yaml", decks))
	require.NoError(t, err)

	for _, o := range outcomes {
		require.NotEmpty(t, o.RecordID)
		stored, err := repo.GetByID(ctx, o.RecordID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, o.Name, stored.DeckName)
		assert.Equal(t, "league.yaml", stored.Source)
	}

	shares, err := repo.ArchetypeShares(ctx, "Modern")
	require.NoError(t, err)
	require.NotEmpty(t, shares)
	assert.Equal(t, "Burn", shares[0].ArchetypeName)
	assert.Equal(t, 2, shares[0].Count)
}

type failingRepo struct {
	repository.ClassificationRepository
}

func (failingRepo) Save(ctx context.Context, c *models.Classification) error {
	return errors.New("disk full")
}

func TestPipeline_RunStopsOnStorageError(t *testing.T) {
	p := New(newTestCache(t), Options{Workers: 1, Repository: failingRepo{}})

	items := []Item{
		{Name: "a", Format: "Modern", Deck: deck(map[string]int{"Lightning Bolt": 4})},
		{Name: "b", Format: "Modern", Deck: deck(map[string]int{"Lightning Bolt": 4})},
	}

	_, err := p.Run(context.Background(), items)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.GreaterOrEqual(t, p.Metrics().PersistErrors.Load(), uint64(1))
}

func TestPipeline_RunPrefetchFailureIsNotFatal(t *testing.T) {
	colors := &fakeColors{err: errors.New("scryfall down")}
	p := New(newTestCache(t), Options{Colors: colors})

	outcomes, err := p.Run(context.Background(), []Item{
		{Name: "a", Format: "Modern", Deck: deck(map[string]int{"Lightning Bolt": 4})},
	})
	require.NoError(t, err)
	assert.Equal(t, "Burn", outcomes[0].Result.ArchetypeName)
}

func TestPipeline_RunCancelled(t *testing.T) {
	p := New(newTestCache(t), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, []Item{{Name: "a", Format: "Modern", Deck: deck(map[string]int{"Lightning Bolt": 4})}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStrategyOverride(t *testing.T) {
	set := modernSet()
	provider := strategyOverride{
		provider: archetype.StaticProvider{"Modern": set},
		strategy: archetype.StrategyFuzzy,
	}

	got := provider.Definitions("Modern")
	require.NotNil(t, got)
	assert.Equal(t, archetype.StrategyFuzzy, got.Strategy)
	assert.Equal(t, archetype.StrategyExact, set.Strategy, "cached set is not modified")
	assert.Len(t, got.Archetypes, 1)

	assert.Nil(t, provider.Definitions("Pioneer"))
}

func TestNewDefaults(t *testing.T) {
	p := New(newTestCache(t), Options{})
	assert.Equal(t, DefaultWorkers, p.workers)
	assert.NotNil(t, p.Metrics())

	start := time.Now()
	outcomes, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, outcomes)
	assert.Less(t, time.Since(start), time.Second)
}
