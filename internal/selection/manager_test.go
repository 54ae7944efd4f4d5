package selection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/task-lobby/internal/grouping"
	"github.com/terra-clan/task-lobby/internal/models"
)

type fakeCatalog struct {
	tasks   []models.Task
	grouped *models.GroupedTasks
}

func newFakeCatalog() *fakeCatalog {
	tasks := testTasks()
	return &fakeCatalog{tasks: tasks, grouped: grouping.Group(tasks, testCatalog)}
}

func (f *fakeCatalog) Grouped() *models.GroupedTasks { return f.grouped }
func (f *fakeCatalog) Tags() models.TagCatalog        { return testCatalog }
func (f *fakeCatalog) Task(id string) (models.Task, bool) {
	for _, t := range f.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

type fakeStats struct {
	err error
}

func (f *fakeStats) Get(_ context.Context, userID string) (*models.UserStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.UserStats{User: models.StatsUser{ID: models.FlexID(userID), AvatarURL: "http://avatars/" + userID}}, nil
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newFakeCatalog(), NewMemoryStore(), &fakeStats{})

	view, err := m.Create(ctx, "u-1", "Easy")
	require.NoError(t, err)
	require.NotEmpty(t, view.ID)
	assert.Equal(t, models.LevelEasy, view.State.Level)
	assert.Len(t, view.Options, 5)

	view, err = m.ToggleTag(ctx, view.ID, "strings")
	require.NoError(t, err)
	assert.Equal(t, []string{"strings"}, view.State.ChosenTags)
	require.Len(t, view.Options, 2)
	assert.Equal(t, "http://avatars/u-1", view.Options[1].Label.AvatarURL)

	view, err = m.ChooseTask(ctx, view.ID, "1")
	require.NoError(t, err)
	assert.True(t, view.IsTaskChosen)
	assert.Equal(t, []string{"math"}, view.State.ChosenTags)

	_, err = m.ToggleTag(ctx, view.ID, "strings")
	assert.ErrorIs(t, err, ErrTagsLocked)

	view, err = m.ChooseRandom(ctx, view.ID)
	require.NoError(t, err)
	assert.False(t, view.IsTaskChosen)
	assert.Equal(t, []string{"math"}, view.State.ChosenTags)

	view, err = m.SetLevel(ctx, view.ID, "hard")
	require.NoError(t, err)
	assert.Empty(t, view.State.ChosenTags)
	assert.Len(t, view.Options, 2)

	require.NoError(t, m.Delete(ctx, view.ID))
	_, err = m.View(ctx, view.ID)
	assert.ErrorIs(t, err, ErrSelectionNotFound)
}

func TestManagerRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newFakeCatalog(), nil, nil)

	_, err := m.Create(ctx, "u-1", "legendary")
	assert.ErrorIs(t, err, ErrInvalidLevel)

	view, err := m.Create(ctx, "u-1", "easy")
	require.NoError(t, err)

	_, err = m.ChooseTask(ctx, view.ID, "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = m.ChooseTask(ctx, view.ID, "5")
	assert.ErrorIs(t, err, ErrTaskNotFound, "task from another level")

	_, err = m.SetLevel(ctx, view.ID, "")
	assert.ErrorIs(t, err, ErrInvalidLevel)

	_, err = m.View(ctx, "nope")
	assert.ErrorIs(t, err, ErrSelectionNotFound)
}

func TestManagerStatsFailureFallsBackToIcons(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newFakeCatalog(), nil, &fakeStats{err: errors.New("upstream down")})

	view, err := m.Create(ctx, "u-1", "easy")
	require.NoError(t, err)

	for _, opt := range view.Options {
		if opt.ID == "2" {
			assert.Equal(t, models.IconAvatar, opt.Label.Icon)
			assert.Empty(t, opt.Label.AvatarURL)
		}
	}
}

func TestManagerRestoresFromStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	catalog := newFakeCatalog()

	first := NewManager(catalog, store, nil)
	view, err := first.Create(ctx, "u-1", "easy")
	require.NoError(t, err)
	_, err = first.ToggleTag(ctx, view.ID, "other")
	require.NoError(t, err)

	second := NewManager(catalog, store, nil)
	restored, err := second.View(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, restored.State.ChosenTags)
	assert.Equal(t, 1, second.Count())
}

func TestManagerResetAll(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newFakeCatalog(), nil, nil)

	a, err := m.Create(ctx, "u-1", "easy")
	require.NoError(t, err)
	_, err = m.ChooseTask(ctx, a.ID, "2")
	require.NoError(t, err)
	b, err := m.Create(ctx, "u-2", "easy")
	require.NoError(t, err)
	_, err = m.ToggleTag(ctx, b.ID, "math")
	require.NoError(t, err)

	assert.Equal(t, 2, m.ResetAll(ctx))

	for _, id := range []string{a.ID, b.ID} {
		view, err := m.View(ctx, id)
		require.NoError(t, err)
		assert.False(t, view.IsTaskChosen)
		assert.Empty(t, view.State.ChosenTags)
	}
}

func TestManagerSweepIdle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(newFakeCatalog(), store, nil)

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return start }
	stale, err := m.Create(ctx, "u-1", "easy")
	require.NoError(t, err)

	m.now = func() time.Time { return start.Add(20 * time.Minute) }
	fresh, err := m.Create(ctx, "u-2", "easy")
	require.NoError(t, err)

	m.now = func() time.Time { return start.Add(40 * time.Minute) }
	assert.Equal(t, 1, m.SweepIdle(ctx, 30*time.Minute))
	assert.Equal(t, 1, m.Count())

	_, err = m.View(ctx, stale.ID)
	assert.ErrorIs(t, err, ErrSelectionNotFound)
	_, err = m.View(ctx, fresh.ID)
	assert.NoError(t, err)
}

// gateStore pauses the next Save once armed, until release is closed
type gateStore struct {
	*MemoryStore
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func newGateStore() *gateStore {
	return &gateStore{
		MemoryStore: NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (g *gateStore) arm() {
	g.mu.Lock()
	g.armed = true
	g.mu.Unlock()
}

func (g *gateStore) Save(ctx context.Context, sel *models.Selection) error {
	g.mu.Lock()
	wait := g.armed
	g.armed = false
	g.mu.Unlock()

	if wait {
		close(g.entered)
		<-g.release
	}
	return g.MemoryStore.Save(ctx, sel)
}

func TestManagerDeleteDuringPendingSave(t *testing.T) {
	ctx := context.Background()
	store := newGateStore()
	m := NewManager(newFakeCatalog(), store, nil)

	view, err := m.Create(ctx, "u-1", "easy")
	require.NoError(t, err)

	store.arm()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.ToggleTag(ctx, view.ID, "math")
	}()
	<-store.entered

	var deleteErr error
	go func() {
		defer wg.Done()
		deleteErr = m.Delete(ctx, view.ID)
	}()
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	wg.Wait()

	require.NoError(t, deleteErr)

	stored, err := store.Load(ctx, view.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	_, err = m.View(ctx, view.ID)
	assert.ErrorIs(t, err, ErrSelectionNotFound)
	assert.Equal(t, 0, m.Count())
}

func TestManagerClosedSessionRejectsOperations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(newFakeCatalog(), store, nil)

	view, err := m.Create(ctx, "u-1", "easy")
	require.NoError(t, err)

	// an operation that looked the session up before it was deleted
	held, err := m.get(ctx, view.ID)
	require.NoError(t, err)
	require.NoError(t, m.Delete(ctx, view.ID))

	held.mu.Lock()
	closed := held.closed
	held.mu.Unlock()
	assert.True(t, closed)

	m.mu.Lock()
	m.sessions[view.ID] = held
	m.mu.Unlock()

	_, err = m.ToggleTag(ctx, view.ID, "math")
	assert.ErrorIs(t, err, ErrSelectionNotFound)
	_, err = m.Search(ctx, view.ID, "rev")
	assert.ErrorIs(t, err, ErrSelectionNotFound)
	assert.ErrorIs(t, m.Delete(ctx, view.ID), ErrSelectionNotFound)
	assert.Equal(t, 0, m.ResetAll(ctx))

	stored, err := store.Load(ctx, view.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}
