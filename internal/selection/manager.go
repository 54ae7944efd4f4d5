// Package selection keeps the lobby sessions in which players pick a task,
// either concretely or through a tag filter.
package selection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/task-lobby/internal/models"
)

// CatalogView is the read side of the task catalog
type CatalogView interface {
	Grouped() *models.GroupedTasks
	Tags() models.TagCatalog
	Task(id string) (models.Task, bool)
}

// StatsSource resolves a player's stats for labels
type StatsSource interface {
	Get(ctx context.Context, userID string) (*models.UserStats, error)
}

// session pairs a stored selection with its controller. mu serializes all
// operations on the session. A closed session is never saved again.
type session struct {
	mu     sync.Mutex
	sel    models.Selection
	ctrl   *Controller
	closed bool
}

// Manager owns every open selection session
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session

	catalog CatalogView
	store   Store
	stats   StatsSource
	now     func() time.Time
}

// NewManager creates a manager. stats may be nil, labels then never carry avatars.
func NewManager(catalog CatalogView, store Store, stats StatsSource) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{
		sessions: make(map[string]*session),
		catalog:  catalog,
		store:    store,
		stats:    stats,
		now:      time.Now,
	}
}

// Create opens a session for userID at level
func (m *Manager) Create(ctx context.Context, userID string, level string) (*models.SelectionView, error) {
	lvl, err := models.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidLevel, level)
	}

	now := m.now().UTC()
	s := &session{
		sel: models.Selection{
			ID:        uuid.New().String(),
			UserID:    userID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		ctrl: NewController(lvl),
	}
	s.sel.State = s.ctrl.State()

	if err := m.store.Save(ctx, &s.sel); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.sel.ID] = s
	m.mu.Unlock()

	slog.Info("selection created", "id", s.sel.ID, "user_id", userID, "level", lvl)

	view := m.render(ctx, s, "")
	return &view, nil
}

// View renders the session
func (m *Manager) View(ctx context.Context, id string) (*models.SelectionView, error) {
	return m.apply(ctx, id, false, func(*Controller) error { return nil })
}

// Search renders the session with options narrowed to names matching query
func (m *Manager) Search(ctx context.Context, id, query string) (*models.SelectionView, error) {
	s, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("%w: %s", ErrSelectionNotFound, id)
	}

	view := m.render(ctx, s, query)
	return &view, nil
}

// ToggleTag flips tag in the session's filter. Returns ErrTagsLocked
// without touching the session while a task is chosen.
func (m *Manager) ToggleTag(ctx context.Context, id, tag string) (*models.SelectionView, error) {
	return m.apply(ctx, id, true, func(c *Controller) error {
		if c.IsTaskChosen() {
			return ErrTagsLocked
		}
		c.ToggleTag(tag)
		return nil
	})
}

// ChooseTask picks taskID, which must exist at the session's level
func (m *Manager) ChooseTask(ctx context.Context, id, taskID string) (*models.SelectionView, error) {
	return m.apply(ctx, id, true, func(c *Controller) error {
		task, ok := m.catalog.Task(taskID)
		if !ok || task.Level != c.State().Level {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		c.ChooseTask(task)
		return nil
	})
}

// ChooseRandom switches the session back to the random option
func (m *Manager) ChooseRandom(ctx context.Context, id string) (*models.SelectionView, error) {
	return m.apply(ctx, id, true, func(c *Controller) error {
		c.ChooseRandom()
		return nil
	})
}

// SetLevel changes the session's difficulty, resetting its picks
func (m *Manager) SetLevel(ctx context.Context, id, level string) (*models.SelectionView, error) {
	lvl, err := models.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidLevel, level)
	}
	return m.apply(ctx, id, true, func(c *Controller) error {
		c.SetLevel(lvl)
		return nil
	})
}

// Delete closes the session
func (m *Manager) Delete(ctx context.Context, id string) error {
	s, err := m.get(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: %s", ErrSelectionNotFound, id)
	}

	if err := m.close(ctx, s); err != nil {
		return err
	}

	slog.Info("selection deleted", "id", id)
	return nil
}

// ResetAll clears the picks of every open session; used after the catalog
// changes underneath them.
func (m *Manager) ResetAll(ctx context.Context) int {
	m.mu.RLock()
	open := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.RUnlock()

	reset := 0
	for _, s := range open {
		s.mu.Lock()
		if !s.closed {
			s.ctrl.Reset()
			m.commit(ctx, s)
			reset++
		}
		s.mu.Unlock()
	}

	if reset > 0 {
		slog.Info("selections reset after catalog refresh", "count", reset)
	}
	return reset
}

// SweepIdle drops sessions untouched for longer than ttl
func (m *Manager) SweepIdle(ctx context.Context, ttl time.Duration) int {
	now := m.now()

	m.mu.RLock()
	open := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.RUnlock()

	swept := 0
	for _, s := range open {
		s.mu.Lock()
		if !s.closed && s.sel.IsIdle(ttl, now) {
			if err := m.close(ctx, s); err != nil {
				slog.Warn("failed to delete idle selection", "id", s.sel.ID, "error", err)
			}
			swept++
		}
		s.mu.Unlock()
	}
	return swept
}

// Count returns the number of sessions held in memory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) apply(ctx context.Context, id string, mutate bool, op func(*Controller) error) (*models.SelectionView, error) {
	s, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("%w: %s", ErrSelectionNotFound, id)
	}

	if err := op(s.ctrl); err != nil {
		return nil, err
	}
	if mutate {
		m.commit(ctx, s)
	}

	view := m.render(ctx, s, "")
	return &view, nil
}

// commit copies the controller state into the session and persists it.
// Store failures are logged; the in-memory session stays authoritative.
func (m *Manager) commit(ctx context.Context, s *session) {
	s.sel.State = s.ctrl.State()
	s.sel.UpdatedAt = m.now().UTC()
	if err := m.store.Save(ctx, &s.sel); err != nil {
		slog.Warn("failed to persist selection", "id", s.sel.ID, "error", err)
	}
}

// close marks s closed and removes it, store first, so a concurrent get
// cannot load it back. Callers hold s.mu.
func (m *Manager) close(ctx context.Context, s *session) error {
	s.closed = true
	err := m.store.Delete(ctx, s.sel.ID)

	m.mu.Lock()
	if m.sessions[s.sel.ID] == s {
		delete(m.sessions, s.sel.ID)
	}
	m.mu.Unlock()

	return err
}

// get finds a session in memory, falling back to the store
func (m *Manager) get(ctx context.Context, id string) (*session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}

	sel, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sel == nil {
		return nil, fmt.Errorf("%w: %s", ErrSelectionNotFound, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		return existing, nil
	}
	s = &session{sel: *sel, ctrl: Restore(sel.State)}
	m.sessions[id] = s
	return s, nil
}

func (m *Manager) render(ctx context.Context, s *session, query string) models.SelectionView {
	var stats *models.UserStats
	if m.stats != nil && s.sel.UserID != "" {
		var err error
		stats, err = m.stats.Get(ctx, s.sel.UserID)
		if err != nil {
			slog.Warn("failed to load user stats for labels", "user_id", s.sel.UserID, "error", err)
			stats = nil
		}
	}

	return s.ctrl.Search(s.sel.ID, m.catalog.Grouped(), m.catalog.Tags(), s.sel.UserID, stats, query)
}
