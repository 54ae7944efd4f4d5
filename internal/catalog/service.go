// Package catalog holds the current task catalog and its grouping by level
// and tag, refreshed from a pluggable source.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/terra-clan/task-lobby/internal/grouping"
	"github.com/terra-clan/task-lobby/internal/models"
)

// Source supplies the raw task list
type Source interface {
	Name() string
	FetchTasks(ctx context.Context) ([]models.Task, error)
}

// TagSource is implemented by sources that also carry a tag catalog
type TagSource interface {
	FetchTags(ctx context.Context) (models.TagCatalog, error)
}

// Status describes the last refresh
type Status struct {
	Source      string     `json:"source"`
	Tasks       int        `json:"tasks"`
	Tags        []string   `json:"tags"`
	Levels      []string   `json:"levels"`
	Loaded      bool       `json:"loaded"`
	LoadedAt    *time.Time `json:"loaded_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
}

// Service keeps the latest good snapshot of the catalog. A failed refresh
// leaves the previous snapshot in place.
type Service struct {
	source      Source
	defaultTags models.TagCatalog

	mu          sync.RWMutex
	tasks       []models.Task
	byID        map[string]models.Task
	tags        models.TagCatalog
	grouped     *models.GroupedTasks
	loadedAt    *time.Time
	lastError   string
	lastErrorAt *time.Time

	listeners []func(ctx context.Context)
}

// NewService creates an empty catalog. defaultTags is used unless the
// source carries its own tag catalog.
func NewService(source Source, defaultTags models.TagCatalog) *Service {
	return &Service{
		source:      source,
		defaultTags: defaultTags,
		byID:        make(map[string]models.Task),
		tags:        defaultTags,
		grouped:     grouping.Group(nil, defaultTags),
	}
}

// OnRefresh registers fn to run after every successful refresh
func (s *Service) OnRefresh(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Refresh fetches the catalog from the source and regroups it. No retry:
// on failure the error is recorded and returned, the old snapshot stays.
func (s *Service) Refresh(ctx context.Context) error {
	start := time.Now()

	raw, err := s.source.FetchTasks(ctx)
	if err != nil {
		s.recordError(err)
		slog.Error("catalog refresh failed", "source", s.source.Name(), "error", err)
		return fmt.Errorf("failed to fetch tasks from %s: %w", s.source.Name(), err)
	}

	tags := s.defaultTags
	if ts, ok := s.source.(TagSource); ok {
		fetched, err := ts.FetchTags(ctx)
		if err != nil {
			slog.Warn("failed to fetch tag catalog, using configured tags", "source", s.source.Name(), "error", err)
		} else if len(fetched) > 0 {
			tags = fetched
		}
	}

	tasks, byID := normalize(raw)
	grouped := grouping.Group(tasks, tags)
	now := time.Now().UTC()

	s.mu.Lock()
	s.tasks = tasks
	s.byID = byID
	s.tags = tags
	s.grouped = grouped
	s.loadedAt = &now
	s.lastError = ""
	s.lastErrorAt = nil
	listeners := append([]func(context.Context){}, s.listeners...)
	s.mu.Unlock()

	slog.Info("catalog refreshed",
		"source", s.source.Name(),
		"tasks", len(tasks),
		"skipped", len(raw)-len(tasks),
		"levels", len(grouped.Order),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	for _, fn := range listeners {
		fn(ctx)
	}
	return nil
}

// NormalizeTasks cleans raw tasks, dropping invalid ones and repeated ids
func NormalizeTasks(raw []models.Task) []models.Task {
	tasks, _ := normalize(raw)
	return tasks
}

func normalize(raw []models.Task) ([]models.Task, map[string]models.Task) {
	tasks := make([]models.Task, 0, len(raw))
	byID := make(map[string]models.Task, len(raw))
	for _, task := range raw {
		if err := task.Normalize(); err != nil {
			slog.Warn("skipping invalid task", "id", task.ID, "error", err)
			continue
		}
		if _, dup := byID[task.ID]; dup {
			slog.Warn("skipping duplicate task", "id", task.ID)
			continue
		}
		byID[task.ID] = task
		tasks = append(tasks, task)
	}
	return tasks, byID
}

func (s *Service) recordError(err error) {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err.Error()
	s.lastErrorAt = &now
}

// Grouped returns the current grouping. Callers must not modify it.
func (s *Service) Grouped() *models.GroupedTasks {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grouped
}

// Tags returns the current tag catalog
func (s *Service) Tags() models.TagCatalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tags
}

// Task looks a task up by id
func (s *Service) Task(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.byID[id]
	return task, ok
}

// Tasks lists tasks matching filters in catalog order
func (s *Service) Tasks(filters models.TaskFilters) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []models.Task{}
	skipped := 0
	for _, task := range s.tasks {
		if filters.Level != "" && task.Level != filters.Level {
			continue
		}
		if filters.Origin != "" && task.Origin != filters.Origin {
			continue
		}
		if filters.Tag != "" && !task.HasTag(filters.Tag) {
			continue
		}
		if skipped < filters.Offset {
			skipped++
			continue
		}
		if filters.Limit > 0 && len(result) >= filters.Limit {
			break
		}
		result = append(result, task)
	}
	return result
}

// Loaded reports whether at least one refresh succeeded
func (s *Service) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt != nil
}

// Status reports the state of the last refresh
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	levels := make([]string, 0, len(s.grouped.Order))
	for _, l := range s.grouped.Order {
		levels = append(levels, string(l))
	}

	return Status{
		Source:      s.source.Name(),
		Tasks:       len(s.tasks),
		Tags:        append([]string{}, s.tags...),
		Levels:      levels,
		Loaded:      s.loadedAt != nil,
		LoadedAt:    s.loadedAt,
		LastError:   s.lastError,
		LastErrorAt: s.lastErrorAt,
	}
}
