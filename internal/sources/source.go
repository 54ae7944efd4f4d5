// Package sources holds the collaborators the task catalog can be pulled
// from, and a registry to pick one by name.
package sources

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/terra-clan/task-lobby/internal/catalog"
)

// Checker is implemented by sources that can report their health
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Registry maps source names to sources
type Registry struct {
	mu      sync.RWMutex
	sources map[string]catalog.Source
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]catalog.Source),
	}
}

// Register adds source under its own name
func (r *Registry) Register(source catalog.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[source.Name()] = source
}

// Get returns the source registered as name
func (r *Registry) Get(name string) (catalog.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	source, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("unknown catalog source %q (registered: %v)", name, r.namesLocked())
	}
	return source, nil
}

// List returns the registered names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HealthCheckAll checks every source that supports it
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make(map[string]error)
	for name, source := range r.sources {
		if checker, ok := source.(Checker); ok {
			results[name] = checker.HealthCheck(ctx)
		}
	}
	return results
}
