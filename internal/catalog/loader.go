package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/task-lobby/internal/models"
)

// catalogFile is the top-level catalog.yaml
type catalogFile struct {
	Tags []string `yaml:"tags"`
}

// taskFile is one file under tasks/. It holds either a single task or a
// list of them.
type taskFile struct {
	models.Task `yaml:",inline"`
	Tasks       []models.Task `yaml:"tasks"`
}

// Loader reads a catalog directory:
//
//	catalog.yaml     tags: [math, strings, ..., other]
//	tasks/*.yaml     one task, or tasks: [...]
type Loader struct {
	dir string

	mu    sync.RWMutex
	tags  models.TagCatalog
	tasks []models.Task
}

// NewLoader creates a loader for dir
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Name identifies the loader as a task source
func (l *Loader) Name() string {
	return "file"
}

// FetchTasks re-reads the directory and returns its tasks
func (l *Loader) FetchTasks(ctx context.Context) ([]models.Task, error) {
	if err := l.LoadFromDir(ctx); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Task{}, l.tasks...), nil
}

// FetchTags returns the tags of the last load
func (l *Loader) FetchTags(_ context.Context) (models.TagCatalog, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append(models.TagCatalog{}, l.tags...), nil
}

// LoadFromDir reads catalog.yaml and every task file. Broken task files are
// skipped with a warning; a broken catalog.yaml fails the load.
func (l *Loader) LoadFromDir(ctx context.Context) error {
	slog.Info("loading catalog from directory", "dir", l.dir)

	tags, err := l.loadTags()
	if err != nil {
		return err
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(l.dir, "tasks", pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	var tasks []models.Task
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		loaded, err := l.LoadFromFile(file)
		if err != nil {
			slog.Warn("failed to load task file", "file", file, "error", err)
			continue
		}
		tasks = append(tasks, loaded...)
	}

	l.mu.Lock()
	l.tags = tags
	l.tasks = tasks
	l.mu.Unlock()

	slog.Info("catalog loaded", "tasks", len(tasks), "tags", len(tags), "files", len(files))
	return nil
}

func (l *Loader) loadTags() (models.TagCatalog, error) {
	path := filepath.Join(l.dir, "catalog.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read catalog.yaml: %w", err)
	}

	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse catalog.yaml: %w", err)
	}
	return models.NewTagCatalog(cf.Tags), nil
}

// LoadFromFile parses one task file
func (l *Loader) LoadFromFile(path string) ([]models.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var tf taskFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	raw := tf.Tasks
	if len(raw) == 0 {
		task := tf.Task
		if task.ID == "" {
			// single-task files may omit the id, the file name stands in
			task.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		raw = []models.Task{task}
	}

	return raw, nil
}
