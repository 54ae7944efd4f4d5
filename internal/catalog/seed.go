package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terra-clan/task-lobby/internal/models"
)

// SeedStore receives a seeded catalog
type SeedStore interface {
	UpsertTasks(ctx context.Context, tasks []models.Task) (int, error)
	SetTagCatalog(ctx context.Context, tags models.TagCatalog) error
}

// Seed copies the YAML catalog under dir into store. Tasks go through the
// same checks as a refresh: invalid or repeated ones are skipped.
func Seed(ctx context.Context, dir string, store SeedStore) (int, error) {
	loader := NewLoader(dir)

	raw, err := loader.FetchTasks(ctx)
	if err != nil {
		return 0, err
	}
	tasks := NormalizeTasks(raw)

	n := 0
	if len(tasks) > 0 {
		if n, err = store.UpsertTasks(ctx, tasks); err != nil {
			return 0, fmt.Errorf("failed to store seeded tasks: %w", err)
		}
	}

	tags, err := loader.FetchTags(ctx)
	if err != nil {
		return n, err
	}
	if len(tags) > 0 {
		if err := store.SetTagCatalog(ctx, tags); err != nil {
			return n, fmt.Errorf("failed to store seeded tags: %w", err)
		}
	}

	slog.Info("catalog seeded", "dir", dir, "tasks", n, "skipped", len(raw)-len(tasks), "tags", len(tags))
	return n, nil
}
