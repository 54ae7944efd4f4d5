package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/terra-clan/task-lobby/internal/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadCatalogFromDir(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "catalog.yaml"), `
tags: [math, strings, math, other]
`)
	writeFile(t, filepath.Join(dir, "tasks", "01-basics.yaml"), `
tasks:
  - id: "1"
    name: Sum of two
    level: easy
    tags: [math]
    origin: github
  - id: "2"
    name: Reverse string
    level: easy
    tags: [strings, math, strings]
    origin: user
    creator_id: "42"
`)
	writeFile(t, filepath.Join(dir, "tasks", "fizz-buzz.yml"), `
name: Fizz Buzz
level: elementary
tags: []
`)
	writeFile(t, filepath.Join(dir, "tasks", "broken.yaml"), "tasks: [: nope")

	loader := NewLoader(dir)
	tasks, err := loader.FetchTasks(context.Background())
	if err != nil {
		t.Fatalf("FetchTasks failed: %v", err)
	}

	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "1" || tasks[1].ID != "2" {
		t.Errorf("unexpected order: %s, %s", tasks[0].ID, tasks[1].ID)
	}
	if tasks[1].CreatorID == nil || *tasks[1].CreatorID != "42" {
		t.Error("expected creator_id 42 on task 2")
	}
	if tasks[2].ID != "fizz-buzz" {
		t.Errorf("expected id from file name, got %q", tasks[2].ID)
	}
	if tasks[2].Level != models.LevelElementary {
		t.Errorf("expected level elementary, got %q", tasks[2].Level)
	}

	tags, err := loader.FetchTags(context.Background())
	if err != nil {
		t.Fatalf("FetchTags failed: %v", err)
	}
	want := []string{"math", "strings", "other"}
	if len(tags) != len(want) {
		t.Fatalf("expected tags %v, got %v", want, tags)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tag %d: expected %q, got %q", i, want[i], tags[i])
		}
	}
}

func TestLoadCatalogWithoutCatalogFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tasks", "a.yaml"), "id: a\nname: A\nlevel: hard\n")

	loader := NewLoader(dir)
	tasks, err := loader.FetchTasks(context.Background())
	if err != nil {
		t.Fatalf("FetchTasks failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}

	tags, _ := loader.FetchTags(context.Background())
	if len(tags) != 0 {
		t.Errorf("expected no tags, got %v", tags)
	}
}

func TestLoadCatalogBrokenCatalogFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "catalog.yaml"), "tags: {")

	if _, err := NewLoader(dir).FetchTasks(context.Background()); err == nil {
		t.Fatal("expected error for broken catalog.yaml")
	}
}
