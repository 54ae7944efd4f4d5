package storage

import (
	"io/fs"
	"testing"
	"testing/fstest"
)

func TestPendingMigrations(t *testing.T) {
	source := fstest.MapFS{
		"002_tags.sql":  {Data: []byte("SELECT 1")},
		"001_init.sql":  {Data: []byte("SELECT 1")},
		"003_next.sql":  {Data: []byte("SELECT 1")},
		"README.md":     {Data: []byte("docs")},
		"old/004_x.sql": {Data: []byte("SELECT 1")},
	}

	pending, err := pendingMigrations(source, map[string]bool{"002_tags.sql": true})
	if err != nil {
		t.Fatalf("pendingMigrations failed: %v", err)
	}

	want := []string{"001_init.sql", "003_next.sql"}
	if len(pending) != len(want) {
		t.Fatalf("expected %v, got %v", want, pending)
	}
	for i := range want {
		if pending[i] != want[i] {
			t.Errorf("migration %d: expected %s, got %s", i, want[i], pending[i])
		}
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		t.Fatalf("fs.Sub failed: %v", err)
	}

	pending, err := pendingMigrations(sub, nil)
	if err != nil {
		t.Fatalf("pendingMigrations failed: %v", err)
	}
	if len(pending) == 0 || pending[0] != "001_init.sql" {
		t.Errorf("expected 001_init.sql first, got %v", pending)
	}
}
