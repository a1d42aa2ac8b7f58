package migration

import (
	"errors"
	"slices"
	"testing"
	"testing/fstest"
)

func TestScanner_ScanMigrations(t *testing.T) {
	t.Parallel()

	t.Run("orders by numeric version and ignores other files", func(t *testing.T) {
		t.Parallel()
		fsys := fstest.MapFS{
			"migrations/10_add_index.sql":       {Data: []byte("CREATE INDEX idx ON t(a);")},
			"migrations/002_second.sql":         {Data: []byte("CREATE TABLE b (id TEXT);")},
			"migrations/001_initial_schema.sql": {Data: []byte("CREATE TABLE t (a TEXT);")},
			"migrations/README.md":              {Data: []byte("notes")},
		}
		migrations, err := NewScanner(fsys).ScanMigrations("migrations")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var versions []string
		for _, m := range migrations {
			versions = append(versions, m.Version)
		}
		if want := []string{"001", "002", "10"}; !slices.Equal(versions, want) {
			t.Fatalf("versions = %v, want %v", versions, want)
		}
		if migrations[0].Description != "initial schema" || migrations[0].Checksum == "" {
			t.Fatalf("unexpected metadata %+v", migrations[0])
		}
	})

	t.Run("rejects malformed names", func(t *testing.T) {
		t.Parallel()
		fsys := fstest.MapFS{"migrations/initial.sql": {Data: []byte("SELECT 1;")}}
		_, err := NewScanner(fsys).ScanMigrations("migrations")
		if !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile, got %v", err)
		}
	})

	t.Run("rejects duplicate versions", func(t *testing.T) {
		t.Parallel()
		fsys := fstest.MapFS{
			"migrations/001_a.sql": {Data: []byte("SELECT 1;")},
			"migrations/1_b.sql":   {Data: []byte("SELECT 2;")},
		}
		_, err := NewScanner(fsys).ScanMigrations("migrations")
		if !errors.Is(err, ErrDuplicateVersion) {
			t.Fatalf("expected ErrDuplicateVersion, got %v", err)
		}
	})

	t.Run("rejects empty files", func(t *testing.T) {
		t.Parallel()
		fsys := fstest.MapFS{"migrations/001_empty.sql": {Data: []byte("  \n")}}
		_, err := NewScanner(fsys).ScanMigrations("migrations")
		if !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile, got %v", err)
		}
	})
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	script := `
-- leading comment
CREATE TABLE a (name TEXT DEFAULT 'x;y');
INSERT INTO a (name) VALUES ("semi;colon");

CREATE INDEX idx_a ON a(name)
`
	got := splitStatements(script)
	if len(got) != 3 {
		t.Fatalf("expected 3 statements, got %d: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE a (name TEXT DEFAULT 'x;y')" {
		t.Fatalf("unexpected first statement %q", got[0])
	}
	if got[2] != "CREATE INDEX idx_a ON a(name)" {
		t.Fatalf("unexpected last statement %q", got[2])
	}
}
