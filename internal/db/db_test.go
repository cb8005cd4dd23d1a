package db

import (
	"path/filepath"
	"testing"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	var count int
	if err := d.QueryRow("SELECT COUNT(*) FROM quota_usage").Scan(&count); err != nil {
		t.Errorf("table quota_usage: %v", err)
	}
	if d.Path() != ":memory:" {
		t.Errorf("Path() = %q", d.Path())
	}
}

func TestMigrateIdempotent(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	// Running migrate again should not fail.
	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate() error: %v", err)
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "flowminds.db")

	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer d.Close()

	if _, err := d.Exec(`INSERT INTO quota_usage (client, day, uses, expires_at) VALUES ('c', '2026-01-01', 1, '2026-01-02T00:00:00Z')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	// The primary key is (client, day).
	if _, err := d.Exec(`INSERT INTO quota_usage (client, day, uses, expires_at) VALUES ('c', '2026-01-01', 1, '2026-01-02T00:00:00Z')`); err == nil {
		t.Error("expected duplicate key error")
	}
}
